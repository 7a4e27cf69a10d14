// Package gojson reads and writes facts as JSON using goccy/go-json.
//
// A fact is an object {"predicate": "bday", "args": [...]}. The input is
// either one array of facts or a stream of fact objects (JSON lines).
// Arguments are numbers, strings, arrays (tuples), {"symbol": "sofia"} for
// constants and {"name": "date", "args": [...]} for compound terms.
package gojson

import (
	"bufio"
	"bytes"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"io"

	j "github.com/goccy/go-json"

	factskema "github.com/reoring/factskema"
)

type wireFact struct {
	Predicate string `json:"predicate"`
	Args      []any  `json:"args"`
}

// Reader is a factskema.FactSource over JSON input.
type Reader struct {
	br      *bufio.Reader
	dec     *j.Decoder
	array   bool
	started bool
	done    bool
	n       int
}

var _ factskema.FactSource = (*Reader)(nil)

// NewReader returns a fact source reading JSON from r.
func NewReader(r io.Reader) *Reader { return &Reader{br: bufio.NewReader(r)} }

// NewBytes returns a fact source over b.
func NewBytes(b []byte) *Reader { return NewReader(bytes.NewReader(b)) }

func (r *Reader) start() error {
	r.started = true
	for {
		c, err := r.br.ReadByte()
		if err != nil {
			return err
		}
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			continue
		}
		if err := r.br.UnreadByte(); err != nil {
			return err
		}
		r.dec = j.NewDecoder(r.br)
		r.dec.UseNumber()
		if c == '[' {
			if _, err := r.dec.Token(); err != nil {
				return err
			}
			r.array = true
		}
		return nil
	}
}

// NextFact implements factskema.FactSource.
func (r *Reader) NextFact() (factskema.RawFact, error) {
	if r.done {
		return factskema.RawFact{}, io.EOF
	}
	if !r.started {
		if err := r.start(); err != nil {
			return r.fail(err)
		}
	}
	if r.array && !r.dec.More() {
		if _, err := r.dec.Token(); err != nil {
			return r.fail(err)
		}
		return r.fail(io.EOF)
	}
	var w wireFact
	if err := r.dec.Decode(&w); err != nil {
		return r.fail(err)
	}
	idx := r.n
	r.n++
	if w.Predicate == "" {
		return r.fail(fmt.Errorf("gojson: fact %d: missing predicate", idx))
	}
	args := make([]any, len(w.Args))
	for i, a := range w.Args {
		v, err := fromWire(a)
		if err != nil {
			return r.fail(fmt.Errorf("gojson: fact %d argument %d: %w", idx, i, err))
		}
		args[i] = v
	}
	return factskema.RawFact{Predicate: w.Predicate, Args: args}, nil
}

func (r *Reader) fail(err error) (factskema.RawFact, error) {
	r.done = true
	if errors.Is(err, io.EOF) {
		return factskema.RawFact{}, io.EOF
	}
	return factskema.RawFact{}, err
}

func fromWire(v any) (any, error) {
	switch x := v.(type) {
	case j.Number:
		return stdjson.Number(x.String()), nil
	case []any:
		out := make([]any, len(x))
		for i, it := range x {
			e, err := fromWire(it)
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	case map[string]any:
		if s, ok := x["symbol"]; ok && len(x) == 1 {
			name, ok := s.(string)
			if !ok {
				return nil, fmt.Errorf("symbol must be a string")
			}
			return factskema.Symbol(name), nil
		}
		name, _ := x["name"].(string)
		raw, hasArgs := x["args"].([]any)
		if name == "" || !hasArgs || len(x) != 2 {
			return nil, fmt.Errorf("object arguments must be {\"symbol\"} or {\"name\", \"args\"}")
		}
		args, err := fromWire(raw)
		if err != nil {
			return nil, err
		}
		return factskema.Term{Name: name, Args: args.([]any)}, nil
	}
	return v, nil
}

// Encoder writes facts as JSON lines.
type Encoder struct {
	enc *j.Encoder
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder { return &Encoder{enc: j.NewEncoder(w)} }

// Encode writes one fact.
func (e *Encoder) Encode(f factskema.RawFact) error {
	args := make([]any, len(f.Args))
	for i, a := range f.Args {
		args[i] = toWire(a)
	}
	return e.enc.Encode(wireFact{Predicate: f.Predicate, Args: args})
}

// EncodeRecords writes the facts of decoded records.
func (e *Encoder) EncodeRecords(recs []factskema.Record) error {
	for _, r := range recs {
		if err := e.Encode(r.Fact()); err != nil {
			return err
		}
	}
	return nil
}

func toWire(v any) any {
	switch x := v.(type) {
	case factskema.Symbol:
		return map[string]any{"symbol": string(x)}
	case factskema.Record:
		return toWire(factskema.Term{Name: x.Predicate, Args: x.Args()})
	case factskema.Term:
		args := make([]any, len(x.Args))
		for i, a := range x.Args {
			args[i] = toWire(a)
		}
		if x.Name == "" {
			return args
		}
		return map[string]any{"name": x.Name, "args": args}
	case []any:
		out := make([]any, len(x))
		for i, a := range x {
			out[i] = toWire(a)
		}
		return out
	}
	return v
}
