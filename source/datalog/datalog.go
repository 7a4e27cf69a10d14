// Package datalog reads and writes facts in Mangle Datalog syntax.
//
// Only facts are accepted: clauses with a body are rejected. Name constants
// (/sofia) decode to symbols without the leading slash, numbers to int64 or
// float64, strings to strings. fn:list, fn:pair and fn:tuple become tuples;
// any other function application fn:f(...) becomes the compound term f(...).
package datalog

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/google/mangle/ast"
	"github.com/google/mangle/parse"

	factskema "github.com/reoring/factskema"
)

var tupleFns = map[string]bool{"fn:list": true, "fn:pair": true, "fn:tuple": true}

// Read parses every fact in r.
func Read(r io.Reader) ([]factskema.RawFact, error) {
	unit, err := parse.Unit(r)
	if err != nil {
		return nil, fmt.Errorf("datalog: %w", err)
	}
	facts := make([]factskema.RawFact, 0, len(unit.Clauses))
	for i, c := range unit.Clauses {
		if len(c.Premises) > 0 || c.Transform != nil {
			return nil, fmt.Errorf("datalog: clause %d (%s): rules are not facts", i, c.Head.Predicate.Symbol)
		}
		f, err := fromAtom(c.Head)
		if err != nil {
			return nil, fmt.Errorf("datalog: clause %d: %w", i, err)
		}
		facts = append(facts, f)
	}
	return facts, nil
}

// NewSource returns a fact source that parses r on first use.
func NewSource(r io.Reader) factskema.FactSource { return &source{r: r} }

type source struct {
	r      io.Reader
	facts  []factskema.RawFact
	err    error
	loaded bool
	pos    int
}

func (s *source) NextFact() (factskema.RawFact, error) {
	if !s.loaded {
		s.loaded = true
		s.facts, s.err = Read(s.r)
	}
	if s.err != nil {
		return factskema.RawFact{}, s.err
	}
	if s.pos >= len(s.facts) {
		return factskema.RawFact{}, io.EOF
	}
	f := s.facts[s.pos]
	s.pos++
	return f, nil
}

func fromAtom(a ast.Atom) (factskema.RawFact, error) {
	args := make([]any, len(a.Args))
	for i, t := range a.Args {
		v, err := fromTerm(t)
		if err != nil {
			return factskema.RawFact{}, fmt.Errorf("%s argument %d: %w", a.Predicate.Symbol, i, err)
		}
		args[i] = v
	}
	return factskema.RawFact{Predicate: a.Predicate.Symbol, Args: args}, nil
}

func fromTerm(t ast.BaseTerm) (any, error) {
	switch x := t.(type) {
	case ast.Constant:
		switch x.Type {
		case ast.NumberType:
			return x.NumValue, nil
		case ast.Float64Type:
			return math.Float64frombits(uint64(x.NumValue)), nil
		case ast.StringType:
			return x.Symbol, nil
		case ast.NameType:
			return factskema.Symbol(strings.TrimPrefix(x.Symbol, "/")), nil
		}
		return nil, fmt.Errorf("unsupported constant %s", x)
	case ast.ApplyFn:
		args := make([]any, len(x.Args))
		for i, a := range x.Args {
			v, err := fromTerm(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		if tupleFns[x.Function.Symbol] {
			return args, nil
		}
		return factskema.Term{Name: strings.TrimPrefix(x.Function.Symbol, "fn:"), Args: args}, nil
	case ast.Variable:
		return nil, fmt.Errorf("variable %s in a fact", x.Symbol)
	}
	return nil, fmt.Errorf("unsupported term %s", t)
}

// Atom converts a fact into a Mangle atom.
func Atom(f factskema.RawFact) (ast.Atom, error) {
	args := make([]ast.BaseTerm, len(f.Args))
	for i, a := range f.Args {
		t, err := toTerm(a)
		if err != nil {
			return ast.Atom{}, fmt.Errorf("datalog: %s argument %d: %w", f.Predicate, i, err)
		}
		args[i] = t
	}
	return ast.NewAtom(f.Predicate, args...), nil
}

func toTerm(v any) (ast.BaseTerm, error) {
	switch x := v.(type) {
	case factskema.Symbol:
		return ast.Name("/" + string(x))
	case string:
		return ast.String(x), nil
	case int64:
		return ast.Number(x), nil
	case int:
		return ast.Number(int64(x)), nil
	case float64:
		return ast.Float64(x), nil
	case factskema.Record:
		return toTerm(factskema.Term{Name: x.Predicate, Args: x.Args()})
	case factskema.Term:
		fn := "fn:tuple"
		if x.Name != "" {
			fn = "fn:" + x.Name
		}
		return applyFn(fn, x.Args)
	case []any:
		return applyFn("fn:tuple", x)
	}
	return nil, fmt.Errorf("cannot express %T", v)
}

func applyFn(fn string, vals []any) (ast.BaseTerm, error) {
	args := make([]ast.BaseTerm, len(vals))
	for i, v := range vals {
		t, err := toTerm(v)
		if err != nil {
			return nil, err
		}
		args[i] = t
	}
	return ast.ApplyFn{Function: ast.FunctionSym{Symbol: fn, Arity: len(args)}, Args: args}, nil
}

// Write renders records as Datalog facts, one per line.
func Write(w io.Writer, recs []factskema.Record) error {
	for _, r := range recs {
		a, err := Atom(r.Fact())
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s.\n", a); err != nil {
			return err
		}
	}
	return nil
}
