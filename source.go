package factskema

import (
	"errors"
	"io"
)

// RawFact is an undecoded fact: a predicate name and positional arguments.
// Decoding never mutates it.
type RawFact struct {
	Predicate string
	Args      []any
}

// Key returns the predicate/arity pair of the fact.
func (f RawFact) Key() PredicateKey { return PredicateKey{Name: f.Predicate, Arity: len(f.Args)} }

// String renders the fact in Datalog syntax.
func (f RawFact) String() string { return renderCompound(f.Predicate, f.Args) }

// F is shorthand for building a RawFact.
func F(predicate string, args ...any) RawFact { return RawFact{Predicate: predicate, Args: args} }

// FactSource yields raw facts in order. NextFact returns io.EOF after the
// last fact.
type FactSource interface {
	NextFact() (RawFact, error)
}

// Facts returns a FactSource over an in-memory slice.
func Facts(facts ...RawFact) FactSource { return &sliceSource{facts: facts} }

type sliceSource struct {
	facts []RawFact
	pos   int
}

func (s *sliceSource) NextFact() (RawFact, error) {
	if s.pos >= len(s.facts) {
		return RawFact{}, io.EOF
	}
	f := s.facts[s.pos]
	s.pos++
	return f, nil
}

// MultiSource concatenates sources in order.
func MultiSource(srcs ...FactSource) FactSource { return &multiSource{srcs: srcs} }

type multiSource struct {
	srcs []FactSource
}

func (m *multiSource) NextFact() (RawFact, error) {
	for len(m.srcs) > 0 {
		f, err := m.srcs[0].NextFact()
		if errors.Is(err, io.EOF) {
			m.srcs = m.srcs[1:]
			continue
		}
		return f, err
	}
	return RawFact{}, io.EOF
}

// ReadAll drains src.
func ReadAll(src FactSource) ([]RawFact, error) {
	var out []RawFact
	for {
		f, err := src.NextFact()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
}
