package schemafile

import (
	"fmt"

	"gopkg.in/yaml.v3"

	factskema "github.com/reoring/factskema"
	"github.com/reoring/factskema/rules"
)

// bound is an exact value, an inclusive range or unbounded: `3`,
// `{min: 1, max: 3}` or `Integer`.
type bound struct {
	Exact *int64
	Min   *int64
	Max   *int64
}

func (b *bound) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		if n.Value == "Integer" {
			return nil
		}
		var v int64
		if err := n.Decode(&v); err != nil {
			return err
		}
		b.Exact = &v
		return nil
	}
	if err := checkKeys(n, "min", "max"); err != nil {
		return err
	}
	var r struct {
		Min *int64 `yaml:"min"`
		Max *int64 `yaml:"max"`
	}
	if err := n.Decode(&r); err != nil {
		return err
	}
	b.Min, b.Max = r.Min, r.Max
	return nil
}

func (b *bound) unbounded() bool { return b.Exact == nil && b.Min == nil && b.Max == nil }

func (b *bound) expectation() factskema.Expectation {
	return factskema.Expectation{Literal: b.Exact, Min: b.Min, Max: b.Max}
}

type fieldSpec struct {
	Type    string            `yaml:"type"`
	Min     *int64            `yaml:"min"`
	Max     *int64            `yaml:"max"`
	Enum    []any             `yaml:"enum"`
	Pattern string            `yaml:"pattern"`
	Labels  map[string]string `yaml:"labels"`
	Count   *bound            `yaml:"count"`
	Sum     *bound            `yaml:"sum"`
	SumPos  *bound            `yaml:"sum+"`
	SumNeg  *bound            `yaml:"sum-"`
}

func parseFieldSpec(n *yaml.Node) (fieldSpec, error) {
	if n.Kind == yaml.ScalarNode {
		return fieldSpec{Type: n.Value}, nil
	}
	if err := checkKeys(n, "type", "min", "max", "enum", "pattern", "labels", "count", "sum", "sum+", "sum-"); err != nil {
		return fieldSpec{}, err
	}
	var s fieldSpec
	if err := n.Decode(&s); err != nil {
		return fieldSpec{}, wrapAt(n, err)
	}
	if s.Type == "" {
		return fieldSpec{}, errorAt(n, "missing type")
	}
	return s, nil
}

func (s fieldSpec) hasAggregates() bool {
	return s.Count != nil || s.Sum != nil || s.SumPos != nil || s.SumNeg != nil
}

// primitive builds the inline primitive for built-in types together with the
// validators the settings imply. For other type names it returns a nil
// primitive and only the validators.
func (s fieldSpec) primitive() (factskema.Primitive, []factskema.Validator, error) {
	var vs []factskema.Validator
	lengths := func() {
		if s.Min != nil || s.Max != nil {
			lo, hi := -1, -1
			if s.Min != nil {
				lo = int(*s.Min)
			}
			if s.Max != nil {
				hi = int(*s.Max)
			}
			vs = append(vs, rules.Len(lo, hi))
		}
	}
	enum := func(conv func(any) (any, error)) error {
		if len(s.Enum) == 0 {
			return nil
		}
		vals := make([]any, len(s.Enum))
		for i, e := range s.Enum {
			v, err := conv(e)
			if err != nil {
				return err
			}
			vals[i] = v
		}
		vs = append(vs, rules.OneOf(vals...))
		return nil
	}
	asIs := func(v any) (any, error) { return v, nil }

	switch s.Type {
	case "Integer":
		if s.Pattern != "" || len(s.Labels) > 0 {
			return nil, nil, fmt.Errorf("pattern and labels do not apply to Integer")
		}
		if err := enum(func(v any) (any, error) {
			n, ok := v.(int)
			if !ok {
				return nil, fmt.Errorf("enum value %v is not an integer", v)
			}
			return int64(n), nil
		}); err != nil {
			return nil, nil, err
		}
		return factskema.Integer{Min: s.Min, Max: s.Max}, vs, nil
	case "String":
		if len(s.Labels) > 0 {
			return nil, nil, fmt.Errorf("labels do not apply to String")
		}
		lengths()
		if err := enum(asIs); err != nil {
			return nil, nil, err
		}
		if s.Pattern == "" {
			return factskema.String{}, vs, nil
		}
		p, err := factskema.StringMatching(s.Pattern)
		if err != nil {
			return nil, nil, err
		}
		return p, vs, nil
	case "Alpha":
		if s.Pattern != "" {
			return nil, nil, fmt.Errorf("pattern does not apply to Alpha")
		}
		lengths()
		alpha := factskema.Alpha{Labels: s.Labels}
		for _, e := range s.Enum {
			tok, ok := e.(string)
			if !ok {
				return nil, nil, fmt.Errorf("enum value %v is not a symbol", e)
			}
			alpha.Alphabet = append(alpha.Alphabet, tok)
		}
		return alpha, vs, nil
	case "Any":
		if s.Min != nil || s.Max != nil || s.Pattern != "" || len(s.Labels) > 0 {
			return nil, nil, fmt.Errorf("Any takes no settings besides enum")
		}
		if err := enum(asIs); err != nil {
			return nil, nil, err
		}
		return factskema.Any{}, vs, nil
	}
	if s.Min != nil || s.Max != nil || s.Pattern != "" || len(s.Labels) > 0 {
		return nil, nil, fmt.Errorf("type %s takes no settings besides enum and aggregates", s.Type)
	}
	if err := enum(asIs); err != nil {
		return nil, nil, err
	}
	return nil, vs, nil
}

// field builds the declaration of field name plus the aggregate checks its
// count/sum settings declare over the whole predicate.
func (s fieldSpec) field(name string) (factskema.FieldDecl, []factskema.AggregateCheck, error) {
	p, vs, err := s.primitive()
	if err != nil {
		return factskema.FieldDecl{}, nil, err
	}
	fd := factskema.FieldDecl{Name: name, Validators: vs}
	if p != nil && (s.Min != nil || s.Max != nil || s.Pattern != "" || len(s.Enum) > 0 || len(s.Labels) > 0) {
		fd.Primitive = p
	} else {
		fd.Type = s.Type
	}
	var aggs []factskema.AggregateCheck
	add := func(b *bound, kind factskema.AggregateKind, sign factskema.Sign) {
		if b == nil || b.unbounded() {
			return
		}
		aggs = append(aggs, factskema.AggregateCheck{Kind: kind, Sign: sign, Field: name, Expect: b.expectation()})
	}
	add(s.Count, factskema.AggregateCount, factskema.SignAll)
	add(s.Sum, factskema.AggregateSum, factskema.SignAll)
	add(s.SumPos, factskema.AggregateSum, factskema.SignPositive)
	add(s.SumNeg, factskema.AggregateSum, factskema.SignNegative)
	return fd, aggs, nil
}
