package factskema

import (
	"errors"
)

// Decoder turns raw facts into records. It holds no per-batch state and is
// safe for concurrent use.
type Decoder struct {
	mode Mode
}

// NewDecoder returns a decoder running in mode.
func NewDecoder(mode Mode) *Decoder { return &Decoder{mode: mode} }

// Mode returns the decoder's mode.
func (d *Decoder) Mode() Mode { return d.mode }

// Decode validates f against s. The arity is checked first, then every field
// is parsed, then field validators run, then record validators once every
// field passed. In fail-fast mode the first issue ends the fact; otherwise
// every field issue of the fact is returned, including every failing
// validator of a field.
func (d *Decoder) Decode(s *Schema, f RawFact) (Record, error) {
	if f.Predicate != s.Name() {
		it := IssueAt(f.Predicate, len(f.Args), "", CodeUnknownPredicate, map[string]any{"predicate": f.Key().String()})
		return Record{}, Issues{it}
	}
	var iss Issues
	rec, ok := d.decode(s, s.key, f.Args, nil, "", &iss)
	if !ok {
		return Record{}, iss
	}
	return rec, nil
}

// decode decodes args against s. top locates issues; for nested records term
// is the raw value holding args and prefix the dotted path of its field.
func (d *Decoder) decode(s *Schema, top PredicateKey, args []any, term any, prefix string, iss *Issues) (Record, bool) {
	at := func(field, code string, value any, params map[string]any) Issue {
		it := IssueAt(top.Name, top.Arity, field, code, params)
		it.Value = value
		return it
	}
	if len(args) != s.Arity() {
		field := ""
		if prefix != "" {
			field = prefix[:len(prefix)-1]
		}
		*iss = append(*iss, at(field, CodeArityMismatch, term, map[string]any{
			"expected": s.Arity(), "actual": len(args), "predicate": s.key.String(),
		}))
		return Record{}, false
	}

	values := make([]any, len(s.fields))
	parsed := make([]bool, len(s.fields))
	ok := true
	for i, f := range s.fields {
		raw := args[i]
		path := prefix + f.name
		if f.nested != nil {
			nestedArgs, shaped := termArgs(raw, f.nested)
			if !shaped {
				*iss = append(*iss, at(path, CodeInvalidType, raw, map[string]any{
					"expected": f.nested.key.String(), "actual": typeName(raw),
				}))
				ok = false
				if d.mode == FailFast {
					return Record{}, false
				}
				continue
			}
			rec, nok := d.decode(f.nested, top, nestedArgs, raw, path+".", iss)
			if !nok {
				ok = false
				if d.mode == FailFast {
					return Record{}, false
				}
				continue
			}
			values[i], parsed[i] = rec, true
			continue
		}
		v, err := f.prim.Parse(raw)
		if err != nil {
			*iss = append(*iss, parseIssue(at(path, "", raw, nil), err))
			ok = false
			if d.mode == FailFast {
				return Record{}, false
			}
			continue
		}
		values[i], parsed[i] = v, true
	}

	for i, f := range s.fields {
		if !parsed[i] {
			continue
		}
		for _, v := range f.validators {
			if v.Check(values[i]) {
				continue
			}
			*iss = append(*iss, validationIssue(at(prefix+f.name, "", args[i], nil), v.Name, v.Message))
			ok = false
			if d.mode == FailFast {
				return Record{}, false
			}
		}
	}
	if !ok {
		return Record{}, false
	}

	rec := Record{Predicate: s.key.Name, Names: s.names, Values: values}
	for _, v := range s.validators {
		if v.Check(rec) {
			continue
		}
		field := ""
		if prefix != "" {
			field = prefix[:len(prefix)-1]
		}
		*iss = append(*iss, validationIssue(at(field, "", nil, nil), v.Name, v.Message))
		if d.mode == FailFast {
			return Record{}, false
		}
		ok = false
	}
	if !ok {
		return Record{}, false
	}
	return rec, true
}

// termArgs extracts the arguments of a raw compound value meant for nested.
// Unnamed terms and slices are tuples; named terms must carry nested's name.
func termArgs(raw any, nested *Schema) ([]any, bool) {
	switch x := raw.(type) {
	case Term:
		if x.Name != "" && x.Name != nested.key.Name {
			return nil, false
		}
		return x.Args, true
	case []any:
		return x, true
	case Record:
		if x.Predicate != nested.key.Name {
			return nil, false
		}
		return x.Args(), true
	}
	return nil, false
}

func parseIssue(base Issue, err error) Issue {
	var pe *ParseError
	if !errors.As(err, &pe) {
		base.Code = CodeInvalidType
		base.Message = err.Error()
		base.Cause = err
		return base
	}
	it := NewIssue(pe.Code, pe.Params)
	it.Predicate, it.Arity, it.Field, it.Value = base.Predicate, base.Arity, base.Field, base.Value
	return it
}

func validationIssue(base Issue, rule, msg string) Issue {
	it := NewIssue(CodeValidation, map[string]any{"rule": rule})
	it.Predicate, it.Arity, it.Field, it.Value = base.Predicate, base.Arity, base.Field, base.Value
	it.Rule = rule
	if msg != "" {
		it.Message = msg
	}
	return it
}
