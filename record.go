package factskema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Symbol is a symbolic constant token such as sofia or red.
type Symbol string

// Term is a compound raw value. A named Term is a function term like
// date(2019,6,25); an unnamed Term is a tuple.
type Term struct {
	Name string
	Args []any
}

// Record is a decoded fact: field names in declared order with typed values.
// Integer fields hold int64, String fields string, Alpha fields Symbol and
// nested record fields Record.
type Record struct {
	Predicate string
	Names     []string
	Values    []any
}

// Arity returns the number of fields.
func (r Record) Arity() int { return len(r.Values) }

// Get returns the value of the named field.
func (r Record) Get(name string) (any, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Int returns the named field as int64, or 0 when absent or not an integer.
func (r Record) Int(name string) int64 {
	v, _ := r.Get(name)
	n, _ := v.(int64)
	return n
}

// Str returns the named field as a string. Symbols are returned as their token.
func (r Record) Str(name string) string {
	v, _ := r.Get(name)
	switch s := v.(type) {
	case string:
		return s
	case Symbol:
		return string(s)
	}
	return ""
}

// Nested returns the named field as a nested Record.
func (r Record) Nested(name string) (Record, bool) {
	v, _ := r.Get(name)
	rec, ok := v.(Record)
	return rec, ok
}

// Args re-serializes the values in declared order. Decoding the result with
// the same schema yields an identical Record.
func (r Record) Args() []any {
	out := make([]any, len(r.Values))
	for i, v := range r.Values {
		if nested, ok := v.(Record); ok {
			out[i] = Term{Name: nested.Predicate, Args: nested.Args()}
			continue
		}
		out[i] = v
	}
	return out
}

// Fact converts the record back into a raw fact.
func (r Record) Fact() RawFact { return RawFact{Predicate: r.Predicate, Args: r.Args()} }

// Identity is the canonical rendering of predicate and values, used for
// duplicate detection.
func (r Record) Identity() string { return r.String() }

// String renders the record in Datalog syntax, e.g. person("Ada",36).
func (r Record) String() string { return renderCompound(r.Predicate, r.Values) }

// Map returns the record as a field-name keyed map; nested records become maps.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.Values))
	for i, n := range r.Names {
		v := r.Values[i]
		if nested, ok := v.(Record); ok {
			m[n] = nested.Map()
			continue
		}
		if s, ok := v.(Symbol); ok {
			v = string(s)
		}
		m[n] = v
	}
	return m
}

func renderCompound(name string, args []any) string {
	b := &strings.Builder{}
	b.WriteString(name)
	if len(args) == 0 && name != "" {
		return b.String()
	}
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(renderValue(a))
	}
	if name == "" && len(args) == 1 {
		b.WriteByte(',')
	}
	b.WriteByte(')')
	return b.String()
}

// FormatValue renders a decoded or raw value in Datalog syntax.
func FormatValue(v any) string { return renderValue(v) }

func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case Symbol:
		return string(x)
	case string:
		return strconv.Quote(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case json.Number:
		return x.String()
	case float64:
		return formatFloat(x)
	case Record:
		return x.String()
	case Term:
		return renderCompound(x.Name, x.Args)
	case []any:
		return renderCompound("", x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// formatFloat keeps a fraction or exponent so 1.0 never renders like the
// integer 1.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".eEIN") {
		return s
	}
	return s + ".0"
}
