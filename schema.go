package factskema

import (
	"fmt"
	"strconv"
	"strings"
)

// PredicateKey identifies a schema by predicate name and arity. The same name
// may be declared with several arities.
type PredicateKey struct {
	Name  string
	Arity int
}

func (k PredicateKey) String() string { return k.Name + "/" + strconv.Itoa(k.Arity) }

// ParseKey parses "name/arity".
func ParseKey(s string) (PredicateKey, bool) {
	i := strings.LastIndexByte(s, '/')
	if i <= 0 {
		return PredicateKey{}, false
	}
	n, err := strconv.Atoi(s[i+1:])
	if err != nil || n < 0 {
		return PredicateKey{}, false
	}
	return PredicateKey{Name: s[:i], Arity: n}, true
}

// Validator is a per-field check run after the field parsed successfully.
type Validator struct {
	Name    string
	Check   func(v any) bool
	Message string
}

// RecordValidator is a cross-field check run once every field has passed.
type RecordValidator struct {
	Name    string
	Check   func(r Record) bool
	Message string
}

// FieldDecl declares one positional field. Primitive, when set, is used
// inline; otherwise Type names a catalogue type or a record declaration
// ("date" or "date/3").
type FieldDecl struct {
	Name       string
	Type       string
	Primitive  Primitive
	Validators []Validator
}

// AggregateKind selects what an aggregate check measures.
type AggregateKind int

const (
	AggregateCount AggregateKind = iota
	AggregateSum
)

func (k AggregateKind) String() string {
	if k == AggregateSum {
		return "sum"
	}
	return "count"
}

// Sign filters the values a sum adds up.
type Sign int

const (
	SignAll Sign = iota
	SignPositive
	SignNegative
)

func (s Sign) String() string {
	switch s {
	case SignPositive:
		return "+"
	case SignNegative:
		return "-"
	default:
		return ""
	}
}

// Expectation is the value an aggregate is compared with: a literal, the
// value of a field shared by the group, or an inclusive range.
type Expectation struct {
	Literal *int64
	Field   string
	Min     *int64
	Max     *int64
}

// ExpectLiteral expects exactly n.
func ExpectLiteral(n int64) Expectation { return Expectation{Literal: &n} }

// ExpectField expects the value held by field in the group's records.
func ExpectField(name string) Expectation { return Expectation{Field: name} }

// ExpectBetween expects a value within [min, max].
func ExpectBetween(min, max int64) Expectation { return Expectation{Min: &min, Max: &max} }

// ExpectAtLeast expects a value of at least min.
func ExpectAtLeast(min int64) Expectation { return Expectation{Min: &min} }

// ExpectAtMost expects a value of at most max.
func ExpectAtMost(max int64) Expectation { return Expectation{Max: &max} }

func (e Expectation) isRange() bool { return e.Min != nil || e.Max != nil }

func (e Expectation) forms() int {
	n := 0
	if e.Literal != nil {
		n++
	}
	if e.Field != "" {
		n++
	}
	if e.isRange() {
		n++
	}
	return n
}

func (e Expectation) String() string {
	switch {
	case e.Literal != nil:
		return strconv.FormatInt(*e.Literal, 10)
	case e.Field != "":
		return "field " + e.Field
	case e.Min != nil && e.Max != nil:
		return fmt.Sprintf("between %d and %d", *e.Min, *e.Max)
	case e.Min != nil:
		return fmt.Sprintf("at least %d", *e.Min)
	case e.Max != nil:
		return fmt.Sprintf("at most %d", *e.Max)
	}
	return "nothing"
}

// AggregateCheck is a batch-level constraint over the records of one schema,
// evaluated per group. An empty GroupBy groups the whole predicate.
type AggregateCheck struct {
	Name    string
	Kind    AggregateKind
	Field   string // subject field; required for sums
	Expect  Expectation
	GroupBy []string
	Sign    Sign
}

func (a AggregateCheck) label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Kind.String() + a.Sign.String() + "(" + a.Field + ")"
}

// String renders the check, e.g. "count(item) expects 2 per order".
func (a AggregateCheck) String() string {
	s := a.label() + " expects " + a.Expect.String()
	if len(a.GroupBy) > 0 {
		s += " per " + strings.Join(a.GroupBy, ",")
	}
	return s
}

// RecordDecl is the uncompiled declaration of a record schema.
type RecordDecl struct {
	Name       string
	Fields     []FieldDecl
	Validators []RecordValidator
	Aggregates []AggregateCheck
	// TermOnly records are usable only as nested field types; facts with
	// their predicate are not decoded at top level.
	TermOnly bool
}

// Key returns the predicate/arity pair the declaration compiles to.
func (d RecordDecl) Key() PredicateKey { return PredicateKey{Name: d.Name, Arity: len(d.Fields)} }

// Schema is a compiled, immutable record schema.
type Schema struct {
	key        PredicateKey
	fields     []field
	names      []string
	validators []RecordValidator
	aggregates []AggregateCheck
	termOnly   bool
}

type field struct {
	name       string
	typeName   string
	prim       Primitive
	nested     *Schema
	validators []Validator
}

// FieldInfo describes a compiled field.
type FieldInfo struct {
	Name      string
	Type      string
	Primitive Primitive // nil for nested records
	Nested    *Schema
}

func (s *Schema) Name() string        { return s.key.Name }
func (s *Schema) Arity() int          { return s.key.Arity }
func (s *Schema) Key() PredicateKey   { return s.key }
func (s *Schema) TermOnly() bool      { return s.termOnly }
func (s *Schema) FieldNames() []string { return append([]string(nil), s.names...) }

// Fields describes the fields in declared order.
func (s *Schema) Fields() []FieldInfo {
	out := make([]FieldInfo, len(s.fields))
	for i, f := range s.fields {
		out[i] = FieldInfo{Name: f.name, Type: f.typeName, Primitive: f.prim, Nested: f.nested}
	}
	return out
}

// FieldIndex returns the position of the named field, or -1.
func (s *Schema) FieldIndex(name string) int {
	for i, n := range s.names {
		if n == name {
			return i
		}
	}
	return -1
}

// Aggregates returns the aggregate checks in declared order.
func (s *Schema) Aggregates() []AggregateCheck {
	return append([]AggregateCheck(nil), s.aggregates...)
}

// String renders the schema, e.g. person(name: String, age: Integer[0,150]).
func (s *Schema) String() string {
	b := &strings.Builder{}
	b.WriteString(s.key.Name)
	b.WriteByte('(')
	for i, f := range s.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.name)
		b.WriteString(": ")
		b.WriteString(f.typeName)
	}
	b.WriteByte(')')
	return b.String()
}
