package rules

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	factskema "github.com/reoring/factskema"
)

// Op defines comparison operators for Compare and If(...).Then(...).
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

var opNames = map[Op][]string{
	Eq: {"equals", "eq", "=="},
	Ne: {"different", "ne", "!="},
	Lt: {"lt", "<"},
	Le: {"le", "<="},
	Gt: {"gt", ">"},
	Ge: {"ge", ">="},
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n[0]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// ParseOp parses an operator name such as "lt", "different" or "<=".
func ParseOp(s string) (Op, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for op, names := range opNames {
		for _, n := range names {
			if n == s {
				return op, nil
			}
		}
	}
	return Eq, fmt.Errorf("rules: unknown operator %q", s)
}

// Compare builds a record validator requiring field a op field b. Fields may
// be dotted paths into nested records.
func Compare(a string, op Op, b string) factskema.RecordValidator {
	name := a + " " + op.String() + " " + b
	return factskema.RecordValidator{
		Name: name,
		Check: func(r factskema.Record) bool {
			x, ok1 := valueAt(r, a)
			y, ok2 := valueAt(r, b)
			return ok1 && ok2 && compare(x, op, y)
		},
		Message: fmt.Sprintf("expected %s %s %s", a, opSymbol(op), b),
	}
}

// ParseComparison parses "a op b" (for example "start lt end") into a
// record validator.
func ParseComparison(s string) (factskema.RecordValidator, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return factskema.RecordValidator{}, fmt.Errorf("rules: comparison %q must be \"field op field\"", s)
	}
	op, err := ParseOp(parts[1])
	if err != nil {
		return factskema.RecordValidator{}, err
	}
	return Compare(parts[0], op, parts[2]), nil
}

// Conditional composes conditional execution of record validators.
type Conditional struct {
	path string
	op   Op
	want any
	all  []Conditional // composite AND
	any  []Conditional // composite OR
}

// If builds a conditional that evaluates a field against a value.
func If(path string, op Op, want any) Conditional {
	return Conditional{path: path, op: op, want: want}
}

// IfAll builds a conditional that requires all conditions to hold.
func IfAll(conds ...Conditional) Conditional { return Conditional{all: conds} }

// IfAny builds a conditional that requires any condition to hold.
func IfAny(conds ...Conditional) Conditional { return Conditional{any: conds} }

// And combines the receiver with additional conditions using logical AND.
func (c Conditional) And(others ...Conditional) Conditional {
	return IfAll(append([]Conditional{c}, others...)...)
}

// Or combines the receiver with additional conditions using logical OR.
func (c Conditional) Or(others ...Conditional) Conditional {
	return IfAny(append([]Conditional{c}, others...)...)
}

// Then returns a validator that applies vs only to records satisfying the
// condition. Records outside the condition pass.
func (c Conditional) Then(vs ...factskema.RecordValidator) factskema.RecordValidator {
	inner := All(vs...)
	return factskema.RecordValidator{
		Name: "if(" + c.String() + ") " + inner.Name,
		Check: func(r factskema.Record) bool {
			if !c.holds(r) {
				return true
			}
			return inner.Check(r)
		},
		Message: inner.Message,
	}
}

func (c Conditional) String() string {
	join := func(cs []Conditional, sep string) string {
		parts := make([]string, len(cs))
		for i, it := range cs {
			parts[i] = it.String()
		}
		return strings.Join(parts, sep)
	}
	switch {
	case len(c.all) > 0:
		return join(c.all, " and ")
	case len(c.any) > 0:
		return join(c.any, " or ")
	}
	return fmt.Sprintf("%s %s %v", c.path, c.op, c.want)
}

func (c Conditional) holds(r factskema.Record) bool {
	if len(c.all) > 0 {
		for _, it := range c.all {
			if !it.holds(r) {
				return false
			}
		}
		return true
	}
	if len(c.any) > 0 {
		for _, it := range c.any {
			if it.holds(r) {
				return true
			}
		}
		return false
	}
	cur, ok := valueAt(r, c.path)
	if !ok {
		return false
	}
	return compare(cur, c.op, c.want)
}

// ---------- combinators ----------

// All passes when every validator passes. The message is the first failing
// validator's, so callers see the concrete reason.
func All(vs ...factskema.RecordValidator) factskema.RecordValidator {
	names := make([]string, 0, len(vs))
	for _, v := range vs {
		names = append(names, v.Name)
	}
	msgs := make([]string, 0, len(vs))
	for _, v := range vs {
		if v.Message != "" {
			msgs = append(msgs, v.Message)
		}
	}
	return factskema.RecordValidator{
		Name: strings.Join(names, " and "),
		Check: func(r factskema.Record) bool {
			for _, v := range vs {
				if v.Check != nil && !v.Check(r) {
					return false
				}
			}
			return true
		},
		Message: strings.Join(msgs, "; "),
	}
}

// Any passes when at least one validator passes.
func Any(vs ...factskema.RecordValidator) factskema.RecordValidator {
	names := make([]string, 0, len(vs))
	for _, v := range vs {
		names = append(names, v.Name)
	}
	return factskema.RecordValidator{
		Name: strings.Join(names, " or "),
		Check: func(r factskema.Record) bool {
			for _, v := range vs {
				if v.Check != nil && v.Check(r) {
					return true
				}
			}
			return len(vs) == 0
		},
		Message: "expected one of: " + strings.Join(names, ", "),
	}
}

// ---------- field validators ----------

// OneOf accepts values equal to one of the given values.
func OneOf(values ...any) factskema.Validator {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return factskema.Validator{
		Name: "enum",
		Check: func(v any) bool {
			for _, want := range values {
				if compare(v, Eq, want) {
					return true
				}
			}
			return false
		},
		Message: "expected one of " + strings.Join(parts, ", "),
	}
}

// Between accepts integers within [min, max].
func Between(min, max int64) factskema.Validator {
	return factskema.Validator{
		Name: "between",
		Check: func(v any) bool {
			return compare(v, Ge, min) && compare(v, Le, max)
		},
		Message: fmt.Sprintf("expected a value between %d and %d", min, max),
	}
}

// Len bounds the length in characters of strings and symbols. A negative
// bound is not checked.
func Len(min, max int) factskema.Validator {
	var msg string
	switch {
	case min >= 0 && max >= 0:
		msg = fmt.Sprintf("expected length between %d and %d", min, max)
	case min >= 0:
		msg = fmt.Sprintf("expected length of at least %d", min)
	default:
		msg = fmt.Sprintf("expected length of at most %d", max)
	}
	return factskema.Validator{
		Name: "len",
		Check: func(v any) bool {
			var n int
			switch s := v.(type) {
			case string:
				n = utf8.RuneCountInString(s)
			case factskema.Symbol:
				n = utf8.RuneCountInString(string(s))
			default:
				return false
			}
			return (min < 0 || n >= min) && (max < 0 || n <= max)
		},
		Message: msg,
	}
}

// Check wraps a plain function as a named field validator.
func Check(name string, fn func(v any) bool, msg string) factskema.Validator {
	return factskema.Validator{Name: name, Check: fn, Message: msg}
}

// ------- helpers -------

func opSymbol(op Op) string {
	if n, ok := opNames[op]; ok {
		return n[len(n)-1]
	}
	return op.String()
}

// valueAt navigates a record by dotted field path.
func valueAt(r factskema.Record, path string) (any, bool) {
	parts := strings.Split(path, ".")
	cur := r
	for i, p := range parts {
		v, ok := cur.Get(p)
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := v.(factskema.Record)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

func compare(cur any, op Op, want any) bool {
	switch op {
	case Eq:
		return equal(cur, want)
	case Ne:
		return !equal(cur, want)
	case Lt, Le, Gt, Ge:
		return compareOrdered(cur, op, want)
	default:
		return false
	}
}

func equal(a, b any) bool {
	if x, ok := asInt(a); ok {
		y, ok := asInt(b)
		return ok && x == y
	}
	if x, ok := asText(a); ok {
		y, ok := asText(b)
		return ok && x == y
	}
	if x, ok := a.(factskema.Record); ok {
		y, ok := b.(factskema.Record)
		return ok && x.Identity() == y.Identity()
	}
	return reflect.DeepEqual(a, b)
}

func compareOrdered(cur any, op Op, want any) bool {
	var c int
	if a, ok := asInt(cur); ok {
		b, ok := asInt(want)
		if !ok {
			return false
		}
		c = cmpInt(a, b)
	} else if a, ok := asText(cur); ok {
		b, ok := asText(want)
		if !ok {
			return false
		}
		c = strings.Compare(a, b)
	} else {
		return false
	}
	switch op {
	case Lt:
		return c < 0
	case Le:
		return c <= 0
	case Gt:
		return c > 0
	case Ge:
		return c >= 0
	}
	return false
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func asInt(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint()), true
	default:
		return 0, false
	}
}

// asText treats strings and symbols alike: "a" and a compare equal.
func asText(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case factskema.Symbol:
		return string(s), true
	}
	return "", false
}
