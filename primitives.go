package factskema

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/reoring/factskema/i18n"
)

// Kind identifies a primitive type variant.
type Kind int

const (
	KindAny Kind = iota
	KindInteger
	KindAlpha
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "Any"
	case KindInteger:
		return "Integer"
	case KindAlpha:
		return "Alpha"
	case KindString:
		return "String"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Primitive is a parse-and-check rule turning one raw argument into a typed
// value. Implementations are immutable and safe for concurrent use.
type Primitive interface {
	Kind() Kind
	// Parse converts raw into the typed value or returns a *ParseError.
	Parse(raw any) (any, error)
	// Validate checks the configuration itself (for example Min <= Max).
	Validate() error
	// String renders the canonical form, e.g. Integer[0,150].
	String() string
}

// ParseError is the failure of a single Primitive.Parse call.
type ParseError struct {
	Code   string
	Params map[string]any
}

func (e *ParseError) Error() string { return i18n.T(e.Code, messageData(e.Params)) }

func parseErr(code string, params map[string]any) error {
	return &ParseError{Code: code, Params: params}
}

// ConstantNamePattern matches symbolic constants: optional leading
// underscores, a lowercase letter, then letters, digits and underscores.
const ConstantNamePattern = `^_*[a-z][A-Za-z0-9_]*$`

var constantName = regexp.MustCompile(ConstantNamePattern)

// ---- Any ----

// Any accepts every value. Integers are normalized to int64 so that equal
// numbers produce equal identities.
type Any struct{}

func (Any) Kind() Kind      { return KindAny }
func (Any) Validate() error { return nil }
func (Any) String() string  { return "Any" }

func (Any) Parse(raw any) (any, error) { return normalizeAny(raw), nil }

func normalizeAny(raw any) any {
	switch x := raw.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		args := make([]any, len(x))
		for i, a := range x {
			args[i] = normalizeAny(a)
		}
		return Term{Args: args}
	case Term:
		args := make([]any, len(x.Args))
		for i, a := range x.Args {
			args[i] = normalizeAny(a)
		}
		return Term{Name: x.Name, Args: args}
	}
	if n, ok, _ := toInt64(raw); ok {
		return n
	}
	return raw
}

// ---- Integer ----

// Integer accepts whole numbers within the optional inclusive bounds.
type Integer struct {
	Min *int64
	Max *int64
}

// IntegerBetween returns an Integer bounded on both sides.
func IntegerBetween(min, max int64) Integer { return Integer{Min: &min, Max: &max} }

// IntegerAtLeast returns an Integer with a lower bound only.
func IntegerAtLeast(min int64) Integer { return Integer{Min: &min} }

// IntegerAtMost returns an Integer with an upper bound only.
func IntegerAtMost(max int64) Integer { return Integer{Max: &max} }

func (Integer) Kind() Kind { return KindInteger }

func (t Integer) Validate() error {
	if t.Min != nil && t.Max != nil && *t.Min > *t.Max {
		return Issues{NewIssue(CodeInvalidBounds, map[string]any{"min": *t.Min, "max": *t.Max})}
	}
	return nil
}

func (t Integer) String() string {
	if t.Min == nil && t.Max == nil {
		return "Integer"
	}
	lo, hi := "", ""
	if t.Min != nil {
		lo = strconv.FormatInt(*t.Min, 10)
	}
	if t.Max != nil {
		hi = strconv.FormatInt(*t.Max, 10)
	}
	return "Integer[" + lo + "," + hi + "]"
}

func (t Integer) Parse(raw any) (any, error) {
	n, ok, overflow := toInt64(raw)
	if overflow {
		return nil, parseErr(CodeOutOfRange, map[string]any{"value": raw, "side": "int64", "bound": "overflow"})
	}
	if !ok {
		return nil, parseErr(CodeInvalidType, map[string]any{"expected": "integer", "actual": typeName(raw)})
	}
	if t.Min != nil && n < *t.Min {
		return nil, parseErr(CodeOutOfRange, map[string]any{"value": n, "side": "lower", "bound": *t.Min})
	}
	if t.Max != nil && n > *t.Max {
		return nil, parseErr(CodeOutOfRange, map[string]any{"value": n, "side": "upper", "bound": *t.Max})
	}
	return n, nil
}

// toInt64 reports the integer value of raw. overflow is set for integral
// inputs that do not fit into int64.
func toInt64(raw any) (n int64, ok bool, overflow bool) {
	switch x := raw.(type) {
	case int:
		return int64(x), true, false
	case int8:
		return int64(x), true, false
	case int16:
		return int64(x), true, false
	case int32:
		return int64(x), true, false
	case int64:
		return x, true, false
	case uint:
		return uintToInt64(uint64(x))
	case uint8:
		return int64(x), true, false
	case uint16:
		return int64(x), true, false
	case uint32:
		return int64(x), true, false
	case uint64:
		return uintToInt64(x)
	case json.Number:
		if v, err := x.Int64(); err == nil {
			return v, true, false
		}
		if isIntegerText(x.String()) {
			return 0, false, true
		}
	}
	return 0, false, false
}

func uintToInt64(u uint64) (int64, bool, bool) {
	if u > math.MaxInt64 {
		return 0, false, true
	}
	return int64(u), true, false
}

func isIntegerText(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ---- Alpha ----

// Alpha accepts a single symbolic constant token. When Alphabet is set the
// token must be one of its members. Labels optionally maps tokens to the
// enumerated labels they stand for.
type Alpha struct {
	Alphabet []string
	Labels   map[string]string
}

// AlphaOf returns an Alpha restricted to the given tokens.
func AlphaOf(tokens ...string) Alpha { return Alpha{Alphabet: tokens} }

func (Alpha) Kind() Kind { return KindAlpha }

func (t Alpha) Validate() error {
	seen := make(map[string]struct{}, len(t.Alphabet))
	for _, tok := range t.Alphabet {
		if !constantName.MatchString(tok) {
			return Issues{NewIssue(CodeInvalidAlphabet, map[string]any{"reason": fmt.Sprintf("%q is not a constant name", tok)})}
		}
		if _, dup := seen[tok]; dup {
			return Issues{NewIssue(CodeInvalidAlphabet, map[string]any{"reason": fmt.Sprintf("%q listed twice", tok)})}
		}
		seen[tok] = struct{}{}
	}
	for tok := range t.Labels {
		if _, ok := seen[tok]; !ok {
			return Issues{NewIssue(CodeInvalidAlphabet, map[string]any{"reason": fmt.Sprintf("label for %q outside the alphabet", tok)})}
		}
	}
	return nil
}

func (t Alpha) String() string {
	if len(t.Alphabet) == 0 {
		return "Alpha"
	}
	return "Alpha{" + strings.Join(t.Alphabet, ",") + "}"
}

func (t Alpha) Parse(raw any) (any, error) {
	var tok string
	switch x := raw.(type) {
	case Symbol:
		tok = string(x)
	case string:
		tok = x
	default:
		return nil, parseErr(CodeInvalidType, map[string]any{"expected": "symbol", "actual": typeName(raw)})
	}
	if !constantName.MatchString(tok) {
		return nil, parseErr(CodeInvalidAlpha, map[string]any{"value": raw, "reason": "not a constant name"})
	}
	if len(t.Alphabet) > 0 && !t.member(tok) {
		return nil, parseErr(CodeInvalidAlpha, map[string]any{"value": raw, "reason": "not in " + t.String()})
	}
	return Symbol(tok), nil
}

func (t Alpha) member(tok string) bool {
	for _, a := range t.Alphabet {
		if a == tok {
			return true
		}
	}
	return false
}

// Label maps a decoded token to its label. Tokens without a label map to
// themselves.
func (t Alpha) Label(s Symbol) string {
	if l, ok := t.Labels[string(s)]; ok {
		return l
	}
	return string(s)
}

// Token maps a label back to its token.
func (t Alpha) Token(label string) (Symbol, bool) {
	keys := make([]string, 0, len(t.Labels))
	for k := range t.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if t.Labels[k] == label {
			return Symbol(k), true
		}
	}
	if t.member(label) {
		return Symbol(label), true
	}
	return "", false
}

// ---- String ----

// String accepts quoted text, optionally constrained by a pattern that must
// match the whole value. Build patterned values with StringMatching.
type String struct {
	pattern string
	re      *regexp.Regexp
}

// StringMatching returns a String whose values must fully match pattern.
func StringMatching(pattern string) (String, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return String{}, Issues{func() Issue {
			it := NewIssue(CodeInvalidPattern, map[string]any{"pattern": pattern})
			it.Cause = err
			return it
		}()}
	}
	return String{pattern: pattern, re: re}, nil
}

// MustStringMatching is like StringMatching but panics on an invalid pattern.
func MustStringMatching(pattern string) String {
	s, err := StringMatching(pattern)
	if err != nil {
		panic(err)
	}
	return s
}

// Pattern returns the declared pattern, or "" when unconstrained.
func (t String) Pattern() string { return t.pattern }

func (String) Kind() Kind      { return KindString }
func (String) Validate() error { return nil }

func (t String) String() string {
	if t.re == nil {
		return "String"
	}
	return "String(/" + t.pattern + "/)"
}

func (t String) Parse(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, parseErr(CodeInvalidType, map[string]any{"expected": "string", "actual": typeName(raw)})
	}
	if t.re != nil && !t.re.MatchString(s) {
		return nil, parseErr(CodePatternMismatch, map[string]any{"value": s, "pattern": t.pattern})
	}
	return s, nil
}

func typeName(raw any) string {
	switch x := raw.(type) {
	case nil:
		return "nil"
	case Symbol:
		return "symbol"
	case string:
		return "string"
	case json.Number:
		if isIntegerText(x.String()) {
			return "integer"
		}
		return "number"
	case float32, float64:
		return "number"
	case Term:
		if x.Name == "" {
			return "tuple"
		}
		return "term"
	case []any:
		return "tuple"
	case Record:
		return "record"
	case bool:
		return "bool"
	}
	if _, ok, overflow := toInt64(raw); ok || overflow {
		return "integer"
	}
	return fmt.Sprintf("%T", raw)
}
