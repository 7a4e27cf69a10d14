package factskema

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes, grouped by the stage that produces them.
const (
	// Compile stage.
	CodeUnknownType        = "unknown_type"
	CodeCyclicSchema       = "cyclic_schema"
	CodeUnknownField       = "unknown_field"
	CodeInvalidBounds      = "invalid_bounds"
	CodeInvalidPattern     = "invalid_pattern"
	CodeInvalidAlphabet    = "invalid_alphabet"
	CodeInvalidName        = "invalid_name"
	CodeReservedName       = "reserved_name"
	CodeDuplicateType      = "duplicate_type"
	CodeDuplicateSchema    = "duplicate_schema"
	CodeInvalidDeclaration = "invalid_declaration"
	CodeRegistrySealed     = "registry_sealed"

	// Decode stage.
	CodeArityMismatch    = "arity_mismatch"
	CodeInvalidType      = "invalid_type"
	CodeOutOfRange       = "out_of_range"
	CodeInvalidAlpha     = "invalid_alpha"
	CodePatternMismatch  = "pattern_mismatch"
	CodeValidation       = "validation"
	CodeDuplicateFact    = "duplicate_fact"
	CodeUnknownPredicate = "unknown_predicate"

	// Aggregate stage.
	CodeCountMismatch = "count_mismatch"
	CodeSumMismatch   = "sum_mismatch"
)

// Class tells which stage produced an Issue.
type Class int

const (
	ClassCompile Class = iota
	ClassDecode
	ClassAggregate
)

func (c Class) String() string {
	switch c {
	case ClassCompile:
		return "compile"
	case ClassDecode:
		return "decode"
	case ClassAggregate:
		return "aggregate"
	default:
		return "unknown"
	}
}

// ClassOf maps an issue code to its stage. Unrecognized codes are treated as
// decode issues since custom validators report through that stage.
func ClassOf(code string) Class {
	switch code {
	case CodeUnknownType, CodeCyclicSchema, CodeUnknownField, CodeInvalidBounds,
		CodeInvalidPattern, CodeInvalidAlphabet, CodeInvalidName, CodeReservedName,
		CodeDuplicateType, CodeDuplicateSchema, CodeInvalidDeclaration, CodeRegistrySealed:
		return ClassCompile
	case CodeCountMismatch, CodeSumMismatch:
		return ClassAggregate
	default:
		return ClassDecode
	}
}

// Issue represents a single compile error, decode error or aggregate violation.
type Issue struct {
	Predicate string // Predicate (or schema) name the issue belongs to.
	Arity     int
	Field     string // Dotted field path (for example: date.year); empty for whole-fact issues.
	Value     any    // Offending raw value, or the actual aggregate for violations.
	Code      string // One of the codes listed above.
	Message   string
	// Params carries structured parameters (e.g., {"min":0, "max":150}) for
	// i18n and observability.
	Params map[string]any
	// Rule optionally records the validator or check name that produced this issue.
	Rule string
	// Fact is the zero-based position of the fact in its batch (-1 when unknown).
	Fact int
	// Group renders the aggregate group key, e.g. {dept=sales}.
	Group string
	Cause error
}

// Class reports the stage that produced the issue.
func (i Issue) Class() Class { return ClassOf(i.Code) }

// Key renders the predicate/arity pair of the issue, or just the name when
// the arity is unknown.
func (i Issue) Key() string {
	if i.Predicate == "" {
		return ""
	}
	if i.Arity <= 0 {
		return i.Predicate
	}
	return fmt.Sprintf("%s/%d", i.Predicate, i.Arity)
}

// String renders a self-contained line: the reader needs nothing else to
// locate the problem.
func (i Issue) String() string {
	b := &strings.Builder{}
	b.WriteString(i.Class().String())
	b.WriteString(" error")
	if k := i.Key(); k != "" {
		fmt.Fprintf(b, " in %s", k)
	}
	if i.Fact >= 0 && i.Class() == ClassDecode {
		fmt.Fprintf(b, " (fact #%d)", i.Fact)
	}
	if i.Group != "" {
		fmt.Fprintf(b, " group %s", i.Group)
	}
	if i.Field != "" {
		fmt.Fprintf(b, " field %s", i.Field)
	}
	if i.Value != nil {
		fmt.Fprintf(b, " value %s", renderValue(i.Value))
	}
	fmt.Fprintf(b, ": %s [%s]", i.Message, i.Code)
	return b.String()
}

// Issues is a collection of issues that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. out_of_range at person/2.age
		fmt.Fprintf(b, "%s at %s", it.Code, it.location())
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

func (i Issue) location() string {
	loc := i.Key()
	if loc == "" {
		loc = "<root>"
	}
	if i.Field != "" {
		loc += "." + i.Field
	}
	return loc
}

// Codes lists the issue codes in order.
func (iss Issues) Codes() []string {
	out := make([]string, len(iss))
	for i, it := range iss {
		out[i] = it.Code
	}
	return out
}

// Filter returns the issues belonging to class c.
func (iss Issues) Filter(c Class) Issues {
	var out Issues
	for _, it := range iss {
		if it.Class() == c {
			out = append(out, it)
		}
	}
	return out
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// HasCode reports whether err carries an issue with the given code.
func HasCode(err error, code string) bool {
	iss, ok := AsIssues(err)
	if !ok {
		return false
	}
	for _, it := range iss {
		if it.Code == code {
			return true
		}
	}
	return false
}

var (
	// ErrSealed is returned when declaring into a registry that was sealed.
	ErrSealed = errors.New("factskema: registry sealed")
	// ErrNotSealed is returned when decoding a batch against an open registry.
	ErrNotSealed = errors.New("factskema: registry not sealed")
)
