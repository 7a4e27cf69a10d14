package rules_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	factskema "github.com/reoring/factskema"
	"github.com/reoring/factskema/rules"
)

func rec(names []string, values ...any) factskema.Record {
	return factskema.Record{Predicate: "r", Names: names, Values: values}
}

func TestParseOp(t *testing.T) {
	for s, want := range map[string]rules.Op{
		"equals": rules.Eq, "different": rules.Ne, "LT": rules.Lt,
		"<=": rules.Le, " gt ": rules.Gt, ">=": rules.Ge,
	} {
		op, err := rules.ParseOp(s)
		require.NoError(t, err, s)
		require.Equal(t, want, op, s)
	}
	_, err := rules.ParseOp("near")
	require.ErrorContains(t, err, "unknown operator")
}

func TestCompare(t *testing.T) {
	names := []string{"start", "end"}
	v := rules.Compare("start", rules.Lt, "end")
	require.Equal(t, "start lt end", v.Name)
	require.Equal(t, "expected start < end", v.Message)
	require.True(t, v.Check(rec(names, int64(1), int64(2))))
	require.False(t, v.Check(rec(names, int64(2), int64(2))))
	require.False(t, rules.Compare("start", rules.Lt, "missing").Check(rec(names, int64(1), int64(2))))

	// symbols and strings order as text
	require.True(t, rules.Compare("start", rules.Le, "end").Check(rec(names, factskema.Symbol("a"), "b")))
	require.True(t, rules.Compare("start", rules.Eq, "end").Check(rec(names, factskema.Symbol("a"), "a")))
	require.False(t, rules.Compare("start", rules.Gt, "end").Check(rec(names, int64(1), "b")))
}

func TestParseComparison(t *testing.T) {
	v, err := rules.ParseComparison("a different b")
	require.NoError(t, err)
	require.True(t, v.Check(rec([]string{"a", "b"}, int64(1), int64(2))))

	_, err = rules.ParseComparison("a lt")
	require.ErrorContains(t, err, "must be")
	_, err = rules.ParseComparison("a about b")
	require.ErrorContains(t, err, "unknown operator")
}

func TestCompare_NestedPath(t *testing.T) {
	date := factskema.Record{Predicate: "date", Names: []string{"year"}, Values: []any{int64(2019)}}
	r := rec([]string{"from", "to"}, date, factskema.Record{Predicate: "date", Names: []string{"year"}, Values: []any{int64(2020)}})
	require.True(t, rules.Compare("from.year", rules.Lt, "to.year").Check(r))
	require.False(t, rules.Compare("from.month", rules.Lt, "to.year").Check(r))
	require.False(t, rules.Compare("from.year.x", rules.Lt, "to.year").Check(r))
}

func TestIfThen(t *testing.T) {
	names := []string{"kind", "qty"}
	v := rules.If("kind", rules.Eq, factskema.Symbol("bulk")).
		Then(factskema.RecordValidator{
			Name:    "qty>=10",
			Check:   func(r factskema.Record) bool { return r.Int("qty") >= 10 },
			Message: "bulk orders need at least 10",
		})
	require.Equal(t, "if(kind equals bulk) qty>=10", v.Name)
	require.Equal(t, "bulk orders need at least 10", v.Message)
	require.True(t, v.Check(rec(names, factskema.Symbol("single"), int64(1))))
	require.True(t, v.Check(rec(names, factskema.Symbol("bulk"), int64(12))))
	require.False(t, v.Check(rec(names, factskema.Symbol("bulk"), int64(3))))
}

func TestConditional_AndOr(t *testing.T) {
	names := []string{"a", "b"}
	deny := factskema.RecordValidator{Name: "deny", Check: func(factskema.Record) bool { return false }}

	and := rules.If("a", rules.Gt, 0).And(rules.If("b", rules.Gt, 0)).Then(deny)
	require.Equal(t, "if(a gt 0 and b gt 0) deny", and.Name)
	require.False(t, and.Check(rec(names, int64(1), int64(1))))
	require.True(t, and.Check(rec(names, int64(1), int64(0))))

	or := rules.If("a", rules.Gt, 0).Or(rules.If("b", rules.Gt, 0)).Then(deny)
	require.False(t, or.Check(rec(names, int64(0), int64(1))))
	require.True(t, or.Check(rec(names, int64(0), int64(0))))
}

func TestAllAny(t *testing.T) {
	pass := factskema.RecordValidator{Name: "p", Check: func(factskema.Record) bool { return true }, Message: "p failed"}
	fail := factskema.RecordValidator{Name: "f", Check: func(factskema.Record) bool { return false }, Message: "f failed"}
	r := rec(nil)

	all := rules.All(pass, fail)
	require.Equal(t, "p and f", all.Name)
	require.False(t, all.Check(r))
	require.True(t, rules.All().Check(r))

	anyOf := rules.Any(fail, pass)
	require.Equal(t, "expected one of: f, p", anyOf.Message)
	require.True(t, anyOf.Check(r))
	require.False(t, rules.Any(fail).Check(r))
	require.True(t, rules.Any().Check(r))
}

func TestFieldValidators(t *testing.T) {
	one := rules.OneOf("red", int64(3))
	require.True(t, one.Check(factskema.Symbol("red")))
	require.True(t, one.Check(int64(3)))
	require.False(t, one.Check("blue"))
	require.Equal(t, "expected one of red, 3", one.Message)

	between := rules.Between(1, 3)
	require.True(t, between.Check(int64(1)))
	require.True(t, between.Check(3))
	require.False(t, between.Check(int64(4)))
	require.False(t, between.Check("2"))

	l := rules.Len(2, -1)
	require.Equal(t, "expected length of at least 2", l.Message)
	require.True(t, l.Check("日本"))
	require.False(t, l.Check(factskema.Symbol("a")))
	require.False(t, l.Check(int64(10)))
	require.Equal(t, "expected length of at most 3", rules.Len(-1, 3).Message)

	c := rules.Check("even", func(v any) bool { n, _ := v.(int64); return n%2 == 0 }, "expected even")
	require.Equal(t, "even", c.Name)
	require.True(t, c.Check(int64(4)))
}

func TestCompareInDecode(t *testing.T) {
	reg := factskema.NewRegistry()
	require.NoError(t, reg.Declare(factskema.RecordDecl{
		Name:       "span",
		Fields:     []factskema.FieldDecl{{Name: "start", Type: "Integer"}, {Name: "end", Type: "Integer"}},
		Validators: []factskema.RecordValidator{rules.Compare("start", rules.Lt, "end")},
	}))
	require.NoError(t, reg.Seal())
	s, ok := reg.Lookup("span", 2)
	require.True(t, ok)

	_, err := factskema.Decode(t.Context(), s, factskema.RawFact{Predicate: "span", Args: []any{1, 2}})
	require.NoError(t, err)

	_, err = factskema.Decode(t.Context(), s, factskema.RawFact{Predicate: "span", Args: []any{3, 2}})
	iss, ok := factskema.AsIssues(err)
	require.True(t, ok)
	require.Len(t, iss, 1)
	require.Equal(t, factskema.CodeValidation, iss[0].Code)
	require.Equal(t, "start lt end", iss[0].Rule)
}
