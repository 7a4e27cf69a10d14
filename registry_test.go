package factskema_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	factskema "github.com/reoring/factskema"
	"github.com/reoring/factskema/dsl"
)

func TestRegistry_CompilePreservesOrder(t *testing.T) {
	reg := factskema.NewRegistry()
	s, err := dsl.Record("person").
		Field("name", "String").
		Field("age", dsl.IntRange(0, 150)).
		Field("tag", dsl.Alpha("x", "y")).
		Build(reg)
	require.NoError(t, err)
	require.Equal(t, factskema.PredicateKey{Name: "person", Arity: 3}, s.Key())
	require.Equal(t, []string{"name", "age", "tag"}, s.FieldNames())
	require.Equal(t, "person(name: String, age: Integer[0,150], tag: Alpha{x,y})", s.String())

	got, ok := reg.Lookup("person", 3)
	require.True(t, ok)
	require.Same(t, s, got)
	_, ok = reg.Lookup("person", 2)
	require.False(t, ok)
}

func TestRegistry_UnknownType(t *testing.T) {
	reg := factskema.NewRegistry()
	_, err := dsl.Record("p").Field("x", "Nope").Build(reg)
	iss, ok := factskema.AsIssues(err)
	require.True(t, ok)
	require.Equal(t, factskema.CodeUnknownType, iss[0].Code)
	require.Equal(t, "x", iss[0].Field)
	require.Equal(t, factskema.ClassCompile, iss[0].Class())
}

func TestRegistry_InvalidBounds(t *testing.T) {
	reg := factskema.NewRegistry()
	_, err := dsl.Record("p").Field("x", factskema.IntegerBetween(3, 1)).Build(reg)
	iss, _ := factskema.AsIssues(err)
	require.Len(t, iss, 1)
	require.Equal(t, factskema.CodeInvalidBounds, iss[0].Code)
	require.Equal(t, "p", iss[0].Predicate)
	require.Equal(t, "x", iss[0].Field)
}

func TestRegistry_CycleIsNamed(t *testing.T) {
	reg := factskema.NewRegistry()
	require.NoError(t, dsl.Record("a").Field("b", "b").Declare(reg))
	require.NoError(t, dsl.Record("b").Field("a", "a").Declare(reg))
	err := reg.Seal()
	iss, ok := factskema.AsIssues(err)
	require.True(t, ok, "expected issues, got %v", err)
	require.Len(t, iss, 1)
	require.Equal(t, factskema.CodeCyclicSchema, iss[0].Code)
	require.Equal(t, "a/1 -> b/1 -> a/1", iss[0].Params["cycle"])
	require.Contains(t, iss[0].Message, "a/1 -> b/1 -> a/1")
	require.False(t, reg.Sealed())
}

func TestRegistry_SelfReferenceIsCycle(t *testing.T) {
	reg := factskema.NewRegistry()
	_, err := dsl.Record("node").Field("next", "node").Build(reg)
	require.True(t, factskema.HasCode(err, factskema.CodeCyclicSchema))
}

func TestRegistry_CycleBelowRoot(t *testing.T) {
	reg := factskema.NewRegistry()
	require.NoError(t, dsl.Record("top").Field("b", "b").Declare(reg))
	require.NoError(t, dsl.Record("b").Field("c", "c").Declare(reg))
	require.NoError(t, dsl.Record("c").Field("b", "b").Declare(reg))
	iss, _ := factskema.AsIssues(reg.Seal())
	require.Len(t, iss, 1)
	require.Equal(t, "b/1 -> c/1 -> b/1", iss[0].Params["cycle"])
	require.Equal(t, "b", iss[0].Predicate)
}

func TestRegistry_NestedDependencyCompiledFirst(t *testing.T) {
	reg := factskema.NewRegistry()
	// bday is staged before date on purpose.
	require.NoError(t, dsl.Record("bday").Field("name", dsl.Alpha()).Field("date", "date").Declare(reg))
	require.NoError(t, dsl.Record("date").
		Field("year", dsl.Int()).Field("month", dsl.IntRange(1, 12)).Field("day", dsl.IntRange(1, 31)).
		TermOnly().Declare(reg))
	require.NoError(t, reg.Seal())

	bday, ok := reg.Lookup("bday", 2)
	require.True(t, ok)
	f := bday.Fields()[1]
	require.NotNil(t, f.Nested)
	require.Equal(t, "date/3", f.Type)
	date, _ := reg.Lookup("date", 3)
	require.True(t, date.TermOnly())

	var names []string
	for _, s := range reg.Schemas() {
		names = append(names, s.Key().String())
	}
	require.Equal(t, []string{"bday/2", "date/3"}, names)
}

func TestRegistry_OverloadedArities(t *testing.T) {
	reg := factskema.NewRegistry()
	require.NoError(t, dsl.Record("edge").Field("a", dsl.Int()).Field("b", dsl.Int()).Declare(reg))
	require.NoError(t, dsl.Record("edge").Field("a", dsl.Int()).Field("b", dsl.Int()).Field("w", dsl.Int()).Declare(reg))
	// A bare reference to an overloaded name is ambiguous.
	require.NoError(t, dsl.Record("path").Field("e", "edge").Declare(reg))
	err := reg.Seal()
	require.True(t, factskema.HasCode(err, factskema.CodeUnknownType))

	require.NoError(t, dsl.Record("path").Field("e", "edge/3").Declare(reg))
	require.NoError(t, reg.Seal())
	require.Equal(t, []int{2, 3}, reg.Arities("edge"))
}

func TestRegistry_AggregateReferencesChecked(t *testing.T) {
	reg := factskema.NewRegistry()
	_, err := dsl.Record("item").
		Field("name", dsl.Alpha()).
		Field("total", dsl.Int()).
		Count("missing", factskema.ExpectLiteral(1)).
		Sum("name", factskema.ExpectLiteral(1)).
		Count("", factskema.ExpectField("nope")).
		Count("", factskema.ExpectLiteral(1), "ghost").
		Count("", factskema.ExpectBetween(5, 1)).
		Count("", factskema.Expectation{}).
		Build(reg)
	iss, ok := factskema.AsIssues(err)
	require.True(t, ok)
	require.Equal(t, []string{
		factskema.CodeUnknownField,
		factskema.CodeInvalidDeclaration,
		factskema.CodeUnknownField,
		factskema.CodeUnknownField,
		factskema.CodeInvalidBounds,
		factskema.CodeInvalidDeclaration,
	}, iss.Codes())
}

func TestRegistry_DeclarationChecks(t *testing.T) {
	reg := factskema.NewRegistry(factskema.WithMaxArity(2))
	cases := []struct {
		decl factskema.RecordDecl
		code string
	}{
		{factskema.RecordDecl{Name: "Bad"}, factskema.CodeInvalidName},
		{factskema.RecordDecl{Name: "options"}, factskema.CodeReservedName},
		{factskema.RecordDecl{Name: "String"}, factskema.CodeReservedName},
		{factskema.RecordDecl{Name: strings.Repeat("a", 300)}, factskema.CodeInvalidName},
		{factskema.RecordDecl{Name: "wide", Fields: []factskema.FieldDecl{
			{Name: "a", Type: "Any"}, {Name: "b", Type: "Any"}, {Name: "c", Type: "Any"},
		}}, factskema.CodeInvalidDeclaration},
		{factskema.RecordDecl{Name: "twice", Fields: []factskema.FieldDecl{
			{Name: "a", Type: "Any"}, {Name: "a", Type: "Any"},
		}}, factskema.CodeInvalidDeclaration},
		{factskema.RecordDecl{Name: "untyped", Fields: []factskema.FieldDecl{{Name: "a"}}}, factskema.CodeInvalidDeclaration},
		{factskema.RecordDecl{Name: "badfield", Fields: []factskema.FieldDecl{{Name: "A", Type: "Any"}}}, factskema.CodeInvalidName},
	}
	for _, c := range cases {
		err := reg.Declare(c.decl)
		require.Truef(t, factskema.HasCode(err, c.code), "%s: expected %s, got %v", c.decl.Name, c.code, err)
	}
}

func TestRegistry_DuplicateSchema(t *testing.T) {
	reg := factskema.NewRegistry()
	dsl.Record("p").Field("x", dsl.Int()).MustBuild(reg)
	_, err := dsl.Record("p").Field("y", dsl.Int()).Build(reg)
	require.True(t, factskema.HasCode(err, factskema.CodeDuplicateSchema))
}

func TestRegistry_CatalogueTypes(t *testing.T) {
	cat := factskema.NewCatalogue()
	require.NoError(t, cat.Register("Age", factskema.IntegerBetween(0, 150)))
	reg := factskema.NewRegistry(factskema.WithCatalogue(cat))
	s := dsl.Record("person").Field("age", "Age").MustBuild(reg)
	require.Equal(t, "person(age: Age)", s.String())

	// A record cannot take the name of a catalogue type.
	require.NoError(t, cat.Register("money", factskema.Integer{}))
	_, err := dsl.Record("money").Field("x", dsl.Int()).Build(reg)
	require.True(t, factskema.HasCode(err, factskema.CodeDuplicateType))
}

func TestRegistry_SealedRejectsDeclarations(t *testing.T) {
	reg := factskema.NewRegistry()
	require.NoError(t, dsl.Record("p").Field("x", dsl.Int()).Declare(reg))
	require.NoError(t, reg.Seal())
	require.True(t, reg.Sealed())
	require.NoError(t, reg.Seal())

	err := dsl.Record("q").Field("x", dsl.Int()).Declare(reg)
	require.True(t, errors.Is(err, factskema.ErrSealed))
	_, err = dsl.Record("q").Field("x", dsl.Int()).Build(reg)
	require.ErrorIs(t, err, factskema.ErrSealed)
}

func TestRegistry_FailedDeclarationCanBeRedeclared(t *testing.T) {
	reg := factskema.NewRegistry()
	_, err := dsl.Record("p").Field("x", "Nope").Build(reg)
	require.Error(t, err)
	_, err = dsl.Record("p").Field("x", dsl.Int()).Build(reg)
	require.NoError(t, err)
}
