package factskema_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	factskema "github.com/reoring/factskema"
	"github.com/reoring/factskema/dsl"
)

func personSchema(t *testing.T) *factskema.Schema {
	t.Helper()
	reg := factskema.NewRegistry()
	s, err := dsl.Record("person").
		Field("name", dsl.String()).
		Field("age", dsl.IntRange(0, 150)).
		Build(reg)
	if err != nil {
		t.Fatalf("compile person: %v", err)
	}
	return s
}

func TestFailFastContext(t *testing.T) {
	ctx := context.Background()
	if factskema.IsFailFast(ctx) {
		t.Fatalf("background context must not be fail-fast")
	}
	ff := factskema.WithFailFast(ctx, true)
	if !factskema.IsFailFast(ff) || factskema.ModeFrom(ff) != factskema.FailFast {
		t.Fatalf("expected fail-fast mode from context")
	}
	if factskema.ModeFrom(factskema.WithFailFast(ff, false)) != factskema.CollectAll {
		t.Fatalf("expected collect-all after override")
	}
}

func TestDecode_UsesContextMode(t *testing.T) {
	reg := factskema.NewRegistry()
	s := dsl.Record("pair").
		Field("a", dsl.IntMax(10)).
		Field("b", dsl.IntMax(10)).
		MustBuild(reg)
	bad := factskema.F("pair", 11, 12)

	_, err := factskema.Decode(context.Background(), s, bad)
	iss, ok := factskema.AsIssues(err)
	if !ok || len(iss) != 2 {
		t.Fatalf("collect-all: expected 2 issues, got %v", err)
	}
	_, err = factskema.Decode(factskema.WithFailFast(context.Background(), true), s, bad)
	iss, ok = factskema.AsIssues(err)
	if !ok || len(iss) != 1 {
		t.Fatalf("fail-fast: expected 1 issue, got %v", err)
	}
}

func TestSafeDecode(t *testing.T) {
	s := personSchema(t)
	if _, ok := factskema.SafeDecode(context.Background(), s, factskema.F("person", "Ada", 36)); !ok {
		t.Fatalf("expected success")
	}
	if _, ok := factskema.SafeDecode(context.Background(), s, factskema.F("person", "Ada", 200)); ok {
		t.Fatalf("expected failure")
	}
}

func TestIssues_ErrorSummary(t *testing.T) {
	iss := factskema.Issues{
		{Predicate: "p", Arity: 2, Field: "a", Code: factskema.CodeOutOfRange},
		{Predicate: "p", Arity: 2, Field: "b", Code: factskema.CodeInvalidType},
		{Predicate: "p", Arity: 2, Code: factskema.CodeValidation},
		{Code: factskema.CodeCountMismatch},
	}
	got := iss.Error()
	if !strings.HasPrefix(got, "out_of_range at p/2.a; invalid_type at p/2.b; validation at p/2") {
		t.Fatalf("unexpected summary: %q", got)
	}
	if !strings.HasSuffix(got, "... (total 4)") {
		t.Fatalf("expected total suffix: %q", got)
	}
	var wrapped error = iss
	var target factskema.Issues
	if !errors.As(wrapped, &target) || len(target) != 4 {
		t.Fatalf("errors.As failed")
	}
	if !factskema.HasCode(wrapped, factskema.CodeCountMismatch) || factskema.HasCode(wrapped, factskema.CodeSumMismatch) {
		t.Fatalf("HasCode mismatch")
	}
}

func TestIssue_Class(t *testing.T) {
	cases := map[string]factskema.Class{
		factskema.CodeCyclicSchema:  factskema.ClassCompile,
		factskema.CodeInvalidBounds: factskema.ClassCompile,
		factskema.CodeOutOfRange:    factskema.ClassDecode,
		factskema.CodeDuplicateFact: factskema.ClassDecode,
		factskema.CodeSumMismatch:   factskema.ClassAggregate,
		"custom":                    factskema.ClassDecode,
	}
	for code, want := range cases {
		if got := factskema.ClassOf(code); got != want {
			t.Fatalf("%s: got %v want %v", code, got, want)
		}
	}
}

func TestIssue_StringIsSelfContained(t *testing.T) {
	s := personSchema(t)
	_, err := factskema.Decode(context.Background(), s, factskema.F("person", "Ada", 200))
	iss, _ := factskema.AsIssues(err)
	if len(iss) != 1 {
		t.Fatalf("expected one issue, got %v", err)
	}
	line := iss[0].String()
	for _, want := range []string{"person/2", "age", "200", "150", "out_of_range"} {
		if !strings.Contains(line, want) {
			t.Fatalf("rendered issue %q lacks %q", line, want)
		}
	}
}
