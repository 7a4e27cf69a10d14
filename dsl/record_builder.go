package dsl

import (
	"fmt"

	factskema "github.com/reoring/factskema"
)

type recordBuilder struct {
	decl factskema.RecordDecl
	errs []error
}

type fieldStep struct {
	*recordBuilder
	idx int
}

// Record creates a new builder for the predicate name.
func Record(name string) *recordBuilder {
	return &recordBuilder{decl: factskema.RecordDecl{Name: name}}
}

// Field appends a positional field. typ is a type name (catalogue type or
// record reference such as "date" or "date/3") or a factskema.Primitive.
func (b *recordBuilder) Field(name string, typ any) *fieldStep {
	fd := factskema.FieldDecl{Name: name}
	switch t := typ.(type) {
	case string:
		fd.Type = t
	case factskema.Primitive:
		fd.Primitive = t
	default:
		b.errs = append(b.errs, fmt.Errorf("dsl: field %s: unsupported type %T", name, typ))
	}
	b.decl.Fields = append(b.decl.Fields, fd)
	return &fieldStep{recordBuilder: b, idx: len(b.decl.Fields) - 1}
}

// Check attaches validators to the current field. They run in order after
// the field parsed.
func (f *fieldStep) Check(vs ...factskema.Validator) *fieldStep {
	fd := &f.decl.Fields[f.idx]
	fd.Validators = append(fd.Validators, vs...)
	return f
}

// Must attaches an inline validator built from fn and msg.
func (f *fieldStep) Must(name string, fn func(any) bool, msg string) *fieldStep {
	return f.Check(factskema.Validator{Name: name, Check: fn, Message: msg})
}

// Refine adds record validators run once every field passed.
func (b *recordBuilder) Refine(vs ...factskema.RecordValidator) *recordBuilder {
	b.decl.Validators = append(b.decl.Validators, vs...)
	return b
}

// Aggregate adds a batch-level aggregate check.
func (b *recordBuilder) Aggregate(a factskema.AggregateCheck) *recordBuilder {
	b.decl.Aggregates = append(b.decl.Aggregates, a)
	return b
}

// Count checks the number of records per group. field names the subject and
// may be empty.
func (b *recordBuilder) Count(field string, e factskema.Expectation, groupBy ...string) *recordBuilder {
	return b.Aggregate(factskema.AggregateCheck{Kind: factskema.AggregateCount, Field: field, Expect: e, GroupBy: groupBy})
}

// Sum checks the sum of an Integer field per group.
func (b *recordBuilder) Sum(field string, e factskema.Expectation, groupBy ...string) *recordBuilder {
	return b.Aggregate(factskema.AggregateCheck{Kind: factskema.AggregateSum, Field: field, Expect: e, GroupBy: groupBy})
}

// SumPositive is Sum over the positive values only.
func (b *recordBuilder) SumPositive(field string, e factskema.Expectation, groupBy ...string) *recordBuilder {
	return b.Aggregate(factskema.AggregateCheck{Kind: factskema.AggregateSum, Sign: factskema.SignPositive, Field: field, Expect: e, GroupBy: groupBy})
}

// SumNegative is Sum over the negative values only.
func (b *recordBuilder) SumNegative(field string, e factskema.Expectation, groupBy ...string) *recordBuilder {
	return b.Aggregate(factskema.AggregateCheck{Kind: factskema.AggregateSum, Sign: factskema.SignNegative, Field: field, Expect: e, GroupBy: groupBy})
}

// TermOnly marks the record as usable only as a nested field type.
func (b *recordBuilder) TermOnly() *recordBuilder {
	b.decl.TermOnly = true
	return b
}

// Decl returns the declaration built so far.
func (b *recordBuilder) Decl() (factskema.RecordDecl, error) {
	if len(b.errs) > 0 {
		return factskema.RecordDecl{}, b.errs[0]
	}
	return b.decl, nil
}

// Declare stages the declaration in reg.
func (b *recordBuilder) Declare(reg *factskema.Registry) error {
	d, err := b.Decl()
	if err != nil {
		return err
	}
	return reg.Declare(d)
}

// Build compiles the declaration in reg.
func (b *recordBuilder) Build(reg *factskema.Registry) (*factskema.Schema, error) {
	d, err := b.Decl()
	if err != nil {
		return nil, err
	}
	return reg.Compile(d)
}

// MustBuild is like Build but panics on error.
func (b *recordBuilder) MustBuild(reg *factskema.Registry) *factskema.Schema {
	s, err := b.Build(reg)
	if err != nil {
		panic(err)
	}
	return s
}
