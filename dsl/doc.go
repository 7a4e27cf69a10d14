// Package dsl provides a builder for factskema record declarations.
//
// Entry points
//   - Record(name): start a declaration; chain Field/Check/Refine/Count/Sum, then Build(reg).
//   - Int()/IntRange()/String()/Pattern()/Alpha()/Any(): inline primitives for Field.
//
// Example
//
//	reg := factskema.NewRegistry()
//	person := dsl.Record("person").
//	    Field("name", dsl.String()).
//	    Field("age", dsl.IntRange(0, 150)).
//	    MustBuild(reg)
//	rec, err := factskema.Decode(ctx, person, factskema.F("person", "Ada", 36))
//
// Nested records are referenced by name; declare them first (or stage them
// with Declare) and mark them TermOnly when they never appear as facts:
//
//	dsl.Record("date").Field("year", dsl.Int()).Field("month", dsl.IntRange(1, 12)).
//	    Field("day", dsl.IntRange(1, 31)).TermOnly().Declare(reg)
//	dsl.Record("bday").Field("name", dsl.Alpha()).Field("date", "date").Declare(reg)
//	_ = reg.Seal()
package dsl
