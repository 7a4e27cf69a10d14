package factskema

// Package factskema provides:
//
// - A catalogue of primitive field types (Any, Integer, Alpha, String) plus user-registered types
// - A schema registry that compiles record declarations, resolves nested records and detects cycles
// - A fact decoder that turns raw predicate facts into typed records (fail-fast or collect-all)
// - Batch decoding with duplicate detection and aggregate (count/sum) checks per group
// - A stable error model via Issues (predicate/arity, field path, code, message)
//
// Design policy:
// - Keep only public APIs in the root package; put detailed implementations under internal/.
// - Place the DSL under dsl/, fact readers under source/, YAML schemas under schemafile/ and the CLI under cmd/factskema.
// - A Registry is open while declaring and immutable once sealed; batches decode only against sealed registries.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//  reg := factskema.NewRegistry()
//  _ = reg.Declare(decls...)
//  _ = reg.Seal()
//  res, err := factskema.DecodeBatch(ctx, reg, datalog.NewSource(r), factskema.Options{})
//  for _, line := range res.Reporter.Render() { fmt.Println(line) }
//
//  s, _ := reg.Lookup("bday", 2)
//  rec, err := factskema.Decode(factskema.WithFailFast(ctx, true), s, fact)
