package factskema

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	// DefaultMaxArity bounds the number of fields in a record declaration.
	DefaultMaxArity = 16
	maxArityLimit   = 99
	maxNameLength   = 256
)

// Registry compiles record declarations and owns the resulting schemas. It
// is open while declarations are added and sealed before decoding batches.
// Once sealed it is read-only and safe for concurrent lookups.
type Registry struct {
	mu       sync.RWMutex
	cat      *Catalogue
	log      *zap.Logger
	maxArity int

	pending  map[PredicateKey]RecordDecl
	compiled map[PredicateKey]*Schema
	byName   map[string][]PredicateKey
	order    []PredicateKey
	failed   map[PredicateKey]bool
	sealed   bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithCatalogue uses c to resolve type names instead of a fresh catalogue.
func WithCatalogue(c *Catalogue) RegistryOption {
	return func(r *Registry) {
		if c != nil {
			r.cat = c
		}
	}
}

// WithLogger sets the logger used for compile diagnostics.
func WithLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMaxArity overrides DefaultMaxArity. Values outside 1..99 are ignored.
func WithMaxArity(n int) RegistryOption {
	return func(r *Registry) {
		if n >= 1 && n <= maxArityLimit {
			r.maxArity = n
		}
	}
}

// NewRegistry returns an open registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		cat:      nil,
		log:      zap.NewNop(),
		maxArity: DefaultMaxArity,
		pending:  map[PredicateKey]RecordDecl{},
		compiled: map[PredicateKey]*Schema{},
		byName:   map[string][]PredicateKey{},
	}
	for _, o := range opts {
		o(r)
	}
	if r.cat == nil {
		r.cat = NewCatalogue()
	}
	return r
}

// Catalogue returns the catalogue used for type resolution.
func (r *Registry) Catalogue() *Catalogue { return r.cat }

// Sealed reports whether the registry accepts no more declarations.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Declare stages declarations for compilation. Nested references between
// staged declarations are resolved when they are compiled.
func (r *Registry) Declare(decls ...RecordDecl) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrSealed
	}
	var iss Issues
	for _, d := range decls {
		if dIss := r.checkDecl(d); len(dIss) > 0 {
			iss = AppendIssues(iss, dIss...)
			continue
		}
		r.stage(d)
	}
	if len(iss) > 0 {
		return iss
	}
	return nil
}

// Compile declares d and compiles it immediately together with any staged
// declarations it references.
func (r *Registry) Compile(d RecordDecl) (*Schema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return nil, ErrSealed
	}
	if iss := r.checkDecl(d); len(iss) > 0 {
		return nil, iss
	}
	r.stage(d)
	r.failed = map[PredicateKey]bool{}
	s, iss := r.compileKey(d.Key(), nil, map[PredicateKey]bool{})
	r.dropFailed()
	if s == nil {
		return nil, iss
	}
	return s, nil
}

// Seal compiles every staged declaration and closes the registry. On failure
// the failing declarations are dropped and the registry stays open.
func (r *Registry) Seal() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return nil
	}
	var iss Issues
	r.failed = map[PredicateKey]bool{}
	for _, k := range append([]PredicateKey(nil), r.order...) {
		if _, pending := r.pending[k]; !pending {
			continue
		}
		if _, kIss := r.compileKey(k, nil, map[PredicateKey]bool{}); len(kIss) > 0 {
			iss = AppendIssues(iss, kIss...)
		}
	}
	failed := len(r.failed) > 0
	r.dropFailed()
	if failed {
		return iss
	}
	r.sealed = true
	r.log.Debug("registry sealed", zap.Int("schemas", len(r.compiled)))
	return nil
}

// Lookup returns the compiled schema for name/arity.
func (r *Registry) Lookup(name string, arity int) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.compiled[PredicateKey{Name: name, Arity: arity}]
	return s, ok
}

// Arities lists the compiled arities declared for name.
func (r *Registry) Arities(name string) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []int
	for _, k := range r.byName[name] {
		if _, ok := r.compiled[k]; ok {
			out = append(out, k.Arity)
		}
	}
	return out
}

// Schemas returns the compiled schemas in declaration order.
func (r *Registry) Schemas() []*Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Schema, 0, len(r.compiled))
	for _, k := range r.order {
		if s, ok := r.compiled[k]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) stage(d RecordDecl) {
	k := d.Key()
	r.pending[k] = d
	r.order = append(r.order, k)
	keys := append(r.byName[k.Name], k)
	sort.Slice(keys, func(i, j int) bool { return keys[i].Arity < keys[j].Arity })
	r.byName[k.Name] = keys
}

// dropFailed unstages the declarations that failed to compile so they can be
// fixed and declared again.
func (r *Registry) dropFailed() {
	for k := range r.failed {
		if _, ok := r.pending[k]; ok {
			r.unstage(k)
		}
	}
	r.failed = nil
}

func (r *Registry) unstage(k PredicateKey) {
	delete(r.pending, k)
	for i, o := range r.order {
		if o == k {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	keys := r.byName[k.Name]
	for i, o := range keys {
		if o == k {
			keys = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	if len(keys) == 0 {
		delete(r.byName, k.Name)
	} else {
		r.byName[k.Name] = keys
	}
}

func validName(name string) bool {
	return len(name) <= maxNameLength && constantName.MatchString(name)
}

// checkDecl validates a declaration in isolation.
func (r *Registry) checkDecl(d RecordDecl) Issues {
	k := d.Key()
	at := func(field, code string, params map[string]any) Issue {
		return IssueAt(d.Name, k.Arity, field, code, params)
	}
	switch {
	case IsReserved(d.Name):
		return Issues{at("", CodeReservedName, map[string]any{"name": d.Name})}
	case !validName(d.Name):
		return Issues{at("", CodeInvalidName, map[string]any{"name": d.Name})}
	case r.cat.Has(d.Name):
		return Issues{at("", CodeDuplicateType, map[string]any{"name": d.Name})}
	case k.Arity > r.maxArity:
		return Issues{at("", CodeInvalidDeclaration, map[string]any{
			"reason": fmt.Sprintf("arity %d exceeds the maximum of %d", k.Arity, r.maxArity),
		})}
	}
	if _, dup := r.pending[k]; dup {
		return Issues{at("", CodeDuplicateSchema, map[string]any{"name": k.String()})}
	}
	if _, dup := r.compiled[k]; dup {
		return Issues{at("", CodeDuplicateSchema, map[string]any{"name": k.String()})}
	}
	var iss Issues
	seen := map[string]struct{}{}
	for _, f := range d.Fields {
		if IsReserved(f.Name) || !validName(f.Name) {
			iss = append(iss, at(f.Name, CodeInvalidName, map[string]any{"name": f.Name}))
			continue
		}
		if _, dup := seen[f.Name]; dup {
			iss = append(iss, at(f.Name, CodeInvalidDeclaration, map[string]any{"reason": "field " + f.Name + " declared twice"}))
		}
		seen[f.Name] = struct{}{}
		if f.Primitive == nil && f.Type == "" {
			iss = append(iss, at(f.Name, CodeInvalidDeclaration, map[string]any{"reason": "field " + f.Name + " has no type"}))
		}
		for _, v := range f.Validators {
			if v.Check == nil {
				iss = append(iss, at(f.Name, CodeInvalidDeclaration, map[string]any{"reason": "validator " + v.Name + " has no check"}))
			}
		}
	}
	for _, v := range d.Validators {
		if v.Check == nil {
			iss = append(iss, at("", CodeInvalidDeclaration, map[string]any{"reason": "record validator " + v.Name + " has no check"}))
		}
	}
	return iss
}

// compileKey compiles the staged declaration k depth-first. inProgress marks
// the declarations on the current path; meeting one again is a cycle. A nil
// schema means failure; issues already reported for k are not repeated.
func (r *Registry) compileKey(k PredicateKey, stack []PredicateKey, inProgress map[PredicateKey]bool) (*Schema, Issues) {
	if s, ok := r.compiled[k]; ok {
		return s, nil
	}
	if r.failed[k] {
		return nil, nil
	}
	if inProgress[k] {
		return nil, Issues{cycleIssue(append(stack, k), k)}
	}
	d, ok := r.pending[k]
	if !ok {
		r.failed[k] = true
		return nil, Issues{IssueAt(k.Name, k.Arity, "", CodeUnknownType, map[string]any{"type": k.String()})}
	}
	inProgress[k] = true
	defer delete(inProgress, k)
	stack = append(stack, k)

	s := &Schema{
		key:        k,
		fields:     make([]field, 0, len(d.Fields)),
		names:      make([]string, 0, len(d.Fields)),
		validators: append([]RecordValidator(nil), d.Validators...),
		termOnly:   d.TermOnly,
	}
	var iss Issues
	ok = true
	for _, fd := range d.Fields {
		f, fIss, fOK := r.compileField(k, fd, stack, inProgress)
		iss = append(iss, fIss...)
		if !fOK {
			ok = false
			continue
		}
		s.fields = append(s.fields, f)
		s.names = append(s.names, f.name)
	}
	if !ok {
		r.failed[k] = true
		return nil, iss
	}
	for _, a := range d.Aggregates {
		if aIss := checkAggregate(s, a); len(aIss) > 0 {
			iss = AppendIssues(iss, aIss...)
			continue
		}
		a.GroupBy = append([]string(nil), a.GroupBy...)
		s.aggregates = append(s.aggregates, a)
	}
	if len(iss) > 0 {
		r.failed[k] = true
		return nil, iss
	}
	r.compiled[k] = s
	delete(r.pending, k)
	r.log.Debug("schema compiled", zap.String("predicate", k.String()), zap.String("schema", s.String()))
	return s, nil
}

func (r *Registry) compileField(k PredicateKey, fd FieldDecl, stack []PredicateKey, inProgress map[PredicateKey]bool) (field, Issues, bool) {
	f := field{name: fd.Name, validators: append([]Validator(nil), fd.Validators...)}
	if fd.Primitive != nil {
		if err := fd.Primitive.Validate(); err != nil {
			return f, relocate(err, k, fd.Name), false
		}
		f.prim = fd.Primitive
		f.typeName = fd.Primitive.String()
		return f, nil, true
	}
	if p, err := r.cat.Lookup(fd.Type); err == nil {
		f.prim = p
		f.typeName = fd.Type
		return f, nil, true
	}
	ref, ok := r.resolveRef(fd.Type)
	if !ok {
		return f, Issues{IssueAt(k.Name, k.Arity, fd.Name, CodeUnknownType, map[string]any{"type": fd.Type})}, false
	}
	nested, iss := r.compileKey(ref, stack, inProgress)
	if nested == nil {
		return f, iss, false
	}
	f.nested = nested
	f.typeName = ref.String()
	return f, nil, true
}

// resolveRef resolves a record reference: "name/arity", or a bare name
// declared with exactly one arity.
func (r *Registry) resolveRef(ref string) (PredicateKey, bool) {
	if k, ok := ParseKey(ref); ok {
		_, p := r.pending[k]
		_, c := r.compiled[k]
		return k, p || c
	}
	keys := r.byName[ref]
	if len(keys) != 1 {
		return PredicateKey{}, false
	}
	return keys[0], true
}

func cycleIssue(path []PredicateKey, k PredicateKey) Issue {
	start := 0
	for i, p := range path {
		if p == k {
			start = i
			break
		}
	}
	names := make([]string, 0, len(path)-start)
	for _, p := range path[start:] {
		names = append(names, p.String())
	}
	cycle := strings.Join(names, " -> ")
	root := path[start]
	return IssueAt(root.Name, root.Arity, "", CodeCyclicSchema, map[string]any{"cycle": cycle})
}

// relocate attaches predicate and field to issues returned by a primitive.
func relocate(err error, k PredicateKey, fieldName string) Issues {
	iss, ok := AsIssues(err)
	if !ok {
		return Issues{IssueAt(k.Name, k.Arity, fieldName, CodeInvalidDeclaration, map[string]any{"reason": err.Error()})}
	}
	out := make(Issues, len(iss))
	for i, it := range iss {
		it.Predicate, it.Arity, it.Field = k.Name, k.Arity, fieldName
		out[i] = it
	}
	return out
}

func checkAggregate(s *Schema, a AggregateCheck) Issues {
	at := func(fieldName, code string, params map[string]any) Issue {
		it := IssueAt(s.key.Name, s.key.Arity, fieldName, code, params)
		it.Rule = a.label()
		return it
	}
	intField := func(name string) *Issue {
		i := s.FieldIndex(name)
		if i < 0 {
			it := at(name, CodeUnknownField, map[string]any{"field": name})
			return &it
		}
		if p := s.fields[i].prim; p == nil || p.Kind() != KindInteger {
			it := at(name, CodeInvalidDeclaration, map[string]any{"reason": "field " + name + " must be an Integer"})
			return &it
		}
		return nil
	}
	var iss Issues
	switch a.Kind {
	case AggregateCount:
		if a.Field != "" && s.FieldIndex(a.Field) < 0 {
			iss = append(iss, at(a.Field, CodeUnknownField, map[string]any{"field": a.Field}))
		}
		if a.Sign != SignAll {
			iss = append(iss, at(a.Field, CodeInvalidDeclaration, map[string]any{"reason": "a sign applies to sums only"}))
		}
	case AggregateSum:
		if a.Field == "" {
			iss = append(iss, at("", CodeInvalidDeclaration, map[string]any{"reason": "sum requires a subject field"}))
		} else if it := intField(a.Field); it != nil {
			iss = append(iss, *it)
		}
	default:
		iss = append(iss, at(a.Field, CodeInvalidDeclaration, map[string]any{"reason": "unknown aggregate kind"}))
	}
	if a.Expect.forms() != 1 {
		iss = append(iss, at(a.Field, CodeInvalidDeclaration, map[string]any{"reason": "aggregate needs exactly one expectation"}))
	}
	if a.Expect.Field != "" {
		if it := intField(a.Expect.Field); it != nil {
			iss = append(iss, *it)
		}
	}
	if a.Expect.Min != nil && a.Expect.Max != nil && *a.Expect.Min > *a.Expect.Max {
		iss = append(iss, at(a.Field, CodeInvalidBounds, map[string]any{"min": *a.Expect.Min, "max": *a.Expect.Max}))
	}
	seen := map[string]struct{}{}
	for _, g := range a.GroupBy {
		if s.FieldIndex(g) < 0 {
			iss = append(iss, at(g, CodeUnknownField, map[string]any{"field": g}))
			continue
		}
		if _, dup := seen[g]; dup {
			iss = append(iss, at(g, CodeInvalidDeclaration, map[string]any{"reason": "group key " + g + " listed twice"}))
		}
		seen[g] = struct{}{}
	}
	return iss
}
