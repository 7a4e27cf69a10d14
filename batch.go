package factskema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reoring/factskema/internal/engine"
)

// Result is the outcome of decoding one batch.
type Result struct {
	ID uuid.UUID
	// Records holds the emitted records in input order.
	Records []Record
	// Reporter holds decode errors followed by aggregate violations.
	Reporter *Reporter
	// Facts counts the facts consumed from the source.
	Facts int
	// Ignored counts facts without a schema when unknown predicates are not strict.
	Ignored int
	// Duplicates counts facts dropped as duplicates.
	Duplicates int
	// Stopped is set when fail-fast mode ended the batch early.
	Stopped bool
}

// OK reports whether the batch produced no issues.
func (r *Result) OK() bool { return !r.Reporter.HasErrors() }

// Err returns the batch issues as an error, or nil.
func (r *Result) Err() error { return r.Reporter.Err() }

// Issues returns every issue of the batch.
func (r *Result) Issues() Issues { return r.Reporter.Issues() }

// RecordsOf returns the records decoded for name/arity.
func (r *Result) RecordsOf(name string, arity int) []Record {
	var out []Record
	for _, rec := range r.Records {
		if rec.Predicate == name && rec.Arity() == arity {
			out = append(out, rec)
		}
	}
	return out
}

// outcome is the decode result of a single fact before it is replayed into
// the batch.
type outcome struct {
	fact   RawFact
	schema *Schema
	rec    Record
	err    error
}

// DecodeBatch decodes every fact of src against the sealed registry, then
// runs the aggregate checks over the decoded records. The returned error is
// reserved for source failures, cancellation and an open registry; fact
// problems are reported through Result.Reporter.
func DecodeBatch(ctx context.Context, reg *Registry, src FactSource, opts Options) (*Result, error) {
	if !reg.Sealed() {
		return nil, ErrNotSealed
	}
	start := time.Now()
	res := &Result{ID: uuid.New(), Reporter: NewReporter(opts.Mode)}
	log := opts.logger().With(zap.String("batch", res.ID.String()))
	b := &batch{
		reg:  reg,
		opts: opts,
		dec:  NewDecoder(opts.Mode),
		res:  res,
		seen: map[string]struct{}{},
		by:   map[PredicateKey][]Record{},
	}

	var err error
	if opts.Workers > 1 {
		err = b.runParallel(ctx, src)
	} else {
		err = b.runSequential(ctx, src)
	}
	if err != nil {
		log.Warn("batch aborted", zap.Error(err), zap.Int("facts", res.Facts))
		return nil, err
	}
	if !res.Stopped {
		b.checkAggregates()
	}

	elapsed := time.Since(start)
	log.Debug("batch decoded",
		zap.Stringer("mode", opts.Mode),
		zap.Int("facts", res.Facts),
		zap.Int("records", len(res.Records)),
		zap.Int("issues", res.Reporter.Len()),
		zap.Int("ignored", res.Ignored),
		zap.Bool("stopped", res.Stopped),
		zap.Duration("elapsed", elapsed),
	)
	if opts.Observer != nil {
		opts.Observer.ObserveBatch(res, elapsed)
	}
	return res, nil
}

// DecodeAll is DecodeBatch over in-memory facts.
func DecodeAll(ctx context.Context, reg *Registry, opts Options, facts ...RawFact) (*Result, error) {
	return DecodeBatch(ctx, reg, Facts(facts...), opts)
}

type batch struct {
	reg  *Registry
	opts Options
	dec  *Decoder
	res  *Result
	seen map[string]struct{}
	by   map[PredicateKey][]Record
}

func (b *batch) decodeOne(f RawFact) outcome {
	s, ok := b.reg.Lookup(f.Predicate, len(f.Args))
	if !ok || s.TermOnly() {
		return outcome{fact: f}
	}
	rec, err := b.dec.Decode(s, f)
	return outcome{fact: f, schema: s, rec: rec, err: err}
}

func (b *batch) runSequential(ctx context.Context, src FactSource) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := src.NextFact()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("factskema: read fact %d: %w", b.res.Facts, err)
		}
		idx := b.res.Facts
		b.res.Facts++
		if !b.apply(idx, b.decodeOne(f)) {
			b.res.Stopped = true
			return nil
		}
	}
}

// runParallel decodes every fact on the worker pool, waits for all of them,
// then replays the outcomes in input order.
func (b *batch) runParallel(ctx context.Context, src FactSource) error {
	facts, err := ReadAll(src)
	if err != nil {
		return fmt.Errorf("factskema: read fact %d: %w", len(facts), err)
	}
	outs, err := engine.Collect(ctx, len(facts), b.opts.Workers, func(_ context.Context, i int) (outcome, error) {
		return b.decodeOne(facts[i]), nil
	})
	if err != nil {
		return err
	}
	for i, o := range outs {
		b.res.Facts++
		if !b.apply(i, o) {
			b.res.Stopped = true
			return nil
		}
	}
	return nil
}

// apply records the outcome of fact idx. It returns false when fail-fast
// mode must stop the batch.
func (b *batch) apply(idx int, o outcome) bool {
	failFast := b.opts.Mode == FailFast
	if o.schema == nil {
		// A declared name binds every arity: facts of another arity are
		// rejected whatever StrictUnknownPredicate says.
		arities := b.factArities(o.fact.Predicate)
		if len(arities) == 0 && !b.opts.StrictUnknownPredicate {
			b.res.Ignored++
			return true
		}
		params := map[string]any{"predicate": o.fact.Key().String()}
		if len(arities) > 0 {
			params["declared_arities"] = arities
		}
		it := IssueAt(o.fact.Predicate, len(o.fact.Args), "", CodeUnknownPredicate, params)
		it.Fact = idx
		b.res.Reporter.Report(it)
		return !failFast
	}
	if o.err != nil {
		iss, _ := AsIssues(o.err)
		for i := range iss {
			iss[i].Fact = idx
		}
		b.res.Reporter.Report(iss...)
		return !failFast
	}
	if b.opts.DetectDuplicates {
		id := o.rec.Identity()
		if _, dup := b.seen[id]; dup {
			it := IssueAt(o.schema.Name(), o.schema.Arity(), "", CodeDuplicateFact, map[string]any{"identity": id})
			it.Fact = idx
			b.res.Reporter.Report(it)
			b.res.Duplicates++
			return true
		}
		b.seen[id] = struct{}{}
	}
	b.res.Records = append(b.res.Records, o.rec)
	b.by[o.schema.Key()] = append(b.by[o.schema.Key()], o.rec)
	return true
}

// factArities lists the arities of name that may appear as facts.
func (b *batch) factArities(name string) []int {
	var out []int
	for _, n := range b.reg.Arities(name) {
		if s, ok := b.reg.Lookup(name, n); ok && !s.TermOnly() {
			out = append(out, n)
		}
	}
	return out
}

func (b *batch) checkAggregates() {
	for _, s := range b.reg.Schemas() {
		if s.TermOnly() || len(s.aggregates) == 0 {
			continue
		}
		viol := CheckAggregates(s, b.by[s.Key()])
		if len(viol) == 0 {
			continue
		}
		if b.opts.Mode == FailFast {
			b.res.Reporter.Report(viol[0])
			b.res.Stopped = true
			return
		}
		b.res.Reporter.Report(viol...)
	}
}
