package factskema

import (
	"math"
	"strings"
)

// CheckAggregates evaluates every aggregate check of s over records, which
// must all belong to s. It never mutates records and reports violations in
// check order, then group order of first appearance.
func CheckAggregates(s *Schema, records []Record) Issues {
	var out Issues
	for _, a := range s.aggregates {
		out = append(out, checkOne(s, a, records)...)
	}
	return out
}

type group struct {
	key     string
	records []Record
}

// groupRecords partitions records by the GroupBy fields. Without GroupBy the
// whole predicate is one group, present even when there are no records.
func groupRecords(a AggregateCheck, records []Record) []group {
	if len(a.GroupBy) == 0 {
		return []group{{records: records}}
	}
	var groups []group
	index := map[string]int{}
	for _, r := range records {
		k := groupKey(a.GroupBy, r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, group{key: k})
		}
		groups[i].records = append(groups[i].records, r)
	}
	return groups
}

func groupKey(by []string, r Record) string {
	b := &strings.Builder{}
	b.WriteByte('{')
	for i, name := range by {
		if i > 0 {
			b.WriteByte(',')
		}
		v, _ := r.Get(name)
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(renderValue(v))
	}
	b.WriteByte('}')
	return b.String()
}

// measure counts or sums the group. overflow reports a sum leaving the int64
// range; the returned value is then meaningless.
func measure(a AggregateCheck, records []Record) (n int64, overflow bool) {
	if a.Kind == AggregateCount {
		return int64(len(records)), false
	}
	var sum int64
	for _, r := range records {
		v := r.Int(a.Field)
		switch {
		case a.Sign == SignPositive && v <= 0:
			continue
		case a.Sign == SignNegative && v >= 0:
			continue
		}
		if (v > 0 && sum > math.MaxInt64-v) || (v < 0 && sum < math.MinInt64-v) {
			return 0, true
		}
		sum += v
	}
	return sum, false
}

func checkOne(s *Schema, a AggregateCheck, records []Record) Issues {
	code := CodeCountMismatch
	if a.Kind == AggregateSum {
		code = CodeSumMismatch
	}
	violation := func(g group, expected, actual any) Issue {
		it := IssueAt(s.key.Name, s.key.Arity, a.Field, code, map[string]any{"expected": expected, "actual": actual})
		it.Value = actual
		it.Group = g.key
		it.Rule = a.label()
		return it
	}
	var out Issues
	for _, g := range groupRecords(a, records) {
		actual, overflow := measure(a, g.records)
		e := a.Expect
		if overflow {
			it := violation(g, e.String(), "int64 overflow")
			it.Params["bound"] = "overflow"
			it.Value = nil
			out = append(out, it)
			continue
		}
		switch {
		case e.Literal != nil:
			if actual != *e.Literal {
				out = append(out, violation(g, *e.Literal, actual))
			}
		case e.Field != "":
			// Every distinct value the group carries is an expectation of its own.
			seen := map[int64]struct{}{}
			for _, r := range g.records {
				want := r.Int(e.Field)
				if _, dup := seen[want]; dup {
					continue
				}
				seen[want] = struct{}{}
				if actual != want {
					out = append(out, violation(g, want, actual))
				}
			}
		case e.isRange():
			if (e.Min != nil && actual < *e.Min) || (e.Max != nil && actual > *e.Max) {
				out = append(out, violation(g, e.String(), actual))
			}
		}
	}
	return out
}
