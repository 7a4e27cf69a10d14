// Package metrics exports batch decoding statistics to Prometheus.
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	factskema "github.com/reoring/factskema"
)

const namespace = "factskema"

// Collector implements factskema.BatchObserver.
type Collector struct {
	Facts         prometheus.Counter
	Records       prometheus.Counter
	Ignored       prometheus.Counter
	Duplicates    prometheus.Counter
	Issues        *prometheus.CounterVec
	Batches       *prometheus.CounterVec
	BatchDuration prometheus.Histogram
}

var _ factskema.BatchObserver = (*Collector)(nil)

// New creates a collector whose metrics are registered with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		Facts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facts_total",
			Help:      "Facts read from sources",
		}),
		Records: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records emitted by decoding",
		}),
		Ignored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ignored_facts_total",
			Help:      "Facts without a schema that were skipped",
		}),
		Duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_facts_total",
			Help:      "Facts dropped as duplicates",
		}),
		Issues: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issues_total",
			Help:      "Reported issues by class and code",
		}, []string{"class", "code"}),
		Batches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Decoded batches by outcome",
		}, []string{"outcome"}),
		BatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time spent decoding a batch",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}),
	}
}

// ObserveBatch records the statistics of one batch.
func (c *Collector) ObserveBatch(res *factskema.Result, elapsed time.Duration) {
	c.Facts.Add(float64(res.Facts))
	c.Records.Add(float64(len(res.Records)))
	c.Ignored.Add(float64(res.Ignored))
	c.Duplicates.Add(float64(res.Duplicates))
	for _, it := range res.Issues() {
		c.Issues.WithLabelValues(it.Class().String(), it.Code).Inc()
	}
	c.Batches.WithLabelValues(outcome(res)).Inc()
	c.BatchDuration.Observe(elapsed.Seconds())
}

func outcome(res *factskema.Result) string {
	switch {
	case res.Stopped:
		return "stopped"
	case res.OK():
		return "ok"
	}
	return "failed"
}

// WriteText writes every metric family of g in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
