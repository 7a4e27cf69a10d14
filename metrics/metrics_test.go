package metrics_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	factskema "github.com/reoring/factskema"
	"github.com/reoring/factskema/dsl"
	"github.com/reoring/factskema/metrics"
)

func TestCollector_ObserveBatch(t *testing.T) {
	reg := factskema.NewRegistry()
	require.NoError(t, dsl.Record("person").
		Field("name", "String").
		Field("age", dsl.IntRange(0, 150)).
		Count("", factskema.ExpectLiteral(2)).
		Declare(reg))
	require.NoError(t, reg.Seal())

	promReg := prometheus.NewRegistry()
	c := metrics.New(promReg)

	_, err := factskema.DecodeAll(context.Background(), reg, factskema.Options{Observer: c, DetectDuplicates: true},
		factskema.F("person", "Ada", 36),
		factskema.F("person", "Ada", 36),
		factskema.F("person", "Bob", 200),
		factskema.F("other", 1),
	)
	require.NoError(t, err)

	require.Equal(t, float64(4), testutil.ToFloat64(c.Facts))
	require.Equal(t, float64(1), testutil.ToFloat64(c.Records))
	require.Equal(t, float64(1), testutil.ToFloat64(c.Ignored))
	require.Equal(t, float64(1), testutil.ToFloat64(c.Duplicates))
	require.Equal(t, float64(1), testutil.ToFloat64(c.Issues.WithLabelValues("decode", factskema.CodeOutOfRange)))
	require.Equal(t, float64(1), testutil.ToFloat64(c.Issues.WithLabelValues("decode", factskema.CodeDuplicateFact)))
	require.Equal(t, float64(1), testutil.ToFloat64(c.Issues.WithLabelValues("aggregate", factskema.CodeCountMismatch)))
	require.Equal(t, float64(1), testutil.ToFloat64(c.Batches.WithLabelValues("failed")))
	require.Equal(t, 1, testutil.CollectAndCount(c.BatchDuration))

	var buf bytes.Buffer
	require.NoError(t, metrics.WriteText(&buf, promReg))
	require.Contains(t, buf.String(), "factskema_facts_total 4")
	require.Contains(t, buf.String(), `factskema_batches_total{outcome="failed"} 1`)
}

func TestCollector_StoppedAndOK(t *testing.T) {
	reg := factskema.NewRegistry()
	require.NoError(t, dsl.Record("n").Field("v", dsl.IntRange(0, 9)).Declare(reg))
	require.NoError(t, reg.Seal())

	c := metrics.New(prometheus.NewRegistry())
	_, err := factskema.DecodeAll(context.Background(), reg, factskema.Options{Observer: c}, factskema.F("n", 1))
	require.NoError(t, err)
	_, err = factskema.DecodeAll(context.Background(), reg, factskema.Options{Observer: c, Mode: factskema.FailFast},
		factskema.F("n", 10), factskema.F("n", 11))
	require.NoError(t, err)

	require.Equal(t, float64(1), testutil.ToFloat64(c.Batches.WithLabelValues("ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(c.Batches.WithLabelValues("stopped")))
	require.Equal(t, float64(2), testutil.ToFloat64(c.Facts))
}
