package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	coremetrics "github.com/mdubois44/chargeplan/core/metrics"
)

func TestPromSinkRecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	sinkIf, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	sink, ok := sinkIf.(*PromSink)
	if !ok {
		t.Fatalf("expected PromSink, got %T", sinkIf)
	}

	hv := 0.42
	ev := coremetrics.RunEvent{
		RunID:          "r1",
		Scenario:       "synthetic_5v",
		Converged:      true,
		SolutionsFound: 12,
		BestCost:       3.5,
		Hypervolume:    &hv,
		ElapsedSeconds: 2.5,
		Evaluations:    1000,
	}
	if err := sink.RecordRun(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}

	expected := `
# HELP optimization_runs_total Total number of optimization runs
# TYPE optimization_runs_total counter
optimization_runs_total{converged="true",scenario="synthetic_5v"} 1
`
	if err := testutil.CollectAndCompare(sink.runs, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	assert.InDelta(t, 12.0, testutil.ToFloat64(sink.frontSize.WithLabelValues("synthetic_5v")), 1e-9)
	assert.InDelta(t, 0.42, testutil.ToFloat64(sink.hypervolume.WithLabelValues("synthetic_5v")), 1e-9)
	assert.InDelta(t, 3.5, testutil.ToFloat64(sink.bestCost.WithLabelValues("synthetic_5v")), 1e-9)
	if c := testutil.CollectAndCount(sink.duration); c == 0 {
		t.Errorf("run duration not recorded")
	}
}

func TestPromSinkRecordGenerationAndFetch(t *testing.T) {
	reg := prometheus.NewRegistry()
	sinkIf, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	sink := sinkIf.(*PromSink)

	for gen := 1; gen <= 3; gen++ {
		if err := sink.RecordGeneration(coremetrics.GenerationEvent{
			Scenario:   "caltech_2020-01-01",
			Generation: gen,
			FrontSize:  gen + 1,
			BestCost:   10.0 - float64(gen),
		}); err != nil {
			t.Fatalf("record generation: %v", err)
		}
	}
	assert.InDelta(t, 3.0, testutil.ToFloat64(sink.generations.WithLabelValues("caltech_2020-01-01")), 1e-9)
	assert.InDelta(t, 4.0, testutil.ToFloat64(sink.frontSize.WithLabelValues("caltech_2020-01-01")), 1e-9)
	assert.InDelta(t, 7.0, testutil.ToFloat64(sink.bestCost.WithLabelValues("caltech_2020-01-01")), 1e-9)

	if err := sink.RecordFetch(coremetrics.FetchEvent{Source: "acn", CacheHit: true}); err != nil {
		t.Fatalf("record fetch: %v", err)
	}
	expected := `
# HELP scenario_fetches_total Total number of scenario acquisitions
# TYPE scenario_fetches_total counter
scenario_fetches_total{cache_hit="true",source="acn"} 1
`
	if err := testutil.CollectAndCompare(sink.fetches, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected fetch metrics: %v", err)
	}
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first sink: %v", err)
	}
	second, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second sink should reuse collectors: %v", err)
	}

	if err := first.RecordRun(coremetrics.RunEvent{Scenario: "s"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := second.RecordRun(coremetrics.RunEvent{Scenario: "s"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	sink := second.(*PromSink)
	assert.InDelta(t, 2.0, testutil.ToFloat64(sink.runs.WithLabelValues("s", "false")), 1e-9)
}
