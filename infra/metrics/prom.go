package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/mdubois44/chargeplan/core/metrics"
)

// PromSink records optimization KPIs in Prometheus metrics.
type PromSink struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	frontSize   *prometheus.GaugeVec
	hypervolume *prometheus.GaugeVec
	bestCost    *prometheus.GaugeVec
	generations *prometheus.CounterVec
	fetches     *prometheus.CounterVec
}

// NewPromSink registers the run metrics on the default Prometheus registerer.
// The HTTP server exposing them is started separately.
func NewPromSink() (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// that are already registered are reused so repeated sink construction in one
// process stays safe.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "optimization_runs_total",
			Help: "Total number of optimization runs",
		}, []string{"scenario", "converged"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "optimization_run_seconds",
			Help:    "Wall-clock duration of optimization runs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"scenario"}),
		frontSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pareto_front_size",
			Help: "Number of non-dominated solutions found by the last run",
		}, []string{"scenario"}),
		hypervolume: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pareto_hypervolume",
			Help: "Hypervolume of the last run's front",
		}, []string{"scenario"}),
		bestCost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "best_schedule_cost",
			Help: "Cost of the cheapest schedule on the current front",
		}, []string{"scenario"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "search_generations_total",
			Help: "Total number of search generations executed",
		}, []string{"scenario"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scenario_fetches_total",
			Help: "Total number of scenario acquisitions",
		}, []string{"source", "cache_hit"}),
	}

	var err error
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.frontSize, err = register(reg, s.frontSize); err != nil {
		return nil, err
	}
	if s.hypervolume, err = register(reg, s.hypervolume); err != nil {
		return nil, err
	}
	if s.bestCost, err = register(reg, s.bestCost); err != nil {
		return nil, err
	}
	if s.generations, err = register(reg, s.generations); err != nil {
		return nil, err
	}
	if s.fetches, err = register(reg, s.fetches); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds the collector to the registry, swapping in the existing one
// when a previous sink already claimed the name.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

// RecordRun updates the run counters and per-scenario gauges.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Scenario, strconv.FormatBool(ev.Converged)).Inc()
	s.duration.WithLabelValues(ev.Scenario).Observe(ev.ElapsedSeconds)
	s.frontSize.WithLabelValues(ev.Scenario).Set(float64(ev.SolutionsFound))
	if ev.Hypervolume != nil {
		s.hypervolume.WithLabelValues(ev.Scenario).Set(*ev.Hypervolume)
	}
	if ev.Converged {
		s.bestCost.WithLabelValues(ev.Scenario).Set(ev.BestCost)
	}
	return nil
}

// RecordGeneration tracks search progress.
func (s *PromSink) RecordGeneration(ev coremetrics.GenerationEvent) error {
	s.generations.WithLabelValues(ev.Scenario).Inc()
	s.frontSize.WithLabelValues(ev.Scenario).Set(float64(ev.FrontSize))
	s.bestCost.WithLabelValues(ev.Scenario).Set(ev.BestCost)
	return nil
}

// RecordFetch counts scenario acquisitions by source and cache outcome.
func (s *PromSink) RecordFetch(ev coremetrics.FetchEvent) error {
	s.fetches.WithLabelValues(ev.Source, strconv.FormatBool(ev.CacheHit)).Inc()
	return nil
}
