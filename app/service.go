package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mdubois44/chargeplan/config"
	coremetrics "github.com/mdubois44/chargeplan/core/metrics"
	"github.com/mdubois44/chargeplan/core/model"
	"github.com/mdubois44/chargeplan/core/optimize"
	"github.com/mdubois44/chargeplan/core/pareto"
	"github.com/mdubois44/chargeplan/core/problem"
	"github.com/mdubois44/chargeplan/core/result"
	"github.com/mdubois44/chargeplan/infra/logger"
	inframetrics "github.com/mdubois44/chargeplan/infra/metrics"
	"github.com/mdubois44/chargeplan/infra/mqtt"
	"github.com/mdubois44/chargeplan/internal/eventbus"
	"github.com/mdubois44/chargeplan/pkg/export"
)

// Service orchestrates one optimization run: scenario acquisition, the
// search, Pareto metrics, export and the optional schedule publication.
type Service struct {
	cfg       *config.Config
	source    Source
	sink      coremetrics.Sink
	publisher mqtt.Publisher
	bus       *eventbus.TypedBus[optimize.GenerationEvent]
	log       logger.Logger
	save      bool
}

// New creates a Service from the configuration. The source decides where the
// scenario comes from; everything else is wired from cfg.
func New(cfg *config.Config, source Source) (*Service, error) {
	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	var pub mqtt.Publisher
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewPahoPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		pub = p
	}
	return &Service{
		cfg:       cfg,
		source:    source,
		sink:      sink,
		publisher: pub,
		bus:       eventbus.NewTyped[optimize.GenerationEvent](),
		log:       logger.New("service"),
		save:      true,
	}, nil
}

// SetSave toggles writing result artifacts to the output directory.
func (s *Service) SetSave(v bool) { s.save = v }

// Events returns the bus carrying per-generation progress events. Subscribe
// before calling Run.
func (s *Service) Events() *eventbus.TypedBus[optimize.GenerationEvent] { return s.bus }

// Run executes the pipeline and returns the assembled result. The scenario is
// validated and checked for feasibility before the search starts; a fleet
// that cannot reach its targets fails fast with model.ErrInfeasibleScenario.
func (s *Service) Run(ctx context.Context) (*result.Result, error) {
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := inframetrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	fetchStart := time.Now()
	fetched, err := s.source.Scenario(ctx)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	sc := fetched.Scenario
	s.recordFetch(fetched, time.Since(fetchStart))
	s.log.Infof("scenario %s: %d vehicles over %d hours", sc.Name, sc.NVehicles(), sc.Horizon)

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	if !sc.Feasible() {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, model.ErrInfeasibleScenario)
	}

	prob, err := problem.New(sc, problem.Params{DTHours: s.cfg.Scenario.DTHours})
	if err != nil {
		return nil, fmt.Errorf("build problem: %w", err)
	}

	search := optimize.New(s.cfg.Optimizer, logger.New("gde3"), s.bus)
	collectorDone := inframetrics.StartGenerationCollector(ctx, s.bus, s.sink, sc.Name)

	searchStart := time.Now()
	out, err := search.Run(ctx, prob)
	s.bus.Close()
	<-collectorDone
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	elapsed := time.Since(searchStart)

	front := make([][]float64, len(out.Solutions))
	for i, sol := range out.Solutions {
		front[i] = sol.Objectives.Vector()
	}
	metrics := pareto.NewCalculator(logger.New("pareto")).CalculateAll(front)

	eff := search.Config()
	res, err := result.Assemble(prob, out, metrics, elapsed, result.Metadata{
		Algorithm:   "GDE3",
		PopSize:     eff.PopSize,
		Generations: eff.Generations,
		Evaluations: out.Evaluations,
		Seed:        eff.Seed,
		Workers:     eff.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("assemble result: %w", err)
	}
	s.log.Infof("run %s finished: %d solutions in %.2fs", res.RunID, len(res.Front), res.ElapsedSeconds)

	s.recordRun(res)
	s.recordSchedule(sc, res)

	if s.save {
		paths, err := export.SaveAll(res, s.cfg.Output.Dir)
		if err != nil {
			return nil, fmt.Errorf("save results: %w", err)
		}
		s.log.Infof("saved %d artifacts to %s", len(paths), s.cfg.Output.Dir)
	}

	if s.publisher != nil && res.Converged {
		if err := s.publisher.PublishSchedule(ctx, mqtt.BuildPayload(sc, res)); err != nil {
			return nil, fmt.Errorf("publish schedule: %w", err)
		}
	}
	return res, nil
}

// Close releases resources held by the service.
func (s *Service) Close() {
	s.bus.Close()
	if s.publisher != nil {
		s.publisher.Close()
	}
}

func (s *Service) recordFetch(f Fetched, d time.Duration) {
	rec, ok := s.sink.(coremetrics.FetchRecorder)
	if !ok {
		return
	}
	ev := coremetrics.FetchEvent{
		Source:   s.source.Kind(),
		Scenario: f.Scenario.Name,
		Sessions: f.Scenario.NVehicles(),
		CacheHit: f.CacheHit,
		Duration: d,
		Time:     time.Now(),
	}
	if err := rec.RecordFetch(ev); err != nil {
		s.log.Warnf("record fetch: %v", err)
	}
}

func (s *Service) recordRun(res *result.Result) {
	ev := coremetrics.RunEvent{
		RunID:          res.RunID,
		Scenario:       res.ScenarioName,
		NVehicles:      res.NVehicles,
		Horizon:        res.Horizon,
		SolutionsFound: len(res.Front),
		Converged:      res.Converged,
		BestCost:       res.Objectives.Cost,
		Hypervolume:    res.Metrics.Hypervolume,
		Spacing:        res.Metrics.Spacing,
		ElapsedSeconds: res.ElapsedSeconds,
		Evaluations:    res.Meta.Evaluations,
		Time:           time.Now(),
	}
	if err := s.sink.RecordRun(ev); err != nil {
		s.log.Warnf("record run: %v", err)
	}
}

func (s *Service) recordSchedule(sc *model.Scenario, res *result.Result) {
	rec, ok := s.sink.(coremetrics.ScheduleRecorder)
	if !ok || res.Schedule == nil {
		return
	}
	energies := make([]coremetrics.VehicleEnergy, res.NVehicles)
	for i := range energies {
		var charged, discharged float64
		for _, p := range res.VehicleSchedule(i) {
			if p >= 0 {
				charged += p * res.DTHours
			} else {
				discharged -= p * res.DTHours
			}
		}
		energies[i] = coremetrics.VehicleEnergy{
			VehicleID:     sc.Vehicles[i].ID,
			ChargedKWh:    charged,
			DischargedKWh: discharged,
		}
	}
	ev := coremetrics.ScheduleEvent{
		RunID:    res.RunID,
		Scenario: res.ScenarioName,
		Energies: energies,
		Time:     time.Now(),
	}
	if err := rec.RecordSchedule(ev); err != nil {
		s.log.Warnf("record schedule: %v", err)
	}
}
