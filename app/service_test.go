package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mdubois44/chargeplan/config"
	coremetrics "github.com/mdubois44/chargeplan/core/metrics"
	"github.com/mdubois44/chargeplan/core/model"
	"github.com/mdubois44/chargeplan/core/optimize"
	"github.com/mdubois44/chargeplan/infra/logger"
	"github.com/mdubois44/chargeplan/infra/mqtt"
	"github.com/mdubois44/chargeplan/infra/synthetic"
	"github.com/mdubois44/chargeplan/internal/eventbus"
)

type recordingSink struct {
	mu        sync.Mutex
	runs      []coremetrics.RunEvent
	gens      []coremetrics.GenerationEvent
	fetches   []coremetrics.FetchEvent
	schedules []coremetrics.ScheduleEvent
}

func (r *recordingSink) RecordRun(ev coremetrics.RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, ev)
	return nil
}

func (r *recordingSink) RecordGeneration(ev coremetrics.GenerationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens = append(r.gens, ev)
	return nil
}

func (r *recordingSink) RecordFetch(ev coremetrics.FetchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches = append(r.fetches, ev)
	return nil
}

func (r *recordingSink) RecordSchedule(ev coremetrics.ScheduleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules = append(r.schedules, ev)
	return nil
}

type stubSource struct {
	sc  *model.Scenario
	err error
}

func (s *stubSource) Kind() string { return "stub" }

func (s *stubSource) Scenario(context.Context) (Fetched, error) {
	if s.err != nil {
		return Fetched{}, s.err
	}
	return Fetched{Scenario: s.sc}, nil
}

// depotScenario builds a fleet where every schedule inside the power box is
// feasible: batteries large enough that SoC cannot leave [0,1] over the
// horizon and a site cap equal to the summed maximum power. Short runs then
// always converge.
func depotScenario(t *testing.T) *model.Scenario {
	t.Helper()
	vehicles := []model.Vehicle{
		{ID: "ev-a", UserID: "u1", BatteryKWh: 300, SoCInitial: 0.5, SoCTarget: 0.55, Arrival: 0, Departure: 6, PowerMinKW: -6, PowerMaxKW: 10},
		{ID: "ev-b", UserID: "u2", BatteryKWh: 300, SoCInitial: 0.4, SoCTarget: 0.5, Arrival: 0, Departure: 6, PowerMinKW: -6, PowerMaxKW: 10},
		{ID: "ev-c", UserID: "u3", BatteryKWh: 300, SoCInitial: 0.45, SoCTarget: 0.5, Arrival: 1, Departure: 5, PowerMinKW: -6, PowerMaxKW: 10},
	}
	prices := []float64{0.1, 0.2, 0.3, 0.1, 0.1, 0.2}
	sc, err := model.NewScenario("depot", vehicles, prices, 30, 6)
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	return sc
}

func newTestService(t *testing.T, src Source, rec *recordingSink, pub mqtt.Publisher) *Service {
	t.Helper()
	cfg := config.Default()
	cfg.Optimizer = optimize.Config{PopSize: 8, Generations: 5, Seed: 3, Workers: 1}
	cfg.Output.Dir = t.TempDir()
	return &Service{
		cfg:       cfg,
		source:    src,
		sink:      rec,
		publisher: pub,
		bus:       eventbus.NewTyped[optimize.GenerationEvent](),
		log:       logger.NopLogger{},
		save:      true,
	}
}

func TestServiceRun(t *testing.T) {
	rec := &recordingSink{}
	pub := mqtt.NewMockPublisher()
	svc := newTestService(t, &stubSource{sc: depotScenario(t)}, rec, pub)

	res, err := svc.Run(context.Background())
	assert.NoError(t, err)
	assert.True(t, res.Converged)
	assert.NotNil(t, res.Schedule)
	assert.Equal(t, 3, res.NVehicles)
	assert.Equal(t, 6, res.Horizon)
	assert.Equal(t, "GDE3", res.Meta.Algorithm)
	assert.Equal(t, 8, res.Meta.PopSize)
	assert.Equal(t, 5, res.Meta.Generations)
	assert.Equal(t, int64(3), res.Meta.Seed)

	if assert.Len(t, rec.fetches, 1) {
		assert.Equal(t, "stub", rec.fetches[0].Source)
		assert.Equal(t, "depot", rec.fetches[0].Scenario)
		assert.Equal(t, 3, rec.fetches[0].Sessions)
		assert.False(t, rec.fetches[0].CacheHit)
	}
	if assert.Len(t, rec.runs, 1) {
		assert.Equal(t, res.RunID, rec.runs[0].RunID)
		assert.True(t, rec.runs[0].Converged)
		assert.Equal(t, len(res.Front), rec.runs[0].SolutionsFound)
	}
	if assert.Len(t, rec.schedules, 1) {
		assert.Len(t, rec.schedules[0].Energies, 3)
		assert.Equal(t, "ev-a", rec.schedules[0].Energies[0].VehicleID)
	}
	assert.NotEmpty(t, rec.gens)
	for _, g := range rec.gens {
		assert.Equal(t, "depot", g.Scenario)
	}

	if assert.Len(t, pub.Published, 1) {
		assert.Equal(t, res.RunID, pub.Published[0].RunID)
		assert.Len(t, pub.Published[0].Vehicles, 3)
	}
}

func TestServiceRunSyntheticSource(t *testing.T) {
	rec := &recordingSink{}
	src := NewSyntheticSource(synthetic.Config{NVehicles: 3, Seed: 11})
	svc := newTestService(t, src, rec, nil)
	svc.SetSave(false)

	res, err := svc.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 3, res.NVehicles)
	assert.Equal(t, "synthetic_3v", res.ScenarioName)
	if assert.Len(t, rec.fetches, 1) {
		assert.Equal(t, "synthetic", rec.fetches[0].Source)
		assert.Equal(t, 3, rec.fetches[0].Sessions)
	}
	assert.Len(t, rec.runs, 1)
}

func TestServiceRunSavesArtifacts(t *testing.T) {
	rec := &recordingSink{}
	svc := newTestService(t, &stubSource{sc: depotScenario(t)}, rec, nil)

	_, err := svc.Run(context.Background())
	assert.NoError(t, err)

	dir := svc.cfg.Output.Dir
	for _, pattern := range []string{"result_*.json", "schedule_*.csv", "pareto_front_*.csv", filepath.Join("metrics", "metrics_*.json")} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		assert.NoError(t, err)
		assert.Len(t, matches, 1, pattern)
	}
}

func TestServiceRunNoSave(t *testing.T) {
	rec := &recordingSink{}
	svc := newTestService(t, &stubSource{sc: depotScenario(t)}, rec, nil)
	svc.SetSave(false)

	_, err := svc.Run(context.Background())
	assert.NoError(t, err)

	entries, err := os.ReadDir(svc.cfg.Output.Dir)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestServiceRunInfeasibleScenario(t *testing.T) {
	// 27 kWh needed in a single hour capped at 3 kW.
	v := model.Vehicle{
		ID: "ev-a", UserID: "u1", BatteryKWh: 30,
		SoCInitial: 0.1, SoCTarget: 1.0,
		Arrival: 10, Departure: 11,
		PowerMinKW: -6, PowerMaxKW: 3,
	}
	sc, err := model.NewScenario("tight", []model.Vehicle{v}, make([]float64, 24), 60, 24)
	assert.NoError(t, err)

	rec := &recordingSink{}
	pub := mqtt.NewMockPublisher()
	svc := newTestService(t, &stubSource{sc: sc}, rec, pub)

	_, err = svc.Run(context.Background())
	assert.ErrorIs(t, err, model.ErrInfeasibleScenario)
	assert.Empty(t, rec.runs)
	assert.Empty(t, pub.Published)
}

func TestServiceRunSourceError(t *testing.T) {
	rec := &recordingSink{}
	svc := newTestService(t, &stubSource{err: errors.New("api down")}, rec, nil)

	_, err := svc.Run(context.Background())
	assert.ErrorContains(t, err, "load scenario")
	assert.Empty(t, rec.fetches)
}

func TestServiceRunPublishError(t *testing.T) {
	rec := &recordingSink{}
	pub := mqtt.NewMockPublisher()
	pub.Err = errors.New("broker down")
	svc := newTestService(t, &stubSource{sc: depotScenario(t)}, rec, pub)

	_, err := svc.Run(context.Background())
	assert.ErrorContains(t, err, "publish schedule")
}

func TestServiceRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recordingSink{}
	svc := newTestService(t, &stubSource{sc: depotScenario(t)}, rec, nil)

	_, err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.runs)
}

func TestNewService(t *testing.T) {
	cfg := config.Default()
	svc, err := New(cfg, &stubSource{})
	assert.NoError(t, err)
	assert.NotNil(t, svc.sink)
	assert.Nil(t, svc.publisher)
	assert.NotNil(t, svc.Events())
	svc.Close()
}
