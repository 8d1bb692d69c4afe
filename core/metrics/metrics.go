package metrics

import "time"

// RunEvent summarizes one completed optimization run.
type RunEvent struct {
	RunID          string
	Scenario       string
	NVehicles      int
	Horizon        int
	SolutionsFound int
	Converged      bool
	BestCost       float64
	Hypervolume    *float64 // nil when the metric could not be computed
	Spacing        *float64
	ElapsedSeconds float64
	Evaluations    int
	Time           time.Time
}

// Sink records optimization runs for observability purposes.
type Sink interface {
	RecordRun(ev RunEvent) error
}

// GenerationEvent captures search progress after one generation.
type GenerationEvent struct {
	Scenario    string
	Generation  int
	FrontSize   int
	BestCost    float64
	Evaluations int
	Time        time.Time
}

// GenerationRecorder is implemented by sinks able to record per-generation
// progress.
type GenerationRecorder interface {
	RecordGeneration(ev GenerationEvent) error
}

// FetchEvent records one scenario acquisition, whether it came from the
// upstream API or the local cache.
type FetchEvent struct {
	Source   string // "acn", "synthetic", "file"
	Scenario string
	Sessions int
	CacheHit bool
	Duration time.Duration
	Time     time.Time
}

// FetchRecorder records scenario acquisition events.
type FetchRecorder interface {
	RecordFetch(ev FetchEvent) error
}

// VehicleEnergy is the planned energy flow for one vehicle under the
// representative schedule.
type VehicleEnergy struct {
	VehicleID     string
	ChargedKWh    float64
	DischargedKWh float64
}

// ScheduleEvent carries the per-vehicle energy breakdown of a run's
// representative schedule.
type ScheduleEvent struct {
	RunID    string
	Scenario string
	Energies []VehicleEnergy
	Time     time.Time
}

// ScheduleRecorder records schedule energy breakdowns.
type ScheduleRecorder interface {
	RecordSchedule(ev ScheduleEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error               { return nil }
func (NopSink) RecordGeneration(GenerationEvent) error { return nil }
func (NopSink) RecordFetch(FetchEvent) error           { return nil }
func (NopSink) RecordSchedule(ScheduleEvent) error     { return nil }
