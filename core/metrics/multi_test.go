package metrics

import "testing"

type recordSink struct {
	runs        int
	generations int
	fetches     int
	schedules   int
}

func (r *recordSink) RecordRun(RunEvent) error               { r.runs++; return nil }
func (r *recordSink) RecordGeneration(GenerationEvent) error { r.generations++; return nil }
func (r *recordSink) RecordFetch(FetchEvent) error           { r.fetches++; return nil }
func (r *recordSink) RecordSchedule(ScheduleEvent) error     { r.schedules++; return nil }

// runOnlySink supports only the base interface.
type runOnlySink struct {
	runs int
}

func (r *runOnlySink) RecordRun(RunEvent) error { r.runs++; return nil }

func TestMultiSinkForwardsToAll(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordRun(RunEvent{}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := m.RecordGeneration(GenerationEvent{}); err != nil {
		t.Fatalf("record generation: %v", err)
	}
	if err := m.RecordFetch(FetchEvent{}); err != nil {
		t.Fatalf("record fetch: %v", err)
	}
	if err := m.RecordSchedule(ScheduleEvent{}); err != nil {
		t.Fatalf("record schedule: %v", err)
	}
	if s1.runs != 1 || s1.generations != 1 || s1.fetches != 1 || s1.schedules != 1 {
		t.Fatalf("events not forwarded: %+v", s1)
	}
	if s2.runs != 1 || s2.generations != 1 || s2.fetches != 1 || s2.schedules != 1 {
		t.Fatalf("events not forwarded: %+v", s2)
	}
}

func TestMultiSinkSkipsUnsupportedRecorders(t *testing.T) {
	base := &runOnlySink{}
	full := &recordSink{}
	m := NewMultiSink(base, full)
	if err := m.RecordGeneration(GenerationEvent{}); err != nil {
		t.Fatalf("record generation: %v", err)
	}
	if base.runs != 0 {
		t.Fatalf("base sink should not see progress events")
	}
	if full.generations != 1 {
		t.Fatalf("capable sink should see progress events")
	}
}
