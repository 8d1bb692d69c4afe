package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the run to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRun(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordGeneration forwards progress events to sinks that support them.
func (m *MultiSink) RecordGeneration(ev GenerationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(GenerationRecorder); ok {
			if err := rec.RecordGeneration(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFetch forwards acquisition events to sinks that support them.
func (m *MultiSink) RecordFetch(ev FetchEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FetchRecorder); ok {
			if err := rec.RecordFetch(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSchedule forwards energy breakdowns to sinks that support them.
func (m *MultiSink) RecordSchedule(ev ScheduleEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ScheduleRecorder); ok {
			if err := rec.RecordSchedule(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
