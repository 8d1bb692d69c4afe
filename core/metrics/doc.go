// Package metrics defines the interfaces and events for recording
// optimization KPIs. Sinks like PromSink and InfluxSink record run summaries,
// per-generation progress, scenario fetches and schedule energy breakdowns,
// and can be combined with NewMultiSink. The factory helpers return a
// MultiSink automatically when multiple sinks are configured and a NopSink
// when none are.
package metrics
