package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mdubois44/chargeplan/core/factory"
	coremetrics "github.com/mdubois44/chargeplan/core/metrics"
	"github.com/mdubois44/chargeplan/core/metrics/energy"
)

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterSink("nop", func(map[string]any) (coremetrics.Sink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterSink("prometheus", func(map[string]any) (coremetrics.Sink, error) {
		// The HTTP server is started from the metrics config, not per sink.
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterSink("influx", func(conf map[string]any) (coremetrics.Sink, error) {
		var c struct {
			URL    string `json:"url"`
			Token  string `json:"token"`
			Org    string `json:"org"`
			Bucket string `json:"bucket"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})

	_ = coremetrics.RegisterSink("energy", func(conf map[string]any) (coremetrics.Sink, error) {
		var c struct {
			EmissionFactor float64 `json:"emission_factor"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewEnergySink(energy.NewMemoryStore(), c.EmissionFactor, prometheus.DefaultRegisterer)
	})
}
