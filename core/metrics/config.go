package metrics

import "github.com/mdubois44/chargeplan/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr, when set, exposes /metrics on that address.
	PrometheusAddr string `json:"prometheus_addr"`
	// EmissionFactor converts discharged kWh to grams of CO2 avoided.
	EmissionFactor float64 `json:"emission_factor"`
}
