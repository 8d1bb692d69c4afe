package config

import "fmt"

// maxHorizonHours bounds the planning horizon to one week.
const maxHorizonHours = 168

// ScenarioConfig carries the site-level planning parameters shared by every
// scenario source.
type ScenarioConfig struct {
	// SiteMaxPowerKW is the transformer capacity shared by the fleet.
	SiteMaxPowerKW float64 `json:"site_max_power"`
	// Horizon is the number of planning steps.
	Horizon int `json:"time_horizon"`
	// DTHours is the duration of one planning step in hours.
	DTHours float64 `json:"dt_hours"`
}

// SetDefaults applies sane defaults.
func (c *ScenarioConfig) SetDefaults() {
	if c.SiteMaxPowerKW == 0 {
		c.SiteMaxPowerKW = 60
	}
	if c.Horizon == 0 {
		c.Horizon = 24
	}
	if c.DTHours == 0 {
		c.DTHours = 1
	}
}

// Validate checks mandatory fields.
func (c ScenarioConfig) Validate() error {
	if c.SiteMaxPowerKW <= 0 {
		return fmt.Errorf("site_max_power must be positive, got %g", c.SiteMaxPowerKW)
	}
	if c.Horizon <= 0 || c.Horizon > maxHorizonHours {
		return fmt.Errorf("time_horizon must be in [1,%d], got %d", maxHorizonHours, c.Horizon)
	}
	if c.DTHours <= 0 {
		return fmt.Errorf("dt_hours must be positive, got %g", c.DTHours)
	}
	return nil
}

// CacheConfig controls the on-disk scenario cache.
type CacheConfig struct {
	// Disabled turns scenario caching off entirely.
	Disabled bool `json:"disabled"`
	// Dir is the cache directory.
	Dir string `json:"dir"`
	// TTLSeconds is the default entry lifetime.
	TTLSeconds float64 `json:"ttl_seconds"`
}

// SetDefaults applies sane defaults.
func (c *CacheConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "data_cache"
	}
	if c.TTLSeconds == 0 {
		c.TTLSeconds = 3600
	}
}

// Validate checks mandatory fields.
func (c CacheConfig) Validate() error {
	if c.TTLSeconds < 0 {
		return fmt.Errorf("ttl_seconds must not be negative, got %g", c.TTLSeconds)
	}
	return nil
}

// OutputConfig controls where run artifacts land.
type OutputConfig struct {
	// Dir receives result JSONs, schedule and front CSVs.
	Dir string `json:"dir"`
}

// SetDefaults applies sane defaults.
func (c *OutputConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "results"
	}
}
