// Package config loads the application configuration from YAML or JSON files
// with environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/mdubois44/chargeplan/core/metrics"
	"github.com/mdubois44/chargeplan/core/optimize"
	"github.com/mdubois44/chargeplan/infra/acn"
	"github.com/mdubois44/chargeplan/infra/mqtt"
	"github.com/mdubois44/chargeplan/infra/synthetic"
)

// envPrefix scopes environment overrides, e.g.
// CHARGEPLAN_OPTIMIZER__POP_SIZE=50 sets optimizer.pop_size.
const envPrefix = "CHARGEPLAN_"

type Config struct {
	Scenario  ScenarioConfig   `json:"scenario"`
	Optimizer optimize.Config  `json:"optimizer"`
	Synthetic synthetic.Config `json:"synthetic"`
	ACN       acn.Config       `json:"acn"`
	Cache     CacheConfig      `json:"cache"`
	MQTT      mqtt.Config      `json:"mqtt"`
	Metrics   metrics.Config   `json:"metrics"`
	Output    OutputConfig     `json:"output"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

// Load reads the configuration file, applies environment overrides, defaults
// and validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	return finish(k)
}

// FromEnv builds the configuration from defaults and environment overrides
// alone, for runs without a configuration file.
func FromEnv() (*Config, error) {
	return finish(koanf.New("."))
}

// finish layers environment overrides on top of whatever k already holds,
// then unmarshals, defaults and validates.
func finish(k *koanf.Koanf) (*Config, error) {
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	c.Scenario.SetDefaults()
	c.Cache.SetDefaults()
	c.Output.SetDefaults()
}

// Validate checks every section with constraints. The optimizer, source and
// sink sections apply their own defaults at construction time and accept any
// file value.
func (c *Config) Validate() error {
	if err := c.Scenario.Validate(); err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}
