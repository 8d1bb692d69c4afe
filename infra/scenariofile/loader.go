// Package scenariofile loads charging scenarios from YAML or JSON files so a
// fixed fleet can be replayed across runs.
package scenariofile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mdubois44/chargeplan/core/model"
)

// VehicleDef mirrors model.Vehicle with file-facing tags.
type VehicleDef struct {
	ID         string  `yaml:"id" json:"id"`
	UserID     string  `yaml:"user_id" json:"user_id"`
	BatteryKWh float64 `yaml:"battery_capacity" json:"battery_capacity"`
	SoCInitial float64 `yaml:"soc_initial" json:"soc_initial"`
	SoCTarget  float64 `yaml:"soc_target" json:"soc_target"`
	Arrival    int     `yaml:"arrival_hour" json:"arrival_hour"`
	Departure  int     `yaml:"departure_hour" json:"departure_hour"`
	PowerMinKW float64 `yaml:"power_min_kw" json:"power_min_kw"`
	PowerMaxKW float64 `yaml:"power_max_kw" json:"power_max_kw"`
}

func (v VehicleDef) ToModel() model.Vehicle {
	return model.Vehicle{
		ID:         v.ID,
		UserID:     v.UserID,
		BatteryKWh: v.BatteryKWh,
		SoCInitial: v.SoCInitial,
		SoCTarget:  v.SoCTarget,
		Arrival:    v.Arrival,
		Departure:  v.Departure,
		PowerMinKW: v.PowerMinKW,
		PowerMaxKW: v.PowerMaxKW,
	}
}

// ScenarioDef is the on-disk shape of a scenario.
type ScenarioDef struct {
	Name           string       `yaml:"name" json:"name"`
	Vehicles       []VehicleDef `yaml:"vehicles" json:"vehicles"`
	PriceProfile   []float64    `yaml:"price_profile" json:"price_profile"`
	SiteMaxPowerKW float64      `yaml:"site_max_power" json:"site_max_power"`
	Horizon        int          `yaml:"time_horizon" json:"time_horizon"`
}

// ToScenario converts the definition into a validated scenario.
func (d ScenarioDef) ToScenario() (*model.Scenario, error) {
	vehicles := make([]model.Vehicle, len(d.Vehicles))
	for i, v := range d.Vehicles {
		vehicles[i] = v.ToModel()
	}
	return model.NewScenario(d.Name, vehicles, d.PriceProfile, d.SiteMaxPowerKW, d.Horizon)
}

// Load reads a scenario from a YAML or JSON file, picking the decoder from the
// file extension. The result is validated before being returned.
func Load(path string) (*model.Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	var def ScenarioDef
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &def)
	case ".json":
		err = json.Unmarshal(b, &def)
	default:
		return nil, fmt.Errorf("unsupported scenario format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return def.ToScenario()
}

// Decode reads a scenario from r in the given format ("yaml" or "json").
func Decode(r io.Reader, format string) (*model.Scenario, error) {
	var def ScenarioDef
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&def); err != nil {
			return nil, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&def); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	return def.ToScenario()
}
