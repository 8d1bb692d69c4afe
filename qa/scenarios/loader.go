// Package scenarios runs a YAML catalog of fleet cases through the real
// search and checks each against its expected outcome. Every .yaml file in
// this directory is one case.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mdubois44/chargeplan/infra/scenariofile"
)

// SearchDef overrides the default search budget for one case.
type SearchDef struct {
	PopSize     int   `yaml:"pop_size,omitempty"`
	Generations int   `yaml:"generations,omitempty"`
	Seed        int64 `yaml:"seed,omitempty"`
}

// Expected states the outcome a case must produce. MinSolutions and MaxCost
// are only checked when set.
type Expected struct {
	Converged    bool    `yaml:"converged"`
	Infeasible   bool    `yaml:"infeasible,omitempty"`
	MinSolutions int     `yaml:"min_solutions,omitempty"`
	MaxCost      float64 `yaml:"max_cost,omitempty"`
}

// Scenario is one QA case: a fleet, a search budget and an expected outcome.
type Scenario struct {
	scenariofile.ScenarioDef `yaml:",inline"`

	Description string    `yaml:"description,omitempty"`
	Search      SearchDef `yaml:"search,omitempty"`
	Expected    Expected  `yaml:"expected"`
}

// Load reads one case file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: case has no name", path)
	}
	return &sc, nil
}
