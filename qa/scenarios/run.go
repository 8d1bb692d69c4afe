package scenarios

import (
	"context"
	"errors"
	"testing"

	"github.com/mdubois44/chargeplan/core/model"
	"github.com/mdubois44/chargeplan/core/optimize"
	"github.com/mdubois44/chargeplan/core/problem"
	"github.com/mdubois44/chargeplan/infra/logger"
)

// Default search budget for catalog cases. Small on purpose: every case must
// converge (or fail) quickly enough to run in the normal test suite.
const (
	defaultPopSize     = 24
	defaultGenerations = 60
	defaultSeed        = 7
)

func (d SearchDef) toConfig() optimize.Config {
	cfg := optimize.Config{
		PopSize:     defaultPopSize,
		Generations: defaultGenerations,
		Seed:        defaultSeed,
		Workers:     2,
	}
	if d.PopSize > 0 {
		cfg.PopSize = d.PopSize
	}
	if d.Generations > 0 {
		cfg.Generations = d.Generations
	}
	if d.Seed != 0 {
		cfg.Seed = d.Seed
	}
	return cfg
}

// RunScenario runs one catalog case through the real search and checks the
// outcome against its expectations.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()

	scenario, err := sc.ToScenario()
	if sc.Expected.Infeasible {
		if err != nil {
			var verr *model.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("case %s failed with an unexpected error: %v", sc.Name, err)
			}
			return
		}
		if scenario.Feasible() {
			t.Fatalf("case %s expected an infeasible fleet, got a feasible one", sc.Name)
		}
		return
	}
	if err != nil {
		t.Fatalf("case %s: build scenario: %v", sc.Name, err)
	}
	if !scenario.Feasible() {
		t.Fatalf("case %s: fleet cannot reach its targets", sc.Name)
	}

	prob, err := problem.New(scenario, problem.DefaultParams())
	if err != nil {
		t.Fatalf("case %s: build problem: %v", sc.Name, err)
	}

	search := optimize.New(sc.Search.toConfig(), logger.NopLogger{}, nil)
	out, err := search.Run(context.Background(), prob)
	if err != nil {
		t.Fatalf("case %s: search: %v", sc.Name, err)
	}

	converged := len(out.Solutions) > 0
	if converged != sc.Expected.Converged {
		t.Errorf("case %s: converged=%v, expected %v (%d solutions after %d evaluations)",
			sc.Name, converged, sc.Expected.Converged, len(out.Solutions), out.Evaluations)
	}
	if min := sc.Expected.MinSolutions; min > 0 && len(out.Solutions) < min {
		t.Errorf("case %s: front has %d solutions, expected at least %d", sc.Name, len(out.Solutions), min)
	}
	if max := sc.Expected.MaxCost; max != 0 {
		best := bestCost(out.Solutions)
		if best > max {
			t.Errorf("case %s: best cost %.4f exceeds the allowed %.4f", sc.Name, best, max)
		}
	}
}

func bestCost(solutions []optimize.Solution) float64 {
	if len(solutions) == 0 {
		return 0
	}
	best := solutions[0].Objectives.Cost
	for _, sol := range solutions[1:] {
		if sol.Objectives.Cost < best {
			best = sol.Objectives.Cost
		}
	}
	return best
}
