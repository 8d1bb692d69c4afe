package test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mdubois44/chargeplan/app"
	"github.com/mdubois44/chargeplan/config"
	"github.com/mdubois44/chargeplan/core/optimize"
	"github.com/mdubois44/chargeplan/core/result"
	"github.com/mdubois44/chargeplan/infra/synthetic"
	"github.com/mdubois44/chargeplan/pkg/export"
)

// depotYAML describes a fleet where every schedule inside the power box is
// feasible: batteries large enough that SoC cannot leave [0,1] over the
// horizon and a site cap equal to the summed maximum power. Short searches
// then always converge.
const depotYAML = `name: depot
site_max_power: 30
time_horizon: 6
price_profile: [0.1, 0.2, 0.3, 0.1, 0.1, 0.2]
vehicles:
  - id: ev-a
    user_id: u1
    battery_capacity: 300
    soc_initial: 0.5
    soc_target: 0.55
    arrival_hour: 0
    departure_hour: 6
    power_min_kw: -6
    power_max_kw: 10
  - id: ev-b
    user_id: u2
    battery_capacity: 300
    soc_initial: 0.4
    soc_target: 0.5
    arrival_hour: 0
    departure_hour: 6
    power_min_kw: -6
    power_max_kw: 10
  - id: ev-c
    user_id: u3
    battery_capacity: 300
    soc_initial: 0.45
    soc_target: 0.5
    arrival_hour: 1
    departure_hour: 5
    power_min_kw: -6
    power_max_kw: 10
`

func writeDepotFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "depot.yaml")
	if err := os.WriteFile(path, []byte(depotYAML), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func shortSearchConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Optimizer = optimize.Config{PopSize: 8, Generations: 5, Seed: 3, Workers: 1}
	cfg.Output.Dir = t.TempDir()
	return cfg
}

func TestPipelineFileScenario(t *testing.T) {
	cfg := shortSearchConfig(t)
	svc, err := app.New(cfg, app.NewFileSource(writeDepotFile(t)))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer svc.Close()

	res, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Converged {
		t.Fatal("expected a converged run")
	}
	if res.NVehicles != 3 || res.Horizon != 6 {
		t.Fatalf("unexpected dimensions: %d vehicles, %d hours", res.NVehicles, res.Horizon)
	}

	// The saved summary must agree with the returned result.
	resultFiles, err := filepath.Glob(filepath.Join(cfg.Output.Dir, "result_*.json"))
	if err != nil || len(resultFiles) != 1 {
		t.Fatalf("result files: %v (err %v)", resultFiles, err)
	}
	data, err := os.ReadFile(resultFiles[0])
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	var doc struct {
		Converged      bool `json:"converged"`
		NVehicles      int  `json:"n_vehicles"`
		SolutionsFound int  `json:"solutions_found"`
		Metadata       struct {
			ScenarioName string `json:"scenario_name"`
			Seed         int64  `json:"seed"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if !doc.Converged || doc.NVehicles != 3 || doc.Metadata.ScenarioName != "depot" {
		t.Errorf("saved summary mismatch: %+v", doc)
	}
	if doc.SolutionsFound != len(res.Front) {
		t.Errorf("saved %d solutions, result has %d", doc.SolutionsFound, len(res.Front))
	}
	if doc.Metadata.Seed != 3 {
		t.Errorf("saved seed %d, want 3", doc.Metadata.Seed)
	}

	// The exported front round-trips through the reader the CLI uses.
	frontFiles, err := filepath.Glob(filepath.Join(cfg.Output.Dir, "pareto_front_*.csv"))
	if err != nil || len(frontFiles) != 1 {
		t.Fatalf("front files: %v (err %v)", frontFiles, err)
	}
	f, err := os.Open(frontFiles[0])
	if err != nil {
		t.Fatalf("open front: %v", err)
	}
	defer f.Close()
	front, err := export.ReadFrontCSV(f)
	if err != nil {
		t.Fatalf("read front: %v", err)
	}
	if len(front) != len(res.Front) {
		t.Errorf("front csv has %d rows, result has %d solutions", len(front), len(res.Front))
	}
}

func TestPipelineReproducibleSeeds(t *testing.T) {
	path := writeDepotFile(t)
	run := func() *result.Result {
		cfg := shortSearchConfig(t)
		svc, err := app.New(cfg, app.NewFileSource(path))
		if err != nil {
			t.Fatalf("new service: %v", err)
		}
		svc.SetSave(false)
		res, err := svc.Run(context.Background())
		svc.Close()
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return res
	}

	a, b := run(), run()
	if a.Objectives != b.Objectives {
		t.Errorf("same seed diverged: %+v vs %+v", a.Objectives, b.Objectives)
	}
	if len(a.Front) != len(b.Front) {
		t.Errorf("front sizes diverged: %d vs %d", len(a.Front), len(b.Front))
	}
}

func TestPipelineSyntheticScenario(t *testing.T) {
	cfg := shortSearchConfig(t)
	src := app.NewSyntheticSource(synthetic.Config{NVehicles: 4, Seed: 9})

	svc, err := app.New(cfg, src)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer svc.Close()
	svc.SetSave(false)

	res, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.NVehicles != 4 || res.Horizon != 24 {
		t.Fatalf("unexpected dimensions: %d vehicles, %d hours", res.NVehicles, res.Horizon)
	}
	if res.ScenarioName != "synthetic_4v" {
		t.Errorf("scenario name %q", res.ScenarioName)
	}
	if res.Meta.Generations != 5 || res.Meta.PopSize != 8 {
		t.Errorf("metadata mismatch: %+v", res.Meta)
	}
	if res.Meta.Evaluations == 0 {
		t.Error("expected a positive evaluation count")
	}
}
