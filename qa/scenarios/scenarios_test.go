package scenarios

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCatalog(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no case files found")
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}

	tmp := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(tmp, []byte(":"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmp); err == nil {
		t.Fatal("expected unmarshal error")
	}

	unnamed := filepath.Join(t.TempDir(), "unnamed.yaml")
	if err := os.WriteFile(unnamed, []byte("expected:\n  converged: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(unnamed); err == nil {
		t.Fatal("expected error for a case without a name")
	}
}

func TestSearchDefOverrides(t *testing.T) {
	cfg := SearchDef{}.toConfig()
	if cfg.PopSize != defaultPopSize || cfg.Generations != defaultGenerations || cfg.Seed != defaultSeed {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	cfg = SearchDef{PopSize: 12, Generations: 5, Seed: 99}.toConfig()
	if cfg.PopSize != 12 || cfg.Generations != 5 || cfg.Seed != 99 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}
