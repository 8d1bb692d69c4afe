package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileFallsBack(t *testing.T) {
	t.Setenv("CHARGEPLAN_OUTPUT__DIR", "envdir")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "envdir", cfg.Output.Dir)
	assert.Equal(t, 24, cfg.Scenario.Horizon)
}

func TestLoadConfigReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("optimizer:\n  pop_size: 5\n"), 0o644))

	old := cfgPath
	cfgPath = path
	defer func() { cfgPath = old }()

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Optimizer.PopSize)
}
