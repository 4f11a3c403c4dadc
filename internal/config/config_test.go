package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 30*time.Second, cfg.Engine.MaxExecutionTime)
	assert.True(t, cfg.Engine.DisplayErrors)
	assert.Equal(t, "notice", cfg.Global.LogLevel)
	require.Len(t, cfg.Pools, 1)
	assert.Equal(t, "www", cfg.Pools[0].Name)
	assert.Equal(t, "127.0.0.1:9000", cfg.Pools[0].Listen)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom-fpm.yaml")
	doc := `
engine:
  display_errors: false
global:
  log_level: debug
pools:
  - name: api
    listen: "0.0.0.0:9001"
    pm: static
    pm_max_children: 10
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.Engine.DisplayErrors)
	assert.Equal(t, "debug", cfg.Global.LogLevel)
	require.Len(t, cfg.Pools, 1)
	assert.Equal(t, "api", cfg.Pools[0].Name)
	assert.Equal(t, "0.0.0.0:9001", cfg.Pools[0].Listen)
	assert.Equal(t, "static", cfg.Pools[0].ProcessManagement)
	assert.Equal(t, 10, cfg.Pools[0].MaxChildren)
}

func TestLoad_EmptyPoolsFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom-fpm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("global:\n  log_level: warning\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Pools, 1)
	assert.Equal(t, "www", cfg.Pools[0].Name)
}

func TestPoolConfigs_FillsOmittedFieldsFromDefaults(t *testing.T) {
	cfg := &Config{
		Pools: []PoolSpec{
			{Name: "custom", Listen: "127.0.0.1:9010", ProcessManagement: "static"},
		},
	}

	pcs := cfg.PoolConfigs()
	require.Len(t, pcs, 1)

	pc := pcs[0]
	assert.Equal(t, "custom", pc.Name)
	assert.Equal(t, 50, pc.MaxChildren)
	assert.Equal(t, 5, pc.StartServers)
	assert.Equal(t, 10*time.Second, pc.ProcessIdleTimeout)
}

func TestPoolConfigs_HonorsExplicitOverrides(t *testing.T) {
	cfg := &Config{
		Pools: []PoolSpec{
			{Name: "custom", MaxChildren: 5, StartServers: 2},
		},
	}

	pc := cfg.PoolConfigs()[0]
	assert.Equal(t, 5, pc.MaxChildren)
	assert.Equal(t, 2, pc.StartServers)
}
