package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, 5*time.Minute, cfg.ToolTimeout())
	assert.True(t, cfg.Reflection.ReflectOnError)
	assert.InDelta(t, 0.5, cfg.Reflection.ReplanThreshold, 0.001)
	assert.Contains(t, cfg.Complexity.ComplexKeywords, "penetration")
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().MaxIterations, cfg.MaxIterations)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
max_iterations: 25
tools:
  timeout: 30s
  disabled:
    - exploit_runner
reflection:
  replan_threshold: 0.3
  reflect_on_error: false
history:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.MaxIterations)
	assert.Equal(t, 30*time.Second, cfg.Tools.Timeout)
	assert.False(t, cfg.IsToolEnabled("exploit_runner"))
	assert.True(t, cfg.IsToolEnabled("port_scan"))
	assert.InDelta(t, 0.3, cfg.Reflection.ReplanThreshold, 0.001)
	assert.False(t, cfg.Reflection.ReflectOnError)
	assert.False(t, cfg.History.Enabled)
	// Untouched sections keep their defaults.
	assert.Equal(t, 2, cfg.Reflection.MinIterationsBetweenReflections)
	assert.Equal(t, 90, cfg.History.KeepDays)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_iterations: [oops"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".sentinel", "config.yaml")

	cfg := DefaultConfig()
	cfg.MaxIterations = 7
	cfg.Tools.Disabled = []string{"manual_confirm"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.MaxIterations)
	assert.False(t, loaded.IsToolEnabled("manual_confirm"))
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Reflection.ReplanThreshold = 1.5
	assert.Error(t, cfg.Validate())
}
