package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()
	require.NoError(t, cfg.Validate())
	assert.GreaterOrEqual(t, cfg.Scheduler.WorkerCount, 1)
	assert.True(t, cfg.Scheduler.ScriptLockEnabled)
	assert.Equal(t, defaultMaxEvalContexts, cfg.Eval.MaxContexts)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.False(t, cfg.Features.TraceEnabled)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("DEPSGRAPH_WORKER_COUNT", "4")
	t.Setenv("DEPSGRAPH_SCRIPT_LOCK_ENABLED", "false")
	t.Setenv("DEPSGRAPH_LOG_LEVEL", "debug")
	t.Setenv("DEPSGRAPH_TRACE_ENABLED", "true")

	cfg := LoadFromEnv()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.Scheduler.WorkerCount)
	assert.False(t, cfg.Scheduler.ScriptLockEnabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Features.TraceEnabled)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := LoadFromEnv()
	cfg.Scheduler.WorkerCount = 0
	assert.Error(t, cfg.Validate())

	cfg = LoadFromEnv()
	cfg.Eval.MaxContexts = 9
	assert.Error(t, cfg.Validate())

	cfg = LoadFromEnv()
	cfg.Logging.Level = "VERBOSE"
	assert.Error(t, cfg.Validate())
}

func TestLoadFromYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/depsgraph.yaml"
	yamlBody := []byte("scheduler:\n  workerCount: 2\n  scriptLockEnabled: false\nlogging:\n  level: WARN\n")
	require.NoError(t, os.WriteFile(path, yamlBody, 0o644))

	cfg, err := LoadFromYAML(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Scheduler.WorkerCount)
	assert.False(t, cfg.Scheduler.ScriptLockEnabled)
	assert.Equal(t, "WARN", cfg.Logging.Level)
}

func TestLoadFromYAMLMissingFile(t *testing.T) {
	_, err := LoadFromYAML("/nonexistent/depsgraph.yaml")
	assert.Error(t, err)
}
