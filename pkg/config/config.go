// Package config loads depsgraph runtime settings from environment variables,
// with an optional YAML file as a second source for the standalone CLI.
//
// The core graph/build/schedule packages never read the environment directly —
// they accept a *Config (or the relevant sub-struct) from the caller. This
// package exists for hosts (notably cmd/depsgraphctl) that want Docker/K8s
// friendly configuration without wiring every flag by hand.
//
// Example:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//	sched := schedule.New(callbacks, cfg.Scheduler.WorkerCount, cfg.Scheduler.ScriptLockEnabled)
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all depsgraph configuration loaded from the environment.
//
// Sections mirror the subsystems they configure:
//   - Scheduler: worker pool size, script lock, metrics toggle
//   - Eval: evaluation-context limits
//   - Logging: log level
//   - Features: optional/experimental toggles
type Config struct {
	Scheduler SchedulerConfig
	Eval      EvalConfig
	Logging   LoggingConfig
	Features  FeatureFlags
}

// SchedulerConfig controls the worker pool and serialization policy.
type SchedulerConfig struct {
	// WorkerCount is the number of goroutines draining the ready queue.
	// DEPSGRAPH_WORKER_COUNT, default = runtime.NumCPU(), floor 1.
	WorkerCount int `yaml:"workerCount"`

	// ScriptLockEnabled gates USES_PYTHON operations behind the process-wide
	// script mutex. Disabling it is only safe for hosts that guarantee their
	// python-flagged callbacks are themselves reentrant.
	// DEPSGRAPH_SCRIPT_LOCK_ENABLED, default true.
	ScriptLockEnabled bool `yaml:"scriptLockEnabled"`

	// MetricsEnabled is loaded and validated with the rest of the config,
	// but nothing in this module reads it; a Scheduler records metrics only
	// when its host sets Scheduler.Metrics.
	// DEPSGRAPH_METRICS_ENABLED, default false.
	MetricsEnabled bool `yaml:"metricsEnabled"`
}

// EvalConfig controls evaluation-context allocation.
type EvalConfig struct {
	// MaxContexts bounds how many EvaluationContexts a single Graph may
	// allocate concurrently. Validate rejects values outside
	// 1..DEG_MAX_EVALUATION_CONTEXTS (3); they are not clamped.
	// DEPSGRAPH_MAX_EVAL_CONTEXTS, default 3 (viewport, render, bake).
	MaxContexts int `yaml:"maxContexts"`
}

// LoggingConfig controls pkg/logx's package-level logger.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR.
	// DEPSGRAPH_LOG_LEVEL, default INFO.
	Level string `yaml:"level"`
}

// FeatureFlags holds optional/experimental toggles.
//
// Unlike the teacher's sprawling compliance/embedding flag set, depsgraph has
// exactly the toggles its own scheduler and tooling need.
type FeatureFlags struct {
	// TraceEnabled wires pkg/trace's badger-backed evaluation history recorder
	// into the scheduler as an Observer. Off by default: it is debugging
	// tooling, not part of core evaluation semantics.
	TraceEnabled bool `yaml:"traceEnabled"`

	// TracePath is the badger directory used when TraceEnabled is set.
	TracePath string `yaml:"tracePath"`
}

const (
	defaultMaxEvalContexts = 3 // DEG_ALL=-1 excluded; VIEWPORT/RENDER/BAKE
	hardMaxEvalContexts    = 3 // DEG_MAX_EVALUATION_CONTEXTS
)

// LoadFromEnv loads configuration from environment variables, applying
// sensible defaults for anything unset. It never fails; call Validate
// afterwards to catch out-of-range values.
func LoadFromEnv() *Config {
	cfg := &Config{
		Scheduler: SchedulerConfig{
			WorkerCount:       envInt("DEPSGRAPH_WORKER_COUNT", runtime.NumCPU()),
			ScriptLockEnabled: envBool("DEPSGRAPH_SCRIPT_LOCK_ENABLED", true),
			MetricsEnabled:    envBool("DEPSGRAPH_METRICS_ENABLED", false),
		},
		Eval: EvalConfig{
			MaxContexts: envInt("DEPSGRAPH_MAX_EVAL_CONTEXTS", defaultMaxEvalContexts),
		},
		Logging: LoggingConfig{
			Level: envString("DEPSGRAPH_LOG_LEVEL", "INFO"),
		},
		Features: FeatureFlags{
			TraceEnabled: envBool("DEPSGRAPH_TRACE_ENABLED", false),
			TracePath:    envString("DEPSGRAPH_TRACE_PATH", "./depsgraph-trace"),
		},
	}
	return cfg
}

// LoadFromYAML reads a YAML configuration file on top of the environment
// defaults. Fields present in the file override the environment; fields
// absent from the file keep whatever LoadFromEnv produced. This matches
// the teacher's apoc config, which treats YAML as an overlay on env-derived
// defaults rather than a replacement for them.
func LoadFromYAML(path string) (*Config, error) {
	cfg := LoadFromEnv()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	// The overlay points at cfg's own sections, so yaml decodes each section
	// field by field on top of the environment values.
	overlay := struct {
		Scheduler *SchedulerConfig `yaml:"scheduler"`
		Eval      *EvalConfig      `yaml:"eval"`
		Logging   *LoggingConfig   `yaml:"logging"`
		Features  *FeatureFlags    `yaml:"features"`
	}{&cfg.Scheduler, &cfg.Eval, &cfg.Logging, &cfg.Features}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if overlay.Scheduler != nil {
		cfg.Scheduler = *overlay.Scheduler
	}
	if overlay.Eval != nil {
		cfg.Eval = *overlay.Eval
	}
	if overlay.Logging != nil {
		cfg.Logging = *overlay.Logging
	}
	if overlay.Features != nil {
		cfg.Features = *overlay.Features
	}

	return cfg, nil
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Scheduler.WorkerCount < 1 {
		return fmt.Errorf("scheduler.workerCount must be >= 1, got %d", c.Scheduler.WorkerCount)
	}
	if c.Eval.MaxContexts < 1 || c.Eval.MaxContexts > hardMaxEvalContexts {
		return fmt.Errorf("eval.maxContexts must be in [1,%d], got %d", hardMaxEvalContexts, c.Eval.MaxContexts)
	}
	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("logging.level must be one of DEBUG|INFO|WARN|ERROR, got %q", c.Logging.Level)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// envDuration parses a time.Duration from key, returning fallback when the
// variable is unset or malformed. No setting in LoadFromEnv uses it.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
