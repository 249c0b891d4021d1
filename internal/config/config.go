package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/o0x1024/sentinel-core/internal/models"
)

// ToolsConfig controls how the step executor reaches the tool
// subsystem.
type ToolsConfig struct {
	// Timeout bounds each tool invocation.
	Timeout time.Duration `yaml:"timeout"`

	// Disabled lists tool names the executor must never invoke.
	Disabled []string `yaml:"disabled"`
}

// ReflectionConfig tunes the continue/replan/complete control loop.
type ReflectionConfig struct {
	// ReplanThreshold is the failure rate at or above which the
	// reflector requests a replan.
	ReplanThreshold float64 `yaml:"replan_threshold"`

	// ReflectOnError forces a reflection cycle whenever any recorded
	// step result has failed.
	ReflectOnError bool `yaml:"reflect_on_error"`

	// MinIterationsBetweenReflections spaces out periodic reflections.
	MinIterationsBetweenReflections int `yaml:"min_iterations_between_reflections"`
}

// ComplexityConfig holds the keyword tables for the rule-based
// complexity pass.
type ComplexityConfig struct {
	SimpleKeywords  []string `yaml:"simple_keywords"`
	MediumKeywords  []string `yaml:"medium_keywords"`
	ComplexKeywords []string `yaml:"complex_keywords"`
}

// HistoryConfig configures the execution history store.
type HistoryConfig struct {
	// Enabled toggles persistence of finished executions.
	Enabled bool `yaml:"enabled"`

	// DBPath is the SQLite database location (":memory:" for tests).
	DBPath string `yaml:"db_path"`

	// KeepDays is how long execution records are retained.
	KeepDays int `yaml:"keep_days"`

	// MaxRecords bounds the table size regardless of age (0 = unbounded).
	MaxRecords int `yaml:"max_records"`
}

// Config holds the orchestrator configuration options.
type Config struct {
	// MaxIterations bounds the reflection loop of iterative engines.
	MaxIterations int `yaml:"max_iterations"`

	// MaxConcurrency caps parallel steps per wave in the compiler engine.
	MaxConcurrency int `yaml:"max_concurrency"`

	// ExecutionExpiry is how long a registered execution may live
	// before the expiry sweep force-cleans it.
	ExecutionExpiry time.Duration `yaml:"execution_expiry"`

	// LogLevel sets logging verbosity (trace, debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// Retry is the default retry policy steps inherit when their plan
	// does not override it.
	Retry models.RetryPolicy `yaml:"-"`

	Tools      ToolsConfig      `yaml:"tools"`
	Reflection ReflectionConfig `yaml:"reflection"`
	Complexity ComplexityConfig `yaml:"complexity"`
	History    HistoryConfig    `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		MaxIterations:   10,
		MaxConcurrency:  10,
		ExecutionExpiry: time.Hour,
		LogLevel:        "info",
		Retry:           models.DefaultRetryPolicy(),
		Tools: ToolsConfig{
			Timeout: 5 * time.Minute,
		},
		Reflection: ReflectionConfig{
			ReplanThreshold:                 0.5,
			ReflectOnError:                  true,
			MinIterationsBetweenReflections: 2,
		},
		Complexity: ComplexityConfig{
			SimpleKeywords:  []string{"scan", "check", "查询"},
			MediumKeywords:  []string{"test", "analyze", "测试"},
			ComplexKeywords: []string{"penetration", "exploit", "渗透", "攻击链"},
		},
		History: HistoryConfig{
			Enabled:    true,
			DBPath:     filepath.Join(".sentinel", "history.db"),
			KeepDays:   90,
			MaxRecords: 1000,
		},
	}
}

// IsToolEnabled reports whether the named tool may be invoked.
func (c *Config) IsToolEnabled(name string) bool {
	for _, disabled := range c.Tools.Disabled {
		if disabled == name {
			return false
		}
	}
	return true
}

// ToolTimeout returns the per-invocation tool timeout.
func (c *Config) ToolTimeout() time.Duration {
	if c.Tools.Timeout <= 0 {
		return 5 * time.Minute
	}
	return c.Tools.Timeout
}

// Validate checks config invariants.
func (c *Config) Validate() error {
	if c.MaxIterations <= 0 {
		return models.NewError(models.ErrConfig, "max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Reflection.ReplanThreshold < 0 || c.Reflection.ReplanThreshold > 1 {
		return models.NewError(models.ErrConfig, "replan_threshold must be within [0,1], got %v", c.Reflection.ReplanThreshold)
	}
	if c.Reflection.MinIterationsBetweenReflections < 0 {
		return models.NewError(models.ErrConfig, "min_iterations_between_reflections cannot be negative")
	}
	return nil
}

// yamlConfig mirrors Config with string durations for YAML parsing.
type yamlConfig struct {
	MaxIterations   int              `yaml:"max_iterations"`
	MaxConcurrency  int              `yaml:"max_concurrency"`
	ExecutionExpiry string           `yaml:"execution_expiry"`
	LogLevel        string           `yaml:"log_level"`
	Tools           yamlToolsConfig  `yaml:"tools"`
	Reflection      ReflectionConfig `yaml:"reflection"`
	Complexity      ComplexityConfig `yaml:"complexity"`
	History         HistoryConfig    `yaml:"history"`
}

type yamlToolsConfig struct {
	Timeout  string   `yaml:"timeout"`
	Disabled []string `yaml:"disabled"`
}

// Load reads configuration from path, merging file values over
// defaults. A missing file yields the defaults without error; a
// malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.WrapError(models.ErrConfig, err, "read config file %s", path)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, models.WrapError(models.ErrConfig, err, "parse config file %s", path)
	}

	if yc.MaxIterations != 0 {
		cfg.MaxIterations = yc.MaxIterations
	}
	if yc.MaxConcurrency != 0 {
		cfg.MaxConcurrency = yc.MaxConcurrency
	}
	if yc.ExecutionExpiry != "" {
		d, err := time.ParseDuration(yc.ExecutionExpiry)
		if err != nil {
			return nil, models.WrapError(models.ErrConfig, err, "invalid execution_expiry %q", yc.ExecutionExpiry)
		}
		cfg.ExecutionExpiry = d
	}
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.Tools.Timeout != "" {
		d, err := time.ParseDuration(yc.Tools.Timeout)
		if err != nil {
			return nil, models.WrapError(models.ErrConfig, err, "invalid tools.timeout %q", yc.Tools.Timeout)
		}
		cfg.Tools.Timeout = d
	}
	if len(yc.Tools.Disabled) > 0 {
		cfg.Tools.Disabled = yc.Tools.Disabled
	}
	mergeReflection(&cfg.Reflection, data, yc.Reflection)
	if len(yc.Complexity.SimpleKeywords) > 0 {
		cfg.Complexity.SimpleKeywords = yc.Complexity.SimpleKeywords
	}
	if len(yc.Complexity.MediumKeywords) > 0 {
		cfg.Complexity.MediumKeywords = yc.Complexity.MediumKeywords
	}
	if len(yc.Complexity.ComplexKeywords) > 0 {
		cfg.Complexity.ComplexKeywords = yc.Complexity.ComplexKeywords
	}
	mergeHistory(&cfg.History, data, yc.History)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir loads .sentinel/config.yaml from the given directory.
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, ".sentinel", "config.yaml"))
}

// mergeReflection applies reflection settings only when the section is
// present, so zero values in the file still override defaults.
func mergeReflection(dst *ReflectionConfig, raw []byte, parsed ReflectionConfig) {
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(raw, &rawMap); err != nil {
		return
	}
	section, ok := rawMap["reflection"].(map[string]interface{})
	if !ok {
		return
	}
	if _, exists := section["replan_threshold"]; exists {
		dst.ReplanThreshold = parsed.ReplanThreshold
	}
	if _, exists := section["reflect_on_error"]; exists {
		dst.ReflectOnError = parsed.ReflectOnError
	}
	if _, exists := section["min_iterations_between_reflections"]; exists {
		dst.MinIterationsBetweenReflections = parsed.MinIterationsBetweenReflections
	}
}

// mergeHistory applies history settings only when the section is present.
func mergeHistory(dst *HistoryConfig, raw []byte, parsed HistoryConfig) {
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(raw, &rawMap); err != nil {
		return
	}
	section, ok := rawMap["history"].(map[string]interface{})
	if !ok {
		return
	}
	if _, exists := section["enabled"]; exists {
		dst.Enabled = parsed.Enabled
	}
	if _, exists := section["db_path"]; exists {
		dst.DBPath = parsed.DBPath
	}
	if _, exists := section["keep_days"]; exists {
		dst.KeepDays = parsed.KeepDays
	}
	if _, exists := section["max_records"]; exists {
		dst.MaxRecords = parsed.MaxRecords
	}
}

// Save writes the configuration to path in YAML form, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	yc := yamlConfig{
		MaxIterations:   c.MaxIterations,
		MaxConcurrency:  c.MaxConcurrency,
		ExecutionExpiry: c.ExecutionExpiry.String(),
		LogLevel:        c.LogLevel,
		Tools: yamlToolsConfig{
			Timeout:  c.Tools.Timeout.String(),
			Disabled: c.Tools.Disabled,
		},
		Reflection: c.Reflection,
		Complexity: c.Complexity,
		History:    c.History,
	}

	data, err := yaml.Marshal(&yc)
	if err != nil {
		return models.WrapError(models.ErrConfig, err, "marshal config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return models.WrapError(models.ErrConfig, err, "create config directory")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
