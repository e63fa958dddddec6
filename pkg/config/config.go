// Package config holds the YAML-backed settings for the context-learning
// pipeline: playbook capacity and refinement, generation and reflection
// bounds, bullet selection, run shape, the LLM provider, and logging.
// Omitted fields keep their defaults, so a config file only needs the
// values it changes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/XiaoConstantine/ace-go/pkg/ace"
	"github.com/XiaoConstantine/ace-go/pkg/core"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/XiaoConstantine/ace-go/pkg/logging"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Playbook  PlaybookConfig  `yaml:"playbook"`
	Generator GeneratorConfig `yaml:"generator"`
	Reflector ReflectorConfig `yaml:"reflector"`
	Selection SelectionConfig `yaml:"selection"`
	Run       RunConfig       `yaml:"run"`
	LLM       LLMConfig       `yaml:"llm"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PlaybookConfig controls the bullet store and its refinement.
type PlaybookConfig struct {
	MaxSize             int     `yaml:"max_size" validate:"min=1"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" validate:"gt=0,lte=1"`
	HarmfulRatio        float64 `yaml:"harmful_ratio" validate:"min=0,lt=1"`
	MinUses             int     `yaml:"min_uses" validate:"min=0"`
	RefineMode          string  `yaml:"refine_mode"`

	// Seed installs the starter strategy bullets into fresh playbooks.
	Seed bool `yaml:"seed"`
}

// GeneratorConfig bounds each reasoning attempt.
type GeneratorConfig struct {
	StepBudget int      `yaml:"step_budget" validate:"min=1"`
	Timeout    Duration `yaml:"timeout" validate:"min=0"`
}

// ReflectorConfig controls lesson extraction and the failure fallback.
type ReflectorConfig struct {
	MaxLessons            int      `yaml:"max_lessons" validate:"min=0"`
	MinLessonLength       int      `yaml:"min_lesson_length" validate:"min=0"`
	PenalizeUsedOnFailure bool     `yaml:"penalize_used_on_failure"`
	Timeout               Duration `yaml:"timeout" validate:"min=0"`
}

// SelectionConfig controls which bullets are offered per query.
type SelectionConfig struct {
	TopK     int     `yaml:"top_k" validate:"min=1"`
	MinScore float64 `yaml:"min_score" validate:"min=0,lte=1"`

	// Parallel is the goroutine count for scoring large playbooks; values
	// below 2 keep scoring sequential.
	Parallel int `yaml:"parallel" validate:"min=0"`
}

// RunConfig shapes a batch run.
type RunConfig struct {
	Concurrency int  `yaml:"concurrency" validate:"min=1"`
	Isolated    bool `yaml:"isolated"`

	// Limit caps how many queries are processed; zero means all.
	Limit int `yaml:"limit" validate:"min=0"`

	// PlaybookPath is the checkpoint location (.json or .db). Empty
	// disables checkpointing.
	PlaybookPath string `yaml:"playbook_path,omitempty"`

	// OutputPath is where the per-query results CSV is written. Empty
	// disables the report.
	OutputPath string `yaml:"output_path,omitempty"`
}

// LLMConfig selects and tunes the model provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider" validate:"required,oneof=anthropic"`
	ModelID     string  `yaml:"model_id" validate:"required"`
	APIKey      string  `yaml:"api_key,omitempty"`
	MaxTokens   int     `yaml:"max_tokens" validate:"min=1"`
	Temperature float64 `yaml:"temperature" validate:"min=0,max=1"`
}

// LoggingConfig controls log verbosity and the optional log file.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR FATAL"`
	File  string `yaml:"file,omitempty"`
}

// Duration wraps time.Duration so YAML configs can write "90s" or "2m".
// Plain integers are taken as nanoseconds, matching time.Duration.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}

	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Default returns the standard configuration.
func Default() *Config {
	return &Config{
		Playbook: PlaybookConfig{
			MaxSize:             ace.DefaultMaxSize,
			SimilarityThreshold: ace.DefaultSimilarityThreshold,
			HarmfulRatio:        0,
			MinUses:             1,
			RefineMode:          string(ace.RefineLazy),
			Seed:                true,
		},
		Generator: GeneratorConfig{
			StepBudget: ace.DefaultStepBudget,
			Timeout:    Duration(2 * time.Minute),
		},
		Reflector: ReflectorConfig{
			MaxLessons:            ace.DefaultMaxLessons,
			MinLessonLength:       ace.DefaultMinLessonLength,
			PenalizeUsedOnFailure: true,
			Timeout:               Duration(30 * time.Second),
		},
		Selection: SelectionConfig{
			TopK:     ace.DefaultTopK,
			MinScore: ace.DefaultMinScore,
		},
		Run: RunConfig{
			Concurrency: 1,
		},
		LLM: LLMConfig{
			Provider:    "anthropic",
			ModelID:     string(core.ModelAnthropicSonnet),
			MaxTokens:   8192,
			Temperature: 0.5,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// Load reads and validates a config file. Fields the file omits keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to read config file"),
			errors.Fields{"path": path},
		)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to parse config file"),
			errors.Fields{"path": path},
		)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the file when present and falls back to the default
// configuration when the path is empty or missing.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Save validates the config and writes it as YAML, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to encode config")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to create config directory"),
			errors.Fields{"path": path},
		)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to write config file"),
			errors.Fields{"path": path},
		)
	}
	return nil
}

// RefineConfig returns the playbook refinement settings.
func (c *Config) RefineConfig() ace.RefineConfig {
	return ace.RefineConfig{
		SimilarityThreshold: c.Playbook.SimilarityThreshold,
		HarmfulRatio:        c.Playbook.HarmfulRatio,
		MinUses:             c.Playbook.MinUses,
	}
}

// RefineMode returns the parsed curator mode, falling back to lazy for
// configs that skipped Validate.
func (c *Config) RefineMode() ace.RefineMode {
	mode, err := ace.ParseRefineMode(c.Playbook.RefineMode)
	if err != nil {
		return ace.RefineLazy
	}
	return mode
}

// Severity returns the parsed logging level.
func (c *Config) Severity() logging.Severity {
	return logging.ParseSeverity(c.Logging.Level)
}

// GenerateOptions returns the per-call LLM options the config describes.
func (c *Config) GenerateOptions() []core.GenerateOption {
	return []core.GenerateOption{
		core.WithMaxTokens(c.LLM.MaxTokens),
		core.WithTemperature(c.LLM.Temperature),
	}
}
