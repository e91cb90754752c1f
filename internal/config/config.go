// Package config holds the policy knobs that front-ends (CLI, REPL, editor)
// feed into the Core: the feature override policy, the inference level, the
// unquote default, and logging/registry settings. None of it is mandatory -
// Load overlays an optional YAML file onto Default().
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// InferenceLevel controls how aggressively the Dependency Inferrer
// synthesises dependencies and features from the AST.
type InferenceLevel string

const (
	// LevelNone emits no inferred dependencies; the user must supply everything.
	LevelNone InferenceLevel = "none"
	// LevelMinimal emits crate names only; no features, default-features untouched.
	LevelMinimal InferenceLevel = "minimal"
	// LevelConfig is Minimal plus per-crate overrides and global include/exclude rules.
	LevelConfig InferenceLevel = "config"
	// LevelMaximal is Config plus every non-unstable, non-excluded registry feature.
	LevelMaximal InferenceLevel = "maximal"
)

// Rank orders inference levels for the monotonicity property: going from a
// lower level to a higher one can only add features, never remove them.
func (l InferenceLevel) Rank() int {
	switch l {
	case LevelNone:
		return 0
	case LevelMinimal:
		return 1
	case LevelConfig:
		return 2
	case LevelMaximal:
		return 3
	default:
		return 1
	}
}

// FeatureOverride is the per-crate policy record from §3 of the Core spec.
type FeatureOverride struct {
	RequiredFeatures []string `yaml:"required_features,omitempty"`
	ExcludedFeatures []string `yaml:"excluded_features,omitempty"`
	// DefaultFeatures overrides the crate's default-features flag when set.
	DefaultFeatures *bool `yaml:"default_features,omitempty"`
}

// InferenceConfig is the Feature Override Policy configuration input.
type InferenceConfig struct {
	Level                  InferenceLevel             `yaml:"level"`
	PerCrate               map[string]FeatureOverride `yaml:"per_crate,omitempty"`
	ExcludeUnstableFeatures bool                      `yaml:"exclude_unstable_features"`
	ExcludeStdFeature      bool                       `yaml:"exclude_std_feature"`
	AlwaysIncludeFeatures  []string                   `yaml:"always_include_features,omitempty"`
	GlobalExcludedFeatures []string                   `yaml:"global_excluded_features,omitempty"`
	ExcludePrerelease      bool                       `yaml:"exclude_prerelease"`
}

// LoggingConfig configures the categorized file logger (internal/logging).
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories,omitempty"`
	JSONFormat bool            `yaml:"json_format"`
}

// RegistryConfig configures the Registry Resolver's HTTP client.
type RegistryConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Config is the full policy object threaded through one pipeline invocation.
// It replaces the teacher's process-wide config singleton: a Config value is
// constructed once per invocation and passed explicitly, never read from a
// package-level global.
type Config struct {
	Inference InferenceConfig `yaml:"inference"`
	Unquote   bool            `yaml:"unquote"`
	Logging   LoggingConfig   `yaml:"logging"`
	Registry  RegistryConfig  `yaml:"registry"`
}

// Default returns the policy thag ships with out of the box.
func Default() *Config {
	return &Config{
		Inference: InferenceConfig{
			Level:                  LevelConfig,
			ExcludeUnstableFeatures: true,
			ExcludeStdFeature:      false,
			ExcludePrerelease:      true,
		},
		Unquote: false,
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
		Registry: RegistryConfig{
			BaseURL:        "https://index.crates.io",
			TimeoutSeconds: 10,
		},
	}
}

// Load reads a YAML config file, overlaying it onto Default(). A missing
// file is not an error - it just means the defaults stand.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
