// Package config loads the outer façade's configuration — the toggles §6
// assigns to the "façade configuration" collaborator, never to the engine
// itself (the engine always returns a result; these fields only control
// what the façade does with it). Adapted from the teacher's
// pkg/config/config.go: a YAML file with environment-variable overrides via
// cleanenv, with a strict-decode pre-pass so unknown keys are rejected
// rather than silently ignored.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Config holds the façade's runtime behavior, independent of the
// SecuritySchema (which is its own document, loaded via schema.LoadYAML).
type Config struct {
	// LogQueries enables the façade emitting one log record per
	// validate_query call (§6's Logger collaborator).
	LogQueries bool `yaml:"log_queries" env:"LANGSEC_LOG_QUERIES" env-default:"false"`
	// LogPath is where query log records are written; empty means the
	// façade's default sink (e.g. stderr) is used.
	LogPath string `yaml:"log_path" env:"LANGSEC_LOG_PATH" env-default:""`
	// RaiseOnViolation controls whether a denied query surfaces to the
	// caller as an error or as a plain boolean result.
	// Defaults to true; the default is set in Load rather than through
	// env-default, which cleanenv would also apply over an explicit false.
	RaiseOnViolation bool `yaml:"raise_on_violation" env:"LANGSEC_RAISE_ON_VIOLATION"`
	// CollectAllViolations selects the rule engine's collect-all mode
	// instead of fail-fast (independent of RaiseOnViolation, per §4.4).
	CollectAllViolations bool `yaml:"collect_all_violations" env:"LANGSEC_COLLECT_ALL_VIOLATIONS" env-default:"false"`
}

// Load reads façade configuration from the YAML file at path, with
// environment-variable overrides, rejecting unknown YAML keys. A missing
// file is not an error — Load then returns the default Config
// (RaiseOnViolation=true, every other field from its env-default) with any
// environment overrides applied.
func Load(path string) (*Config, error) {
	if err := rejectUnknownFields(path); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	cfg := &Config{RaiseOnViolation: true}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		if os.IsNotExist(err) {
			if envErr := cleanenv.ReadEnv(cfg); envErr != nil {
				return nil, fmt.Errorf("failed to read environment config: %w", envErr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return cfg, nil
}

// rejectUnknownFields strict-decodes path against Config's shape so an
// unrecognized key fails loudly instead of being silently dropped by
// cleanenv's looser unmarshal.
func rejectUnknownFields(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var probe Config
	if err := dec.Decode(&probe); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
