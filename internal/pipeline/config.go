// Package pipeline runs extraction strategies in cost order and returns one
// scored result per document.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/MeKo-Tech/filingocr/internal/quality"
)

// Thresholds are the lower bounds of the confidence bands.
type Thresholds struct {
	Accept    float64 `mapstructure:"accept" yaml:"accept" json:"accept"`
	SpotCheck float64 `mapstructure:"spot_check" yaml:"spot_check" json:"spot_check"`
	Warn      float64 `mapstructure:"warn" yaml:"warn" json:"warn"`
}

// DefaultThresholds returns the standard band boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Accept: 0.85, SpotCheck: 0.70, Warn: 0.50}
}

// Validate checks that every threshold is in [0,1] and that they are ordered.
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{"accept": t.Accept, "spot_check": t.SpotCheck, "warn": t.Warn} {
		if v < 0 || v > 1 {
			return fmt.Errorf("threshold %s must be between 0 and 1, got %.2f", name, v)
		}
	}
	if t.Warn > t.SpotCheck || t.SpotCheck > t.Accept {
		return fmt.Errorf("thresholds must satisfy warn <= spot_check <= accept, got %.2f/%.2f/%.2f",
			t.Warn, t.SpotCheck, t.Accept)
	}
	return nil
}

// Config holds the orchestrator settings.
type Config struct {
	// DocumentBudget bounds the wall-clock time spent on one document across
	// all strategies.
	DocumentBudget   time.Duration  `mapstructure:"document_budget" yaml:"document_budget" json:"document_budget"`
	Thresholds       Thresholds     `mapstructure:"thresholds" yaml:"thresholds" json:"thresholds"`
	Scorer           quality.Config `mapstructure:"scorer" yaml:"scorer" json:"scorer"`
	ExpectedPatterns []string       `mapstructure:"expected_patterns" yaml:"expected_patterns" json:"expected_patterns"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		DocumentBudget: 5 * time.Minute,
		Thresholds:     DefaultThresholds(),
		Scorer:         quality.DefaultConfig(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.DocumentBudget <= 0 {
		return errors.New("document_budget must be positive")
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if err := c.Scorer.Validate(); err != nil {
		return fmt.Errorf("scorer: %w", err)
	}
	if _, err := quality.CompilePatterns(c.ExpectedPatterns); err != nil {
		return fmt.Errorf("expected_patterns: %w", err)
	}
	return nil
}
