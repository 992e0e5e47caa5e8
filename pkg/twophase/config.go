package twophase

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

var ErrInvalidConfig = errors.New("invalid two-phase configuration")

// Config is the budget of a configuration run.
type Config struct {
	// Timeout bounds both phases together.
	Timeout time.Duration `yaml:"timeout"`
	// CPUs is the number of concurrent phase 2 evaluations.
	CPUs int   `yaml:"cpus"`
	Seed int64 `yaml:"seed"`
	// PoolSize is the number of candidates re-evaluated in phase 2.
	PoolSize int `yaml:"poolSize"`
	// Margin is the relative distance from the best phase 1 score within
	// which candidates are eligible for phase 2.
	Margin float64 `yaml:"margin"`
	// SelectionBlowUp scales a phase 1 evaluation time to the expected
	// phase 2 evaluation time.
	SelectionBlowUp float64 `yaml:"selectionBlowUp"`
	// PostProcessingBlowUp scales the expected phase 2 evaluation time to
	// the expected post-processing time.
	PostProcessingBlowUp float64 `yaml:"postProcessingBlowUp"`
	// Tolerance is the fraction by which a phase 2 evaluation may exceed
	// its expected time before it is interrupted.
	Tolerance float64 `yaml:"tolerance"`
	// MinEvaluationTimeout is the least time a phase 2 evaluation gets,
	// however cheap it was in phase 1. Below 100ms it has no effect, since
	// no phase 2 evaluation is ever given less.
	MinEvaluationTimeout time.Duration `yaml:"minEvaluationTimeout"`
	SafetyMargin         time.Duration `yaml:"safetyMargin"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:              time.Minute,
		CPUs:                 runtime.NumCPU(),
		PoolSize:             10,
		Margin:               0.03,
		SelectionBlowUp:      1,
		PostProcessingBlowUp: 1,
		Tolerance:            0.5,
		SafetyMargin:         2 * time.Second,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, c.Timeout)
	case c.CPUs < 1:
		return fmt.Errorf("%w: cpus must be at least 1, got %d", ErrInvalidConfig, c.CPUs)
	case c.PoolSize < 1:
		return fmt.Errorf("%w: pool size must be at least 1, got %d", ErrInvalidConfig, c.PoolSize)
	case c.Margin < 0:
		return fmt.Errorf("%w: margin must not be negative, got %g", ErrInvalidConfig, c.Margin)
	case c.SelectionBlowUp <= 0:
		return fmt.Errorf("%w: selection blow-up must be positive, got %g", ErrInvalidConfig, c.SelectionBlowUp)
	case c.PostProcessingBlowUp < 0:
		return fmt.Errorf("%w: post-processing blow-up must not be negative, got %g", ErrInvalidConfig, c.PostProcessingBlowUp)
	case c.Tolerance < 0:
		return fmt.Errorf("%w: tolerance must not be negative, got %g", ErrInvalidConfig, c.Tolerance)
	case c.MinEvaluationTimeout < 0:
		return fmt.Errorf("%w: minimum evaluation timeout must not be negative, got %s", ErrInvalidConfig, c.MinEvaluationTimeout)
	case c.SafetyMargin < 0:
		return fmt.Errorf("%w: safety margin must not be negative, got %s", ErrInvalidConfig, c.SafetyMargin)
	}
	return nil
}
