package es

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("invalid es config")

// Config holds the hyperparameters of one evolution-strategy run.
type Config struct {
	Seed        uint32  `json:"seed"`
	PopSize     int     `json:"popSize"`     // perturbations per generation
	Sigma       float64 `json:"sigma"`       // perturbation scale
	Alpha       float64 `json:"alpha"`       // AdaMax learning rate
	Generations int     `json:"generations"` // upper bound on generations

	// InitialParam is the starting parameter. When nil the start is drawn
	// from N(0, 1) using the run's generator before the first generation.
	InitialParam *float64 `json:"initialParam,omitempty"`

	Convergence ConvergenceConfig `json:"convergence"`
}

// DefaultConfig returns the reference hyperparameters: seed 123, 50
// perturbations of scale 0.1, learning rate 0.05, 300 generations.
func DefaultConfig() Config {
	return Config{
		Seed:        123,
		PopSize:     50,
		Sigma:       0.1,
		Alpha:       0.05,
		Generations: 300,
		Convergence: DisabledConvergenceConfig(),
	}
}

// WithInitialParam returns a copy of c starting from w.
func (c Config) WithInitialParam(w float64) Config {
	c.InitialParam = &w
	return c
}

// Validate checks that every hyperparameter is usable.
func (c Config) Validate() error {
	if c.PopSize <= 0 {
		return fmt.Errorf("%w: population size must be positive, got %d", ErrInvalidConfig, c.PopSize)
	}
	if c.Generations <= 0 {
		return fmt.Errorf("%w: generations must be positive, got %d", ErrInvalidConfig, c.Generations)
	}
	if !isPositiveFinite(c.Sigma) {
		return fmt.Errorf("%w: sigma must be positive and finite, got %v", ErrInvalidConfig, c.Sigma)
	}
	if !isPositiveFinite(c.Alpha) {
		return fmt.Errorf("%w: alpha must be positive and finite, got %v", ErrInvalidConfig, c.Alpha)
	}
	if c.InitialParam != nil && (math.IsNaN(*c.InitialParam) || math.IsInf(*c.InitialParam, 0)) {
		return fmt.Errorf("%w: initial parameter must be finite, got %v", ErrInvalidConfig, *c.InitialParam)
	}
	if c.Convergence.Enabled {
		if c.Convergence.Patience <= 0 {
			return fmt.Errorf("%w: convergence patience must be positive, got %d", ErrInvalidConfig, c.Convergence.Patience)
		}
		if c.Convergence.Threshold < 0 || math.IsNaN(c.Convergence.Threshold) {
			return fmt.Errorf("%w: convergence threshold must be >= 0, got %v", ErrInvalidConfig, c.Convergence.Threshold)
		}
	}
	return nil
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
