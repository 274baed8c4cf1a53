package es

import (
	"log/slog"
	"math"
)

// minScale keeps the relative improvement finite when the reference score is
// at or near zero.
const minScale = 1e-12

// ConvergenceConfig controls early stopping on the per-generation score
type ConvergenceConfig struct {
	// Enabled controls whether early stopping is active
	Enabled bool `json:"enabled"`

	// Patience is the number of generations without significant improvement
	// before the run stops
	Patience int `json:"patience,omitempty"`

	// Threshold is the minimum relative improvement that counts as progress.
	// Relative improvement = (lastSignificant - score) / |lastSignificant|
	Threshold float64 `json:"threshold,omitempty"`
}

// DefaultConvergenceConfig returns an enabled config with moderate patience
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:   true,
		Patience:  25,
		Threshold: 0.001, // 0.1% improvement
	}
}

// DisabledConvergenceConfig returns a config with early stopping disabled
func DisabledConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled: false,
	}
}

// ConvergenceTracker tracks score history and detects when a run has stalled
type ConvergenceTracker struct {
	config          ConvergenceConfig
	history         []float64
	bestScore       float64 // Best score ever seen
	lastSignificant float64 // Last score that was a significant improvement
	staleCount      int     // Generations without significant improvement
}

// NewConvergenceTracker creates a new convergence tracker with the given config
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	return &ConvergenceTracker{
		config:          config,
		history:         []float64{},
		bestScore:       math.Inf(1),
		lastSignificant: math.Inf(1),
	}
}

// Update records a new score and returns true if convergence is detected
func (c *ConvergenceTracker) Update(score float64) bool {
	if !c.config.Enabled {
		return false
	}

	c.history = append(c.history, score)

	if score < c.bestScore {
		c.bestScore = score
	}

	if len(c.history) == 1 {
		c.lastSignificant = score
		return false
	}

	relativeImprovement := (c.lastSignificant - score) / math.Max(math.Abs(c.lastSignificant), minScale)

	if relativeImprovement >= c.config.Threshold {
		c.lastSignificant = score
		c.staleCount = 0
		return false
	}

	c.staleCount++
	slog.Debug("No significant score improvement",
		"score", score,
		"last_significant", c.lastSignificant,
		"relative_improvement", relativeImprovement,
		"stale_count", c.staleCount,
		"patience", c.config.Patience,
	)

	if c.staleCount >= c.config.Patience {
		slog.Info("Convergence detected - stopping early",
			"stale_count", c.staleCount,
			"patience", c.config.Patience,
			"best_score", c.bestScore,
		)
		return true
	}
	return false
}

// BestScore returns the best score seen so far
func (c *ConvergenceTracker) BestScore() float64 {
	return c.bestScore
}

// History returns the recorded scores
func (c *ConvergenceTracker) History() []float64 {
	return append([]float64{}, c.history...)
}

// StaleCount returns the current number of generations without improvement
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}
