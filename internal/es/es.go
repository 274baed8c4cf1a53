// Package es runs a natural-evolution-strategy loop over a single scalar
// parameter.
//
// Each generation draws a population of N(0, 1) perturbations, evaluates the
// objective at w + sigma*eps for each, and forms the Monte Carlo search
// gradient sum(score*eps) / (npop*sigma). The gradient feeds AdaMax, which
// moves w downhill. The objective is a black box; no derivatives are taken.
package es

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cwbudde/esmax/internal/adamax"
	"github.com/cwbudde/esmax/internal/dist"
	"github.com/cwbudde/esmax/internal/rng"
)

// Objective is the scalar function being minimized.
type Objective func(w float64) float64

// Generation is the observable record of one completed generation.
type Generation struct {
	Index    int     `json:"index"`
	Score    float64 `json:"score"`    // objective at the updated parameter
	Param    float64 `json:"param"`    // parameter after the update
	Gradient float64 `json:"gradient"` // search-gradient estimate fed to AdaMax
}

// Observer receives every generation as it completes. A non-nil error
// aborts the run.
type Observer func(g Generation) error

// Result summarizes a finished run.
type Result struct {
	InitialParam float64       `json:"initialParam"`
	FinalParam   float64       `json:"finalParam"`
	FinalScore   float64       `json:"finalScore"`
	BestParam    float64       `json:"bestParam"`
	BestScore    float64       `json:"bestScore"`
	Generations  int           `json:"generations"` // generations actually run
	Converged    bool          `json:"converged"`   // stopped early by the tracker
	Optimizer    adamax.State  `json:"-"`
	History      []Generation  `json:"-"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Run optimizes objective under cfg. It owns one generator, one standard
// normal and one AdaMax for the run's duration and consumes the generator
// strictly in call order, so identical inputs give identical results.
func Run(cfg Config, objective Objective, observe Observer) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if objective == nil {
		return nil, fmt.Errorf("%w: objective is nil", ErrInvalidConfig)
	}

	r := rng.New(cfg.Seed)
	noise := dist.StandardNormal()
	optimizer := adamax.New(cfg.Alpha)
	tracker := NewConvergenceTracker(cfg.Convergence)

	var w float64
	if cfg.InitialParam != nil {
		w = *cfg.InitialParam
	} else {
		w = noise.Sample(r)
	}

	slog.Info("Starting ES run",
		"seed", cfg.Seed,
		"pop_size", cfg.PopSize,
		"sigma", cfg.Sigma,
		"alpha", cfg.Alpha,
		"generations", cfg.Generations,
		"initial_param", w,
	)

	result := &Result{
		InitialParam: w,
		BestParam:    w,
		BestScore:    math.Inf(1),
		History:      make([]Generation, 0, cfg.Generations),
	}
	start := time.Now()

	scale := float64(cfg.PopSize) * cfg.Sigma
	for i := 0; i < cfg.Generations; i++ {
		var sum float64
		for j := 0; j < cfg.PopSize; j++ {
			eps := noise.Sample(r)
			sum += objective(w+cfg.Sigma*eps) * eps
		}
		grad := sum / scale
		w = optimizer.Update(w, grad)

		gen := Generation{
			Index:    i,
			Score:    objective(w),
			Param:    w,
			Gradient: grad,
		}
		result.History = append(result.History, gen)
		if gen.Score < result.BestScore {
			result.BestScore = gen.Score
			result.BestParam = w
		}

		slog.Debug("Generation complete",
			"generation", i,
			"score", gen.Score,
			"param", w,
			"gradient", grad,
		)

		if observe != nil {
			if err := observe(gen); err != nil {
				return nil, fmt.Errorf("observer aborted generation %d: %w", i, err)
			}
		}

		if tracker.Update(gen.Score) {
			result.Converged = true
			break
		}
	}

	last := result.History[len(result.History)-1]
	result.FinalParam = last.Param
	result.FinalScore = last.Score
	result.Generations = len(result.History)
	result.Optimizer = optimizer.State()
	result.Elapsed = time.Since(start)

	slog.Info("ES run complete",
		"generations", result.Generations,
		"converged", result.Converged,
		"final_param", result.FinalParam,
		"final_score", result.FinalScore,
		"best_score", result.BestScore,
		"elapsed", result.Elapsed,
	)

	return result, nil
}
