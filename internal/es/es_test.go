package es

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/cwbudde/esmax/internal/dist"
	"github.com/cwbudde/esmax/internal/rng"
	"github.com/cwbudde/mayfly"
)

func quadratic(w float64) float64 {
	return (w - 0.5) * (w - 0.5)
}

func TestRunConvergesOnQuadratic(t *testing.T) {
	tests := []struct {
		name string
		seed uint32
	}{
		{"reference seed", 123},
		{"seed 1", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Seed = tt.seed

			result, err := Run(cfg, quadratic, nil)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			if result.Generations != 300 {
				t.Errorf("Expected 300 generations, got %d", result.Generations)
			}
			if len(result.History) != 300 {
				t.Errorf("Expected 300 history entries, got %d", len(result.History))
			}
			if result.FinalScore >= 0.01 {
				t.Errorf("Expected final score < 0.01, got %f (w=%f)", result.FinalScore, result.FinalParam)
			}
			if math.Abs(result.FinalParam-0.5) > 0.1 {
				t.Errorf("Expected parameter near 0.5, got %f", result.FinalParam)
			}
			if result.BestScore > result.FinalScore {
				t.Errorf("Best score %f worse than final %f", result.BestScore, result.FinalScore)
			}
			if result.Optimizer.T != 300 {
				t.Errorf("Expected 300 optimizer steps, got %v", result.Optimizer.T)
			}
		})
	}
}

func TestRunDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Generations = 50

	a, err := Run(cfg, quadratic, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	b, err := Run(cfg, quadratic, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for i := range a.History {
		if a.History[i] != b.History[i] {
			t.Fatalf("Generation %d differs: %+v vs %+v", i, a.History[i], b.History[i])
		}
	}
}

func TestRunDrawsInitialParamFromGenerator(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Generations = 1

	result, err := Run(cfg, quadratic, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := dist.StandardNormal().Sample(rng.New(cfg.Seed))
	if result.InitialParam != want {
		t.Errorf("Expected initial param %v, got %v", want, result.InitialParam)
	}
}

func TestRunFirstGenerationGradient(t *testing.T) {
	cfg := DefaultConfig().WithInitialParam(2.0)
	cfg.Generations = 1

	result, err := Run(cfg, quadratic, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.InitialParam != 2.0 {
		t.Fatalf("Expected initial param 2.0, got %v", result.InitialParam)
	}

	// Replay the first generation by hand.
	r := rng.New(cfg.Seed)
	noise := dist.StandardNormal()
	var sum float64
	for j := 0; j < cfg.PopSize; j++ {
		eps := noise.Sample(r)
		sum += quadratic(2.0+cfg.Sigma*eps) * eps
	}
	want := sum / (float64(cfg.PopSize) * cfg.Sigma)

	got := result.History[0].Gradient
	if got != want {
		t.Errorf("Gradient = %v, want %v", got, want)
	}
	// True derivative at 2.0 is 3.0; the estimate should point the same way.
	if got <= 0 {
		t.Errorf("Expected positive gradient estimate, got %v", got)
	}
	if result.FinalParam >= 2.0 {
		t.Errorf("Expected parameter to move downhill from 2.0, got %v", result.FinalParam)
	}
}

func TestRunObserver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Generations = 10

	var seen []Generation
	result, err := Run(cfg, quadratic, func(g Generation) error {
		seen = append(seen, g)
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(seen) != 10 {
		t.Fatalf("Expected 10 observed generations, got %d", len(seen))
	}
	for i, g := range seen {
		if g.Index != i {
			t.Errorf("Observed generation %d has index %d", i, g.Index)
		}
		if g != result.History[i] {
			t.Errorf("Observed generation %d differs from history", i)
		}
		if g.Score != quadratic(g.Param) {
			t.Errorf("Generation %d score %v does not match objective at %v", i, g.Score, g.Param)
		}
	}
}

func TestRunObserverAbort(t *testing.T) {
	stop := errors.New("stop")
	cfg := DefaultConfig()

	calls := 0
	_, err := Run(cfg, quadratic, func(g Generation) error {
		calls++
		if g.Index == 4 {
			return stop
		}
		return nil
	})

	if !errors.Is(err, stop) {
		t.Fatalf("Expected observer error, got %v", err)
	}
	if calls != 5 {
		t.Errorf("Expected 5 observer calls, got %d", calls)
	}
}

func TestRunEarlyStopping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Convergence = ConvergenceConfig{
		Enabled:   true,
		Patience:  5,
		Threshold: 0.5,
	}

	result, err := Run(cfg, quadratic, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !result.Converged {
		t.Fatal("Expected run to stop early")
	}
	if result.Generations >= cfg.Generations {
		t.Errorf("Expected fewer than %d generations, got %d", cfg.Generations, result.Generations)
	}
	if len(result.History) != result.Generations {
		t.Errorf("History length %d != generations %d", len(result.History), result.Generations)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	nan := math.NaN()

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero population", func(c *Config) { c.PopSize = 0 }},
		{"negative generations", func(c *Config) { c.Generations = -1 }},
		{"zero sigma", func(c *Config) { c.Sigma = 0 }},
		{"NaN sigma", func(c *Config) { c.Sigma = nan }},
		{"negative alpha", func(c *Config) { c.Alpha = -0.1 }},
		{"infinite alpha", func(c *Config) { c.Alpha = math.Inf(1) }},
		{"NaN initial param", func(c *Config) { c.InitialParam = &nan }},
		{"zero patience", func(c *Config) {
			c.Convergence = ConvergenceConfig{Enabled: true, Patience: 0, Threshold: 0.1}
		}},
		{"negative threshold", func(c *Config) {
			c.Convergence = ConvergenceConfig{Enabled: true, Patience: 3, Threshold: -1}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			if _, err := Run(cfg, quadratic, nil); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if _, err := Run(DefaultConfig(), nil, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for nil objective, got %v", err)
	}
}

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

// The ES solution should agree with a population-based reference optimizer.
func TestRunAgreesWithMayfly(t *testing.T) {
	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(x []float64) float64 { return quadratic(x[0]) }
	config.ProblemSize = 1
	config.MaxIterations = 100
	config.NPop = 20
	config.LowerBound = -5
	config.UpperBound = 5
	config.Rand = rand.New(rand.NewSource(42))

	ref, err := mayfly.Optimize(config)
	if err != nil {
		t.Fatalf("Reference optimization failed: %v", err)
	}

	result, err := Run(DefaultConfig(), quadratic, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	refParam := ref.GlobalBest.Position[0]
	if math.Abs(result.FinalParam-refParam) > 0.15 {
		t.Errorf("ES parameter %f disagrees with reference %f", result.FinalParam, refParam)
	}
}
