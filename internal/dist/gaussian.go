package dist

import (
	"fmt"
	"math"

	"github.com/cwbudde/esmax/internal/rng"
)

// halfLnTwoPi is 0.5*ln(2π).
const halfLnTwoPi = 0.91893853320467274178032973640562

// Gaussian is a normal distribution. It is immutable after construction.
type Gaussian struct {
	mean   float64
	stddev float64
}

// NewGaussian creates a normal distribution with the given mean and standard
// deviation.
func NewGaussian(mean, stddev float64) (*Gaussian, error) {
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return nil, fmt.Errorf("gaussian mean %v: %w", mean, ErrInvalidMean)
	}
	if !(stddev > 0) || math.IsInf(stddev, 0) {
		return nil, fmt.Errorf("gaussian stddev %v: %w", stddev, ErrInvalidStdDev)
	}
	return &Gaussian{mean: mean, stddev: stddev}, nil
}

// StandardNormal returns N(0, 1).
func StandardNormal() *Gaussian {
	return &Gaussian{mean: 0, stddev: 1}
}

// Mean returns the distribution mean.
func (g *Gaussian) Mean() float64 { return g.mean }

// StdDev returns the standard deviation.
func (g *Gaussian) StdDev() float64 { return g.stddev }

// Sample draws via the Box–Muller transform, consuming two uniforms.
// A zero first uniform yields an infinite sample; this happens once in 2^32
// positions and is passed through unmodified.
func (g *Gaussian) Sample(r *rng.RNG) float64 {
	u1 := r.Sample()
	u2 := r.Sample()
	mag := g.stddev * math.Sqrt(-2*math.Log(u1))
	return mag*math.Cos(2*math.Pi*u2) + g.mean
}

// LogProb returns the log-density at x. The error is always nil.
func (g *Gaussian) LogProb(x float64) (float64, error) {
	z := (x - g.mean) / g.stddev
	return -math.Log(g.stddev) - halfLnTwoPi - 0.5*z*z, nil
}

func (*Gaussian) sealed() {}
