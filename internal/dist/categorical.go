package dist

import (
	"fmt"
	"math"

	"github.com/cwbudde/esmax/internal/rng"
)

// roundingSlack is the largest mass deficit treated as floating-point error
// rather than a genuinely sub-unit distribution.
const roundingSlack = 1e-9

// Categorical is a distribution over the indices 0..Len()-1.
type Categorical struct {
	probs []float64
	mass  float64
}

// NewCategorical builds a categorical distribution from raw probabilities.
// The input is copied and must have positive total mass. If it sums to more
// than 1 every entry is divided by the sum; otherwise it is stored as given
// and the deficit below 1 is residual mass that belongs to no outcome (see
// Sample).
func NewCategorical(probs []float64) (*Categorical, error) {
	if len(probs) == 0 {
		return nil, ErrEmptyProbs
	}

	stored := make([]float64, len(probs))
	var sum, largest float64
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return nil, fmt.Errorf("probability %d is %v: %w", i, p, ErrInvalidProb)
		}
		stored[i] = p
		sum += p
		largest = max(largest, p)
	}

	if sum == 0 {
		return nil, ErrZeroMass
	}
	if math.IsInf(sum, 1) {
		// Finite entries whose total overflows: rescale by the largest first.
		sum = 0
		for i := range stored {
			stored[i] /= largest
			sum += stored[i]
		}
	}

	if sum > 1 {
		for i := range stored {
			stored[i] /= sum
		}
		sum = 0
		for _, p := range stored {
			sum += p
		}
	}

	return &Categorical{probs: stored, mass: sum}, nil
}

// Probs returns a copy of the stored probabilities.
func (c *Categorical) Probs() []float64 {
	return append([]float64{}, c.probs...)
}

// Len returns the number of outcomes.
func (c *Categorical) Len() int { return len(c.probs) }

// Mass returns the sum of the stored probabilities.
func (c *Categorical) Mass() float64 { return c.mass }

// Sample draws an index. It panics with a *ResidualMassError if the draw
// lands in residual mass, which can only happen when the probabilities were
// constructed summing to less than 1. Use TrySample to get an error instead.
func (c *Categorical) Sample(r *rng.RNG) int {
	i, err := c.TrySample(r)
	if err != nil {
		panic(err)
	}
	return i
}

// TrySample draws an index, consuming one uniform. A draw past the last
// outcome is mapped to the last outcome with positive mass when the deficit
// is within rounding error; otherwise a *ResidualMassError is returned.
func (c *Categorical) TrySample(r *rng.RNG) (int, error) {
	drawn := r.Sample()
	noise := drawn
	for i, p := range c.probs {
		if noise < p {
			return i, nil
		}
		noise -= p
	}

	if 1-c.mass <= roundingSlack {
		for i := len(c.probs) - 1; i >= 0; i-- {
			if c.probs[i] > 0 {
				return i, nil
			}
		}
	}
	return 0, &ResidualMassError{Noise: drawn, Mass: c.mass}
}

// LogProb returns the log-mass of index x, renormalizing when the stored
// sum exceeds 1.
func (c *Categorical) LogProb(x int) (float64, error) {
	if x < 0 || x >= len(c.probs) {
		return 0, &IndexError{Index: x, Len: len(c.probs)}
	}

	p := c.probs[x]
	if c.mass > 1 {
		return math.Log(p / c.mass), nil
	}
	return math.Log(p), nil
}

func (*Categorical) sealed() {}
