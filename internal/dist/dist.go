// Package dist implements the two sampling distributions used by the
// optimizer: a Gaussian over float64 and a Categorical over indices.
//
// The set is closed. Distribution carries an unexported method so only the
// types in this package satisfy it.
package dist

import (
	"errors"
	"fmt"

	"github.com/cwbudde/esmax/internal/rng"
)

// Distribution draws samples of type T and evaluates their log-probability.
type Distribution[T float64 | int] interface {
	// Sample draws one value, consuming the generator.
	Sample(r *rng.RNG) T

	// LogProb returns the log-density (or log-mass) of x.
	LogProb(x T) (float64, error)

	sealed()
}

var (
	_ Distribution[float64] = (*Gaussian)(nil)
	_ Distribution[int]     = (*Categorical)(nil)
)

// Construction errors. Use errors.Is to check for them.
var (
	ErrInvalidStdDev   = errors.New("standard deviation must be finite and > 0")
	ErrInvalidMean     = errors.New("mean must be finite")
	ErrEmptyProbs      = errors.New("probabilities must not be empty")
	ErrInvalidProb     = errors.New("probabilities must be finite and >= 0")
	ErrZeroMass        = errors.New("probabilities must not all be zero")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// IndexError is returned by Categorical.LogProb for an index outside the
// outcome set.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Len)
}

func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}

// ResidualMassError reports a Categorical draw that landed in the mass left
// unassigned when the probabilities sum to less than 1.
type ResidualMassError struct {
	Noise float64 // uniform draw that was consumed
	Mass  float64 // total stored probability mass
}

func (e *ResidualMassError) Error() string {
	return fmt.Sprintf("categorical sample fell in residual mass: noise %g, total mass %g", e.Noise, e.Mass)
}
