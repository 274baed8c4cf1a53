// Package adamax implements the AdaMax step rule for a single scalar
// parameter.
package adamax

import "math"

const (
	beta1   = 0.9
	beta2   = 0.999
	epsilon = 1e-6
)

// AdaMax holds the moment estimates for one parameter. The state lives for
// the optimizer's lifetime; there is no reset.
type AdaMax struct {
	alpha float64
	m     float64 // biased first moment
	u     float64 // exponentially weighted infinity norm
	t     float64 // step counter
}

// State is a read-only snapshot of the optimizer.
type State struct {
	Alpha float64 `json:"alpha"`
	Beta1 float64 `json:"beta1"`
	Beta2 float64 `json:"beta2"`
	M     float64 `json:"m"`
	U     float64 `json:"u"`
	T     float64 `json:"t"`
}

// New creates an AdaMax optimizer with learning rate alpha.
func New(alpha float64) *AdaMax {
	return &AdaMax{alpha: alpha}
}

// Update advances the moment estimates with gradient and returns the
// updated parameter. Every call mutates the state, so repeated calls with
// the same arguments return different values.
func (a *AdaMax) Update(param, gradient float64) float64 {
	a.t++
	a.m = beta1*a.m + (1-beta1)*gradient
	a.u = math.Max(beta2*a.u, math.Abs(gradient))
	return param - (a.alpha*a.m)/((1-math.Pow(beta1, a.t))*(a.u+epsilon))
}

// State returns the current optimizer state.
func (a *AdaMax) State() State {
	return State{
		Alpha: a.alpha,
		Beta1: beta1,
		Beta2: beta2,
		M:     a.m,
		U:     a.u,
		T:     a.t,
	}
}
