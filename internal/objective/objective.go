// Package objective provides named scalar test functions for the CLI.
package objective

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/esmax/internal/es"
)

// ErrUnknownObjective is returned by Lookup for an unregistered name.
var ErrUnknownObjective = errors.New("unknown objective")

// Factory builds an objective whose minimum lies at target.
type Factory func(target float64) es.Objective

var registry = map[string]Factory{
	"quadratic": Quadratic,
	"absolute":  Absolute,
	"rastrigin": Rastrigin,
}

// Quadratic returns (w - target)^2.
func Quadratic(target float64) es.Objective {
	return func(w float64) float64 {
		d := w - target
		return d * d
	}
}

// Absolute returns |w - target|.
func Absolute(target float64) es.Objective {
	return func(w float64) float64 {
		return math.Abs(w - target)
	}
}

// Rastrigin returns the one-dimensional Rastrigin function centred on
// target. Its global minimum of 0 is surrounded by local minima at integer
// offsets.
func Rastrigin(target float64) es.Objective {
	return func(w float64) float64 {
		d := w - target
		return 10 + d*d - 10*math.Cos(2*math.Pi*d)
	}
}

// Lookup returns the named objective centred on target.
func Lookup(name string, target float64) (es.Objective, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownObjective, name, Names())
	}
	return f(target), nil
}

// Names lists the registered objectives in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
