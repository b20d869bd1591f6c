package strategy

// #region imports
import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// #endregion

// #region kernel

// Kernel measures pairwise similarity between feature vectors. Density and
// QUIRE scoring treat it as a black box; any positive-semidefinite
// similarity works.
type Kernel interface {
	Similarity(a, b []float64) float64
}

// RBFKernel is exp(-gamma * ||a-b||^2).
type RBFKernel struct {
	Gamma float64
}

// Similarity implements Kernel.
func (k RBFKernel) Similarity(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return math.Exp(-k.Gamma * d * d)
}

// LinearKernel is the plain dot product.
type LinearKernel struct{}

// Similarity implements Kernel.
func (LinearKernel) Similarity(a, b []float64) float64 {
	return floats.Dot(a, b)
}

// #endregion
