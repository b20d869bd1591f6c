package labeler

// #region imports
import (
	"context"
	"fmt"
	"slices"
)

// #endregion

// #region interface

// Labeler is the oracle: it returns the ground-truth label for a chosen
// example. Implementations may block indefinitely (human in the loop); the
// core imposes no timeout beyond the caller's context.
type Labeler interface {
	Label(ctx context.Context, features []float64) (int, error)
}

// #endregion

// #region ideal-labeler

// IdealLabeler answers from a fixed ground-truth table, the simulated
// oracle used for benchmarking and tests.
type IdealLabeler struct {
	xs [][]float64
	ys []int
}

// NewIdealLabeler records the full ground truth up front.
func NewIdealLabeler(xs [][]float64, ys []int) (*IdealLabeler, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("ideal labeler: %d examples with %d labels", len(xs), len(ys))
	}
	return &IdealLabeler{xs: xs, ys: ys}, nil
}

// Label looks the feature vector up in the recorded ground truth.
func (l *IdealLabeler) Label(ctx context.Context, features []float64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	for i, x := range l.xs {
		if slices.Equal(x, features) {
			return l.ys[i], nil
		}
	}
	return 0, fmt.Errorf("ideal labeler: features %v not in ground truth", features)
}

// #endregion
