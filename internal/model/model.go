package model

// #region imports
import (
	"errors"
)

// #endregion

// #region errors

// ErrNotFittable is returned by Fit when the labeled set is degenerate:
// empty, or carrying fewer than two distinct classes. Callers must surface
// it, never fall back to a silently untrained model.
var ErrNotFittable = errors.New("labeled set cannot fit the model")

// #endregion

// #region interfaces

// Model is the minimal fit/predict contract the query strategies bind to.
type Model interface {
	// Fit trains on the given examples, replacing any previous training.
	Fit(xs [][]float64, ys []int) error
	// Predict returns the label for one feature vector.
	Predict(x []float64) int
}

// ProbabilisticModel additionally exposes per-class probability estimates,
// required by uncertainty-based strategies.
type ProbabilisticModel interface {
	Model
	// PredictProba returns one probability per class, aligned with Classes.
	PredictProba(x []float64) []float64
	// Classes returns the distinct labels seen during Fit, ascending.
	Classes() []int
}

// #endregion
