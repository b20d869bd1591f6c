package experiment

// #region imports
import (
	"errors"
	"fmt"

	"activepool/internal/dataset"
	"activepool/internal/model"
)

// #endregion

// #region evaluator

// Evaluator scores the downstream model on a fixed held-out test set. The
// same proxy metric is used for every round of a run, so learning curves
// from different strategies stay comparable.
type Evaluator struct {
	model model.Model
	xs    [][]float64
	ys    []int
}

// NewEvaluator binds a model to a held-out test set.
func NewEvaluator(m model.Model, xs [][]float64, ys []int) (*Evaluator, error) {
	if m == nil {
		return nil, fmt.Errorf("evaluator: nil model")
	}
	if len(xs) == 0 || len(xs) != len(ys) {
		return nil, fmt.Errorf("evaluator: %d test examples with %d labels", len(xs), len(ys))
	}
	return &Evaluator{model: m, xs: xs, ys: ys}, nil
}

// Accuracy refits the model on the pool's labeled set and returns the
// fraction of test examples predicted correctly. During cold start, while
// the labeled set cannot fit the model, the accuracy is reported as zero.
func (e *Evaluator) Accuracy(d *dataset.Dataset) (float64, error) {
	labeled := d.LabeledEntries()
	xs := make([][]float64, len(labeled))
	ys := make([]int, len(labeled))
	for i, le := range labeled {
		xs[i] = le.Features
		ys[i] = le.Label
	}

	if err := e.model.Fit(xs, ys); err != nil {
		if errors.Is(err, model.ErrNotFittable) {
			return 0, nil
		}
		return 0, fmt.Errorf("evaluator: %w", err)
	}

	correct := 0
	for i, x := range e.xs {
		if e.model.Predict(x) == e.ys[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(e.xs)), nil
}

// #endregion
