package strategy

// #region imports
import (
	"activepool/internal/dataset"
)

// #endregion

// #region query-strategy

// QueryStrategy proposes the next unlabeled pool index to have labeled.
// A strategy binds to exactly one Dataset at construction and registers
// itself as an observer; internal caches stay consistent with the pool
// either by full recompute per query or by incremental refresh in the
// observer callback. MakeQuery must be deterministic given fixed pool state
// and a seeded RNG, and returns dataset.ErrEmptyPool once the pool is
// exhausted.
type QueryStrategy interface {
	dataset.Observer

	// Dataset returns the pool this strategy is bound to.
	Dataset() *dataset.Dataset
	// MakeQuery selects one unlabeled index.
	MakeQuery() (int, error)
}

// #endregion

// #region config-error

// ConfigError reports an invalid strategy configuration.
type ConfigError string

func (e ConfigError) Error() string { return string(e) }

// #endregion

// #region helpers

// labeledXY splits the labeled partition into parallel feature and label
// slices for model fitting.
func labeledXY(d *dataset.Dataset) ([][]float64, []int) {
	labeled := d.LabeledEntries()
	xs := make([][]float64, len(labeled))
	ys := make([]int, len(labeled))
	for i, le := range labeled {
		xs[i] = le.Features
		ys[i] = le.Label
	}
	return xs, ys
}

// argMax returns the candidate index with the strictly greatest score.
// Ties break to the lowest pool index: candidates arrive in pool order and
// only a strict improvement replaces the current best.
func argMax(cands []dataset.Candidate, scores []float64) int {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return cands[best].Index
}

// argMin is argMax's mirror, with the same lowest-index tie break.
func argMin(cands []dataset.Candidate, scores []float64) int {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] < scores[best] {
			best = i
		}
	}
	return cands[best].Index
}

// #endregion
