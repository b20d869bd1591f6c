package strategy

// #region imports
import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"activepool/internal/dataset"
	"activepool/internal/model"
)

// #endregion

// #region method

// UncertaintyMethod selects how predicted class distributions are scored.
type UncertaintyMethod string

const (
	// LeastConfident scores 1 - max class probability, highest first.
	LeastConfident UncertaintyMethod = "least_confident"
	// Margin scores the gap between the top two class probabilities,
	// smallest first.
	Margin UncertaintyMethod = "margin"
	// Entropy scores the Shannon entropy of the distribution, highest first.
	Entropy UncertaintyMethod = "entropy"
)

// #endregion

// #region uncertainty-sampling

// UncertaintySampling queries the entry the bound model is least sure
// about. The model is refit on the current labeled set on every query, so
// no cache maintenance happens in the observer callback.
type UncertaintySampling struct {
	ds     *dataset.Dataset
	model  model.ProbabilisticModel
	method UncertaintyMethod
}

// NewUncertaintySampling binds the strategy to a pool and a probabilistic
// model.
func NewUncertaintySampling(ds *dataset.Dataset, m model.ProbabilisticModel, method UncertaintyMethod) (*UncertaintySampling, error) {
	if ds == nil {
		return nil, ConfigError("uncertainty sampling: nil dataset")
	}
	if m == nil {
		return nil, ConfigError("uncertainty sampling: nil model")
	}
	switch method {
	case LeastConfident, Margin, Entropy:
	default:
		return nil, ConfigError(fmt.Sprintf("uncertainty sampling: unknown method %q", method))
	}
	s := &UncertaintySampling{ds: ds, model: m, method: method}
	ds.RegisterObserver(s)
	return s, nil
}

// Dataset returns the bound pool.
func (s *UncertaintySampling) Dataset() *dataset.Dataset { return s.ds }

// MakeQuery refits the model and returns the arg-extremum of the configured
// score, ties broken by lowest pool index.
func (s *UncertaintySampling) MakeQuery() (int, error) {
	cands := s.ds.UnlabeledEntries()
	if len(cands) == 0 {
		return 0, dataset.ErrEmptyPool
	}

	xs, ys := labeledXY(s.ds)
	if err := s.model.Fit(xs, ys); err != nil {
		return 0, fmt.Errorf("uncertainty sampling: %w", err)
	}

	scores := make([]float64, len(cands))
	for i, c := range cands {
		probs := s.model.PredictProba(c.Features)
		switch s.method {
		case LeastConfident:
			scores[i] = 1 - floats.Max(probs)
		case Margin:
			scores[i] = topTwoGap(probs)
		case Entropy:
			scores[i] = stat.Entropy(probs)
		}
	}

	if s.method == Margin {
		return argMin(cands, scores), nil
	}
	return argMax(cands, scores), nil
}

// OnUpdate is a no-op; the model is refit per query.
func (s *UncertaintySampling) OnUpdate(d *dataset.Dataset, index int, label int) error {
	return nil
}

// #endregion

// #region scoring

// topTwoGap returns the difference between the two largest probabilities.
func topTwoGap(probs []float64) float64 {
	first, second := 0.0, 0.0
	for _, p := range probs {
		switch {
		case p > first:
			second = first
			first = p
		case p > second:
			second = p
		}
	}
	return first - second
}

// #endregion
