package strategy

// #region imports
import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"activepool/internal/dataset"
	"activepool/internal/model"
)

// #endregion

// #region config

// DensityConfig weights informativeness against representativeness.
type DensityConfig struct {
	Kernel Kernel
	// Beta is the exponent on the representativeness term; 0 reduces the
	// strategy to plain least-confidence sampling.
	Beta float64
}

// DefaultDensityConfig returns an RBF kernel with a unit exponent.
func DefaultDensityConfig() DensityConfig {
	return DensityConfig{
		Kernel: RBFKernel{Gamma: 1.0},
		Beta:   1.0,
	}
}

// #endregion

// #region density-weighted

// DensityWeighted scores each candidate by model uncertainty times its mean
// kernel similarity to the rest of the unlabeled pool, so queries favor
// uncertain entries that also represent the pool's structure. Pairwise
// similarity sums are maintained incrementally through the observer
// callback instead of being rebuilt per query.
type DensityWeighted struct {
	ds    *dataset.Dataset
	model model.ProbabilisticModel
	cfg   DensityConfig

	// simSum[i] is the summed similarity of unlabeled entry i to every
	// other unlabeled entry; nil until first built.
	simSum map[int]float64
}

// NewDensityWeighted binds the strategy to a pool and a probabilistic model.
func NewDensityWeighted(ds *dataset.Dataset, m model.ProbabilisticModel, cfg DensityConfig) (*DensityWeighted, error) {
	if ds == nil {
		return nil, ConfigError("density weighted: nil dataset")
	}
	if m == nil {
		return nil, ConfigError("density weighted: nil model")
	}
	if cfg.Kernel == nil {
		return nil, ConfigError("density weighted: nil kernel")
	}
	if cfg.Beta < 0 {
		return nil, ConfigError(fmt.Sprintf("density weighted: negative beta %v", cfg.Beta))
	}
	s := &DensityWeighted{ds: ds, model: m, cfg: cfg}
	ds.RegisterObserver(s)
	return s, nil
}

// Dataset returns the bound pool.
func (s *DensityWeighted) Dataset() *dataset.Dataset { return s.ds }

// MakeQuery returns the candidate maximizing
// uncertainty * representativeness^beta, ties broken by lowest pool index.
func (s *DensityWeighted) MakeQuery() (int, error) {
	cands := s.ds.UnlabeledEntries()
	if len(cands) == 0 {
		return 0, dataset.ErrEmptyPool
	}

	xs, ys := labeledXY(s.ds)
	if err := s.model.Fit(xs, ys); err != nil {
		return 0, fmt.Errorf("density weighted: %w", err)
	}
	// appended entries are not covered by the incremental cache
	if len(s.simSum) != len(cands) {
		s.rebuild(cands)
	}

	scores := make([]float64, len(cands))
	for i, c := range cands {
		uncertainty := 1 - floats.Max(s.model.PredictProba(c.Features))
		density := s.simSum[c.Index] / float64(len(cands))
		scores[i] = uncertainty * math.Pow(density, s.cfg.Beta)
	}
	return argMax(cands, scores), nil
}

// #endregion

// #region cache

// rebuild computes the full pairwise similarity sums over the unlabeled
// pool, including each entry's self-similarity.
func (s *DensityWeighted) rebuild(cands []dataset.Candidate) {
	s.simSum = make(map[int]float64, len(cands))
	for _, a := range cands {
		total := 0.0
		for _, b := range cands {
			total += s.cfg.Kernel.Similarity(a.Features, b.Features)
		}
		s.simSum[a.Index] = total
	}
}

// OnUpdate removes the newly labeled entry from the similarity sums of the
// remaining candidates, avoiding a full rebuild per label.
func (s *DensityWeighted) OnUpdate(d *dataset.Dataset, index int, label int) error {
	if s.simSum == nil {
		return nil
	}
	removed, err := s.ds.Entry(index)
	if err != nil {
		return err
	}
	delete(s.simSum, index)
	for _, c := range s.ds.UnlabeledEntries() {
		s.simSum[c.Index] -= s.cfg.Kernel.Similarity(c.Features, removed.Features)
	}
	return nil
}

// #endregion
