package strategy

// #region imports
import (
	"math/rand"

	"activepool/internal/dataset"
)

// #endregion

// #region random-sampling

// RandomSampling draws uniformly from the unlabeled pool. It is the
// baseline every informed strategy is benchmarked against, and the cheapest
// committee member for ALBL.
type RandomSampling struct {
	ds  *dataset.Dataset
	rng *rand.Rand
}

// NewRandomSampling binds the strategy to a pool with an explicit seeded
// generator.
func NewRandomSampling(ds *dataset.Dataset, rng *rand.Rand) (*RandomSampling, error) {
	if ds == nil {
		return nil, ConfigError("random sampling: nil dataset")
	}
	if rng == nil {
		return nil, ConfigError("random sampling: nil rng")
	}
	s := &RandomSampling{ds: ds, rng: rng}
	ds.RegisterObserver(s)
	return s, nil
}

// Dataset returns the bound pool.
func (s *RandomSampling) Dataset() *dataset.Dataset { return s.ds }

// MakeQuery picks a uniformly random unlabeled index.
func (s *RandomSampling) MakeQuery() (int, error) {
	cands := s.ds.UnlabeledEntries()
	if len(cands) == 0 {
		return 0, dataset.ErrEmptyPool
	}
	return cands[s.rng.Intn(len(cands))].Index, nil
}

// OnUpdate is a no-op; random sampling keeps no cache.
func (s *RandomSampling) OnUpdate(d *dataset.Dataset, index int, label int) error {
	return nil
}

// #endregion
