package albl

// #region imports
import (
	"fmt"
	"log"
	"math/rand"

	"activepool/internal/dataset"
	"activepool/internal/model"
	"activepool/internal/strategy"
)

// #endregion

// #region config

// Config wires the meta-strategy. Strategies, Model, and RNG are required;
// zero numeric fields fall back to the documented defaults.
type Config struct {
	// Strategies are the sub-strategies the bandit mixes. Every one must be
	// bound to the same Dataset the meta-strategy is given.
	Strategies []strategy.QueryStrategy
	// Model is the reference model used for reward estimation.
	Model model.ProbabilisticModel
	// RNG drives arm selection and calibration subsampling.
	RNG *rand.Rand

	// CalibrationSize caps the labeled subsample rewards are measured on.
	// Default 10.
	CalibrationSize int
	// ExplorationBase scales the decaying uniform exploration floor.
	// Default 0.1.
	ExplorationBase float64
	// Gain scales the bandit's multiplicative weight update. Default 1.0.
	Gain float64
	// RewardDecay in (0,1] pulls arm weights back toward uniform each
	// round; 1 (the default) disables forgetting.
	RewardDecay float64
}

func (c *Config) applyDefaults() {
	if c.CalibrationSize == 0 {
		c.CalibrationSize = 10
	}
	if c.ExplorationBase == 0 {
		c.ExplorationBase = 0.1
	}
	if c.Gain == 0 {
		c.Gain = 1.0
	}
	if c.RewardDecay == 0 {
		c.RewardDecay = 1.0
	}
}

// #endregion

// #region albl

// ActiveLearningByLearning treats each sub-strategy as a bandit arm and
// adaptively mixes them online. Per round: MakeQuery draws an arm from the
// exploration-smoothed weight distribution and proposes that arm's
// candidate; once the oracle's label is committed through Dataset.Update,
// the observer callback estimates an inverse-propensity-weighted reward for
// the played arm and updates its weight. The meta-strategy never inspects a
// sub-strategy's concrete type.
type ActiveLearningByLearning struct {
	ds     *dataset.Dataset
	subs   []strategy.QueryStrategy
	bandit *exp4p
	cfg    Config

	queryCounts []int
	pending     *pendingQuery
}

// pendingQuery carries the SELECT outcome until the matching label commit.
type pendingQuery struct {
	arm   int
	prob  float64
	index int
}

// New validates the sub-strategies and registers the meta-strategy as a
// pool observer. Sub-strategies keep their own registrations, so every arm
// refreshes its caches on each commit whether or not it was played.
func New(ds *dataset.Dataset, cfg Config) (*ActiveLearningByLearning, error) {
	if ds == nil {
		return nil, strategy.ConfigError("albl: nil dataset")
	}
	if len(cfg.Strategies) == 0 {
		return nil, strategy.ConfigError("albl: no sub-strategies given")
	}
	for i, sub := range cfg.Strategies {
		if sub.Dataset() != ds {
			return nil, strategy.ConfigError(fmt.Sprintf("albl: sub-strategy %d bound to a different dataset", i))
		}
	}
	if cfg.Model == nil {
		return nil, strategy.ConfigError("albl: nil reward model")
	}
	if cfg.RNG == nil {
		return nil, strategy.ConfigError("albl: nil rng")
	}
	cfg.applyDefaults()
	if cfg.RewardDecay <= 0 || cfg.RewardDecay > 1 {
		return nil, strategy.ConfigError(fmt.Sprintf("albl: reward decay %v outside (0,1]", cfg.RewardDecay))
	}

	a := &ActiveLearningByLearning{
		ds:          ds,
		subs:        cfg.Strategies,
		bandit:      newExp4p(len(cfg.Strategies), cfg.ExplorationBase, cfg.Gain, cfg.RewardDecay),
		cfg:         cfg,
		queryCounts: make([]int, len(cfg.Strategies)),
	}
	ds.RegisterObserver(a)
	return a, nil
}

// Dataset returns the bound pool.
func (a *ActiveLearningByLearning) Dataset() *dataset.Dataset { return a.ds }

// QueryCounts returns how many committed queries each arm has won.
func (a *ActiveLearningByLearning) QueryCounts() []int {
	out := make([]int, len(a.queryCounts))
	copy(out, a.queryCounts)
	return out
}

// Probabilities returns the bandit's current arm distribution.
func (a *ActiveLearningByLearning) Probabilities() []float64 {
	return a.bandit.probs()
}

// #endregion

// #region select

// MakeQuery runs the SELECT phase: every arm proposes a candidate against
// the same pool snapshot, then one arm is drawn from the mixed
// distribution and its candidate becomes the round's query. A query
// proposed but never committed leaves all bandit state untouched.
func (a *ActiveLearningByLearning) MakeQuery() (int, error) {
	if a.ds.LenUnlabeled() == 0 {
		return 0, dataset.ErrEmptyPool
	}

	candidates := make([]int, len(a.subs))
	for i, sub := range a.subs {
		idx, err := sub.MakeQuery()
		if err != nil {
			return 0, fmt.Errorf("albl: sub-strategy %d: %w", i, err)
		}
		candidates[i] = idx
	}

	probs := a.bandit.probs()
	arm := drawArm(a.cfg.RNG, probs)
	a.pending = &pendingQuery{arm: arm, prob: probs[arm], index: candidates[arm]}
	return candidates[arm], nil
}

// drawArm samples an index from the distribution.
func drawArm(rng *rand.Rand, probs []float64) int {
	u := rng.Float64()
	acc := 0.0
	for i, p := range probs {
		acc += p
		if u < acc {
			return i
		}
	}
	return len(probs) - 1
}

// #endregion

// #region reward

// OnUpdate runs REWARD_ESTIMATE and COMMIT when the committed index matches
// the pending query: the played arm's reward is estimated against the
// post-commit labeled set, the bandit weight and query count advance, and
// the pending query is cleared. Commits that did not come from this
// meta-strategy leave the bandit untouched.
func (a *ActiveLearningByLearning) OnUpdate(d *dataset.Dataset, index int, label int) error {
	if a.pending == nil || a.pending.index != index {
		return nil
	}
	p := a.pending
	a.pending = nil

	reward := a.estimateReward(index)
	a.bandit.update(p.arm, reward, p.prob)
	a.queryCounts[p.arm]++

	log.Printf("[ALBL] round %d: arm=%d prob=%.3f reward=%.4f", a.bandit.round, p.arm, p.prob, reward)
	return nil
}

// estimateReward measures how much the new label moved the reference
// model's accuracy on a calibration subsample of the labeled set. The
// inverse-propensity weighting happens in the bandit update, not here. Any
// cold-start condition (calibration set empty, model not fittable either
// way) yields a neutral zero reward rather than an error, so the bandit
// keeps functioning from the first round.
func (a *ActiveLearningByLearning) estimateReward(newIndex int) float64 {
	labeled := a.ds.LabeledEntries()

	withXs := make([][]float64, 0, len(labeled))
	withYs := make([]int, 0, len(labeled))
	withoutXs := make([][]float64, 0, len(labeled)-1)
	withoutYs := make([]int, 0, len(labeled)-1)
	for _, le := range labeled {
		withXs = append(withXs, le.Features)
		withYs = append(withYs, le.Label)
		if le.Index != newIndex {
			withoutXs = append(withoutXs, le.Features)
			withoutYs = append(withoutYs, le.Label)
		}
	}

	calib := a.calibrationSample(labeled)
	if len(calib) == 0 {
		return 0
	}

	accWithout, ok := a.accuracyOn(withoutXs, withoutYs, calib)
	if !ok {
		return 0
	}
	accWith, ok := a.accuracyOn(withXs, withYs, calib)
	if !ok {
		return 0
	}
	return accWith - accWithout
}

// calibrationSample draws up to CalibrationSize labeled examples without
// replacement.
func (a *ActiveLearningByLearning) calibrationSample(labeled []dataset.LabeledExample) []dataset.LabeledExample {
	if len(labeled) <= a.cfg.CalibrationSize {
		return labeled
	}
	perm := a.cfg.RNG.Perm(len(labeled))
	out := make([]dataset.LabeledExample, a.cfg.CalibrationSize)
	for i := range out {
		out[i] = labeled[perm[i]]
	}
	return out
}

// accuracyOn fits the reference model on the training split and scores it
// on the calibration subsample. ok is false when the split cannot fit.
func (a *ActiveLearningByLearning) accuracyOn(xs [][]float64, ys []int, calib []dataset.LabeledExample) (float64, bool) {
	if err := a.cfg.Model.Fit(xs, ys); err != nil {
		// Typically model.ErrNotFittable during cold start; a neutral
		// reward keeps the policy alive either way.
		return 0, false
	}
	correct := 0
	for _, le := range calib {
		if a.cfg.Model.Predict(le.Features) == le.Label {
			correct++
		}
	}
	return float64(correct) / float64(len(calib)), true
}

// #endregion
