package strategy

// #region imports
import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"activepool/internal/dataset"
	"activepool/internal/model"
)

// #endregion

// #region config

// DisagreementMethod selects how committee disagreement is measured.
type DisagreementMethod string

const (
	// VoteEntropy scores the entropy of the members' hard votes.
	VoteEntropy DisagreementMethod = "vote_entropy"
	// KLDivergence scores the average KL divergence of each member's
	// distribution from the committee consensus.
	KLDivergence DisagreementMethod = "kl_divergence"
)

// CommitteeConfig sizes the committee and picks the disagreement measure.
type CommitteeConfig struct {
	Members      int
	Method       DisagreementMethod
	MaxResamples int // bootstrap retries per member before falling back to the full set
}

// DefaultCommitteeConfig returns a three-member vote-entropy committee.
func DefaultCommitteeConfig() CommitteeConfig {
	return CommitteeConfig{
		Members:      3,
		Method:       VoteEntropy,
		MaxResamples: 10,
	}
}

// #endregion

// #region query-by-committee

// QueryByCommittee keeps m models trained on bootstrap resamples of the
// labeled set and queries the entry they disagree on most. Members are
// retrained through the observer callback on every label commit, so
// MakeQuery itself stays cheap.
type QueryByCommittee struct {
	ds      *dataset.Dataset
	factory func() model.ProbabilisticModel
	cfg     CommitteeConfig
	rng     *rand.Rand
	members []model.ProbabilisticModel
	trained bool
}

// NewQueryByCommittee binds the committee to a pool. factory builds one
// fresh member model per committee seat.
func NewQueryByCommittee(ds *dataset.Dataset, factory func() model.ProbabilisticModel, rng *rand.Rand, cfg CommitteeConfig) (*QueryByCommittee, error) {
	if ds == nil {
		return nil, ConfigError("query by committee: nil dataset")
	}
	if factory == nil {
		return nil, ConfigError("query by committee: nil model factory")
	}
	if rng == nil {
		return nil, ConfigError("query by committee: nil rng")
	}
	if cfg.Members < 2 {
		return nil, ConfigError(fmt.Sprintf("query by committee: %d members, need at least 2", cfg.Members))
	}
	switch cfg.Method {
	case VoteEntropy, KLDivergence:
	default:
		return nil, ConfigError(fmt.Sprintf("query by committee: unknown method %q", cfg.Method))
	}
	if cfg.MaxResamples < 1 {
		cfg.MaxResamples = 1
	}

	s := &QueryByCommittee{
		ds:      ds,
		factory: factory,
		cfg:     cfg,
		rng:     rng,
		members: make([]model.ProbabilisticModel, cfg.Members),
	}
	for i := range s.members {
		s.members[i] = factory()
	}
	ds.RegisterObserver(s)
	return s, nil
}

// Dataset returns the bound pool.
func (s *QueryByCommittee) Dataset() *dataset.Dataset { return s.ds }

// #endregion

// #region retrain

// retrain refits every member on a bootstrap resample of the labeled set.
// A resample that collapses to one class is redrawn; the last retry uses
// the full labeled set, whose own failure surfaces to the caller.
func (s *QueryByCommittee) retrain() error {
	xs, ys := labeledXY(s.ds)

	for i, m := range s.members {
		var err error
		for attempt := 0; attempt < s.cfg.MaxResamples; attempt++ {
			bx, by := bootstrap(s.rng, xs, ys)
			if err = m.Fit(bx, by); err == nil {
				break
			}
		}
		if err != nil {
			if err = m.Fit(xs, ys); err != nil {
				return fmt.Errorf("query by committee: member %d: %w", i, err)
			}
		}
	}
	s.trained = true
	return nil
}

// bootstrap draws len(xs) examples with replacement.
func bootstrap(rng *rand.Rand, xs [][]float64, ys []int) ([][]float64, []int) {
	bx := make([][]float64, len(xs))
	by := make([]int, len(ys))
	for i := range xs {
		j := rng.Intn(len(xs))
		bx[i] = xs[j]
		by[i] = ys[j]
	}
	return bx, by
}

// OnUpdate retrains the committee against the post-commit labeled set.
// While the labeled set cannot fit any model yet the retrain is deferred to
// MakeQuery, which surfaces the failure to the query caller.
func (s *QueryByCommittee) OnUpdate(d *dataset.Dataset, index int, label int) error {
	if countClasses(s.ds) < 2 {
		s.trained = false
		return nil
	}
	return s.retrain()
}

// countClasses returns the number of distinct labels in the labeled set.
func countClasses(d *dataset.Dataset) int {
	seen := make(map[int]struct{})
	for _, le := range d.LabeledEntries() {
		seen[le.Label] = struct{}{}
	}
	return len(seen)
}

// #endregion

// #region make-query

// MakeQuery returns the unlabeled entry with maximal committee
// disagreement, ties broken by lowest pool index.
func (s *QueryByCommittee) MakeQuery() (int, error) {
	cands := s.ds.UnlabeledEntries()
	if len(cands) == 0 {
		return 0, dataset.ErrEmptyPool
	}
	if !s.trained {
		if err := s.retrain(); err != nil {
			return 0, err
		}
	}

	classes := sortedClasses(s.ds)
	scores := make([]float64, len(cands))
	for i, c := range cands {
		if s.cfg.Method == VoteEntropy {
			scores[i] = s.voteEntropy(c.Features, classes)
		} else {
			scores[i] = s.klDisagreement(c.Features, classes)
		}
	}
	return argMax(cands, scores), nil
}

// voteEntropy is the Shannon entropy of the members' hard votes.
func (s *QueryByCommittee) voteEntropy(x []float64, classes []int) float64 {
	votes := make(map[int]float64)
	for _, m := range s.members {
		votes[m.Predict(x)]++
	}
	dist := make([]float64, 0, len(votes))
	for _, v := range votes {
		dist = append(dist, v/float64(len(s.members)))
	}
	return stat.Entropy(dist)
}

// klDisagreement averages each member's KL divergence from the consensus
// distribution over the committee.
func (s *QueryByCommittee) klDisagreement(x []float64, classes []int) float64 {
	tables := make([][]float64, len(s.members))
	consensus := make([]float64, len(classes))
	for i, m := range s.members {
		tables[i] = alignProbs(m, x, classes)
		for j, p := range tables[i] {
			consensus[j] += p / float64(len(s.members))
		}
	}

	total := 0.0
	for _, table := range tables {
		total += stat.KullbackLeibler(table, consensus)
	}
	return total / float64(len(s.members))
}

// alignProbs maps a member's PredictProba output onto the global class
// ordering; classes the member never saw get probability zero.
func alignProbs(m model.ProbabilisticModel, x []float64, classes []int) []float64 {
	probs := m.PredictProba(x)
	memberClasses := m.Classes()
	aligned := make([]float64, len(classes))
	for i, c := range memberClasses {
		for j, gc := range classes {
			if gc == c {
				aligned[j] = probs[i]
				break
			}
		}
	}
	return aligned
}

// sortedClasses returns the distinct labels of the labeled set, ascending.
func sortedClasses(d *dataset.Dataset) []int {
	seen := make(map[int]struct{})
	for _, le := range d.LabeledEntries() {
		seen[le.Label] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}

// #endregion
