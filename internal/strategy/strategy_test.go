package strategy

import (
	"errors"
	"math/rand"
	"testing"

	"activepool/internal/dataset"
	"activepool/internal/model"
)

// fakeModel returns canned probabilities keyed by the first feature value.
type fakeModel struct {
	probs map[float64][]float64
}

func (m *fakeModel) Fit(xs [][]float64, ys []int) error { return nil }

func (m *fakeModel) Predict(x []float64) int {
	p := m.PredictProba(x)
	best := 0
	for i, v := range p {
		if v > p[best] {
			best = i
		}
	}
	return best
}

func (m *fakeModel) PredictProba(x []float64) []float64 {
	if p, ok := m.probs[x[0]]; ok {
		return p
	}
	return []float64{0.5, 0.5}
}

func (m *fakeModel) Classes() []int { return []int{0, 1} }

// threeCandidatePool has unlabeled entries 0..2 and labeled seeds 3..4.
func threeCandidatePool() *dataset.Dataset {
	return dataset.New([]dataset.Entry{
		dataset.Unlabeled([]float64{0}),
		dataset.Unlabeled([]float64{1}),
		dataset.Unlabeled([]float64{2}),
		dataset.Labeled([]float64{3}, 0),
		dataset.Labeled([]float64{4}, 1),
	})
}

func TestUncertaintySampling_Methods(t *testing.T) {
	probs := map[float64][]float64{
		0: {0.5, 0.5},
		1: {0.9, 0.1},
		2: {0.6, 0.4},
	}

	tests := []struct {
		name   string
		method UncertaintyMethod
		want   int
	}{
		{"least-confident", LeastConfident, 0},
		{"margin", Margin, 0},
		{"entropy", Entropy, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewUncertaintySampling(threeCandidatePool(), &fakeModel{probs: probs}, tt.method)
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			got, err := s.MakeQuery()
			if err != nil {
				t.Fatalf("make query: %v", err)
			}
			if got != tt.want {
				t.Errorf("got index %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUncertaintySampling_TieBreaksToLowestIndex(t *testing.T) {
	// Identical distributions everywhere: every method must pick index 0.
	for _, method := range []UncertaintyMethod{LeastConfident, Margin, Entropy} {
		t.Run(string(method), func(t *testing.T) {
			s, err := NewUncertaintySampling(threeCandidatePool(), &fakeModel{}, method)
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			got, err := s.MakeQuery()
			if err != nil {
				t.Fatalf("make query: %v", err)
			}
			if got != 0 {
				t.Errorf("got index %d, want 0", got)
			}
		})
	}
}

func TestUncertaintySampling_UnknownMethod(t *testing.T) {
	_, err := NewUncertaintySampling(threeCandidatePool(), &fakeModel{}, "softmax")
	var ce ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("got %v, want ConfigError", err)
	}
}

func TestUncertaintySampling_NotFittableSurfaces(t *testing.T) {
	d := dataset.New([]dataset.Entry{
		dataset.Unlabeled([]float64{0}),
		dataset.Labeled([]float64{1}, 1),
		dataset.Labeled([]float64{2}, 1),
	})
	s, err := NewUncertaintySampling(d, model.NewNearestCentroid(), LeastConfident)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := s.MakeQuery(); !errors.Is(err, model.ErrNotFittable) {
		t.Errorf("got %v, want ErrNotFittable", err)
	}
}

func TestMakeQuery_EmptyPool(t *testing.T) {
	exhausted := func() *dataset.Dataset {
		return dataset.New([]dataset.Entry{
			dataset.Labeled([]float64{0}, 0),
			dataset.Labeled([]float64{1}, 1),
		})
	}

	tests := []struct {
		name  string
		build func(d *dataset.Dataset) (QueryStrategy, error)
	}{
		{"random", func(d *dataset.Dataset) (QueryStrategy, error) {
			return NewRandomSampling(d, rand.New(rand.NewSource(1)))
		}},
		{"uncertainty", func(d *dataset.Dataset) (QueryStrategy, error) {
			return NewUncertaintySampling(d, &fakeModel{}, Entropy)
		}},
		{"committee", func(d *dataset.Dataset) (QueryStrategy, error) {
			return NewQueryByCommittee(d, func() model.ProbabilisticModel {
				return model.NewNearestCentroid()
			}, rand.New(rand.NewSource(1)), DefaultCommitteeConfig())
		}},
		{"density", func(d *dataset.Dataset) (QueryStrategy, error) {
			return NewDensityWeighted(d, &fakeModel{}, DefaultDensityConfig())
		}},
		{"quire", func(d *dataset.Dataset) (QueryStrategy, error) {
			return NewQUIRE(d, DefaultQUIREConfig())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := tt.build(exhausted())
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			if _, err := s.MakeQuery(); !errors.Is(err, dataset.ErrEmptyPool) {
				t.Errorf("got %v, want ErrEmptyPool", err)
			}
		})
	}
}

func TestRandomSampling_DeterministicUnderSeed(t *testing.T) {
	draw := func(seed int64) []int {
		s, err := NewRandomSampling(threeCandidatePool(), rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		var out []int
		for i := 0; i < 5; i++ {
			idx, err := s.MakeQuery()
			if err != nil {
				t.Fatalf("make query: %v", err)
			}
			out = append(out, idx)
		}
		return out
	}

	a, b := draw(42), draw(42)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("draw %d differs: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestQueryByCommittee_QueriesDisputedRegion(t *testing.T) {
	// Members agree on both cluster interiors and split on the midpoint,
	// so every disagreement measure must pick the midpoint.
	memberProbs := []map[float64][]float64{
		{0.1: {0.9, 0.1}, 5: {0.8, 0.2}, 9.9: {0.1, 0.9}},
		{0.1: {0.85, 0.15}, 5: {0.2, 0.8}, 9.9: {0.15, 0.85}},
		{0.1: {0.9, 0.1}, 5: {0.7, 0.3}, 9.9: {0.1, 0.9}},
	}

	for _, method := range []DisagreementMethod{VoteEntropy, KLDivergence} {
		t.Run(string(method), func(t *testing.T) {
			d := dataset.New([]dataset.Entry{
				dataset.Unlabeled([]float64{0.1, 0}),
				dataset.Unlabeled([]float64{5, 0}), // midpoint
				dataset.Unlabeled([]float64{9.9, 0}),
				dataset.Labeled([]float64{0, 0}, 0),
				dataset.Labeled([]float64{10, 0}, 1),
			})
			next := 0
			cfg := DefaultCommitteeConfig()
			cfg.Method = method
			s, err := NewQueryByCommittee(d, func() model.ProbabilisticModel {
				m := &fakeModel{probs: memberProbs[next]}
				next++
				return m
			}, rand.New(rand.NewSource(3)), cfg)
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			got, err := s.MakeQuery()
			if err != nil {
				t.Fatalf("make query: %v", err)
			}
			if got != 1 {
				t.Errorf("got index %d, want midpoint 1", got)
			}
		})
	}
}

func TestQueryByCommittee_RetrainsOnUpdate(t *testing.T) {
	d := dataset.New([]dataset.Entry{
		dataset.Unlabeled([]float64{2, 0}),
		dataset.Unlabeled([]float64{8, 0}),
		dataset.Labeled([]float64{0, 0}, 0),
		dataset.Labeled([]float64{10, 0}, 1),
	})
	s, err := NewQueryByCommittee(d, func() model.ProbabilisticModel {
		return model.NewNearestCentroid()
	}, rand.New(rand.NewSource(1)), DefaultCommitteeConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := s.MakeQuery(); err != nil {
		t.Fatalf("make query: %v", err)
	}
	if err := d.Update(0, 0); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.MakeQuery()
	if err != nil {
		t.Fatalf("make query after update: %v", err)
	}
	if got != 1 {
		t.Errorf("got index %d, want the only remaining candidate 1", got)
	}
}

func TestDensityWeighted_PrefersDensePool(t *testing.T) {
	// Uniform uncertainty via fakeModel; only density can separate the
	// tight pair (0, 1) from the outlier (2).
	d := dataset.New([]dataset.Entry{
		dataset.Unlabeled([]float64{0, 0}),
		dataset.Unlabeled([]float64{0.2, 0}),
		dataset.Unlabeled([]float64{10, 0}),
		dataset.Labeled([]float64{-1, 0}, 0),
		dataset.Labeled([]float64{11, 0}, 1),
	})
	s, err := NewDensityWeighted(d, &fakeModel{}, DefaultDensityConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := s.MakeQuery()
	if err != nil {
		t.Fatalf("make query: %v", err)
	}
	if got == 2 {
		t.Errorf("picked the outlier, want one of the dense pair")
	}
}

func TestDensityWeighted_IncrementalMatchesRebuild(t *testing.T) {
	build := func() *dataset.Dataset {
		return dataset.New([]dataset.Entry{
			dataset.Unlabeled([]float64{0, 0}),
			dataset.Unlabeled([]float64{0.3, 0}),
			dataset.Unlabeled([]float64{0.6, 0}),
			dataset.Unlabeled([]float64{3, 0}),
			dataset.Labeled([]float64{-1, 0}, 0),
			dataset.Labeled([]float64{4, 0}, 1),
		})
	}

	// Incremental path: cache built, then one candidate labeled away.
	d1 := build()
	inc, err := NewDensityWeighted(d1, &fakeModel{}, DefaultDensityConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := inc.MakeQuery(); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if err := d1.Update(1, 0); err != nil {
		t.Fatalf("update: %v", err)
	}
	gotInc, err := inc.MakeQuery()
	if err != nil {
		t.Fatalf("make query: %v", err)
	}

	// Rebuild path: fresh strategy over the same post-update pool.
	d2 := build()
	if err := d2.Update(1, 0); err != nil {
		t.Fatalf("update: %v", err)
	}
	fresh, err := NewDensityWeighted(d2, &fakeModel{}, DefaultDensityConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	gotFresh, err := fresh.MakeQuery()
	if err != nil {
		t.Fatalf("make query: %v", err)
	}

	if gotInc != gotFresh {
		t.Errorf("incremental cache picked %d, rebuild picked %d", gotInc, gotFresh)
	}
}

func TestQUIRE_Contract(t *testing.T) {
	d := dataset.New([]dataset.Entry{
		dataset.Unlabeled([]float64{0, 0}),
		dataset.Unlabeled([]float64{0.5, 0}),
		dataset.Unlabeled([]float64{4, 0}),
		dataset.Labeled([]float64{-1, 0}, 0),
		dataset.Labeled([]float64{5, 0}, 1),
	})
	s, err := NewQUIRE(d, DefaultQUIREConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	first, err := s.MakeQuery()
	if err != nil {
		t.Fatalf("make query: %v", err)
	}
	e, _ := d.Entry(first)
	if e.Labeled {
		t.Fatalf("queried labeled index %d", first)
	}

	// Same pool state, same answer.
	again, err := s.MakeQuery()
	if err != nil {
		t.Fatalf("repeat query: %v", err)
	}
	if again != first {
		t.Errorf("repeat query picked %d, want %d", again, first)
	}

	// Drain the pool; the contract error must appear at exhaustion.
	for d.LenUnlabeled() > 0 {
		idx, err := s.MakeQuery()
		if err != nil {
			t.Fatalf("drain query: %v", err)
		}
		if err := d.Update(idx, 0); err != nil {
			t.Fatalf("drain update: %v", err)
		}
	}
	if _, err := s.MakeQuery(); !errors.Is(err, dataset.ErrEmptyPool) {
		t.Errorf("got %v, want ErrEmptyPool", err)
	}
}
