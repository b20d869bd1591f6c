package strategy

// #region imports
import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"activepool/internal/dataset"
)

// #endregion

// #region config

// QUIREConfig parameterizes the regularized kernel solve.
type QUIREConfig struct {
	Kernel Kernel
	// Lambda is the ridge regularizer on the kernel matrix.
	Lambda float64
}

// DefaultQUIREConfig returns an RBF kernel with unit regularization.
func DefaultQUIREConfig() QUIREConfig {
	return QUIREConfig{
		Kernel: RBFKernel{Gamma: 1.0},
		Lambda: 1.0,
	}
}

// #endregion

// #region quire

// QUIRE queries the entry minimizing a min-margin evaluation that blends
// informativeness with representativeness, computed from the inverse of the
// regularized kernel matrix over the whole pool. Labels enter the score as
// a +/-1 encoding of the binary class split; the kernel inverse itself
// depends only on features and is rebuilt when the pool grows. Each query
// does a dense solve per candidate, so the strategy suits modest pools.
type QUIRE struct {
	ds   *dataset.Dataset
	cfg  QUIREConfig
	n    int
	linv *mat.Dense
}

// NewQUIRE binds the strategy to a pool.
func NewQUIRE(ds *dataset.Dataset, cfg QUIREConfig) (*QUIRE, error) {
	if ds == nil {
		return nil, ConfigError("quire: nil dataset")
	}
	if cfg.Kernel == nil {
		return nil, ConfigError("quire: nil kernel")
	}
	if cfg.Lambda <= 0 {
		return nil, ConfigError(fmt.Sprintf("quire: non-positive lambda %v", cfg.Lambda))
	}
	s := &QUIRE{ds: ds, cfg: cfg}
	ds.RegisterObserver(s)
	return s, nil
}

// Dataset returns the bound pool.
func (s *QUIRE) Dataset() *dataset.Dataset { return s.ds }

// OnUpdate is a no-op: labeling moves an index between partitions without
// touching features, and the label encoding is read fresh on each query.
func (s *QUIRE) OnUpdate(d *dataset.Dataset, index int, label int) error {
	return nil
}

// #endregion

// #region make-query

// MakeQuery returns the candidate with the smallest evaluation value, ties
// broken by lowest pool index.
func (s *QUIRE) MakeQuery() (int, error) {
	cands := s.ds.UnlabeledEntries()
	if len(cands) == 0 {
		return 0, dataset.ErrEmptyPool
	}
	if err := s.refresh(); err != nil {
		return 0, err
	}

	labeled := s.ds.LabeledEntries()
	lIdx := make([]int, len(labeled))
	y := make([]float64, len(labeled))
	minClass := minLabel(labeled)
	for i, le := range labeled {
		lIdx[i] = le.Index
		if le.Label == minClass {
			y[i] = -1
		} else {
			y[i] = 1
		}
	}

	uIdx := make([]int, len(cands))
	for i, c := range cands {
		uIdx[i] = c.Index
	}

	scores := make([]float64, len(cands))
	for i, a := range uIdx {
		eva, err := s.evaluate(a, without(uIdx, i), lIdx, y)
		if err != nil {
			return 0, fmt.Errorf("quire: candidate %d: %w", a, err)
		}
		scores[i] = eva
	}
	return argMin(cands, scores), nil
}

// evaluate computes the min-margin value for candidate a given the
// remaining unlabeled indices uRest and the labeled block lIdx with label
// encoding y.
func (s *QUIRE) evaluate(a int, uRest, lIdx []int, y []float64) (float64, error) {
	laa := s.linv.At(a, a)
	if len(lIdx) == 0 {
		return laa, nil
	}

	lAL := subMatrix(s.linv, []int{a}, lIdx) // 1 x |L|
	row := lAL
	if len(uRest) > 0 {
		lAU := subMatrix(s.linv, []int{a}, uRest) // 1 x |U|
		lUA := subMatrix(s.linv, uRest, []int{a}) // |U| x 1
		lUU := subMatrix(s.linv, uRest, uRest)    // |U| x |U|
		lUL := subMatrix(s.linv, uRest, lIdx)     // |U| x |L|

		// M = L_UU - (L_Ua L_aU) / L_aa
		var outer mat.Dense
		outer.Mul(lUA, lAU)
		outer.Scale(1/laa, &outer)
		var m mat.Dense
		m.Sub(lUU, &outer)

		var invM mat.Dense
		if err := invM.Inverse(&m); err != nil {
			return 0, fmt.Errorf("block solve: %w", err)
		}

		var proj mat.Dense // |U| x |L|
		proj.Mul(&invM, lUL)
		var corr mat.Dense // 1 x |L|
		corr.Mul(lAU, &proj)

		var adjusted mat.Dense
		adjusted.Sub(lAL, &corr)
		row = &adjusted
	}

	tmp := 0.0
	for j, v := range y {
		tmp += row.At(0, j) * v
	}
	return laa + 2*math.Abs(tmp), nil
}

// #endregion

// #region kernel-cache

// refresh rebuilds inv(K + lambda I) when the pool has grown.
func (s *QUIRE) refresh() error {
	n := s.ds.Len()
	if s.linv != nil && s.n == n {
		return nil
	}

	k := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		ei, _ := s.ds.Entry(i)
		for j := i; j < n; j++ {
			ej, _ := s.ds.Entry(j)
			sim := s.cfg.Kernel.Similarity(ei.Features, ej.Features)
			k.Set(i, j, sim)
			k.Set(j, i, sim)
		}
		k.Set(i, i, k.At(i, i)+s.cfg.Lambda)
	}

	var linv mat.Dense
	if err := linv.Inverse(k); err != nil {
		return fmt.Errorf("quire: kernel inverse: %w", err)
	}
	s.linv = &linv
	s.n = n
	return nil
}

// subMatrix extracts rows x cols from m into a fresh dense matrix.
func subMatrix(m *mat.Dense, rows, cols []int) *mat.Dense {
	out := mat.NewDense(len(rows), len(cols), nil)
	for i, r := range rows {
		for j, c := range cols {
			out.Set(i, j, m.At(r, c))
		}
	}
	return out
}

// without returns idx with position i removed.
func without(idx []int, i int) []int {
	out := make([]int, 0, len(idx)-1)
	out = append(out, idx[:i]...)
	return append(out, idx[i+1:]...)
}

// minLabel returns the smallest label present, or 0 for an empty set.
func minLabel(labeled []dataset.LabeledExample) int {
	if len(labeled) == 0 {
		return 0
	}
	min := labeled[0].Label
	for _, le := range labeled[1:] {
		if le.Label < min {
			min = le.Label
		}
	}
	return min
}

// #endregion
