package albl

// #region imports
import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// #endregion

// #region exp4p

// exp4p is the importance-weighted exponential-weighting learner behind the
// strategy mix: an EXP4-style policy reduced to one deterministic expert
// per arm. Each arm keeps a multiplicative weight; the selection
// distribution mixes the normalized weights with a uniform exploration
// floor that decays as rounds accumulate. Only the played arm's reward is
// observed, so updates are inverse-propensity weighted to stay unbiased.
type exp4p struct {
	weights []float64
	// explorationBase scales the decaying uniform floor, floor_t = min(1/k, base/sqrt(t+1)).
	explorationBase float64
	// gain scales the exponent of the multiplicative update.
	gain float64
	// decay in (0,1] pulls weights back toward uniform each round; 1 disables forgetting.
	decay float64
	round int
}

func newExp4p(k int, explorationBase, gain, decay float64) *exp4p {
	weights := make([]float64, k)
	for i := range weights {
		weights[i] = 1
	}
	return &exp4p{
		weights:         weights,
		explorationBase: explorationBase,
		gain:            gain,
		decay:           decay,
	}
}

// #endregion

// #region probs

// probs returns the current selection distribution. A single arm always
// gets probability 1.
func (b *exp4p) probs() []float64 {
	k := len(b.weights)
	p := make([]float64, k)
	if k == 1 {
		p[0] = 1
		return p
	}

	floor := b.floor()
	total := floats.Sum(b.weights)
	for i, w := range b.weights {
		p[i] = (1-float64(k)*floor)*(w/total) + floor
	}
	return p
}

// floor is the per-arm uniform exploration probability for the current
// round, decaying with 1/sqrt(t) and capped so the floors never exceed a
// uniform distribution.
func (b *exp4p) floor() float64 {
	k := len(b.weights)
	f := b.explorationBase / math.Sqrt(float64(b.round+1))
	if max := 1 / float64(k); f > max {
		f = max
	}
	return f
}

// #endregion

// #region update

// update applies the played arm's importance-weighted reward and advances
// the round. prob must be the probability the arm was drawn with.
func (b *exp4p) update(arm int, reward, prob float64) {
	if prob > 0 {
		rhat := reward / prob
		b.weights[arm] *= math.Exp(b.gain * b.floor() * rhat)
	}

	// Renormalize so weights stay in floating range over long runs.
	if max := floats.Max(b.weights); max > 0 {
		floats.Scale(1/max, b.weights)
	}

	// Forgetting: geometric pull toward uniform.
	if b.decay < 1 {
		mean := floats.Sum(b.weights) / float64(len(b.weights))
		for i, w := range b.weights {
			b.weights[i] = b.decay*w + (1-b.decay)*mean
		}
	}

	b.round++
}

// #endregion
