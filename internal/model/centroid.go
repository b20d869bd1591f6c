package model

// #region imports
import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// #endregion

// #region nearest-centroid

// NearestCentroid classifies by distance to per-class feature means and
// turns negative distances into probabilities with a softmax. Training is a
// single pass, fully deterministic, which makes it the reference model for
// reward estimation and tests.
type NearestCentroid struct {
	classes   []int
	centroids [][]float64
}

// NewNearestCentroid creates an untrained classifier.
func NewNearestCentroid() *NearestCentroid {
	return &NearestCentroid{}
}

// #endregion

// #region fit

// Fit computes one centroid per class. Fails with ErrNotFittable on an
// empty set or a single-class set.
func (c *NearestCentroid) Fit(xs [][]float64, ys []int) error {
	if len(xs) == 0 {
		return fmt.Errorf("nearest centroid: empty set: %w", ErrNotFittable)
	}
	if len(xs) != len(ys) {
		return fmt.Errorf("nearest centroid: %d examples with %d labels", len(xs), len(ys))
	}

	sums := make(map[int][]float64)
	counts := make(map[int]int)
	for i, x := range xs {
		y := ys[i]
		if sums[y] == nil {
			sums[y] = make([]float64, len(x))
		}
		floats.Add(sums[y], x)
		counts[y]++
	}
	if len(sums) < 2 {
		return fmt.Errorf("nearest centroid: %d class(es) present: %w", len(sums), ErrNotFittable)
	}

	classes := make([]int, 0, len(sums))
	for y := range sums {
		classes = append(classes, y)
	}
	sort.Ints(classes)

	centroids := make([][]float64, len(classes))
	for i, y := range classes {
		mean := sums[y]
		floats.Scale(1/float64(counts[y]), mean)
		centroids[i] = mean
	}

	c.classes = classes
	c.centroids = centroids
	return nil
}

// #endregion

// #region predict

// Predict returns the class of the nearest centroid.
func (c *NearestCentroid) Predict(x []float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, ctr := range c.centroids {
		if d := floats.Distance(x, ctr, 2); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return c.classes[best]
}

// PredictProba returns softmax(-distance) over the class centroids,
// aligned with Classes.
func (c *NearestCentroid) PredictProba(x []float64) []float64 {
	probs := make([]float64, len(c.centroids))
	for i, ctr := range c.centroids {
		probs[i] = -floats.Distance(x, ctr, 2)
	}
	// softmax, shifted by the max for numeric stability
	maxScore := floats.Max(probs)
	for i, s := range probs {
		probs[i] = math.Exp(s - maxScore)
	}
	floats.Scale(1/floats.Sum(probs), probs)
	return probs
}

// Classes returns the labels seen during Fit, ascending.
func (c *NearestCentroid) Classes() []int { return c.classes }

// #endregion
