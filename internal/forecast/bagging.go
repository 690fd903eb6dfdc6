package forecast

import "math/rand"

// Bagged-ensemble hyperparameters. Fixed, not tuned per run.
const (
	baggedTrees    = 25
	baggedMaxDepth = 8
	baggedMinLeaf  = 2
)

// baggedForest averages full-depth trees grown on bootstrap resamples.
// Variance reduction: robust to the outlier gaps retail histories carry.
type baggedForest struct {
	trees []*regressionTree
}

// fitBagged trains the forest. rng drives the bootstrap draws; a fixed
// seed makes retraining on identical data reproducible.
func fitBagged(X [][]float64, y []float64, rng *rand.Rand) *baggedForest {
	n := len(X)
	forest := &baggedForest{trees: make([]*regressionTree, 0, baggedTrees)}

	idx := make([]int, n)
	for b := 0; b < baggedTrees; b++ {
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		tree := &regressionTree{maxDepth: baggedMaxDepth, minLeaf: baggedMinLeaf}
		tree.fit(X, y, idx)
		forest.trees = append(forest.trees, tree)
	}
	return forest
}

// predict returns the mean of all tree predictions.
func (f *baggedForest) predict(x []float64) float64 {
	sum := 0.0
	for _, t := range f.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.trees))
}

// featureImportance returns each feature's share of split gain, averaged
// over trees and normalized to sum to 1 (all zeros if no tree split).
func (f *baggedForest) featureImportance(width int) []float64 {
	return normalizedImportance(width, func(acc []float64) {
		for _, t := range f.trees {
			for i, v := range t.importance {
				acc[i] += v
			}
		}
	})
}

// normalizedImportance collects raw gains via fill and normalizes them.
func normalizedImportance(width int, fill func(acc []float64)) []float64 {
	acc := make([]float64, width)
	fill(acc)
	total := 0.0
	for _, v := range acc {
		total += v
	}
	if total == 0 {
		return acc
	}
	for i := range acc {
		acc[i] /= total
	}
	return acc
}
