package forecast

// Boosted-ensemble hyperparameters. Shallow trees, slow shrinkage:
// bias reduction that picks up residual structure the bagged forest
// smooths over.
const (
	boostedRounds   = 50
	boostedMaxDepth = 3
	boostedMinLeaf  = 5
	boostedShrink   = 0.1
)

// boostedEnsemble is a gradient-boosted stagewise fit on squared error:
// each round a shallow tree fits the current residuals and is added with
// shrinkage. Fully deterministic, no subsampling.
type boostedEnsemble struct {
	base  float64 // initial prediction: mean target
	trees []*regressionTree
}

func fitBoosted(X [][]float64, y []float64) *boostedEnsemble {
	n := len(X)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	e := &boostedEnsemble{base: meanAt(y, idx)}

	residual := make([]float64, n)
	for i := range residual {
		residual[i] = y[i] - e.base
	}

	for round := 0; round < boostedRounds; round++ {
		tree := &regressionTree{maxDepth: boostedMaxDepth, minLeaf: boostedMinLeaf}
		tree.fit(X, residual, idx)
		e.trees = append(e.trees, tree)

		for i := range residual {
			residual[i] -= boostedShrink * tree.predict(X[i])
		}
	}
	return e
}

func (e *boostedEnsemble) predict(x []float64) float64 {
	out := e.base
	for _, t := range e.trees {
		out += boostedShrink * t.predict(x)
	}
	return out
}

func (e *boostedEnsemble) featureImportance(width int) []float64 {
	return normalizedImportance(width, func(acc []float64) {
		for _, t := range e.trees {
			for i, v := range t.importance {
				acc[i] += v
			}
		}
	})
}
