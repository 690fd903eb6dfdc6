package anomaly

import (
	"math"
	"math/rand"
)

// Isolation-forest hyperparameters. Fixed, not tuned per run.
const (
	forestTrees     = 100
	forestSubsample = 256
)

// isolationForest scores samples by how quickly random axis-aligned
// splits isolate them. Scores land in (0,1): anomalies isolate in short
// paths and score high.
type isolationForest struct {
	trees      []*isoNode
	sampleSize int
}

type isoNode struct {
	feature   int
	threshold float64
	left      *isoNode
	right     *isoNode
	size      int // external node: points that reached it
}

// fitForest trains on the full sample set, each tree on a random
// subsample of at most forestSubsample points. rng is the caller's
// seeded source; fitting is reproducible.
func fitForest(samples [][]float64, rng *rand.Rand) *isolationForest {
	n := len(samples)
	sub := forestSubsample
	if sub > n {
		sub = n
	}
	heightLimit := int(math.Ceil(math.Log2(float64(sub))))
	if heightLimit < 1 {
		heightLimit = 1
	}

	f := &isolationForest{sampleSize: sub}
	idx := make([]int, sub)
	for t := 0; t < forestTrees; t++ {
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		f.trees = append(f.trees, growIso(samples, idx, 0, heightLimit, rng))
	}
	return f
}

func growIso(samples [][]float64, idx []int, depth, limit int, rng *rand.Rand) *isoNode {
	if depth >= limit || len(idx) <= 1 {
		return &isoNode{size: len(idx)}
	}

	width := len(samples[0])
	// Pick a feature with spread; give up after width attempts (all
	// remaining points identical).
	for attempt := 0; attempt < width; attempt++ {
		feature := rng.Intn(width)
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, i := range idx {
			v := samples[i][feature]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi <= lo {
			continue
		}

		threshold := lo + rng.Float64()*(hi-lo)
		var left, right []int
		for _, i := range idx {
			if samples[i][feature] < threshold {
				left = append(left, i)
			} else {
				right = append(right, i)
			}
		}
		return &isoNode{
			feature:   feature,
			threshold: threshold,
			left:      growIso(samples, left, depth+1, limit, rng),
			right:     growIso(samples, right, depth+1, limit, rng),
		}
	}
	return &isoNode{size: len(idx)}
}

// score returns 2^(-E[path]/c(sampleSize)) for one sample.
func (f *isolationForest) score(x []float64) float64 {
	total := 0.0
	for _, t := range f.trees {
		total += pathLength(t, x, 0)
	}
	avg := total / float64(len(f.trees))
	return math.Pow(2, -avg/avgPathLength(f.sampleSize))
}

func pathLength(n *isoNode, x []float64, depth int) float64 {
	if n.left == nil {
		// External node: unresolved points extend the path by the
		// expected depth of a subtree over n.size points.
		return float64(depth) + avgPathLength(n.size)
	}
	if x[n.feature] < n.threshold {
		return pathLength(n.left, x, depth+1)
	}
	return pathLength(n.right, x, depth+1)
}

const eulerMascheroni = 0.5772156649

// avgPathLength is c(n): the average path length of an unsuccessful BST
// search over n points, the normalizer of the isolation score.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerMascheroni) - 2*(fn-1)/fn
}
