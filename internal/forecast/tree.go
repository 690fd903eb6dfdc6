package forecast

import "sort"

// regressionTree is a CART-style variance-reduction tree. It is the
// shared base learner for both the bagged and the boosted ensemble.
type regressionTree struct {
	root     *treeNode
	maxDepth int
	minLeaf  int

	// importance accumulates each feature's total squared-error
	// reduction over the tree's splits.
	importance []float64
}

type treeNode struct {
	leaf      bool
	value     float64 // leaf prediction: mean of targets in the node
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

// fit grows the tree on rows X with targets y. X rows must share one
// fixed width; fit is deterministic (no sampling happens here).
func (t *regressionTree) fit(X [][]float64, y []float64, idx []int) {
	t.importance = make([]float64, featureWidth(X))
	t.root = t.grow(X, y, idx, 0)
}

// predict returns the leaf mean for one sample.
func (t *regressionTree) predict(x []float64) float64 {
	n := t.root
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func (t *regressionTree) grow(X [][]float64, y []float64, idx []int, depth int) *treeNode {
	m := meanAt(y, idx)
	if depth >= t.maxDepth || len(idx) < 2*t.minLeaf {
		return &treeNode{leaf: true, value: m}
	}

	feature, threshold, gain, ok := t.bestSplit(X, y, idx)
	if !ok || gain <= 0 {
		return &treeNode{leaf: true, value: m}
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < t.minLeaf || len(right) < t.minLeaf {
		return &treeNode{leaf: true, value: m}
	}

	t.importance[feature] += gain
	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      t.grow(X, y, left, depth+1),
		right:     t.grow(X, y, right, depth+1),
	}
}

// bestSplit scans every feature for the threshold with the largest
// squared-error reduction, using prefix sums over value-sorted rows.
// Ties break on the lower feature index for determinism.
func (t *regressionTree) bestSplit(X [][]float64, y []float64, idx []int) (feature int, threshold, gain float64, ok bool) {
	n := len(idx)
	totalSum, totalSq := 0.0, 0.0
	for _, i := range idx {
		totalSum += y[i]
		totalSq += y[i] * y[i]
	}
	parentSSE := totalSq - totalSum*totalSum/float64(n)

	order := make([]int, n)
	for f := 0; f < featureWidth(X); f++ {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool {
			return X[order[a]][f] < X[order[b]][f]
		})

		leftSum, leftSq := 0.0, 0.0
		for pos := 0; pos < n-1; pos++ {
			i := order[pos]
			leftSum += y[i]
			leftSq += y[i] * y[i]

			// No split between equal feature values.
			v, next := X[i][f], X[order[pos+1]][f]
			if v == next {
				continue
			}
			nl, nr := pos+1, n-pos-1
			if nl < t.minLeaf || nr < t.minLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) +
				(rightSq - rightSum*rightSum/float64(nr))
			g := parentSSE - sse
			if g > gain {
				gain = g
				feature = f
				threshold = (v + next) / 2
				ok = true
			}
		}
	}
	return feature, threshold, gain, ok
}

func featureWidth(X [][]float64) int {
	if len(X) == 0 {
		return 0
	}
	return len(X[0])
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}
