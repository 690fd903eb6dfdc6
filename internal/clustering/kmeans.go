// Package clustering partitions customers into a fixed small number of
// behavioral archetypes with seeded k-means over standardized customer
// features. Reruns on identical data produce identical assignments.
package clustering

import (
	"math"
	"math/rand"

	"repurchase-lab/internal/domain"
)

const maxIterations = 100

// Cluster assigns every customer to one of cfg.ClusterCount archetypes.
// skipped is true, with nil results, when there are fewer customers
// than clusters; the caller surfaces that as a dataset-level flag.
func Cluster(customers []*domain.CustomerFeatures, cfg domain.Config) (assignments []*domain.ClusterAssignment, summaries []*domain.ClusterSummary, skipped bool) {
	k := cfg.ClusterCount
	if len(customers) < k || k < 1 {
		return nil, nil, true
	}

	raw := make([][]float64, len(customers))
	for i, c := range customers {
		raw[i] = c.Vector()
	}
	points := standardize(raw)

	rng := rand.New(rand.NewSource(cfg.Seed))
	centroids := seedCentroids(points, k, rng)

	labels := make([]int, len(points))
	for iter := 0; iter < maxIterations; iter++ {
		changed := assign(points, centroids, labels)
		recompute(points, labels, centroids, rng)
		if !changed && iter > 0 {
			break
		}
	}

	archetypes := labelCentroids(centroids)

	assignments = make([]*domain.ClusterAssignment, len(customers))
	sizes := make([]int, k)
	rawSums := make([][]float64, k)
	for c := range rawSums {
		rawSums[c] = make([]float64, len(domain.CustomerFeatureNames))
	}
	for i, c := range customers {
		l := labels[i]
		assignments[i] = &domain.ClusterAssignment{
			CustomerID: c.CustomerID,
			Cluster:    l,
			Distance:   math.Sqrt(sqDistance(points[i], centroids[l])),
			Archetype:  archetypes[l],
		}
		sizes[l]++
		for j, v := range raw[i] {
			rawSums[l][j] += v
		}
	}

	summaries = make([]*domain.ClusterSummary, k)
	for c := 0; c < k; c++ {
		centroid := make([]float64, len(domain.CustomerFeatureNames))
		if sizes[c] > 0 {
			for j := range centroid {
				centroid[j] = rawSums[c][j] / float64(sizes[c])
			}
		}
		summaries[c] = &domain.ClusterSummary{
			Cluster:   c,
			Archetype: archetypes[c],
			Size:      sizes[c],
			Centroid:  centroid,
		}
	}

	return assignments, summaries, false
}

// standardize z-scores each feature column over the customer population.
// Constant columns stay at 0 so they cannot dominate distances.
func standardize(raw [][]float64) [][]float64 {
	n := len(raw)
	width := len(raw[0])

	means := make([]float64, width)
	for _, row := range raw {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}

	stds := make([]float64, width)
	for _, row := range raw {
		for j, v := range row {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / float64(n))
	}

	out := make([][]float64, n)
	for i, row := range raw {
		out[i] = make([]float64, width)
		for j, v := range row {
			if stds[j] > 0 {
				out[i][j] = (v - means[j]) / stds[j]
			}
		}
	}
	return out
}

// seedCentroids is k-means++ style seeding on a fixed-seed rng: the
// first centroid is a random point, each next one is drawn with
// probability proportional to squared distance from the nearest chosen
// centroid.
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := points[rng.Intn(len(points))]
	centroids = append(centroids, cloneVec(first))

	dists := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			d := math.Inf(1)
			for _, c := range centroids {
				if dd := sqDistance(p, c); dd < d {
					d = dd
				}
			}
			dists[i] = d
			total += d
		}

		if total == 0 {
			// All remaining points coincide with a centroid; pick any.
			centroids = append(centroids, cloneVec(points[rng.Intn(len(points))]))
			continue
		}

		target := rng.Float64() * total
		acc := 0.0
		chosen := len(points) - 1
		for i, d := range dists {
			acc += d
			if acc >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, cloneVec(points[chosen]))
	}
	return centroids
}

// assign labels each point with its nearest centroid. Reports whether
// any label changed.
func assign(points, centroids [][]float64, labels []int) bool {
	changed := false
	for i, p := range points {
		best := 0
		bestD := math.Inf(1)
		for c, cent := range centroids {
			if d := sqDistance(p, cent); d < bestD {
				bestD = d
				best = c
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// recompute moves each centroid to its members' mean. An empty cluster
// is re-seeded from the globally farthest point so k never collapses.
func recompute(points [][]float64, labels []int, centroids [][]float64, rng *rand.Rand) {
	width := len(points[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, width)
	}
	for i, p := range points {
		l := labels[i]
		counts[l]++
		for j, v := range p {
			sums[l][j] += v
		}
	}

	for c := range centroids {
		if counts[c] == 0 {
			centroids[c] = cloneVec(points[farthestPoint(points, labels, centroids)])
			continue
		}
		for j := range centroids[c] {
			centroids[c][j] = sums[c][j] / float64(counts[c])
		}
	}
}

// farthestPoint returns the index of the point farthest from its own
// centroid.
func farthestPoint(points [][]float64, labels []int, centroids [][]float64) int {
	worst, worstD := 0, -1.0
	for i, p := range points {
		if d := sqDistance(p, centroids[labels[i]]); d > worstD {
			worstD = d
			worst = i
		}
	}
	return worst
}

func sqDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func cloneVec(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
