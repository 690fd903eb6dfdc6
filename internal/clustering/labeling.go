package clustering

import "sort"

// Centroid feature indices in domain.CustomerFeatureNames order.
const (
	idxTotalOrders = 1
	idxTenureDays  = 2
	idxGapCV       = 5
)

// archetypeTable maps the (regular, tenured, frequent) triple to a fixed
// label. Index: regular<<2 | tenured<<1 | frequent.
var archetypeTable = [8]string{
	"dormant occasionals",   // irregular, short tenure, infrequent
	"impulsive newcomers",   // irregular, short tenure, frequent
	"drifting veterans",     // irregular, long tenure, infrequent
	"erratic heavyweights",  // irregular, long tenure, frequent
	"promising newcomers",   // regular, short tenure, infrequent
	"fast-rising regulars",  // regular, short tenure, frequent
	"steady loyalists",      // regular, long tenure, infrequent
	"champion regulars",     // regular, long tenure, frequent
}

// labelCentroids derives one archetype per centroid as a deterministic
// function of centroid feature ranks: a centroid is "regular" when its
// gap CV is at or below the median centroid gap CV, "tenured" and
// "frequent" when tenure and order count are at or above their medians.
// No free-text heuristics; the rule is the table above.
func labelCentroids(centroids [][]float64) []string {
	cvMed := medianAt(centroids, idxGapCV)
	tenureMed := medianAt(centroids, idxTenureDays)
	ordersMed := medianAt(centroids, idxTotalOrders)

	labels := make([]string, len(centroids))
	for i, c := range centroids {
		idx := 0
		if c[idxGapCV] <= cvMed {
			idx |= 4
		}
		if c[idxTenureDays] >= tenureMed {
			idx |= 2
		}
		if c[idxTotalOrders] >= ordersMed {
			idx |= 1
		}
		labels[i] = archetypeTable[idx]
	}
	return labels
}

// medianAt returns the median of one feature across centroids (mean of
// the two middle values for even counts).
func medianAt(centroids [][]float64, feature int) float64 {
	vals := make([]float64, len(centroids))
	for i, c := range centroids {
		vals[i] = c[feature]
	}
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}
