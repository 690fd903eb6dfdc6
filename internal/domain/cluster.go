package domain

// ClusterAssignment places one customer in a behavioral archetype.
// One assignment per customer, aggregated across that customer's pairs.
type ClusterAssignment struct {
	CustomerID string
	Cluster    int     // 0-based cluster label
	Distance   float64 // Euclidean distance to the assigned centroid, in standardized feature space
	Archetype  string  // deterministic label derived from centroid ranks
}

// ClusterSummary describes one resulting cluster for reporting.
type ClusterSummary struct {
	Cluster   int
	Archetype string
	Size      int       // customers assigned
	Centroid  []float64 // in CustomerFeatureNames order, original units
}
