package clustering

import (
	"fmt"
	"testing"

	"repurchase-lab/internal/domain"
)

// threeGroups builds customers in three well-separated behavioral
// groups: regular veterans, erratic newcomers, infrequent drifters.
func threeGroups(perGroup int) []*domain.CustomerFeatures {
	var out []*domain.CustomerFeatures
	for i := 0; i < perGroup; i++ {
		jitter := float64(i)
		out = append(out,
			&domain.CustomerFeatures{
				CustomerID:   fmt.Sprintf("regular-%d", i),
				ProductCount: 5, TotalOrders: 60 + jitter, TenureDays: 900 + jitter,
				RecencyDays: 10, GapMeanDays: 30, GapCV: 0.05, OrderValueMean: 50,
			},
			&domain.CustomerFeatures{
				CustomerID:   fmt.Sprintf("erratic-%d", i),
				ProductCount: 2, TotalOrders: 8 + jitter, TenureDays: 90 + jitter,
				RecencyDays: 40, GapMeanDays: 12, GapCV: 1.4, OrderValueMean: 15,
			},
			&domain.CustomerFeatures{
				CustomerID:   fmt.Sprintf("drifter-%d", i),
				ProductCount: 1, TotalOrders: 3 + jitter, TenureDays: 500 + jitter,
				RecencyDays: 200, GapMeanDays: 120, GapCV: 0.8, OrderValueMean: 25,
			},
		)
	}
	return out
}

func TestCluster_ReproducibleWithFixedSeed(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.ClusterCount = 3
	customers := threeGroups(10)

	a1, _, skipped1 := Cluster(customers, cfg)
	a2, _, skipped2 := Cluster(customers, cfg)

	if skipped1 || skipped2 {
		t.Fatal("unexpected skip")
	}
	for i := range a1 {
		if a1[i].Cluster != a2[i].Cluster {
			t.Fatalf("rerun changed assignment for %s: %d vs %d",
				a1[i].CustomerID, a1[i].Cluster, a2[i].Cluster)
		}
		if a1[i].Distance != a2[i].Distance {
			t.Fatalf("rerun changed distance for %s", a1[i].CustomerID)
		}
	}
}

func TestCluster_SeparatesDistinctGroups(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.ClusterCount = 3
	customers := threeGroups(10)

	assignments, summaries, skipped := Cluster(customers, cfg)
	if skipped {
		t.Fatal("unexpected skip")
	}

	// All members of one synthetic group must land together.
	byPrefix := make(map[string]map[int]int)
	for _, a := range assignments {
		prefix := a.CustomerID[:4]
		if byPrefix[prefix] == nil {
			byPrefix[prefix] = make(map[int]int)
		}
		byPrefix[prefix][a.Cluster]++
	}
	for prefix, clusters := range byPrefix {
		if len(clusters) != 1 {
			t.Errorf("group %q split across clusters: %v", prefix, clusters)
		}
	}

	total := 0
	for _, s := range summaries {
		total += s.Size
		if s.Archetype == "" {
			t.Errorf("cluster %d has no archetype label", s.Cluster)
		}
	}
	if total != len(customers) {
		t.Errorf("summary sizes must cover all customers: %d vs %d", total, len(customers))
	}
}

func TestCluster_OneAssignmentPerCustomer(t *testing.T) {
	cfg := domain.DefaultConfig()
	customers := threeGroups(4) // 12 customers, k=5

	assignments, _, skipped := Cluster(customers, cfg)
	if skipped {
		t.Fatal("unexpected skip")
	}
	if len(assignments) != len(customers) {
		t.Fatalf("expected %d assignments, got %d", len(customers), len(assignments))
	}
	seen := make(map[string]bool)
	for _, a := range assignments {
		if seen[a.CustomerID] {
			t.Errorf("customer %s assigned twice", a.CustomerID)
		}
		seen[a.CustomerID] = true
		if a.Cluster < 0 || a.Cluster >= cfg.ClusterCount {
			t.Errorf("cluster label %d out of range", a.Cluster)
		}
		if a.Distance < 0 {
			t.Errorf("negative centroid distance for %s", a.CustomerID)
		}
	}
}

func TestCluster_SkippedWhenTooFewCustomers(t *testing.T) {
	cfg := domain.DefaultConfig() // k=5
	customers := threeGroups(1)[:3]

	assignments, summaries, skipped := Cluster(customers, cfg)
	if !skipped {
		t.Error("expected skip with fewer customers than clusters")
	}
	if assignments != nil || summaries != nil {
		t.Error("skipped clustering must not emit partial results")
	}
}

func TestLabelCentroids_DeterministicRule(t *testing.T) {
	// Centroids in CustomerFeatureNames order; only total_orders,
	// tenure_days and gap_cv drive the rule.
	regularVeteran := []float64{5, 60, 900, 10, 30, 0.05, 50}
	erraticNewcomer := []float64{2, 8, 90, 40, 12, 1.4, 15}
	middling := []float64{3, 20, 400, 60, 45, 0.5, 30}

	labels := labelCentroids([][]float64{regularVeteran, erraticNewcomer, middling})

	// Regular veteran: cv below median, tenure and orders above median.
	if labels[0] != "champion regulars" {
		t.Errorf("expected champion regulars, got %q", labels[0])
	}
	// Erratic newcomer: cv above median, tenure and orders below median.
	if labels[1] != "dormant occasionals" {
		t.Errorf("expected dormant occasionals, got %q", labels[1])
	}

	// Same centroids, same labels.
	again := labelCentroids([][]float64{regularVeteran, erraticNewcomer, middling})
	for i := range labels {
		if labels[i] != again[i] {
			t.Errorf("labeling is not deterministic at %d: %q vs %q", i, labels[i], again[i])
		}
	}
}
