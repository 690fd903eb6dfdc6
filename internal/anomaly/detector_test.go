package anomaly

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"repurchase-lab/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seriesFromGaps(customer, product string, start time.Time, gaps []float64) *domain.IntervalSeries {
	dates := []time.Time{start}
	for _, g := range gaps {
		dates = append(dates, dates[len(dates)-1].Add(time.Duration(g*24)*time.Hour))
	}
	s := &domain.IntervalSeries{
		CustomerID: customer,
		ProductID:  product,
		OrderDates: dates,
		Gaps:       gaps,
	}
	for range dates {
		s.Quantities = append(s.Quantities, 2)
		s.UnitPrices = append(s.UnitPrices, 10)
	}
	s.FirstOrderDate = dates[0]
	s.LastOrderDate = dates[len(dates)-1]
	return s
}

// regularPopulation gives the forest a background of unremarkable
// events so a genuine outlier isolates quickly.
func regularPopulation(n int) []*domain.IntervalSeries {
	rng := rand.New(rand.NewSource(3))
	var out []*domain.IntervalSeries
	for i := 0; i < n; i++ {
		gaps := make([]float64, 6)
		for j := range gaps {
			gaps[j] = 28 + rng.Float64()*4
		}
		out = append(out, seriesFromGaps(fmt.Sprintf("bg-%02d", i), "p1", day(2023, 1, 1), gaps))
	}
	return out
}

func TestSeverityTiers_PartitionWithoutGaps(t *testing.T) {
	cases := []struct {
		score float64
		want  domain.Severity
	}{
		{0.50, domain.SeverityLow},
		{0.599, domain.SeverityLow},
		{0.60, domain.SeverityMedium},
		{0.699, domain.SeverityMedium},
		{0.70, domain.SeverityHigh},
		{1.0, domain.SeverityHigh},
	}
	for _, tc := range cases {
		if got := severityOf(tc.score); got != tc.want {
			t.Errorf("score %v: expected %q, got %q", tc.score, tc.want, got)
		}
	}
}

func TestDetect_FlagsDisruptedGap(t *testing.T) {
	cfg := domain.DefaultConfig()
	series := regularPopulation(12)
	disrupted := seriesFromGaps("cust-x", "p1", day(2023, 1, 1), []float64{30, 31, 29, 30, 60, 15})
	series = append(series, disrupted)

	flags, skipped := Detect(series, cfg)
	if skipped {
		t.Fatal("unexpected skip")
	}

	// The event closing the 60-day gap must be flagged and must be the
	// customer's top-scoring event.
	wantTime := disrupted.OrderDates[5]
	var flagged *domain.AnomalyFlag
	custMax := 0.0
	for _, f := range flags {
		if f.CustomerID != "cust-x" {
			continue
		}
		if f.Score > custMax {
			custMax = f.Score
		}
		if f.EventTime.Equal(wantTime) {
			flagged = f
		}
	}
	if flagged == nil {
		t.Fatal("60-day-gap event was not flagged")
	}
	if flagged.Score != custMax {
		t.Errorf("60-day-gap event should carry the customer's top score: %v vs %v", flagged.Score, custMax)
	}

	hasReason := false
	for _, r := range flagged.Reasons {
		if r == domain.ReasonUnexpectedGap {
			hasReason = true
		}
	}
	if !hasReason {
		t.Errorf("expected unexpected_gap reason, got %v", flagged.Reasons)
	}
}

func TestDetect_Reproducible(t *testing.T) {
	cfg := domain.DefaultConfig()
	series := regularPopulation(10)
	series = append(series, seriesFromGaps("cust-x", "p1", day(2023, 1, 1), []float64{30, 30, 30, 90}))

	f1, _ := Detect(series, cfg)
	f2, _ := Detect(series, cfg)

	if len(f1) != len(f2) {
		t.Fatalf("rerun changed flag count: %d vs %d", len(f1), len(f2))
	}
	for i := range f1 {
		if f1[i].Score != f2[i].Score || f1[i].Severity != f2[i].Severity {
			t.Errorf("rerun changed flag %d: %+v vs %+v", i, f1[i], f2[i])
		}
	}
}

func TestDetect_SkipsThinPairsAndEmptyDatasets(t *testing.T) {
	cfg := domain.DefaultConfig() // MinOrdersAnomaly = 4

	thin := seriesFromGaps("c1", "p1", day(2024, 1, 1), []float64{30, 30}) // 3 orders
	flags, skipped := Detect([]*domain.IntervalSeries{thin}, cfg)
	if !skipped {
		t.Error("expected skip when no pair is rich enough")
	}
	if flags != nil {
		t.Error("skipped detection must emit no flags")
	}
}

func TestReasonsFor_RawFeatureAttribution(t *testing.T) {
	mult := 1.5
	cases := []struct {
		name string
		zs   [3]float64
		want []domain.ReasonCode
	}{
		{"late purchase", [3]float64{2.0, 0, 0}, []domain.ReasonCode{domain.ReasonUnexpectedGap}},
		{"early purchase", [3]float64{-2.0, 0, 0}, []domain.ReasonCode{domain.ReasonIntervalJump}},
		{"quantity spike", [3]float64{0, 3.0, 0}, []domain.ReasonCode{domain.ReasonQuantitySpike}},
		{"price shift", [3]float64{0, 0, -2.2}, []domain.ReasonCode{domain.ReasonPriceShift}},
		{"within range", [3]float64{1.0, -1.0, 0.5}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := reasonsFor(&event{zs: tc.zs}, mult)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}

func TestAvgPathLength(t *testing.T) {
	if got := avgPathLength(1); got != 0 {
		t.Errorf("c(1) must be 0, got %v", got)
	}
	if got := avgPathLength(2); got <= 0 {
		t.Errorf("c(2) must be positive, got %v", got)
	}
	if avgPathLength(256) <= avgPathLength(16) {
		t.Error("c(n) must grow with n")
	}
}
