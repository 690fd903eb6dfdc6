package patternchange

import (
	"math"
	"testing"
	"time"

	"repurchase-lab/internal/domain"
)

func seriesFromGaps(gaps []float64) *domain.IntervalSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{start}
	for _, g := range gaps {
		dates = append(dates, dates[len(dates)-1].Add(time.Duration(g*24)*time.Hour))
	}
	return &domain.IntervalSeries{
		CustomerID:     "c1",
		ProductID:      "p1",
		OrderDates:     dates,
		Gaps:           gaps,
		FirstOrderDate: dates[0],
		LastOrderDate:  dates[len(dates)-1],
	}
}

func TestClassify_Accelerating(t *testing.T) {
	// Historical mean 30, recent window [18 18 18] mean 18:
	// relative change -40%, past the 30% boundary.
	cfg := domain.DefaultConfig()
	s := seriesFromGaps([]float64{30, 30, 30, 18, 18, 18})

	pc := Classify(s, cfg)
	if pc == nil {
		t.Fatal("expected classification")
	}
	if pc.Label != domain.TrendAccelerating {
		t.Errorf("expected accelerating, got %q", pc.Label)
	}
	if pc.HistoricalMeanGap != 30 || pc.RecentMeanGap != 18 {
		t.Errorf("wrong window means: %v / %v", pc.HistoricalMeanGap, pc.RecentMeanGap)
	}
	if math.Abs(pc.RelativeChange-(-0.4)) > 1e-9 {
		t.Errorf("expected relative change -0.4, got %v", pc.RelativeChange)
	}
}

func TestClassify_Decelerating(t *testing.T) {
	cfg := domain.DefaultConfig()
	s := seriesFromGaps([]float64{20, 20, 20, 30, 30, 30})

	pc := Classify(s, cfg)
	if pc == nil {
		t.Fatal("expected classification")
	}
	// +50% change: meaningfully longer recent gaps.
	if pc.Label != domain.TrendDecelerating {
		t.Errorf("expected decelerating, got %q", pc.Label)
	}
}

func TestClassify_StableInsideThreshold(t *testing.T) {
	cfg := domain.DefaultConfig()

	cases := [][]float64{
		{30, 31, 29, 30, 31, 29},
		{30, 31, 29, 30, 60, 15}, // recent mean 35 vs 30: +16.7%, inside 30%
	}
	for _, gaps := range cases {
		pc := Classify(seriesFromGaps(gaps), cfg)
		if pc == nil {
			t.Fatalf("gaps %v: expected classification", gaps)
		}
		if pc.Label != domain.TrendStable {
			t.Errorf("gaps %v: expected stable, got %q", gaps, pc.Label)
		}
	}
}

func TestClassify_ExactThresholdIsNotStable(t *testing.T) {
	// Boundary rule: a relative change of exactly -30% classifies as
	// accelerating, the threshold is the class boundary.
	cfg := domain.DefaultConfig()
	s := seriesFromGaps([]float64{30, 30, 30, 21, 21, 21})

	pc := Classify(s, cfg)
	if pc == nil {
		t.Fatal("expected classification")
	}
	if pc.Label != domain.TrendAccelerating {
		t.Errorf("expected accelerating at the exact boundary, got %q", pc.Label)
	}
}

func TestClassify_SkipsShortHistories(t *testing.T) {
	cfg := domain.DefaultConfig()

	// 4 gaps: recent window of 3 leaves only 1 historical gap.
	if pc := Classify(seriesFromGaps([]float64{30, 30, 30, 30}), cfg); pc != nil {
		t.Errorf("expected skip below the window floor, got %+v", pc)
	}
	// 5 gaps: 2 historical + 3 recent, minimum viable.
	if pc := Classify(seriesFromGaps([]float64{30, 30, 30, 30, 30}), cfg); pc == nil {
		t.Error("expected classification at the minimum window sizes")
	}
}

func TestClassify_Deterministic(t *testing.T) {
	cfg := domain.DefaultConfig()
	s := seriesFromGaps([]float64{25, 35, 30, 10, 45, 20})

	a := Classify(s, cfg)
	b := Classify(s, cfg)
	if a.Label != b.Label || a.RelativeChange != b.RelativeChange {
		t.Errorf("classification must be pure: %+v vs %+v", a, b)
	}
}
