package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTimeDBQuery_RecordsOutcome(t *testing.T) {
	errCounter := DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "metrics_test_op")
	before := testutil.ToFloat64(errCounter)

	done := TimeDBQuery("postgres", "metrics_test_op")
	done(nil)
	if got := testutil.ToFloat64(errCounter); got != before {
		t.Errorf("nil error incremented the error counter: %v -> %v", before, got)
	}

	done = TimeDBQuery("postgres", "metrics_test_op")
	done(errors.New("connection reset"))
	if got := testutil.ToFloat64(errCounter); got != before+1 {
		t.Errorf("expected error counter %v, got %v", before+1, got)
	}

	// Both calls must have observed a duration for the labeled series.
	if n := testutil.CollectAndCount(DefaultMetrics.DBQueryDuration); n == 0 {
		t.Error("expected at least one duration series to be recorded")
	}
}
