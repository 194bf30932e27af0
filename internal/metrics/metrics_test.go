package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"go.ngs.io/waves-api/internal/domain"
)

func TestRecordMatch(t *testing.T) {
	beforeMatched := testutil.ToFloat64(MatchObservations.WithLabelValues("matched"))
	beforeSkipped := testutil.ToFloat64(MatchObservations.WithLabelValues("skipped"))
	beforeRuns := testutil.ToFloat64(MatchRuns.WithLabelValues(string(domain.OutcomeMatched)))

	RecordMatch("nearest", 20*time.Millisecond, 7, 2, 1, 0, domain.OutcomeMatched)

	if got := testutil.ToFloat64(MatchObservations.WithLabelValues("matched")) - beforeMatched; got != 7 {
		t.Errorf("expected 7 matched, got %v", got)
	}
	if got := testutil.ToFloat64(MatchObservations.WithLabelValues("skipped")) - beforeSkipped; got != 1 {
		t.Errorf("expected 1 skipped, got %v", got)
	}
	if got := testutil.ToFloat64(MatchRuns.WithLabelValues(string(domain.OutcomeMatched))) - beforeRuns; got != 1 {
		t.Errorf("expected 1 run, got %v", got)
	}
}

func TestRecordSpectra(t *testing.T) {
	before := testutil.ToFloat64(SpectraRecords.WithLabelValues("sar"))
	beforeBlocks := testutil.ToFloat64(SpectraSkipped.WithLabelValues("sar", "block"))

	RecordSpectra("sar", 12, 3, 0, 1)

	if got := testutil.ToFloat64(SpectraRecords.WithLabelValues("sar")) - before; got != 12 {
		t.Errorf("expected 12 records, got %v", got)
	}
	if got := testutil.ToFloat64(SpectraSkipped.WithLabelValues("sar", "block")) - beforeBlocks; got != 3 {
		t.Errorf("expected 3 skipped blocks, got %v", got)
	}
}

func TestRecordHistograms(t *testing.T) {
	// Observations must not panic and must register a series.
	RecordFieldLoad("native", 150*time.Millisecond)
	RecordAPIRequest("POST", "/v1/match", "200", 5*time.Millisecond)

	if n := testutil.CollectAndCount(FieldLoadDuration); n < 1 {
		t.Errorf("expected field load series, got %d", n)
	}
	if n := testutil.CollectAndCount(APIRequestDuration); n < 1 {
		t.Errorf("expected api request series, got %d", n)
	}
}
