package analyzer

import (
	"fmt"
	"testing"

	"github.com/khanhnv2901/webaudit/internal/domain/audit"
)

func TestAggregateSkipsUncomputedScores(t *testing.T) {
	overall, _ := Aggregate([]float64{0, 90, 80}, nil)
	if overall != 85 {
		t.Fatalf("overall = %v, want 85", overall)
	}

	overall, _ = Aggregate([]float64{0, 0, 0}, nil)
	if overall != 0 {
		t.Fatalf("overall = %v, want 0", overall)
	}

	overall, _ = Aggregate(nil, nil)
	if overall != 0 {
		t.Fatalf("overall = %v, want 0", overall)
	}
}

func TestAggregateRecommendations(t *testing.T) {
	var findings []audit.Finding
	for i := 0; i < 7; i++ {
		findings = append(findings, audit.Finding{Severity: audit.SeverityHigh, Recommendation: fmt.Sprintf("high-%d", i)})
		findings = append(findings, audit.Finding{Severity: audit.SeverityLow, Recommendation: fmt.Sprintf("low-%d", i)})
	}
	findings = append(findings, audit.Finding{Severity: audit.SeverityMedium, Recommendation: "medium-0"})

	_, recs := Aggregate([]float64{50}, findings)
	want := []string{
		HighPriorityHeader,
		"  • high-0", "  • high-1", "  • high-2", "  • high-3", "  • high-4",
		MediumPriorityHeader,
		"  • medium-0",
	}
	if len(recs) != len(want) {
		t.Fatalf("recs = %q, want %q", recs, want)
	}
	for i := range want {
		if recs[i] != want[i] {
			t.Fatalf("recs[%d] = %q, want %q", i, recs[i], want[i])
		}
	}
}

func TestAggregateOmitsEmptyGroups(t *testing.T) {
	_, recs := Aggregate([]float64{100}, []audit.Finding{{Severity: audit.SeverityLow, Recommendation: "minor"}})
	if len(recs) != 0 {
		t.Fatalf("recs = %q, want none", recs)
	}

	_, recs = Aggregate([]float64{100}, []audit.Finding{{Severity: audit.SeverityMedium, Recommendation: "m"}})
	if len(recs) != 2 || recs[0] != MediumPriorityHeader {
		t.Fatalf("recs = %q", recs)
	}
}
