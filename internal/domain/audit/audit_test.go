package audit

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/khanhnv2901/webaudit/internal/shared/errors"
)

func TestScorecardNeverLeavesBounds(t *testing.T) {
	card := NewScorecard(CategoryPerformance)
	for i := 0; i < 12; i++ {
		card.Deduct(15, SeverityHigh, "rule", "fix")
	}
	if got := card.Score(); got != 0 {
		t.Fatalf("expected score floored at 0, got %v", got)
	}
	if got := card.Deducted(); got != 180 {
		t.Fatalf("expected raw deductions 180, got %v", got)
	}
	if len(card.Findings()) != 12 {
		t.Fatalf("expected 12 findings, got %d", len(card.Findings()))
	}

	clean := NewScorecard(CategorySEO)
	clean.Deduct(-30, SeverityLow, "negative penalties are ignored", "")
	if got := clean.Score(); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
}

func TestScorecardFindingsCarryCategory(t *testing.T) {
	card := NewScorecard(CategorySecurity)
	card.Deduct(10, SeverityMedium, "HSTS header missing", "Add it")
	findings := card.Findings()
	if findings[0].Category != CategorySecurity || findings[0].Severity != SeverityMedium {
		t.Fatalf("unexpected finding %+v", findings[0])
	}

	findings[0].Message = "mutated"
	if card.Findings()[0].Message != "HSTS header missing" {
		t.Fatal("Findings must return a copy")
	}
}

func TestClamp(t *testing.T) {
	tests := map[float64]float64{-5: 0, 0: 0, 42.5: 42.5, 100: 100, 130: 100}
	for in, want := range tests {
		if got := Clamp(in); got != want {
			t.Errorf("Clamp(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestNewErrorResult(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	res := NewErrorResult("https://example.com", at, "dial tcp: connection refused")

	if !res.Failed() {
		t.Fatal("expected error result to report Failed")
	}
	if res.OverallScore != 0 {
		t.Fatalf("expected overall 0, got %v", res.OverallScore)
	}
	for _, s := range res.CategoryScores() {
		if s.Computed() {
			t.Fatalf("expected %s to be not computed", s.Category)
		}
	}
	if len(res.Findings) != 1 || res.Findings[0].Category != CategoryError {
		t.Fatalf("expected exactly one error finding, got %+v", res.Findings)
	}
	if res.Recommendations[0] != "Fix error: dial tcp: connection refused" {
		t.Fatalf("unexpected recommendation %q", res.Recommendations[0])
	}
	if res.Metrics == nil {
		t.Fatal("metrics must be non-nil")
	}
}

func TestResultSetScoreClamps(t *testing.T) {
	var res Result
	res.SetScore(CategoryFraud, -20)
	res.SetScore(CategorySEO, 250)
	if res.FraudScore != 0 || res.SEOScore != 100 {
		t.Fatalf("unexpected scores fraud=%v seo=%v", res.FraudScore, res.SEOScore)
	}
	if res.Failed() {
		t.Fatal("a result with a computed category is not failed")
	}
}

func TestTargetDefaultsAndValidation(t *testing.T) {
	target := NewTarget("  https://example.com/page ")
	if err := target.Validate(); err != nil {
		t.Fatalf("expected valid target, got %v", err)
	}
	if target.URL != "https://example.com/page" {
		t.Fatalf("expected trimmed url, got %q", target.URL)
	}
	if target.Fraud.MaxRedirects != 3 || target.Fraud.KeywordThreshold != 0.05 {
		t.Fatalf("unexpected fraud defaults %+v", target.Fraud)
	}
	if !target.Checks.Enabled(CategoryFraud) || !target.IncludeFraudInOverall {
		t.Fatal("fraud must be enabled and averaged by default")
	}
	if target.Host() != "example.com" || !target.IsHTTPS() {
		t.Fatalf("unexpected host/scheme for %q", target.URL)
	}

	target.Fraud.ScamKeywords[0] = "CHANGED"
	if DefaultScamKeywords[0] != "FREE" {
		t.Fatal("targets must not share the default keyword slice")
	}

	tests := []struct {
		name string
		url  string
		want error
	}{
		{name: "empty", url: "", want: apperrors.ErrEmptyURL},
		{name: "ftp", url: "ftp://example.com", want: apperrors.ErrUnsupportedScheme},
		{name: "no host", url: "https://", want: apperrors.ErrInvalidTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTarget(tt.url).Validate()
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	bad := NewTarget("https://example.com")
	bad.Timeout = 0
	if !errors.Is(bad.Validate(), apperrors.ErrInvalidTimeout) {
		t.Fatal("expected timeout validation error")
	}
}

func TestMetricsMergeAndKeys(t *testing.T) {
	m := Metrics{"b": 1}
	m.Merge(Metrics{"a": "x", "b": 2})
	keys := m.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("unexpected keys %v", keys)
	}
	if m["b"] != 2 {
		t.Fatalf("expected overwrite, got %v", m["b"])
	}
}

func TestSeverityHelpers(t *testing.T) {
	findings := []Finding{
		{Severity: SeverityLow}, {Severity: SeverityHigh}, {Severity: SeverityHigh},
	}
	counts := CountBySeverity(findings)
	if counts[SeverityHigh] != 2 || counts[SeverityLow] != 1 || counts[SeverityMedium] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if len(FilterBySeverity(findings, SeverityHigh)) != 2 {
		t.Fatal("expected two high findings")
	}
	if !(SeverityHigh.Rank() < SeverityMedium.Rank() && SeverityMedium.Rank() < SeverityLow.Rank()) {
		t.Fatal("severity ranks out of order")
	}
	if CategorySEO.Title() != "SEO" || CategoryFraud.Title() != "Fraud Detection" {
		t.Fatal("unexpected category titles")
	}
}
