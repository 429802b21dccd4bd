package auditor

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/khanhnv2901/webaudit/internal/analyzer"
	"github.com/khanhnv2901/webaudit/internal/domain/audit"
	"github.com/khanhnv2901/webaudit/internal/fetch"
	"github.com/khanhnv2901/webaudit/internal/mobile"
	apperrors "github.com/khanhnv2901/webaudit/internal/shared/errors"
	"go.uber.org/zap/zaptest"
)

const samplePage = `<html><head><title>Sample page</title></head>
<body><h1>Hello</h1><img src="/a.png"><p>Welcome to the sample page.</p></body></html>`

// pageFetcher serves one page for every URL except those listed in fail.
type pageFetcher struct {
	body string
	fail map[string]bool
}

func (f pageFetcher) Fetch(_ context.Context, rawURL string, _ fetch.Identity, _ time.Duration) (*fetch.Outcome, error) {
	if f.fail[rawURL] {
		return nil, &fetch.Error{URL: rawURL, Op: "get", Err: errors.New("connection refused")}
	}
	h := http.Header{}
	h.Set("Content-Type", "text/html")
	return &fetch.Outcome{
		StatusCode: http.StatusOK,
		Headers:    h,
		Body:       []byte(f.body),
		FinalURL:   rawURL,
		Elapsed:    12 * time.Millisecond,
	}, nil
}

type stubProber struct {
	findings []audit.Finding
	err      error
	calls    int
}

func (p *stubProber) Probe(context.Context, string, []mobile.Viewport) ([]audit.Finding, error) {
	p.calls++
	return p.findings, p.err
}

type panicAnalyzer struct{ category audit.Category }

func (p panicAnalyzer) Category() audit.Category { return p.category }

func (p panicAnalyzer) Analyze(context.Context, analyzer.Input) analyzer.Report {
	panic("boom")
}

func TestAuditOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	prober := &stubProber{findings: []audit.Finding{mobile.OverflowFinding(mobile.DefaultViewports[0])}}
	a := New(fetch.NewHTTPFetcher(), WithLogger(zaptest.NewLogger(t)), WithProber(prober, nil))

	res := a.Audit(context.Background(), audit.NewTarget(srv.URL))
	if res.Failed() {
		t.Fatalf("audit failed: %s", res.ErrorMessage())
	}
	for _, cs := range res.CategoryScores() {
		if !cs.Computed() {
			t.Errorf("%s not computed", cs.Category)
		}
	}
	if res.OverallScore <= 0 || res.OverallScore > audit.MaxScore {
		t.Fatalf("overall = %v", res.OverallScore)
	}
	if res.Metrics["status_code"] != http.StatusOK {
		t.Fatalf("status_code = %v", res.Metrics["status_code"])
	}
	if res.Metrics["fraud_risk_level"] != analyzer.RiskLow {
		t.Fatalf("fraud_risk_level = %v", res.Metrics["fraud_risk_level"])
	}
	if prober.calls != 1 {
		t.Fatalf("prober called %d times", prober.calls)
	}
	last := res.Findings[len(res.Findings)-1]
	if last.Category != audit.CategoryMobile {
		t.Fatalf("mobile finding should be appended last, got %+v", last)
	}
	if len(res.Recommendations) == 0 || res.Recommendations[0] != analyzer.HighPriorityHeader {
		t.Fatalf("recommendations = %q", res.Recommendations)
	}
}

func TestAuditCreditsGzippedResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Cache-Control", "max-age=600")
		zw := gzip.NewWriter(w)
		_, _ = zw.Write([]byte(samplePage))
		_ = zw.Close()
	}))
	defer srv.Close()

	target := audit.NewTarget(srv.URL)
	target.Checks = audit.Checks{Performance: true}
	a := New(fetch.NewHTTPFetcher(), WithLogger(zaptest.NewLogger(t)))

	res := a.Audit(context.Background(), target)
	if res.Failed() {
		t.Fatalf("audit failed: %s", res.ErrorMessage())
	}
	for _, f := range res.Findings {
		if f.Message == "No compression detected" {
			t.Fatalf("gzipped response penalized: %+v", f)
		}
	}
}

func TestAuditFetchFailureYieldsErrorResult(t *testing.T) {
	target := audit.NewTarget("https://down.test")
	a := New(pageFetcher{fail: map[string]bool{target.URL: true}}, WithLogger(zaptest.NewLogger(t)))

	res := a.Audit(context.Background(), target)
	if !res.Failed() {
		t.Fatalf("expected failed result, got %+v", res)
	}
	if len(res.Findings) != 1 || res.Findings[0].Category != audit.CategoryError {
		t.Fatalf("findings = %+v", res.Findings)
	}
	if res.OverallScore != 0 || !strings.Contains(res.ErrorMessage(), "connection refused") {
		t.Fatalf("result = %+v", res)
	}
	if res.Recommendations[0] != "Fix error: "+res.ErrorMessage() {
		t.Fatalf("recommendations = %q", res.Recommendations)
	}
}

func TestAuditInvalidTarget(t *testing.T) {
	a := New(pageFetcher{body: samplePage})
	res := a.Audit(context.Background(), audit.NewTarget("ftp://example.com"))
	if res.ErrorMessage() != apperrors.ErrUnsupportedScheme.Error() {
		t.Fatalf("error = %q", res.ErrorMessage())
	}
}

func TestAuditDisabledCategoriesAreNotComputed(t *testing.T) {
	a := New(pageFetcher{body: samplePage}, WithLogger(zaptest.NewLogger(t)))
	target := audit.NewTarget("https://example.com")
	target.Checks.Performance = false
	target.Checks.Security = false

	res := a.Audit(context.Background(), target)
	if res.PerformanceScore != 0 || res.SecurityScore != 0 {
		t.Fatalf("disabled categories scored: %+v", res.CategoryScores())
	}
	want := (res.SEOScore + res.AccessibilityScore + res.FraudScore) / 3
	if res.OverallScore != want {
		t.Fatalf("overall = %v, want %v", res.OverallScore, want)
	}
	for _, f := range res.Findings {
		if f.Category == audit.CategoryPerformance || f.Category == audit.CategorySecurity {
			t.Fatalf("finding from disabled category: %+v", f)
		}
	}
}

func TestAuditFraudExcludedFromOverall(t *testing.T) {
	a := New(pageFetcher{body: samplePage})
	target := audit.NewTarget("https://example.com")
	target.IncludeFraudInOverall = false

	res := a.Audit(context.Background(), target)
	if res.FraudScore == 0 {
		t.Fatal("fraud score should still be reported")
	}
	want := (res.PerformanceScore + res.SEOScore + res.AccessibilityScore + res.SecurityScore) / 4
	if res.OverallScore != want {
		t.Fatalf("overall = %v, want %v", res.OverallScore, want)
	}
}

func TestAuditRecoversAnalyzerPanic(t *testing.T) {
	a := New(pageFetcher{body: samplePage},
		WithLogger(zaptest.NewLogger(t)),
		WithAnalyzers(analyzer.SEOAnalyzer{}, panicAnalyzer{category: audit.CategorySecurity}))

	res := a.Audit(context.Background(), audit.NewTarget("https://example.com"))
	if res.SEOScore == 0 {
		t.Fatal("sibling analyzer should still score")
	}
	if res.SecurityScore != 0 {
		t.Fatalf("panicking analyzer scored %v", res.SecurityScore)
	}
	if !strings.Contains(res.ErrorMessage(), "Security analysis failed: boom") {
		t.Fatalf("error finding = %q", res.ErrorMessage())
	}
	if res.OverallScore != res.SEOScore {
		t.Fatalf("overall = %v, want %v", res.OverallScore, res.SEOScore)
	}
}

func TestAuditNothingComputed(t *testing.T) {
	a := New(pageFetcher{body: samplePage})
	target := audit.NewTarget("https://example.com")
	target.Checks = audit.Checks{Mobile: true}

	res := a.Audit(context.Background(), target)
	if res.OverallScore != 0 || len(res.Findings) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if res.ErrorMessage() != apperrors.ErrNoCategoriesComputed.Error() {
		t.Fatalf("error = %q", res.ErrorMessage())
	}
}

func TestAuditSwallowsProbeFailure(t *testing.T) {
	prober := &stubProber{err: errors.New("chrome not found")}
	a := New(pageFetcher{body: samplePage}, WithLogger(zaptest.NewLogger(t)), WithProber(prober, nil))

	res := a.Audit(context.Background(), audit.NewTarget("https://example.com"))
	if res.Failed() {
		t.Fatalf("probe failure must not fail the audit: %s", res.ErrorMessage())
	}
	if prober.calls != 1 {
		t.Fatalf("prober calls = %d", prober.calls)
	}
}

func TestAuditUsesClock(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := New(pageFetcher{body: samplePage}, WithClock(func() time.Time { return at }))
	res := a.Audit(context.Background(), audit.NewTarget("https://example.com"))
	if !res.Timestamp.Equal(at) {
		t.Fatalf("timestamp = %v, want %v", res.Timestamp, at)
	}
}
