package cmd

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/khanhnv2901/webaudit/internal/auditor"
	"github.com/khanhnv2901/webaudit/internal/domain/audit"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// stubService returns canned results; URLs containing "down" fail.
type stubService struct {
	mu      sync.Mutex
	targets []audit.Target
}

func (s *stubService) Audit(_ context.Context, target audit.Target) audit.Result {
	s.mu.Lock()
	s.targets = append(s.targets, target)
	s.mu.Unlock()

	if strings.Contains(target.URL, "down") {
		return audit.NewErrorResult(target.URL, time.Now(), "connection refused")
	}
	return sampleResult(target.URL)
}

func (s *stubService) seen() []audit.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Target(nil), s.targets...)
}

func sampleResult(url string) audit.Result {
	findings := []audit.Finding{
		{Category: audit.CategorySEO, Severity: audit.SeverityHigh, Message: "Missing page title", Recommendation: "Add a descriptive title"},
		{Category: audit.CategorySecurity, Severity: audit.SeverityMedium, Message: "Missing X-Frame-Options header", Recommendation: "Add X-Frame-Options"},
	}
	for i := 0; i < 7; i++ {
		findings = append(findings, audit.Finding{
			Category:       audit.CategoryAccessibility,
			Severity:       audit.SeverityLow,
			Message:        "Low issue " + string(rune('A'+i)),
			Recommendation: "Fix it",
		})
	}
	return audit.Result{
		URL:                url,
		Timestamp:          time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		PerformanceScore:   90,
		SEOScore:           80,
		AccessibilityScore: 70,
		SecurityScore:      60,
		OverallScore:       75,
		Findings:           findings,
		Recommendations:    []string{"🔴 High Priority Issues:", "  • Add a descriptive title"},
		Metrics:            audit.Metrics{"page_size_kb": 12.5, "status_code": 200},
	}
}

// useStubService swaps the audit pipeline and config for the test.
func useStubService(t *testing.T) *stubService {
	t.Helper()
	svc := &stubService{}
	origService, origConfig, origLogger := newAuditService, cliConfig, logger
	newAuditService = func(*CLIConfig, *zap.Logger) auditor.Service { return svc }
	cliConfig = newCLIConfig()
	logger = zap.NewNop().Sugar()

	origNoColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		newAuditService, cliConfig, logger = origService, origConfig, origLogger
		color.NoColor = origNoColor
	})
	return svc
}

func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	c := &cobra.Command{Use: "test"}
	c.SetOut(&buf)
	c.SetErr(&buf)
	c.SetContext(context.Background())
	return c, &buf
}

func defaultTargetOptions() targetOptions {
	return targetOptions{TimeoutSecs: defaultTimeoutSeconds, UserAgent: "test-agent/1.0"}
}
