// Package auditor runs the audit pipeline for one target and for batches of
// targets.
package auditor

import (
	"context"
	"fmt"
	"time"

	"github.com/khanhnv2901/webaudit/internal/analyzer"
	"github.com/khanhnv2901/webaudit/internal/document"
	"github.com/khanhnv2901/webaudit/internal/domain/audit"
	"github.com/khanhnv2901/webaudit/internal/fetch"
	"github.com/khanhnv2901/webaudit/internal/mobile"
	apperrors "github.com/khanhnv2901/webaudit/internal/shared/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service audits one target. Implementations never return an error: a failed
// audit is a Result carrying an error finding.
type Service interface {
	Audit(ctx context.Context, target audit.Target) audit.Result
}

// Auditor wires the fetch adapter, the analyzers and the mobile probe.
type Auditor struct {
	fetcher   fetch.Fetcher
	analyzers []analyzer.Analyzer
	prober    mobile.Prober
	viewports []mobile.Viewport
	logger    *zap.Logger
	now       func() time.Time
}

var _ Service = (*Auditor)(nil)

// Option configures an Auditor.
type Option func(*Auditor)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Auditor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithProber enables the mobile viewport probe.
func WithProber(p mobile.Prober, viewports []mobile.Viewport) Option {
	return func(a *Auditor) {
		a.prober = p
		if len(viewports) > 0 {
			a.viewports = viewports
		}
	}
}

// WithAnalyzers replaces the analyzer set.
func WithAnalyzers(analyzers ...analyzer.Analyzer) Option {
	return func(a *Auditor) {
		a.analyzers = analyzers
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Auditor) {
		a.now = now
	}
}

// New creates an Auditor with the four category analyzers and the fraud
// analyzer, all sharing fetcher.
func New(fetcher fetch.Fetcher, opts ...Option) *Auditor {
	a := &Auditor{
		fetcher:   fetcher,
		viewports: mobile.DefaultViewports,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.analyzers == nil {
		a.analyzers = append(analyzer.Defaults(), analyzer.NewFraudAnalyzer(fetcher, a.logger))
	}
	return a
}

// Audit fetches the target, runs every enabled analyzer and aggregates the
// result. Only a failed primary fetch reduces the audit to an error result.
func (a *Auditor) Audit(ctx context.Context, target audit.Target) audit.Result {
	started := a.now()
	log := a.logger.With(zap.String("url", target.URL))

	if err := target.Validate(); err != nil {
		return audit.NewErrorResult(target.URL, started, err.Error())
	}

	log.Info("audit started")

	outcome, err := a.fetcher.Fetch(ctx, target.URL, fetch.Identity{UserAgent: target.UserAgent}, target.Timeout)
	if err != nil {
		log.Error("failed to fetch target", zap.Error(err))
		return audit.NewErrorResult(target.URL, started, err.Error())
	}

	doc, err := document.ParseBytes(outcome.Body)
	if err != nil {
		log.Error("failed to parse document", zap.Error(err))
		return audit.NewErrorResult(target.URL, started, err.Error())
	}

	in := analyzer.Input{
		Target:        target,
		Doc:           doc,
		Headers:       outcome.Headers,
		Body:          outcome.Body,
		BodyTruncated: outcome.Truncated,
		RedirectChain: outcome.RedirectChain,
	}
	reports := a.runAnalyzers(ctx, target, in)

	result := audit.Result{
		URL:       target.URL,
		Timestamp: started,
		Metrics:   audit.Metrics{},
	}
	var scores []float64
	var failures []string
	for _, rep := range reports {
		result.Findings = append(result.Findings, rep.report.Findings...)
		result.Metrics.Merge(rep.report.Metrics)
		if rep.failed {
			failures = append(failures, rep.report.Findings[0].Message)
			continue
		}
		result.SetScore(rep.report.Category, rep.report.Score)
		if rep.report.Category == audit.CategoryFraud && !target.IncludeFraudInOverall {
			continue
		}
		scores = append(scores, result.Score(rep.report.Category))
	}

	if len(reports) == len(failures) {
		msg := apperrors.ErrNoCategoriesComputed.Error()
		if len(failures) > 0 {
			msg = failures[0]
		}
		log.Warn("no categories computed", zap.String("reason", msg))
		return audit.NewErrorResult(target.URL, started, msg)
	}

	if target.Checks.Mobile && a.prober != nil {
		findings, err := a.prober.Probe(ctx, target.URL, a.viewports)
		if err != nil {
			log.Warn("mobile probe failed", zap.Error(err))
		}
		result.Findings = append(result.Findings, findings...)
	}

	result.Metrics["status_code"] = outcome.StatusCode
	result.Metrics["redirect_count"] = len(outcome.RedirectChain)
	result.Metrics["load_time_ms"] = outcome.Elapsed.Milliseconds()
	if target.Checks.Fraud && result.FraudScore > 0 {
		result.Metrics["fraud_risk_level"] = analyzer.RiskLevel(result.FraudScore)
	}

	result.OverallScore, result.Recommendations = analyzer.Aggregate(scores, result.Findings)

	log.Info("audit finished",
		zap.Duration("duration", a.now().Sub(started)),
		zap.Float64("overall_score", result.OverallScore),
		zap.Int("findings", len(result.Findings)))
	return result
}

type analyzerRun struct {
	report analyzer.Report
	failed bool
}

// runAnalyzers fans the enabled analyzers out and returns their reports in
// analyzer order. A panicking analyzer yields an error finding instead of a score.
func (a *Auditor) runAnalyzers(ctx context.Context, target audit.Target, in analyzer.Input) []analyzerRun {
	var active []analyzer.Analyzer
	for _, an := range a.analyzers {
		if target.Checks.Enabled(an.Category()) {
			active = append(active, an)
		}
	}

	runs := make([]analyzerRun, len(active))
	g, gctx := errgroup.WithContext(ctx)
	for i, an := range active {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("analyzer panicked",
						zap.String("url", target.URL),
						zap.String("category", string(an.Category())),
						zap.Any("panic", r))
					runs[i] = analyzerRun{report: panicReport(an.Category(), r), failed: true}
				}
			}()
			runs[i] = analyzerRun{report: an.Analyze(gctx, in)}
			return nil
		})
	}
	_ = g.Wait()
	return runs
}

func panicReport(category audit.Category, r any) analyzer.Report {
	return analyzer.Report{
		Category: category,
		Findings: []audit.Finding{{
			Category:       audit.CategoryError,
			Severity:       audit.SeverityHigh,
			Message:        fmt.Sprintf("%s analysis failed: %v", category.Title(), r),
			Recommendation: audit.ErrorRecommendation,
		}},
		Metrics: audit.Metrics{},
	}
}
