package analyzer

import (
	"context"

	"github.com/khanhnv2901/webaudit/internal/domain/audit"
	"github.com/khanhnv2901/webaudit/internal/fetch"
	"go.uber.org/zap"
)

// Risk levels reported next to the fraud score.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// RiskLevel labels a fraud score. The label is for reporting only.
func RiskLevel(score float64) string {
	switch {
	case score >= 70:
		return RiskLow
	case score >= 30:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// fraudSignal is the contribution of one triggered sub-check.
type fraudSignal struct {
	points  float64
	finding audit.Finding
}

func signal(points float64, severity audit.Severity, message, recommendation string) fraudSignal {
	return fraudSignal{
		points: points,
		finding: audit.Finding{
			Category:       audit.CategoryFraud,
			Severity:       severity,
			Message:        message,
			Recommendation: recommendation,
		},
	}
}

// FraudAnalyzer runs the fraud sub-checks and turns their points into a
// score. Fetcher is used only for the cloaking comparison; when nil that
// sub-check is skipped.
type FraudAnalyzer struct {
	Fetcher fetch.Fetcher
	Logger  *zap.Logger
}

// NewFraudAnalyzer creates a fraud analyzer.
func NewFraudAnalyzer(fetcher fetch.Fetcher, logger *zap.Logger) *FraudAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FraudAnalyzer{Fetcher: fetcher, Logger: logger}
}

func (f *FraudAnalyzer) Category() audit.Category { return audit.CategoryFraud }

// Analyze runs the sub-checks in a fixed order. The order only affects the
// order of findings; points are summed.
func (f *FraudAnalyzer) Analyze(ctx context.Context, in Input) Report {
	metrics := audit.Metrics{}
	var signals []fraudSignal

	signals = append(signals, checkRedirects(in, metrics)...)
	signals = append(signals, checkScamKeywords(in, metrics)...)
	signals = append(signals, checkBrandSpoofing(in)...)
	signals = append(signals, checkOutboundLinks(in, metrics)...)
	signals = append(signals, f.checkCloaking(ctx, in)...)
	signals = append(signals, checkScriptsAndFrames(in, metrics)...)

	var points float64
	findings := make([]audit.Finding, 0, len(signals))
	for _, s := range signals {
		points += s.points
		findings = append(findings, s.finding)
	}

	score := audit.Clamp(audit.MaxScore - points)
	metrics["fraud_score"] = score
	metrics["fraud_risk_level"] = RiskLevel(score)

	return Report{
		Category: audit.CategoryFraud,
		Score:    score,
		Findings: findings,
		Metrics:  metrics,
	}
}

func (f *FraudAnalyzer) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}
