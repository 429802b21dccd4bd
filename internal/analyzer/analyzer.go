// Package analyzer scores a fetched page along the audit dimensions.
//
// Every analyzer starts from audit.MaxScore, deducts a fixed penalty per
// triggered rule and floors the result at audit.MinScore. Rules are
// independent of each other, and analyzers are independent of each other,
// so they can run in any order or concurrently over the same Input.
package analyzer

import (
	"context"
	"net/http"

	"github.com/khanhnv2901/webaudit/internal/document"
	"github.com/khanhnv2901/webaudit/internal/domain/audit"
)

// Input is everything an analyzer may read. It is shared read-only between
// the analyzers of one audit.
type Input struct {
	Target        audit.Target
	Doc           document.View
	Headers       http.Header
	Body          []byte
	BodyTruncated bool
	RedirectChain []string
}

// Report is one analyzer's contribution to an audit result.
type Report struct {
	Category audit.Category
	Score    float64
	Findings []audit.Finding
	Metrics  audit.Metrics
}

// Analyzer scores one category.
type Analyzer interface {
	Category() audit.Category
	Analyze(ctx context.Context, in Input) Report
}

// Defaults returns the four category analyzers in report order. The fraud
// analyzer needs a fetcher and is built separately.
func Defaults() []Analyzer {
	return []Analyzer{
		PerformanceAnalyzer{},
		SEOAnalyzer{},
		AccessibilityAnalyzer{},
		SecurityAnalyzer{},
	}
}

func newReport(card *audit.Scorecard, category audit.Category, metrics audit.Metrics) Report {
	if metrics == nil {
		metrics = audit.Metrics{}
	}
	return Report{
		Category: category,
		Score:    card.Score(),
		Findings: card.Findings(),
		Metrics:  metrics,
	}
}

// missingAlt counts images whose alt attribute is absent or empty.
func missingAlt(doc document.View) (total, missing int) {
	images := doc.FindAll("img")
	for _, img := range images {
		if alt, _ := img.Attr("alt"); alt == "" {
			missing++
		}
	}
	return len(images), missing
}

func hasAnyHeader(h http.Header, names ...string) bool {
	for _, name := range names {
		if len(h.Values(name)) > 0 {
			return true
		}
	}
	return false
}
