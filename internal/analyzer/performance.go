package analyzer

import (
	"context"
	"fmt"
	"math"

	"github.com/khanhnv2901/webaudit/internal/domain/audit"
)

const (
	maxPageBytes   = 1 << 20
	maxStylesheets = 5
	maxScripts     = 10
)

// PerformanceAnalyzer checks page weight, request count and transfer headers.
type PerformanceAnalyzer struct{}

func (PerformanceAnalyzer) Category() audit.Category { return audit.CategoryPerformance }

func (PerformanceAnalyzer) Analyze(_ context.Context, in Input) Report {
	card := audit.NewScorecard(audit.CategoryPerformance)
	metrics := audit.Metrics{}

	size := len(in.Body)
	metrics["page_size_bytes"] = size
	metrics["page_size_kb"] = math.Round(float64(size)/1024*100) / 100
	if in.BodyTruncated {
		metrics["body_truncated"] = true
	}
	if size > maxPageBytes {
		card.Deduct(20, audit.SeverityHigh,
			fmt.Sprintf("Large page size: %.2fKB", float64(size)/1024),
			"Optimize images and minify CSS/JS")
	}

	total, missing := missingAlt(in.Doc)
	metrics["total_images"] = total
	if missing > 0 {
		card.Deduct(10, audit.SeverityMedium,
			fmt.Sprintf("%d images without alt text", missing),
			"Add alt text to all images")
	}

	css := len(in.Doc.FindByAttr("link", "rel", "stylesheet"))
	js := len(in.Doc.FindWithAttr("script", "src"))
	metrics["css_files"] = css
	metrics["js_files"] = js
	if css > maxStylesheets {
		card.Deduct(10, audit.SeverityMedium,
			fmt.Sprintf("Too many CSS files: %d", css),
			"Combine CSS files to reduce HTTP requests")
	}
	if js > maxScripts {
		card.Deduct(10, audit.SeverityMedium,
			fmt.Sprintf("Too many JS files: %d", js),
			"Combine and minify JavaScript files")
	}

	if !hasAnyHeader(in.Headers, "Content-Encoding") {
		card.Deduct(15, audit.SeverityHigh, "No compression detected", "Enable gzip/brotli compression")
	}
	if !hasAnyHeader(in.Headers, "Cache-Control", "Expires", "ETag", "Last-Modified") {
		card.Deduct(10, audit.SeverityMedium, "No caching headers found", "Implement proper caching headers")
	}
	metrics["cache_policy_issues"] = len(cachePolicyIssues(in.Headers))

	return newReport(card, audit.CategoryPerformance, metrics)
}
