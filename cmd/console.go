package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/khanhnv2901/webaudit/internal/domain/audit"
	"github.com/khanhnv2901/webaudit/internal/report"
)

const (
	scoreBarWidth  = 40
	issuesPerGroup = 5
)

var categoryIcons = map[audit.Category]string{
	audit.CategoryPerformance:   "🚀",
	audit.CategorySEO:           "🔍",
	audit.CategoryAccessibility: "♿",
	audit.CategorySecurity:      "🔒",
	audit.CategoryFraud:         "🛡️",
}

func printBanner(w io.Writer) {
	fmt.Fprintln(w, colorInfo("🔍 Web Quality Auditor"))
	fmt.Fprintln(w, colorInfo("   Performance · SEO · Accessibility · Security · Fraud"))
	fmt.Fprintln(w)
}

func printRule(w io.Writer, width int) {
	fmt.Fprintln(w, strings.Repeat("─", width))
}

func scoreBar(score float64) string {
	filled := int(score / 100 * scoreBarWidth)
	filled = max(0, min(filled, scoreBarWidth))
	return strings.Repeat("█", filled) + strings.Repeat("░", scoreBarWidth-filled)
}

// printConsoleReport renders a result for a terminal. Only computed
// categories get a score bar.
func printConsoleReport(w io.Writer, res audit.Result, verbose bool) {
	fmt.Fprintf(w, "\n📊 Overall Score: %s\n", colorInfo(fmt.Sprintf("%.1f/100", res.OverallScore)))
	fmt.Fprintln(w, "\n📈 Category Scores:")
	for _, cs := range res.CategoryScores() {
		if !cs.Computed() {
			continue
		}
		label := categoryIcons[cs.Category] + " " + cs.Category.Title()
		paint := colorForScore(cs.Score)
		fmt.Fprintf(w, "%-18s %s %5.1f/100\n", label, paint(scoreBar(cs.Score)), cs.Score)
	}

	printIssuesSummary(w, res.Findings)
	printDetailedIssues(w, res.Findings, verbose)
	if verbose {
		printMetricsTable(w, res.Metrics)
	}

	if len(res.Recommendations) > 0 {
		fmt.Fprintln(w, "\n💡 Top Recommendations:")
		for _, rec := range res.Recommendations {
			if strings.HasPrefix(rec, "  ") {
				fmt.Fprintf(w, "   %s\n", strings.TrimSpace(rec))
				continue
			}
			fmt.Fprintf(w, "   %s\n", rec)
		}
	}
}

func printIssuesSummary(w io.Writer, findings []audit.Finding) {
	if len(findings) == 0 {
		fmt.Fprintf(w, "\n%s\n", colorSuccess("✅ No issues found! Your website looks great!"))
		return
	}
	counts := audit.CountBySeverity(findings)
	fmt.Fprintln(w, "\n📊 Issues Summary:")
	if n := counts[audit.SeverityHigh]; n > 0 {
		fmt.Fprintf(w, "   %s\n", colorError(fmt.Sprintf("🔴 High Priority: %d", n)))
	}
	if n := counts[audit.SeverityMedium]; n > 0 {
		fmt.Fprintf(w, "   %s\n", colorWarn(fmt.Sprintf("🟡 Medium Priority: %d", n)))
	}
	if n := counts[audit.SeverityLow]; n > 0 {
		fmt.Fprintf(w, "   %s\n", colorSuccess(fmt.Sprintf("🟢 Low Priority: %d", n)))
	}
}

func printDetailedIssues(w io.Writer, findings []audit.Finding, showAll bool) {
	if len(findings) == 0 {
		return
	}
	fmt.Fprintln(w, "\n🐛 Detailed Issues:")
	printRule(w, 80)

	groups := []struct {
		severity audit.Severity
		title    string
		emoji    string
	}{
		{audit.SeverityHigh, "High Priority Issues", "🔴"},
		{audit.SeverityMedium, "Medium Priority Issues", "🟡"},
		{audit.SeverityLow, "Low Priority Issues", "🟢"},
	}
	for _, g := range groups {
		group := audit.FilterBySeverity(findings, g.severity)
		if len(group) == 0 {
			continue
		}
		paint := colorForSeverity(g.severity)
		fmt.Fprintf(w, "\n%s\n", paint(fmt.Sprintf("%s %s (%d)", g.emoji, g.title, len(group))))

		shown := group
		if !showAll && len(group) > issuesPerGroup {
			shown = group[:issuesPerGroup]
		}
		for i, f := range shown {
			fmt.Fprintf(w, "\n   %d. %s: %s\n", i+1, f.Category.Title(), f.Message)
			fmt.Fprintf(w, "      💡 %s\n", f.Recommendation)
		}
		if len(shown) < len(group) {
			fmt.Fprintf(w, "   ... and %d more (use --verbose to see all)\n", len(group)-len(shown))
		}
	}
}

func printMetricsTable(w io.Writer, metrics audit.Metrics) {
	if len(metrics) == 0 {
		return
	}
	fmt.Fprintln(w, "\n📈 Metrics:")
	printRule(w, 50)
	for _, key := range metrics.Keys() {
		fmt.Fprintf(w, "%-28s %s\n", metricLabel(key), report.FormatMetric(metrics[key]))
	}
}

// metricLabel turns page_size_kb into Page Size Kb.
func metricLabel(key string) string {
	words := strings.Split(key, "_")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}
