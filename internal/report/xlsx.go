package report

import (
	"fmt"
	"io"

	"github.com/khanhnv2901/webaudit/internal/domain/audit"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	findingsSheet = "Issues"
)

var summaryHeader = []any{
	"URL", "Timestamp", "Overall", "Performance", "SEO", "Accessibility",
	"Security", "Fraud", "Fraud Risk", "High", "Medium", "Low", "Error",
}

// WriteBatchSummary writes a workbook with one summary row per result and a
// second sheet listing every finding.
func WriteBatchSummary(w io.Writer, results []audit.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(findingsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := writeRow(f, summarySheet, 1, summaryHeader); err != nil {
		return err
	}
	for i, res := range results {
		counts := audit.CountBySeverity(res.Findings)
		risk, _ := res.Metrics["fraud_risk_level"].(string)
		row := []any{
			res.URL,
			formatTimestamp(res.Timestamp),
			round1(res.OverallScore),
			round1(res.PerformanceScore),
			round1(res.SEOScore),
			round1(res.AccessibilityScore),
			round1(res.SecurityScore),
			round1(res.FraudScore),
			risk,
			counts[audit.SeverityHigh],
			counts[audit.SeverityMedium],
			counts[audit.SeverityLow],
			res.ErrorMessage(),
		}
		if err := writeRow(f, summarySheet, i+2, row); err != nil {
			return err
		}
	}

	if err := writeRow(f, findingsSheet, 1, []any{"URL", "Category", "Severity", "Message", "Recommendation"}); err != nil {
		return err
	}
	line := 2
	for _, res := range results {
		for _, finding := range res.Findings {
			row := []any{res.URL, finding.Category.Title(), string(finding.Severity), finding.Message, finding.Recommendation}
			if err := writeRow(f, findingsSheet, line, row); err != nil {
				return err
			}
			line++
		}
	}

	for _, sheet := range []string{summarySheet, findingsSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
		if err := f.SetColWidth(sheet, "A", "A", 45); err != nil {
			return fmt.Errorf("failed to size column: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("invalid row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
