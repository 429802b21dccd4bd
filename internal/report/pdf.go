package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/khanhnv2901/webaudit/internal/domain/audit"
)

// PDF renders the result as an A4 document.
func PDF(res audit.Result) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(stripEmoji(s)) }

	pdf.SetTitle("Web Quality Audit Report", true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Web Quality Audit Report", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, text("URL: "+res.URL), "", "", false)
	pdf.CellFormat(0, 5, "Audit Date: "+formatTimestamp(res.Timestamp), "", 1, "", false, 0, "")
	pdf.Ln(4)

	// Scores
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Overall Score: %s/100", formatScore(res.OverallScore)), "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, cs := range res.CategoryScores() {
		if !cs.Computed() {
			continue
		}
		r, g, b := scoreColor(cs.Score)
		pdf.SetFillColor(r, g, b)
		pdf.CellFormat(50, 6, cs.Category.Title(), "", 0, "", false, 0, "")
		pdf.CellFormat(cs.Score, 6, "", "", 0, "", true, 0, "")
		pdf.CellFormat(0, 6, " "+formatScore(cs.Score), "", 1, "", false, 0, "")
	}
	pdf.Ln(4)

	if len(res.Recommendations) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Recommendations", "", 1, "", false, 0, "")
		for _, rec := range res.Recommendations {
			if strings.HasPrefix(rec, "  ") {
				pdf.SetFont("Arial", "", 9)
			} else {
				pdf.SetFont("Arial", "B", 10)
			}
			pdf.MultiCell(0, 5, text(rec), "", "", false)
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Issues Found (%d)", len(res.Findings)), "", 1, "", false, 0, "")
	for _, f := range res.Findings {
		if pdf.GetY() > 265 {
			pdf.AddPage()
		}
		pdf.SetFont("Arial", "B", 9)
		pdf.MultiCell(0, 5, text(fmt.Sprintf("[%s] %s - %s", strings.ToUpper(string(f.Severity)), f.Category.Title(), f.Message)), "", "", false)
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 4, text("  Recommendation: "+f.Recommendation), "", "", false)
		pdf.Ln(1)
	}

	if len(res.Metrics) > 0 {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Metrics", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, k := range res.Metrics.Keys() {
			pdf.CellFormat(70, 5, text(k), "B", 0, "", false, 0, "")
			pdf.CellFormat(0, 5, text(FormatMetric(res.Metrics[k])), "B", 1, "", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func scoreColor(v float64) (int, int, int) {
	switch scoreClass(v) {
	case "good":
		return 43, 138, 62
	case "fair":
		return 230, 119, 0
	default:
		return 201, 42, 42
	}
}

// stripEmoji drops runes the PDF core fonts cannot draw.
func stripEmoji(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r >= 0x2600 {
			return -1
		}
		return r
	}, s))
}
