// Package report renders audit results for people and machines.
package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/khanhnv2901/webaudit/internal/domain/audit"
	apperrors "github.com/khanhnv2901/webaudit/internal/shared/errors"
	"gopkg.in/yaml.v3"
)

// Format is an output format for a single result.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatYAML, FormatMarkdown, FormatHTML, FormatPDF}

// ParseFormat accepts a format name or its common short form.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, s)
}

// Extension is the file extension, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	default:
		return string(f)
	}
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Render produces the report bytes for one result.
func Render(res audit.Result, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return JSON(res)
	case FormatYAML:
		return YAML(res)
	case FormatMarkdown:
		return Markdown(res)
	case FormatHTML:
		return HTML(res)
	case FormatPDF:
		return PDF(res)
	}
	return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, string(f))
}

// JSON renders the result as indented JSON.
func JSON(res audit.Result) ([]byte, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return data, nil
}

// YAML renders the result as YAML.
func YAML(res audit.Result) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return buf.Bytes(), nil
}

//go:embed templates/report.md templates/report.html
var templateFS embed.FS

var (
	sharedFuncs = map[string]any{
		"score":       formatScore,
		"time":        formatTimestamp,
		"title":       func(c audit.Category) string { return c.Title() },
		"severityTag": severityTag,
		"metric":      FormatMetric,
	}

	markdownTemplate = texttemplate.Must(
		texttemplate.New("report.md").Funcs(sharedFuncs).ParseFS(templateFS, "templates/report.md"),
	)
	htmlTemplate = htmltemplate.Must(
		htmltemplate.New("report.html").Funcs(htmltemplate.FuncMap(sharedFuncs)).Funcs(htmltemplate.FuncMap{
			"scoreClass": scoreClass,
		}).ParseFS(templateFS, "templates/report.html"),
	)
)

// templateData is what the markdown and HTML templates see.
type templateData struct {
	Result  audit.Result
	Scores  []audit.CategoryScore
	Metrics []metricRow
	Counts  map[audit.Severity]int
}

type metricRow struct {
	Name  string
	Value any
}

func newTemplateData(res audit.Result) templateData {
	var scores []audit.CategoryScore
	for _, cs := range res.CategoryScores() {
		if cs.Computed() {
			scores = append(scores, cs)
		}
	}
	rows := make([]metricRow, 0, len(res.Metrics))
	for _, k := range res.Metrics.Keys() {
		rows = append(rows, metricRow{Name: k, Value: res.Metrics[k]})
	}
	return templateData{
		Result:  res,
		Scores:  scores,
		Metrics: rows,
		Counts:  audit.CountBySeverity(res.Findings),
	}
}

// Markdown renders the result as a Markdown document.
func Markdown(res audit.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdownTemplate.Execute(&buf, newTemplateData(res)); err != nil {
		return nil, fmt.Errorf("failed to execute %s template: %w", markdownTemplate.Name(), err)
	}
	return buf.Bytes(), nil
}

// HTML renders the result as a standalone HTML page.
func HTML(res audit.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, newTemplateData(res)); err != nil {
		return nil, fmt.Errorf("failed to execute %s template: %w", htmlTemplate.Name(), err)
	}
	return buf.Bytes(), nil
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05 MST")
}

func severityTag(s audit.Severity) string {
	switch s {
	case audit.SeverityHigh:
		return "🔴"
	case audit.SeverityMedium:
		return "🟡"
	default:
		return "🟢"
	}
}

func scoreClass(v float64) string {
	switch {
	case v >= 80:
		return "good"
	case v >= 60:
		return "fair"
	default:
		return "poor"
	}
}

// FormatMetric renders a metric value for display.
func FormatMetric(v any) string {
	switch n := v.(type) {
	case float64:
		return fmt.Sprintf("%.4g", n)
	case float32:
		return fmt.Sprintf("%.4g", n)
	default:
		return fmt.Sprint(v)
	}
}
