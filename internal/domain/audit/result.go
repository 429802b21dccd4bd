package audit

import (
	"sort"
	"time"
)

// Metrics holds side-channel facts (numbers or strings) reported by analyzers.
type Metrics map[string]any

// Merge copies other into m, overwriting existing keys.
func (m Metrics) Merge(other Metrics) {
	for k, v := range other {
		m[k] = v
	}
}

// Keys returns the metric names in sorted order.
func (m Metrics) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ScoredCategories lists the categories that carry a score, in report order.
var ScoredCategories = []Category{
	CategoryPerformance,
	CategorySEO,
	CategoryAccessibility,
	CategorySecurity,
	CategoryFraud,
}

// CategoryScore pairs a category with its score; 0 means "not computed".
type CategoryScore struct {
	Category Category
	Score    float64
}

// Computed reports whether the category produced a real score.
func (c CategoryScore) Computed() bool {
	return c.Score > 0
}

// Result is the outcome of one audit, successful or failed.
type Result struct {
	URL                string    `json:"url" yaml:"url"`
	Timestamp          time.Time `json:"timestamp" yaml:"timestamp"`
	PerformanceScore   float64   `json:"performance_score" yaml:"performance_score"`
	SEOScore           float64   `json:"seo_score" yaml:"seo_score"`
	AccessibilityScore float64   `json:"accessibility_score" yaml:"accessibility_score"`
	SecurityScore      float64   `json:"security_score" yaml:"security_score"`
	FraudScore         float64   `json:"fraud_score" yaml:"fraud_score"`
	OverallScore       float64   `json:"overall_score" yaml:"overall_score"`
	Findings           []Finding `json:"issues" yaml:"issues"`
	Recommendations    []string  `json:"recommendations" yaml:"recommendations"`
	Metrics            Metrics   `json:"metrics" yaml:"metrics"`
}

// ErrorRecommendation is the fix suggestion attached to an error Finding.
const ErrorRecommendation = "Fix the error and try again"

// NewErrorResult builds the well-formed result of a failed audit: all scores
// zero and exactly one error Finding.
func NewErrorResult(rawURL string, at time.Time, message string) Result {
	return Result{
		URL:       rawURL,
		Timestamp: at,
		Findings: []Finding{{
			Category:       CategoryError,
			Severity:       SeverityHigh,
			Message:        message,
			Recommendation: ErrorRecommendation,
		}},
		Recommendations: []string{"Fix error: " + message},
		Metrics:         Metrics{},
	}
}

// Score returns the score recorded for a category.
func (r Result) Score(category Category) float64 {
	switch category {
	case CategoryPerformance:
		return r.PerformanceScore
	case CategorySEO:
		return r.SEOScore
	case CategoryAccessibility:
		return r.AccessibilityScore
	case CategorySecurity:
		return r.SecurityScore
	case CategoryFraud:
		return r.FraudScore
	}
	return 0
}

// SetScore records the score of a category, clamped to [0,100].
func (r *Result) SetScore(category Category, score float64) {
	score = Clamp(score)
	switch category {
	case CategoryPerformance:
		r.PerformanceScore = score
	case CategorySEO:
		r.SEOScore = score
	case CategoryAccessibility:
		r.AccessibilityScore = score
	case CategorySecurity:
		r.SecurityScore = score
	case CategoryFraud:
		r.FraudScore = score
	}
}

// CategoryScores returns every scored category in report order.
func (r Result) CategoryScores() []CategoryScore {
	scores := make([]CategoryScore, 0, len(ScoredCategories))
	for _, c := range ScoredCategories {
		scores = append(scores, CategoryScore{Category: c, Score: r.Score(c)})
	}
	return scores
}

// Failed reports whether the audit degraded to the error state: no category
// was computed and an error Finding explains why.
func (r Result) Failed() bool {
	for _, s := range r.CategoryScores() {
		if s.Computed() {
			return false
		}
	}
	return r.ErrorMessage() != ""
}

// ErrorMessage returns the message of the first error Finding, if any.
func (r Result) ErrorMessage() string {
	for _, f := range r.Findings {
		if f.Category == CategoryError {
			return f.Message
		}
	}
	return ""
}
