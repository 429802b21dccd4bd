package audit

// Category tags which audit dimension produced a Finding.
type Category string

const (
	CategoryPerformance   Category = "performance"
	CategorySEO           Category = "seo"
	CategoryAccessibility Category = "accessibility"
	CategorySecurity      Category = "security"
	CategoryFraud         Category = "fraud"
	CategoryMobile        Category = "mobile"
	CategoryError         Category = "error"
)

// Title returns the display name of the category.
func (c Category) Title() string {
	switch c {
	case CategoryPerformance:
		return "Performance"
	case CategorySEO:
		return "SEO"
	case CategoryAccessibility:
		return "Accessibility"
	case CategorySecurity:
		return "Security"
	case CategoryFraud:
		return "Fraud Detection"
	case CategoryMobile:
		return "Mobile"
	case CategoryError:
		return "Error"
	default:
		return string(c)
	}
}

// Severity represents how urgent a Finding is.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Rank orders severities from most to least urgent (high = 0).
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}

// Finding is one rule violation with a fix suggestion.
type Finding struct {
	Category       Category `json:"type" yaml:"type"`
	Severity       Severity `json:"severity" yaml:"severity"`
	Message        string   `json:"message" yaml:"message"`
	Recommendation string   `json:"recommendation" yaml:"recommendation"`
}

// CountBySeverity tallies findings per severity.
func CountBySeverity(findings []Finding) map[Severity]int {
	counts := make(map[Severity]int, 3)
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

// FilterBySeverity returns the findings of one severity, preserving order.
func FilterBySeverity(findings []Finding, severity Severity) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Severity == severity {
			out = append(out, f)
		}
	}
	return out
}
