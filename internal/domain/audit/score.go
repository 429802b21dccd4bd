package audit

import "math"

const (
	// MaxScore is the score every category starts from.
	MaxScore = 100.0
	// MinScore is the floor applied after deductions.
	MinScore = 0.0
)

// Clamp bounds a score to [MinScore, MaxScore].
func Clamp(score float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, score))
}

// Scorecard accumulates deductions for one category. Rules never re-add
// points and never suppress each other.
type Scorecard struct {
	category Category
	deducted float64
	findings []Finding
}

// NewScorecard starts a category at MaxScore.
func NewScorecard(category Category) *Scorecard {
	return &Scorecard{category: category}
}

// Deduct records a triggered rule and its penalty.
func (s *Scorecard) Deduct(penalty float64, severity Severity, message, recommendation string) {
	if penalty > 0 {
		s.deducted += penalty
	}
	s.findings = append(s.findings, Finding{
		Category:       s.category,
		Severity:       severity,
		Message:        message,
		Recommendation: recommendation,
	})
}

// Score returns the clamped score after all deductions.
func (s *Scorecard) Score() float64 {
	return Clamp(MaxScore - s.deducted)
}

// Deducted returns the raw sum of penalties.
func (s *Scorecard) Deducted() float64 {
	return s.deducted
}

// Findings returns a copy of the recorded findings in rule order.
func (s *Scorecard) Findings() []Finding {
	out := make([]Finding, len(s.findings))
	copy(out, s.findings)
	return out
}
