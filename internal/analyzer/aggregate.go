package analyzer

import "github.com/khanhnv2901/webaudit/internal/domain/audit"

// Recommendation group headers.
const (
	HighPriorityHeader   = "🔴 High Priority Issues:"
	MediumPriorityHeader = "🟡 Medium Priority Issues:"
)

// maxRecommendationsPerGroup caps each severity group.
const maxRecommendationsPerGroup = 5

// Aggregate combines category scores and findings into the overall score and
// the recommendation list. Scores of zero mean "not computed" and are left
// out of the mean; with nothing computed the overall score is zero.
// Low-severity findings never produce a recommendation line.
func Aggregate(scores []float64, findings []audit.Finding) (float64, []string) {
	var sum float64
	var n int
	for _, s := range scores {
		if s > 0 {
			sum += s
			n++
		}
	}
	overall := 0.0
	if n > 0 {
		overall = audit.Clamp(sum / float64(n))
	}

	var recs []string
	recs = appendGroup(recs, HighPriorityHeader, audit.FilterBySeverity(findings, audit.SeverityHigh))
	recs = appendGroup(recs, MediumPriorityHeader, audit.FilterBySeverity(findings, audit.SeverityMedium))
	return overall, recs
}

func appendGroup(recs []string, header string, group []audit.Finding) []string {
	if len(group) == 0 {
		return recs
	}
	recs = append(recs, header)
	for i, f := range group {
		if i == maxRecommendationsPerGroup {
			break
		}
		recs = append(recs, "  • "+f.Recommendation)
	}
	return recs
}
