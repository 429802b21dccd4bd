package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/khanhnv2901/webaudit/internal/domain/audit"
)

// labelledInputTypes are the input types that need a visible label.
var labelledInputTypes = map[string]bool{
	"text":     true,
	"email":    true,
	"password": true,
	"tel":      true,
}

// AccessibilityAnalyzer checks alternative text, form labelling and keyboard navigation.
type AccessibilityAnalyzer struct{}

func (AccessibilityAnalyzer) Category() audit.Category { return audit.CategoryAccessibility }

func (AccessibilityAnalyzer) Analyze(_ context.Context, in Input) Report {
	card := audit.NewScorecard(audit.CategoryAccessibility)
	metrics := audit.Metrics{}

	if _, missing := missingAlt(in.Doc); missing > 0 {
		card.Deduct(20, audit.SeverityHigh,
			fmt.Sprintf("%d images missing alt text", missing),
			"Add descriptive alt text to all images")
	}

	labelled := map[string]bool{}
	for _, label := range in.Doc.FindWithAttr("label", "for") {
		if id, _ := label.Attr("for"); id != "" {
			labelled[id] = true
		}
	}

	inputs, unlabelled := 0, 0
	for _, input := range in.Doc.FindWithAttr("input", "type") {
		kind, _ := input.Attr("type")
		if !labelledInputTypes[strings.ToLower(strings.TrimSpace(kind))] {
			continue
		}
		inputs++
		if id, _ := input.Attr("id"); id == "" || !labelled[id] {
			unlabelled++
		}
	}
	metrics["form_inputs"] = inputs
	if unlabelled > 0 {
		card.Deduct(15, audit.SeverityHigh,
			fmt.Sprintf("%d form inputs without labels", unlabelled),
			"Associate labels with form inputs")
	}

	aria := len(in.Doc.FindWithAttr("", "aria-label"))
	metrics["aria_labels"] = aria
	if aria == 0 && inputs > 0 {
		card.Deduct(10, audit.SeverityMedium,
			"No ARIA labels found",
			"Consider adding ARIA labels for better accessibility")
	}

	if !hasSkipLink(in) {
		card.Deduct(10, audit.SeverityMedium, "No skip links found", "Add skip links for keyboard navigation")
	}

	return newReport(card, audit.CategoryAccessibility, metrics)
}

func hasSkipLink(in Input) bool {
	for _, a := range in.Doc.FindWithAttr("a", "href") {
		if href, _ := a.Attr("href"); href == "#main" || href == "#content" {
			return true
		}
	}
	return false
}
