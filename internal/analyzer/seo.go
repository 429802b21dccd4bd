package analyzer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/khanhnv2901/webaudit/internal/document"
	"github.com/khanhnv2901/webaudit/internal/domain/audit"
)

const (
	minTitleLen       = 30
	maxTitleLen       = 60
	minDescriptionLen = 120
	maxDescriptionLen = 160
)

// SEOAnalyzer checks the head metadata and heading structure search engines read.
type SEOAnalyzer struct{}

func (SEOAnalyzer) Category() audit.Category { return audit.CategorySEO }

func (SEOAnalyzer) Analyze(_ context.Context, in Input) Report {
	card := audit.NewScorecard(audit.CategorySEO)
	metrics := audit.Metrics{}

	if title, ok := in.Doc.First("title"); !ok {
		card.Deduct(20, audit.SeverityHigh, "Missing title tag", "Add a descriptive title tag")
	} else {
		n := utf8.RuneCountInString(strings.TrimSpace(title.Text()))
		metrics["title_length"] = n
		if n < minTitleLen || n > maxTitleLen {
			card.Deduct(10, audit.SeverityMedium,
				fmt.Sprintf("Title length not optimal: %d chars", n),
				"Keep title between 30-60 characters")
		}
	}

	if desc, ok := firstWithAttrValue(in.Doc, "meta", "name", "description"); !ok {
		card.Deduct(15, audit.SeverityHigh, "Missing meta description", "Add a meta description tag")
	} else {
		content, _ := desc.Attr("content")
		n := utf8.RuneCountInString(content)
		metrics["meta_description_length"] = n
		if n < minDescriptionLen || n > maxDescriptionLen {
			card.Deduct(10, audit.SeverityMedium,
				fmt.Sprintf("Meta description length not optimal: %d chars", n),
				"Keep meta description between 120-160 characters")
		}
	}

	h1 := len(in.Doc.FindAll("h1"))
	metrics["h1_count"] = h1
	switch {
	case h1 == 0:
		card.Deduct(15, audit.SeverityHigh, "No H1 tag found", "Add an H1 tag for the main heading")
	case h1 > 1:
		card.Deduct(10, audit.SeverityMedium,
			fmt.Sprintf("Multiple H1 tags found: %d", h1),
			"Use only one H1 tag per page")
	}

	internal := 0
	for _, a := range in.Doc.FindWithAttr("a", "href") {
		href, _ := a.Attr("href")
		if !strings.HasPrefix(href, "http") && !strings.HasPrefix(href, "mailto") && !strings.HasPrefix(href, "tel") {
			internal++
		}
	}
	metrics["internal_links"] = internal

	if len(in.Doc.FindByAttr("link", "rel", "canonical")) == 0 {
		card.Deduct(10, audit.SeverityMedium,
			"Missing canonical URL",
			"Add canonical URL to prevent duplicate content")
	}

	return newReport(card, audit.CategorySEO, metrics)
}

// firstWithAttrValue returns the first element whose attribute equals value
// exactly (case-insensitive).
func firstWithAttrValue(doc document.View, tag, attr, value string) (document.Element, bool) {
	for _, e := range doc.FindWithAttr(tag, attr) {
		if v, _ := e.Attr(attr); strings.EqualFold(strings.TrimSpace(v), value) {
			return e, true
		}
	}
	return nil, false
}
