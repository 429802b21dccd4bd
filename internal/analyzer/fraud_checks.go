package analyzer

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/khanhnv2901/webaudit/internal/document"
	"github.com/khanhnv2901/webaudit/internal/domain/audit"
	"github.com/khanhnv2901/webaudit/internal/fetch"
	"go.uber.org/zap"
)

// SpoofedBrands are the brand names checked for impersonation.
var SpoofedBrands = []string{
	"AMAZON", "APPLE", "GOOGLE", "MICROSOFT", "PAYPAL", "FACEBOOK",
	"NETFLIX", "EBAY", "WALMART", "TARGET", "VISA", "MASTERCARD",
	"AMERICAN EXPRESS", "BANK OF AMERICA", "WELLS FARGO", "CHASE",
}

// SuspiciousAnchorPhrases mark link text commonly used by lures.
var SuspiciousAnchorPhrases = []string{
	"CLICK HERE", "FREE MONEY", "CLAIM NOW", "WIN NOW", "URGENT", "LIMITED TIME", "ACT NOW",
}

var redirectScriptPatterns = []string{
	"window.location", "document.location", "location.href", "location.replace", "location.assign",
}

const (
	highKeywordDensity = 0.10
	brandMentionLimit  = 3
	externalLinkLimit  = 20
	cloakingDiffLimit  = 0.40
)

func checkRedirects(in Input, metrics audit.Metrics) []fraudSignal {
	hops := len(in.RedirectChain)
	metrics["redirect_count"] = hops
	if hops == 0 {
		return nil
	}

	var out []fraudSignal
	if hops > in.Target.Fraud.MaxRedirects {
		out = append(out, signal(25, audit.SeverityHigh,
			fmt.Sprintf("Excessive redirects detected: %d hops", hops),
			"Review redirect chain for potential malicious behavior"))
	}

	origin := in.Target.Host()
	for _, hop := range in.RedirectChain {
		u, err := url.Parse(hop)
		if err != nil {
			continue
		}
		if u.Host != origin {
			out = append(out, signal(15, audit.SeverityMedium,
				fmt.Sprintf("Off-domain redirect detected: %s", u.Host),
				"Verify legitimacy of external redirects"))
			break
		}
	}
	return out
}

func checkScamKeywords(in Input, metrics audit.Metrics) []fraudSignal {
	text := strings.ToUpper(in.Doc.Text())
	total := len(strings.Fields(text))
	if total == 0 {
		return nil
	}

	count := 0
	var found []string
	for _, keyword := range in.Target.Fraud.ScamKeywords {
		keyword = strings.ToUpper(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}
		if n := strings.Count(text, keyword); n > 0 {
			count += n
			found = append(found, fmt.Sprintf("%s(%d)", keyword, n))
		}
	}

	density := float64(count) / float64(total)
	metrics["scam_keyword_count"] = count
	metrics["scam_keyword_density"] = math.Round(density*10000) / 10000
	metrics["total_words"] = total

	if density <= in.Target.Fraud.KeywordThreshold {
		return nil
	}

	severity, points := audit.SeverityMedium, 20.0
	if density > highKeywordDensity {
		severity, points = audit.SeverityHigh, 30.0
	}
	return []fraudSignal{signal(points, severity,
		fmt.Sprintf("High scam keyword density: %.2f%% (%d/%d)", density*100, count, total),
		"Review content for suspicious keywords: "+strings.Join(firstN(found, 5), ", "))}
}

func checkBrandSpoofing(in Input) []fraudSignal {
	allowed := make(map[string]bool, len(in.Target.Fraud.AllowedBrands))
	for _, b := range in.Target.Fraud.AllowedBrands {
		allowed[strings.ToUpper(strings.TrimSpace(b))] = true
	}

	text := strings.ToUpper(in.Doc.Text())
	title := ""
	if t, ok := in.Doc.First("title"); ok {
		title = strings.ToUpper(t.Text())
	}

	var found []string
	for _, brand := range SpoofedBrands {
		if allowed[brand] {
			continue
		}
		n := strings.Count(text, brand) + strings.Count(title, brand)
		if n >= brandMentionLimit {
			found = append(found, fmt.Sprintf("%s(%d)", brand, n))
		}
	}
	if len(found) == 0 {
		return nil
	}
	return []fraudSignal{signal(35, audit.SeverityHigh,
		"Potential brand spoofing detected: "+strings.Join(found, ", "),
		"Verify authorization to use these brand names")}
}

func checkOutboundLinks(in Input, metrics audit.Metrics) []fraudSignal {
	links := in.Doc.FindWithAttr("a", "href")
	origin := in.Target.Host()

	external := 0
	var suspicious []string
	for _, link := range links {
		href, _ := link.Attr("href")
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil || u.Host == "" || u.Host == origin {
			continue
		}
		external++

		anchor := strings.ToUpper(strings.TrimSpace(link.Text()))
		for _, phrase := range SuspiciousAnchorPhrases {
			if strings.Contains(anchor, phrase) {
				suspicious = append(suspicious, anchor)
				break
			}
		}
	}

	metrics["total_links"] = len(links)
	metrics["external_links"] = external
	metrics["suspicious_anchor_count"] = len(suspicious)

	var out []fraudSignal
	if external > externalLinkLimit {
		out = append(out, signal(15, audit.SeverityMedium,
			fmt.Sprintf("Excessive external links: %d", external),
			"Review external links for legitimacy"))
	}
	if len(suspicious) > 0 {
		out = append(out, signal(20, audit.SeverityMedium,
			fmt.Sprintf("Suspicious link text detected: %d instances", len(suspicious)),
			"Review links with suspicious text: "+strings.Join(firstN(suspicious, 3), ", ")))
	}
	return out
}

// checkCloaking fetches the target as a visitor and as a crawler and
// compares body sizes. Fetch failures contribute nothing.
func (f *FraudAnalyzer) checkCloaking(ctx context.Context, in Input) []fraudSignal {
	if f.Fetcher == nil {
		return nil
	}
	log := f.logger().With(zap.String("url", in.Target.URL))

	browser, err := f.Fetcher.Fetch(ctx, in.Target.URL, fetch.Identity{UserAgent: in.Target.UserAgent}, in.Target.Timeout)
	if err != nil {
		log.Warn("cloaking check skipped: visitor fetch failed", zap.Error(err))
		return nil
	}
	bot, err := f.Fetcher.Fetch(ctx, in.Target.URL, fetch.Identity{UserAgent: in.Target.Fraud.BotUserAgent}, in.Target.Timeout)
	if err != nil {
		log.Warn("cloaking check skipped: crawler fetch failed", zap.Error(err))
		return nil
	}

	diff, ok := sizeDifference(len(bot.Body), len(browser.Body))
	if !ok || diff <= cloakingDiffLimit {
		return nil
	}
	return []fraudSignal{signal(40, audit.SeverityHigh,
		fmt.Sprintf("Potential cloaking detected: %.1f%% content difference", diff*100),
		"Ensure same content is served to all user agents")}
}

// sizeDifference is |a-b| / max(a,b). It is undefined when either side is empty.
func sizeDifference(a, b int) (float64, bool) {
	if a <= 0 || b <= 0 {
		return 0, false
	}
	return math.Abs(float64(a-b)) / math.Max(float64(a), float64(b)), true
}

func checkScriptsAndFrames(in Input, metrics audit.Metrics) []fraudSignal {
	var out []fraudSignal

scripts:
	for _, script := range in.Doc.FindAll("script") {
		if _, external := script.Attr("src"); external {
			continue
		}
		body := strings.ToLower(script.Text())
		for _, pattern := range redirectScriptPatterns {
			if strings.Contains(body, pattern) {
				out = append(out, signal(15, audit.SeverityMedium,
					"Auto-redirect JavaScript detected",
					"Review JavaScript for malicious redirects"))
				break scripts
			}
		}
	}

	var hidden []string
	for _, frame := range in.Doc.FindAll("iframe") {
		if !isHiddenFrame(frame) {
			continue
		}
		src, ok := frame.Attr("src")
		if !ok || src == "" {
			src = "unknown"
		}
		hidden = append(hidden, src)
	}
	metrics["hidden_iframes"] = len(hidden)
	if len(hidden) > 0 {
		out = append(out, signal(25, audit.SeverityHigh,
			fmt.Sprintf("Hidden iframes detected: %d (%s)", len(hidden), strings.Join(hidden, ", ")),
			"Review hidden iframes for malicious content"))
	}
	return out
}

func isHiddenFrame(frame document.Element) bool {
	style, _ := frame.Attr("style")
	style = strings.Join(strings.Fields(strings.ToLower(style)), "")
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return true
	}
	for _, dim := range []string{"width", "height"} {
		v, _ := frame.Attr(dim)
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "0", "1", "0px", "1px":
			return true
		}
	}
	return false
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
