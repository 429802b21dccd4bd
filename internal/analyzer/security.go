package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/khanhnv2901/webaudit/internal/domain/audit"
)

// headerRule is one required response header.
type headerRule struct {
	Name    string
	Message string
}

var requiredHeaders = []headerRule{
	{Name: "Strict-Transport-Security", Message: "HSTS header missing"},
	{Name: "X-Content-Type-Options", Message: "X-Content-Type-Options header missing"},
	{Name: "X-Frame-Options", Message: "X-Frame-Options header missing"},
	{Name: "X-XSS-Protection", Message: "X-XSS-Protection header missing"},
	{Name: "Content-Security-Policy", Message: "Content Security Policy header missing"},
}

// disclosureHeaders may leak the server software and its version.
var disclosureHeaders = []string{"Server", "X-Powered-By", "X-AspNet-Version"}

var versionPattern = regexp.MustCompile(`\d+(\.\d+)+`)

// SecurityAnalyzer checks transport security, security headers and mixed content.
type SecurityAnalyzer struct{}

func (SecurityAnalyzer) Category() audit.Category { return audit.CategorySecurity }

func (SecurityAnalyzer) Analyze(_ context.Context, in Input) Report {
	card := audit.NewScorecard(audit.CategorySecurity)
	metrics := audit.Metrics{}

	present := 0
	for _, rule := range requiredHeaders {
		if !hasAnyHeader(in.Headers, rule.Name) {
			card.Deduct(10, audit.SeverityMedium, rule.Message,
				fmt.Sprintf("Add %s header for better security", strings.ToLower(rule.Name)))
			continue
		}
		present++
	}
	metrics["security_headers_present"] = present

	if !in.Target.IsHTTPS() {
		card.Deduct(25, audit.SeverityHigh, "Site not using HTTPS", "Implement SSL/TLS encryption")
	}

	mixed := mixedContent(in)
	metrics["mixed_content_resources"] = len(mixed)
	if len(mixed) > 0 {
		card.Deduct(20, audit.SeverityHigh,
			fmt.Sprintf("%d HTTP resources on HTTPS page", len(mixed)),
			"Use HTTPS for all resources to prevent mixed content")
	}

	insecure := insecureCookies(in.Headers)
	metrics["insecure_cookies"] = len(insecure)
	if len(insecure) > 0 {
		card.Deduct(5, audit.SeverityLow,
			fmt.Sprintf("Cookies without Secure or HttpOnly flag: %s", strings.Join(insecure, ", ")),
			"Set Secure and HttpOnly on session cookies")
	}

	if csp := strings.ToLower(in.Headers.Get("Content-Security-Policy")); csp != "" {
		var weak []string
		for _, token := range []string{"'unsafe-inline'", "'unsafe-eval'"} {
			if strings.Contains(csp, token) {
				weak = append(weak, token)
			}
		}
		if len(weak) > 0 {
			card.Deduct(5, audit.SeverityLow,
				fmt.Sprintf("Content Security Policy allows %s", strings.Join(weak, " and ")),
				"Remove unsafe-inline and unsafe-eval from the Content-Security-Policy")
		}
	}

	if base, err := url.Parse(in.Target.URL); err == nil {
		metrics["third_party_scripts"] = len(thirdPartyScripts(in.Doc, base))
	}

	for _, name := range disclosureHeaders {
		value := in.Headers.Get(name)
		if value == "" || !versionPattern.MatchString(value) {
			continue
		}
		card.Deduct(5, audit.SeverityLow,
			fmt.Sprintf("%s header exposes server version: %q", name, value),
			fmt.Sprintf("Remove or obfuscate the %s header", name))
	}

	return newReport(card, audit.CategorySecurity, metrics)
}

// mixedContent lists img/script/link resources loaded over plain http.
func mixedContent(in Input) []string {
	var out []string
	for _, tag := range []string{"img", "script", "link"} {
		for _, e := range in.Doc.FindAll(tag) {
			ref, _ := e.Attr("src")
			if ref == "" {
				ref, _ = e.Attr("href")
			}
			if strings.HasPrefix(ref, "http://") {
				out = append(out, ref)
			}
		}
	}
	return out
}

// insecureCookies returns the names of cookies missing Secure or HttpOnly.
func insecureCookies(h http.Header) []string {
	var names []string
	for _, line := range h.Values("Set-Cookie") {
		cookie, err := http.ParseSetCookie(line)
		if err != nil {
			continue
		}
		if !cookie.Secure || !cookie.HttpOnly {
			names = append(names, cookie.Name)
		}
	}
	return names
}
