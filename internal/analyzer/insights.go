package analyzer

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/khanhnv2901/webaudit/internal/document"
)

// cachePolicyIssues lists weaknesses in the caching headers. They are
// reported as metrics only and do not move the performance score.
func cachePolicyIssues(h http.Header) []string {
	cacheControl := h.Get("Cache-Control")
	expires := h.Get("Expires")

	var issues []string
	switch {
	case cacheControl == "" && expires == "":
		issues = append(issues, "no Cache-Control or Expires header")
	case cacheControl == "":
		issues = append(issues, "Cache-Control header missing")
	}

	cc := strings.ToLower(cacheControl)
	if cc != "" && !strings.Contains(cc, "max-age") && !strings.Contains(cc, "no-cache") && !strings.Contains(cc, "no-store") {
		issues = append(issues, "Cache-Control lacks max-age/no-cache directives")
	}
	if strings.EqualFold(h.Get("Pragma"), "no-cache") {
		issues = append(issues, "legacy Pragma: no-cache directive")
	}
	return issues
}

// thirdPartyScripts returns the distinct external script URLs, resolved
// against base. Scripts from the page's own host are first-party.
func thirdPartyScripts(doc document.View, base *url.URL) []string {
	if base == nil {
		return nil
	}
	baseHost := strings.ToLower(base.Hostname())
	seen := make(map[string]struct{})
	var scripts []string

	for _, el := range doc.FindWithAttr("script", "src") {
		src, _ := el.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") {
			continue
		}
		u, err := base.Parse(src)
		if err != nil || u.Hostname() == "" || strings.ToLower(u.Hostname()) == baseHost {
			continue
		}
		resolved := u.String()
		if _, ok := seen[resolved]; ok {
			continue
		}
		seen[resolved] = struct{}{}
		scripts = append(scripts, resolved)
	}
	return scripts
}
