package audit

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	consts "github.com/khanhnv2901/webaudit/internal/shared/constants"
	apperrors "github.com/khanhnv2901/webaudit/internal/shared/errors"
)

// DefaultScamKeywords are the phrases counted by the scam-keyword density check.
var DefaultScamKeywords = []string{
	"FREE", "URGENT", "WINNER", "GIVEAWAY", "ACT NOW", "LIMITED TIME",
	"CONGRATULATIONS", "CLAIM NOW", "INSTANT", "GUARANTEED", "RISK FREE",
	"AMAZING DEAL", "ONCE IN A LIFETIME", "EXCLUSIVE OFFER", "CLICK HERE",
}

const (
	DefaultMaxRedirects     = 3
	DefaultKeywordThreshold = 0.05
)

// Checks toggles the audit dimensions.
type Checks struct {
	Performance   bool `json:"performance" yaml:"performance"`
	SEO           bool `json:"seo" yaml:"seo"`
	Accessibility bool `json:"accessibility" yaml:"accessibility"`
	Security      bool `json:"security" yaml:"security"`
	Mobile        bool `json:"mobile" yaml:"mobile"`
	Fraud         bool `json:"fraud" yaml:"fraud"`
}

// AllChecks enables every dimension.
func AllChecks() Checks {
	return Checks{Performance: true, SEO: true, Accessibility: true, Security: true, Mobile: true, Fraud: true}
}

// Enabled reports whether the scored category is switched on.
func (c Checks) Enabled(category Category) bool {
	switch category {
	case CategoryPerformance:
		return c.Performance
	case CategorySEO:
		return c.SEO
	case CategoryAccessibility:
		return c.Accessibility
	case CategorySecurity:
		return c.Security
	case CategoryFraud:
		return c.Fraud
	case CategoryMobile:
		return c.Mobile
	}
	return false
}

// FraudSettings holds the tunable thresholds of the fraud analyzer.
type FraudSettings struct {
	ScamKeywords     []string `json:"scam_keywords" yaml:"scam_keywords"`
	KeywordThreshold float64  `json:"scam_keyword_threshold" yaml:"scam_keyword_threshold"`
	MaxRedirects     int      `json:"max_redirects" yaml:"max_redirects"`
	AllowedBrands    []string `json:"allowed_brands" yaml:"allowed_brands"`
	BotUserAgent     string   `json:"bot_user_agent" yaml:"bot_user_agent"`
}

// DefaultFraudSettings returns the stock thresholds.
func DefaultFraudSettings() FraudSettings {
	keywords := make([]string, len(DefaultScamKeywords))
	copy(keywords, DefaultScamKeywords)
	return FraudSettings{
		ScamKeywords:     keywords,
		KeywordThreshold: DefaultKeywordThreshold,
		MaxRedirects:     DefaultMaxRedirects,
		AllowedBrands:    []string{},
		BotUserAgent:     consts.BotUserAgent,
	}
}

// Target describes one audit. It is passed by value and must not be
// modified once an audit has started.
type Target struct {
	URL       string        `json:"url" yaml:"url"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
	UserAgent string        `json:"user_agent" yaml:"user_agent"`
	Checks    Checks        `json:"checks" yaml:"checks"`
	Fraud     FraudSettings `json:"fraud" yaml:"fraud"`
	// IncludeFraudInOverall averages the fraud score into the overall score.
	IncludeFraudInOverall bool `json:"include_fraud_in_overall" yaml:"include_fraud_in_overall"`
}

// NewTarget builds a Target with every default applied.
func NewTarget(rawURL string) Target {
	return Target{
		URL:                   strings.TrimSpace(rawURL),
		Timeout:               consts.DefaultTimeout,
		UserAgent:             consts.DefaultUserAgent,
		Checks:                AllChecks(),
		Fraud:                 DefaultFraudSettings(),
		IncludeFraudInOverall: true,
	}
}

// Validate checks that the target can be audited.
func (t Target) Validate() error {
	if t.URL == "" {
		return apperrors.ErrEmptyURL
	}
	u, err := url.Parse(t.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidTarget, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return apperrors.ErrUnsupportedScheme
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", apperrors.ErrInvalidTarget, t.URL)
	}
	if t.Timeout <= 0 {
		return apperrors.ErrInvalidTimeout
	}
	if t.Fraud.KeywordThreshold < 0 || t.Fraud.KeywordThreshold > 1 {
		return apperrors.ErrInvalidThreshold
	}
	return nil
}

// Host returns the host[:port] of the target URL, or "" if it cannot be parsed.
func (t Target) Host() string {
	u, err := url.Parse(t.URL)
	if err != nil {
		return ""
	}
	return u.Host
}

// IsHTTPS reports whether the target is served over TLS.
func (t Target) IsHTTPS() bool {
	return strings.HasPrefix(strings.ToLower(t.URL), "https://")
}
