package cmd

import (
	"strconv"
	"time"

	"github.com/khanhnv2901/webaudit/internal/domain/audit"
	"github.com/khanhnv2901/webaudit/internal/mobile"
	consts "github.com/khanhnv2901/webaudit/internal/shared/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const defaultTimeoutSeconds = int(consts.DefaultTimeout / time.Second)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Defaults DefaultValues
	Fraud    audit.FraudSettings
	Batch    BatchConfig
	Scoring  ScoringConfig
	Mobile   MobileConfig
}

// DefaultValues are the per-audit defaults every command starts from.
type DefaultValues struct {
	TimeoutSecs int
	UserAgent   string
}

type BatchConfig struct {
	Concurrency int
	RateLimit   float64 // audits started per second, 0 = unlimited
}

type ScoringConfig struct {
	IncludeFraudInOverall bool
}

type MobileConfig struct {
	Enabled  bool
	SettleMS int
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Defaults: DefaultValues{
			TimeoutSecs: defaultTimeoutSeconds,
			UserAgent:   consts.DefaultUserAgent,
		},
		Fraud: audit.DefaultFraudSettings(),
		Batch: BatchConfig{
			Concurrency: consts.DefaultBatchConcurrency,
		},
		Scoring: ScoringConfig{IncludeFraudInOverall: true},
		Mobile: MobileConfig{
			Enabled:  true,
			SettleMS: int(mobile.DefaultSettle / time.Millisecond),
		},
	}
}

// loadConfigOverrides copies every key present in the config file or
// environment into cfg.
func loadConfigOverrides(v *viper.Viper, cfg *CLIConfig) {
	if v.IsSet("defaults.timeout_secs") {
		cfg.Defaults.TimeoutSecs = v.GetInt("defaults.timeout_secs")
	}
	if v.IsSet("defaults.user_agent") {
		cfg.Defaults.UserAgent = v.GetString("defaults.user_agent")
	}
	if v.IsSet("fraud.scam_keywords") {
		cfg.Fraud.ScamKeywords = v.GetStringSlice("fraud.scam_keywords")
	}
	if v.IsSet("fraud.allowed_brands") {
		cfg.Fraud.AllowedBrands = v.GetStringSlice("fraud.allowed_brands")
	}
	if v.IsSet("fraud.max_redirects") {
		cfg.Fraud.MaxRedirects = v.GetInt("fraud.max_redirects")
	}
	if v.IsSet("fraud.keyword_threshold") {
		cfg.Fraud.KeywordThreshold = v.GetFloat64("fraud.keyword_threshold")
	}
	if v.IsSet("fraud.bot_user_agent") {
		cfg.Fraud.BotUserAgent = v.GetString("fraud.bot_user_agent")
	}
	if v.IsSet("batch.concurrency") {
		cfg.Batch.Concurrency = v.GetInt("batch.concurrency")
	}
	if v.IsSet("batch.rate_limit") {
		cfg.Batch.RateLimit = v.GetFloat64("batch.rate_limit")
	}
	if v.IsSet("scoring.include_fraud_in_overall") {
		cfg.Scoring.IncludeFraudInOverall = v.GetBool("scoring.include_fraud_in_overall")
	}
	if v.IsSet("mobile.enabled") {
		cfg.Mobile.Enabled = v.GetBool("mobile.enabled")
	}
	if v.IsSet("mobile.settle_ms") {
		cfg.Mobile.SettleMS = v.GetInt("mobile.settle_ms")
	}
}

// applyConfigDefaults pushes config values into the command's flags when the
// user did not set the corresponding flag explicitly.
func applyConfigDefaults(cmd *cobra.Command, cfg *CLIConfig) {
	flags := cmd.Flags()
	setFlagIfUnset(flags, "timeout", strconv.Itoa(cfg.Defaults.TimeoutSecs))
	setFlagIfUnset(flags, "user-agent", cfg.Defaults.UserAgent)
	setFlagIfUnset(flags, "concurrent", strconv.Itoa(cfg.Batch.Concurrency))
	setFlagIfUnset(flags, "no-mobile", strconv.FormatBool(!cfg.Mobile.Enabled))
	setFlagIfUnset(flags, "exclude-fraud", strconv.FormatBool(!cfg.Scoring.IncludeFraudInOverall))
}

func setFlagIfUnset(flags *pflag.FlagSet, name, value string) {
	if flags == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	_ = flag.Value.Set(value)
}

// targetOptions are the per-invocation knobs shared by audit and batch.
type targetOptions struct {
	TimeoutSecs     int
	UserAgent       string
	NoPerformance   bool
	NoSEO           bool
	NoAccessibility bool
	NoSecurity      bool
	NoMobile        bool
	NoFraud         bool
	ExcludeFraud    bool
}

func (o *targetOptions) bind(flags *pflag.FlagSet) {
	flags.IntVarP(&o.TimeoutSecs, "timeout", "t", defaultTimeoutSeconds, "Request timeout in seconds")
	flags.StringVarP(&o.UserAgent, "user-agent", "u", consts.DefaultUserAgent, "User agent string")
	flags.BoolVar(&o.NoPerformance, "no-performance", false, "Skip performance checks")
	flags.BoolVar(&o.NoSEO, "no-seo", false, "Skip SEO checks")
	flags.BoolVar(&o.NoAccessibility, "no-accessibility", false, "Skip accessibility checks")
	flags.BoolVar(&o.NoSecurity, "no-security", false, "Skip security checks")
	flags.BoolVar(&o.NoMobile, "no-mobile", false, "Skip mobile responsiveness checks")
	flags.BoolVar(&o.NoFraud, "no-fraud", false, "Skip fraud detection checks")
	flags.BoolVar(&o.ExcludeFraud, "exclude-fraud", false, "Report the fraud score without averaging it into the overall score")
}

// newTarget builds an audit target from the loaded config and the flags.
func newTarget(rawURL string, cfg *CLIConfig, o targetOptions) audit.Target {
	t := audit.NewTarget(rawURL)
	t.Timeout = time.Duration(o.TimeoutSecs) * time.Second
	t.UserAgent = o.UserAgent
	t.Fraud = cloneFraudSettings(cfg.Fraud)
	t.Checks = audit.Checks{
		Performance:   !o.NoPerformance,
		SEO:           !o.NoSEO,
		Accessibility: !o.NoAccessibility,
		Security:      !o.NoSecurity,
		Mobile:        !o.NoMobile,
		Fraud:         !o.NoFraud,
	}
	t.IncludeFraudInOverall = !o.ExcludeFraud
	return t
}

// configTarget builds a target from the config alone, for the API server.
func configTarget(cfg *CLIConfig) func(string) audit.Target {
	return func(rawURL string) audit.Target {
		return newTarget(rawURL, cfg, targetOptions{
			TimeoutSecs:  cfg.Defaults.TimeoutSecs,
			UserAgent:    cfg.Defaults.UserAgent,
			NoMobile:     !cfg.Mobile.Enabled,
			ExcludeFraud: !cfg.Scoring.IncludeFraudInOverall,
		})
	}
}

func cloneFraudSettings(s audit.FraudSettings) audit.FraudSettings {
	s.ScamKeywords = append([]string(nil), s.ScamKeywords...)
	s.AllowedBrands = append([]string{}, s.AllowedBrands...)
	return s
}
