package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/khanhnv2901/webaudit/internal/auditor"
	"github.com/khanhnv2901/webaudit/internal/fetch"
	"github.com/khanhnv2901/webaudit/internal/mobile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string
var debug bool
var logger *zap.SugaredLogger

var rootCmd = &cobra.Command{
	Use:           "webaudit",
	Short:         "Web quality auditor: performance, SEO, accessibility, security and fraud checks",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		} else {
			v.AddConfigPath("$HOME")
			v.SetConfigName(".webaudit")
			v.SetConfigType("yaml")
		}
		v.SetEnvPrefix("WEBAUDIT")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()

		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || cfgFile != "" {
				return fmt.Errorf("failed to read config: %w", err)
			}
		}

		cliConfig = newCLIConfig()
		loadConfigOverrides(v, cliConfig)
		applyConfigDefaults(cmd, cliConfig)

		l, err := newLogger(debug)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l.Sugar()
		logger.Debugw("configuration loaded", "config_file", v.ConfigFileUsed())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	// Console output belongs to the report; keep logs to warnings and up.
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func baseLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.Desugar()
}

// newAuditService builds the audit pipeline. Tests replace it with a fake.
var newAuditService = func(cfg *CLIConfig, log *zap.Logger) auditor.Service {
	fetcher := fetch.NewHTTPFetcher()
	opts := []auditor.Option{auditor.WithLogger(log)}
	if cfg.Mobile.Enabled {
		prober := mobile.NewChromeProber(cfg.Defaults.UserAgent, log)
		prober.Settle = time.Duration(cfg.Mobile.SettleMS) * time.Millisecond
		opts = append(opts, auditor.WithProber(prober, mobile.DefaultViewports))
	}
	return auditor.New(fetcher, opts...)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError(err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.webaudit.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
