package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/khanhnv2901/webaudit/internal/domain/audit"
	"github.com/khanhnv2901/webaudit/internal/report"
	consts "github.com/khanhnv2901/webaudit/internal/shared/constants"
	"github.com/spf13/cobra"
)

const formatConsole = "console"

type auditOptions struct {
	targetOptions
	Format  string
	File    string
	Verbose bool
	Quiet   bool
}

var auditOpts auditOptions

var auditCmd = &cobra.Command{
	Use:   "audit <url>",
	Short: "Audit a website for quality issues",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAudit(cmd, args[0], auditOpts)
	},
}

func init() {
	auditOpts.bind(auditCmd.Flags())
	auditCmd.Flags().StringVarP(&auditOpts.Format, "output", "o", formatConsole, "Output format: console, json, yaml, markdown, html, pdf")
	auditCmd.Flags().StringVarP(&auditOpts.File, "file", "f", "", "Write the report to this file")
	auditCmd.Flags().BoolVarP(&auditOpts.Verbose, "verbose", "v", false, "Show every issue and the metrics table")
	auditCmd.Flags().BoolVarP(&auditOpts.Quiet, "quiet", "q", false, "Print only the overall score")
}

func runAudit(cmd *cobra.Command, rawURL string, opts auditOptions) error {
	out := cmd.OutOrStdout()

	var format report.Format
	console := strings.EqualFold(opts.Format, formatConsole)
	if !console {
		f, err := report.ParseFormat(opts.Format)
		if err != nil {
			return err
		}
		format = f
	}

	target := newTarget(rawURL, cliConfig, opts.targetOptions)
	if err := target.Validate(); err != nil {
		return &InvalidURLError{URL: rawURL, Err: err}
	}

	if !opts.Quiet && console {
		printBanner(out)
		fmt.Fprintf(out, "🔍 Auditing: %s\n", colorInfo(target.URL))
		fmt.Fprintf(out, "⏱️  Timeout: %ds\n", opts.TimeoutSecs)
		fmt.Fprintf(out, "📋 Checks: %s\n", strings.Join(enabledChecks(target.Checks), ", "))
		printRule(out, 80)
	}

	service := newAuditService(cliConfig, baseLogger())
	res := service.Audit(cmd.Context(), target)
	if res.Failed() {
		return &AuditFailedError{URL: target.URL, Message: res.ErrorMessage()}
	}

	if console {
		if opts.Quiet {
			fmt.Fprintf(out, "%.1f\n", res.OverallScore)
			return nil
		}
		fmt.Fprintln(out, colorSuccess("\n✅ Audit completed successfully!"))
		printConsoleReport(out, res, opts.Verbose)
		return nil
	}

	data, err := report.Render(res, format)
	if err != nil {
		return fmt.Errorf("render %s report: %w", format, err)
	}
	if opts.File == "" {
		_, err := out.Write(data)
		return err
	}
	if err := os.WriteFile(opts.File, data, consts.DefaultFilePerm); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if !opts.Quiet {
		fmt.Fprintf(out, "📄 Report saved to: %s\n", colorSuccess(opts.File))
	}
	return nil
}

func enabledChecks(c audit.Checks) []string {
	var names []string
	for _, cat := range []audit.Category{
		audit.CategoryPerformance, audit.CategorySEO, audit.CategoryAccessibility,
		audit.CategorySecurity, audit.CategoryMobile, audit.CategoryFraud,
	} {
		if c.Enabled(cat) {
			names = append(names, cat.Title())
		}
	}
	return names
}
