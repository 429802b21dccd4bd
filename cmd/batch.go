package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/khanhnv2901/webaudit/internal/auditor"
	"github.com/khanhnv2901/webaudit/internal/domain/audit"
	"github.com/khanhnv2901/webaudit/internal/report"
	consts "github.com/khanhnv2901/webaudit/internal/shared/constants"
	"github.com/khanhnv2901/webaudit/internal/shared/security"
	"github.com/spf13/cobra"
)

type batchOptions struct {
	targetOptions
	OutputDir   string
	Format      string
	Concurrency int
	Summary     string
	Progress    bool
	Telemetry   bool
}

var batchOpts batchOptions

var batchCmd = &cobra.Command{
	Use:   "batch <url>...",
	Short: "Audit multiple websites concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args, batchOpts)
	},
}

func init() {
	batchOpts.bind(batchCmd.Flags())
	batchCmd.Flags().StringVarP(&batchOpts.OutputDir, "output-dir", "d", ".", "Directory for the per-site reports")
	batchCmd.Flags().StringVarP(&batchOpts.Format, "format", "f", string(report.FormatJSON), "Report format: json, yaml, markdown, html, pdf")
	batchCmd.Flags().IntVarP(&batchOpts.Concurrency, "concurrent", "c", consts.DefaultBatchConcurrency, "Number of concurrent audits")
	batchCmd.Flags().StringVar(&batchOpts.Summary, "summary", "", "Write an XLSX summary of the batch to this file")
	batchCmd.Flags().BoolVar(&batchOpts.Progress, "progress", true, "Show a live progress line")
	batchCmd.Flags().BoolVar(&batchOpts.Telemetry, "telemetry", true, "Append run statistics to telemetry.jsonl in the output directory")
}

// batchOutcome is what runBatch reports back for one site.
type batchOutcome struct {
	Result audit.Result
	File   string
}

func runBatch(cmd *cobra.Command, urls []string, opts batchOptions) error {
	out := cmd.OutOrStdout()

	format, err := report.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	if opts.Concurrency < 1 {
		return fmt.Errorf("--concurrent must be at least 1, got %d", opts.Concurrency)
	}

	printBanner(out)
	fmt.Fprintf(out, "🔄 Batch auditing %d websites\n", len(urls))
	fmt.Fprintf(out, "📁 Output directory: %s\n", opts.OutputDir)
	fmt.Fprintf(out, "📄 Format: %s\n", format)
	fmt.Fprintf(out, "⚡ Concurrent jobs: %d\n", opts.Concurrency)
	printRule(out, 80)

	targets := validTargets(out, urls, opts.targetOptions)
	if len(targets) == 0 {
		return errors.New("no valid URLs to audit")
	}
	if err := os.MkdirAll(opts.OutputDir, consts.DefaultDirPerm); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	log := baseLogger()
	runner := auditor.NewRunner(newAuditService(cliConfig, log), log)
	runner.Concurrency = opts.Concurrency
	runner.RateLimit = cliConfig.Batch.RateLimit

	var progress *progressPrinter
	if opts.Progress {
		progress = newProgressPrinter(out, len(targets), "audit")
		started := make([]time.Time, len(targets))
		runner.OnStart = func(i int) { started[i] = time.Now() }
		runner.OnComplete = func(i int, res audit.Result) {
			progress.Increment(!res.Failed(), secondsSince(started[i]))
		}
		progress.Start()
	}

	start := time.Now()
	results := runner.RunBatch(cmd.Context(), targets)
	elapsed := time.Since(start)
	if progress != nil {
		progress.Stop()
	}

	outcomes, err := saveBatchReports(opts.OutputDir, format, results)
	if err != nil {
		return err
	}
	successful := printBatchOutcomes(out, outcomes)

	fmt.Fprintln(out, "\n📊 Batch Audit Summary:")
	fmt.Fprintf(out, "   %s\n", colorSuccess(fmt.Sprintf("✅ Successful: %d", successful)))
	fmt.Fprintf(out, "   %s\n", colorError(fmt.Sprintf("❌ Failed: %d", len(outcomes)-successful)))
	fmt.Fprintf(out, "   📁 Reports saved to: %s\n", opts.OutputDir)

	if opts.Summary != "" {
		if err := writeSummaryFile(opts.Summary, results); err != nil {
			return err
		}
		fmt.Fprintf(out, "   📒 Summary written to: %s\n", opts.Summary)
	}

	if opts.Telemetry {
		if err := recordTelemetry(opts.OutputDir, "batch", results, elapsed); err != nil {
			log.Sugar().Warnw("failed to record telemetry", "error", err)
		}
	}
	return nil
}

// validTargets drops URLs that fail validation, warning about each one.
func validTargets(out io.Writer, urls []string, opts targetOptions) []audit.Target {
	targets := make([]audit.Target, 0, len(urls))
	for _, u := range urls {
		t := newTarget(u, cliConfig, opts)
		if err := t.Validate(); err != nil {
			fmt.Fprintln(out, colorWarn(fmt.Sprintf("⚠️  Skipping invalid URL: %s (%v)", u, err)))
			continue
		}
		targets = append(targets, t)
	}
	return targets
}

// saveBatchReports writes one report per successful result into dir.
func saveBatchReports(dir string, format report.Format, results []audit.Result) ([]batchOutcome, error) {
	outcomes := make([]batchOutcome, len(results))
	for i, res := range results {
		outcomes[i].Result = res
		if res.Failed() {
			continue
		}
		data, err := report.Render(res, format)
		if err != nil {
			return nil, fmt.Errorf("render report for %s: %w", res.URL, err)
		}
		path, err := security.ResolveWithin(dir, security.ReportFilename(res.URL, format.Extension()))
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, data, consts.DefaultFilePerm); err != nil {
			return nil, fmt.Errorf("write report for %s: %w", res.URL, err)
		}
		outcomes[i].File = path
	}
	return outcomes, nil
}

func printBatchOutcomes(out io.Writer, outcomes []batchOutcome) (successful int) {
	for _, o := range outcomes {
		if o.Result.Failed() {
			fmt.Fprintln(out, colorError(fmt.Sprintf("❌ Failed: %s - %s", o.Result.URL, o.Result.ErrorMessage())))
			continue
		}
		successful++
		fmt.Fprintln(out, colorSuccess(fmt.Sprintf("✅ %s - Score: %.1f/100", o.Result.URL, o.Result.OverallScore)))
	}
	return successful
}

func writeSummaryFile(path string, results []audit.Result) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, consts.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	if err := report.WriteBatchSummary(f, results); err != nil {
		f.Close()
		return fmt.Errorf("write summary: %w", err)
	}
	return f.Close()
}

// secondsSince is zero for targets that never started, such as those skipped
// by a cancelled batch.
func secondsSince(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return time.Since(t).Seconds()
}
