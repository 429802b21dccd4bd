package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khanhnv2901/webaudit/internal/api"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	Addr            string
	AuthToken       string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	RateLimit       int
	RateBurst       int
	MaxJobs         int
}

var serveOpts serveOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the auditor as a REST API service",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		log := baseLogger()

		server := newAPIServer(serveOpts)
		defer server.Close()

		httpServer := &http.Server{
			Addr:              serveOpts.Addr,
			Handler:           server,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Fprintf(out, "%s API server listening on %s\n", colorInfo("→"), serveOpts.Addr)
			fmt.Fprintf(out, "%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Fprintf(out, "\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)

			ctx, cancel := context.WithTimeout(context.Background(), serveOpts.ShutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				log.Sugar().Errorw("graceful shutdown failed", "error", err)
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}
			fmt.Fprintf(out, "%s Server shutdown complete\n", colorInfo("✓"))
		}
		return nil
	},
}

// newAPIServer wires the audit pipeline and the loaded config into the API.
func newAPIServer(opts serveOptions) *api.Server {
	log := baseLogger()
	jobs := api.NewJobManager()
	jobs.SetMaxJobs(opts.MaxJobs)

	return api.NewServer(api.Config{
		Auditor:          newAuditService(cliConfig, log),
		Jobs:             jobs,
		NewTarget:        configTarget(cliConfig),
		BatchConcurrency: cliConfig.Batch.Concurrency,
		BatchRateLimit:   cliConfig.Batch.RateLimit,
		Version:          Version,
		AuthToken:        opts.AuthToken,
		Logger:           log,
		CORSOrigins:      opts.CORSOrigins,
		RateLimit:        opts.RateLimit,
		RateBurst:        opts.RateBurst,
	})
}

func init() {
	serveCmd.Flags().StringVar(&serveOpts.Addr, "addr", "127.0.0.1:8000", "Address for the API server")
	serveCmd.Flags().StringVar(&serveOpts.AuthToken, "auth-token", "", "Optional shared secret for API requests (X-Auth-Token)")
	serveCmd.Flags().DurationVar(&serveOpts.ShutdownTimeout, "shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	serveCmd.Flags().StringSliceVar(&serveOpts.CORSOrigins, "cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	serveCmd.Flags().IntVar(&serveOpts.RateLimit, "rate-limit", 10, "Rate limit per IP (requests/second, 0 = disabled)")
	serveCmd.Flags().IntVar(&serveOpts.RateBurst, "rate-burst", 20, "Rate limit burst size")
	serveCmd.Flags().IntVar(&serveOpts.MaxJobs, "max-jobs", api.DefaultMaxJobs, "Number of jobs kept in memory")
}
