package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/giygas/tpn-api/calculator"
	"github.com/giygas/tpn-api/catalog"
	"github.com/giygas/tpn-api/config"
	"github.com/giygas/tpn-api/handlers"
	"github.com/giygas/tpn-api/health"
	"github.com/giygas/tpn-api/logging"
	"github.com/giygas/tpn-api/report"
	"github.com/giygas/tpn-api/scheduler"
	"github.com/giygas/tpn-api/server"
	"github.com/giygas/tpn-api/validation"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tpn:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tpn",
		Short:         "Neonatal TPN dose calculator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(calcCmd())
	rootCmd.AddCommand(solutionsCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log at info level in the test environment")
	return cmd
}

// loadEnv reads .env from the working directory, falling back to the
// executable's directory. A missing file is not an error.
func loadEnv() {
	if err := godotenv.Load(); err == nil {
		return
	}

	ex, err := os.Executable()
	if err != nil {
		return
	}
	if err := godotenv.Load(filepath.Join(filepath.Dir(ex), ".env")); err != nil {
		slog.Debug("No .env file found, using the environment only")
	}
}

func runServer(ctx context.Context, verbose bool) error {
	loadEnv()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.InitLogger(cfg, verbose)
	defer func() {
		if err := logging.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}()

	lang, err := report.ParseLanguage(cfg.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("invalid DEFAULT_LANGUAGE: %w", err)
	}

	c := catalog.Default()
	validator := validation.NewDataValidator(c)
	healthChecker := health.NewHealthChecker(validator)
	handler := handlers.NewHTTPHandler(c, calculator.New(c), validator, healthChecker, lang)
	srv := server.NewServer(cfg, handler)

	sched := scheduler.NewScheduler(healthChecker, srv.RateLimiter(), logging.CleanupOldLogs, scheduler.Options{})
	if err := sched.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logging.Error("Server failed", "error", err)
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
