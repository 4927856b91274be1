package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/warp/returns-engine/api"
	"github.com/warp/returns-engine/config"
	"github.com/warp/returns-engine/eligibility"
	"github.com/warp/returns-engine/metrics"
	"github.com/warp/returns-engine/requests"
	"github.com/warp/returns-engine/store/sqlite"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API.

On SIGINT/SIGTERM the server stops accepting connections, waits up to 30s
for active requests, stops the policy reloader and closes the database.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "HTTP server host")
	serveCmd.Flags().Int("port", 8080, "HTTP server port")
	serveCmd.Flags().String("db", "returns.db", `SQLite database path (":memory:" for in-memory)`)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := config.NewLogger(cfg.Log, os.Stderr)

	store, err := sqlite.New(cfg.Server.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := metrics.NewPrometheus(reg)
	prom.SetPolicy(cfg.Policy)

	holder := eligibility.NewPolicyHolder(cfg.Policy)
	svc := requests.NewService(store, newEvaluator(cfg), holder)
	svc.Metrics = prom
	svc.Logger = logger

	handler := api.NewHandler(svc, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        prom,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	reloader := newReloader(cfg, holder, prom, logger)
	reloader.Start()
	defer reloader.Stop()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server starting",
		slog.String("addr", server.Addr),
		slog.String("db", cfg.Server.DBPath),
		slog.String("time_zone", cfg.Evaluation.TimeZone),
		slog.String("locale", string(cfg.Evaluation.Locale)),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-errChan:
		if ok {
			logger.Error("server failed", slog.String("error", err.Error()))
			return err
		}
		return nil
	case <-sigChan:
		logger.Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}

// newReloader re-reads the config file on the configured interval. Without
// a config file there is nothing to reload and the reloader stays disabled.
func newReloader(cfg *config.Config, holder *eligibility.PolicyHolder, prom *metrics.Prometheus, logger *slog.Logger) *api.PolicyReloader {
	path := cfg.File
	reloader := api.NewPolicyReloader(holder, func() (*eligibility.PolicyConfig, error) {
		return config.LoadPolicy(path)
	})
	reloader.Interval = cfg.Server.PolicyReloadInterval
	reloader.Enabled = path != "" && cfg.Server.PolicyReloadInterval > 0
	reloader.Metrics = prom
	reloader.Logger = logger.With(slog.String("component", "policy_reloader"))
	return reloader
}
