// Command rentledgerd serves the rent ledger over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rentledger/internal/app"
	"rentledger/internal/auth"
	"rentledger/internal/bridge"
	"rentledger/internal/config"
	"rentledger/internal/core"
	"rentledger/internal/httpapi"
	"rentledger/internal/prefs"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "rentledgerd",
		Short:         "Rent ledger server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	root.AddCommand(serve)
	return root
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, err := bridge.OpenStore(ctx, cfg.Docstore)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	logger.Info("document store ready", zap.String("driver", string(store.Driver())))

	br := bridge.New(store, bridge.Options{
		QueueSize:    cfg.Bridge.QueueSize,
		MaxAttempts:  cfg.Bridge.MaxAttempts,
		RetryBackoff: cfg.Bridge.RetryBackoff,
		Logger:       logger.Named("bridge"),
		Metrics:      bridge.NewMetrics(registry),
	})

	service := core.NewInMemoryService(
		core.NewDefaultRulesEngine(),
		core.WithMetrics(core.NewPrometheusMetricsRecorder(registry)),
	)

	session := auth.NewManager(
		auth.NewMemoryProvider(),
		auth.WithErrorPrefix(cfg.AuthErrorPrefix),
	)

	prefStore, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		return fmt.Errorf("open prefs: %w", err)
	}

	a := app.New(service, session, br, app.Options{
		Prefs:  prefStore,
		Logger: logger.Named("app"),
	})
	a.Start()
	defer a.Stop()

	// Drain the save outcome stream so queued results never back up.
	go func() {
		for res := range a.SaveResults() {
			if res.Err != nil {
				logger.Warn("save failed",
					zap.String("user_id", res.UserID),
					zap.Int("attempts", res.Attempts),
					zap.Error(res.Err))
			}
		}
	}()

	handler := httpapi.NewServer(a, httpapi.Options{
		Logger:  logger.Named("http"),
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
