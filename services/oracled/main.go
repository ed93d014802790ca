package oracled

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"cashchain/observability/logging"
	telemetry "cashchain/observability/otel"
	"cashchain/services/offchain"
)

// Main runs the stand-alone price poller, submitting to a remote node.
func Main() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "oracled.yaml", "path to the poller configuration")
	flag.Parse()

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	logger := logging.Setup("cash-oracled", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(ctx, telemetry.FromEnv("cash-oracled", cfg.Environment))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(shutdownCtx)
	}()

	store, err := offchain.Open(cfg.StorePath, nil)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	submitter := NewHTTPSubmitter(cfg.NodeURL, client, cfg.HTTPTimeout.Duration)
	poller := NewPoller(cfg.FeedURL, store, submitter,
		WithHTTPClient(client),
		WithInterval(cfg.PollInterval.Duration),
		WithTimeout(cfg.HTTPTimeout.Duration),
		WithLogger(logger),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", slog.Any("error", err))
		}
	}()

	logger.Info("price poller started",
		slog.String("feed", cfg.FeedURL),
		slog.String("node", cfg.NodeURL),
		slog.Duration("interval", cfg.PollInterval.Duration))
	poller.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return metricsSrv.Shutdown(shutdownCtx)
}
