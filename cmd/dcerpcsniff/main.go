// This app sniffs DCE/RPC connection-oriented traffic from a live
// interface or an offline pcap file and exposes Prometheus metrics about
// the BIND/ALTER_CONTEXT interfaces and REQUEST opnums it observes.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mellowdrifter/dcerpcsniff/internal/capture"
	"github.com/mellowdrifter/dcerpcsniff/internal/config"
	"github.com/mellowdrifter/dcerpcsniff/internal/logging"
	"github.com/mellowdrifter/dcerpcsniff/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{Addr: cfg.ListenMetrics, Handler: mux}

	go func() {
		logger.Infof("metrics listening on %s", cfg.ListenMetrics)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("metrics server failed: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := capture.Run(ctx, cfg, logger, m); err != nil && err != context.Canceled {
			logger.Errorf("capture loop exited: %v", err)
		}
		cancel()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Infof("signal received: %s, shutting down gracefully...", sig)
	case <-ctx.Done():
		logger.Warn("capture loop ended on its own, shutting down")
	}

	cancel()
	if err := metricsSrv.Close(); err != nil {
		logger.Errorf("metrics server shutdown error: %v", err)
	}
	logger.Info("dcerpcsniff shut down cleanly")
}
