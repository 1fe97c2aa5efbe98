package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/stream-level-profiler/internal/adapter/csvfile"
	"github.com/couchcryptid/stream-level-profiler/internal/adapter/excel"
	httpadapter "github.com/couchcryptid/stream-level-profiler/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/stream-level-profiler/internal/adapter/kafka"
	"github.com/couchcryptid/stream-level-profiler/internal/config"
	"github.com/couchcryptid/stream-level-profiler/internal/domain"
	"github.com/couchcryptid/stream-level-profiler/internal/observability"
	"github.com/couchcryptid/stream-level-profiler/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.Error("profiler failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	reader := csvfile.NewReader(cfg.DataDir, csvfile.Columns{
		Site:      cfg.SiteColumn,
		Timestamp: cfg.TimestampColumn,
		Value:     cfg.ValueColumn,
	}, logger)

	analyzer := pipeline.NewAnalyzer(
		domain.NewNormalizer(cfg.TimestampLayout),
		domain.NewAggregator(domain.WithWorkers(cfg.AggregateWorkers)),
		cfg.StatsPerDay,
		logger,
	)

	loaders := []pipeline.Loader{csvfile.NewWriter(cfg.ResultDir, logger)}
	if cfg.ExcelReport != "" {
		loaders = append(loaders, excel.NewWriter(cfg.ExcelReport, logger))
		logger.Info("excel report enabled", "path", cfg.ExcelReport)
	}
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		loaders = append(loaders, writer)
		logger.Info("kafka outlier alerts enabled", "topic", cfg.KafkaOutlierTopic, "brokers", cfg.KafkaBrokers)
	}

	p := pipeline.New(reader, analyzer, loaders, logger, metrics)

	var srv *httpadapter.Server
	if cfg.Serve {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	_, runErr := p.Run(ctx)

	if cfg.PushgatewayURL != "" {
		if err := observability.NewPusher(cfg.PushgatewayURL, prometheus.DefaultGatherer).Push(ctx); err != nil {
			logger.Error("metrics push failed", "error", err)
		}
	}

	if srv == nil {
		return runErr
	}
	if runErr != nil {
		logger.Error("profiling run failed; serving last known state", "error", runErr)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
	return nil
}
