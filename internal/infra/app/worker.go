package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/infra/config"
	"github.com/mhmdrz22/enginner/internal/infra/logger"
	"github.com/mhmdrz22/enginner/internal/infra/telemetry"
)

// Worker is a standalone notification consumer for the kafka queue backend.
type Worker struct {
	cfg      *config.AppConfig
	logger   *zap.Logger
	tracer   *telemetry.TracerProvider
	notifier *notifications
}

func NewWorker(ctx context.Context, cfg *config.AppConfig) (*Worker, error) {
	if cfg.Queue.Backend != config.QueueBackendKafka {
		return nil, fmt.Errorf("worker requires queue backend %q, got %q", config.QueueBackendKafka, cfg.Queue.Backend)
	}

	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	metrics, err := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	notifier, err := openNotifications(cfg, metrics, true, log)
	if err != nil {
		_ = tracer.Shutdown(ctx)
		return nil, err
	}

	return &Worker{cfg: cfg, logger: log, tracer: tracer, notifier: notifier}, nil
}

// Run consumes notification jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	defer w.close()

	sup := newSupervisor("taskboard-worker", w.cfg.App.ShutdownTimeout, w.logger)
	for _, svc := range w.notifier.workers {
		sup.Add(svc)
	}

	w.logger.Info("starting notification worker",
		zap.Strings("brokers", w.cfg.Kafka.Brokers),
		zap.String("topic", w.cfg.Kafka.NotificationsTopic()),
		zap.String("group", w.cfg.Kafka.ConsumerGroup),
	)
	return serveSupervisor(ctx, sup)
}

func (w *Worker) close() {
	if err := w.notifier.Close(); err != nil {
		w.logger.Warn("close notification consumer", zap.Error(err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.tracer.Shutdown(shutdownCtx); err != nil {
		w.logger.Warn("shutdown tracer", zap.Error(err))
	}
	_ = w.logger.Sync()
}
