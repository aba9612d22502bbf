package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/thejerf/suture/v4"
	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/infra/config"
	"github.com/mhmdrz22/enginner/internal/infra/logger"
	redisinfra "github.com/mhmdrz22/enginner/internal/infra/redis"
	"github.com/mhmdrz22/enginner/internal/infra/security"
	"github.com/mhmdrz22/enginner/internal/infra/telemetry"
	redisrepo "github.com/mhmdrz22/enginner/internal/repository/redis"
	"github.com/mhmdrz22/enginner/internal/transport/http/middleware"
	"github.com/mhmdrz22/enginner/internal/transport/http/routes"
	"github.com/mhmdrz22/enginner/internal/usecase"
)

// Application owns every long-lived component of the API process.
type Application struct {
	cfg      *config.AppConfig
	logger   *zap.Logger
	tracer   *telemetry.TracerProvider
	server   *http.Server
	storage  *storage
	redis    *redisinfra.Client
	notifier *notifications
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Application) init(ctx context.Context) error {
	cfg, log := a.cfg, a.logger

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.tracer = tracer

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := telemetry.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: registry})
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	a.storage = store

	var throttle *middleware.Throttle
	if cfg.Redis.Enabled() {
		client, err := redisinfra.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		a.redis = client

		window := cfg.RateLimit.WindowDuration
		if window <= 0 {
			window = time.Minute
		}
		attempts := redisrepo.NewAttemptStore(client.Client(), redisrepo.SlidingWindowConfig{
			KeyPrefix: cfg.Redis.RateLimitPrefix,
			TTL:       window * 2,
		})
		throttle = middleware.NewThrottle(attempts, log)
	} else {
		log.Warn("redis not configured, login throttling disabled")
	}

	notifier, err := openNotifications(cfg, metrics, cfg.Worker.Embedded, log)
	if err != nil {
		return err
	}
	a.notifier = notifier

	hasher, err := newHasher(cfg.Argon2)
	if err != nil {
		return err
	}
	keys := security.RandomKeyGenerator{}

	authService, err := usecase.NewAuthService(store.users, hasher, keys, metrics, log)
	if err != nil {
		return fmt.Errorf("init auth service: %w", err)
	}

	deps := routes.Dependencies{
		Config:   cfg,
		Logger:   log,
		Throttle: throttle,
		Metrics:  httpMetrics,
		Gatherer: registry,
		Services: routes.ServiceSet{
			Auth:          authService,
			Tokens:        usecase.NewTokenService(store.tokens, store.users, keys),
			Registration:  usecase.NewRegistrationService(store.users, hasher, security.NewPasswordPolicy(), log),
			Users:         usecase.NewUserService(store.users, store.tokens, hasher, log).WithAccountTransactor(store.accounts),
			Tasks:         usecase.NewTaskService(store.tasks),
			Admin:         usecase.NewAdminService(store.overview),
			Notifications: usecase.NewNotificationService(notifier.queue, log),
		},
	}
	if store.pool != nil {
		deps.Database = store.pool
	}
	if a.redis != nil {
		deps.Cache = a.redis
	}

	engine, err := routes.Register(deps)
	if err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return nil
}

// Run serves HTTP and any in-process workers until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	defer a.Close()

	sup := newSupervisor("taskboard-api", a.cfg.App.ShutdownTimeout, a.logger)
	sup.Add(&httpService{server: a.server, shutdownTimeout: a.cfg.App.ShutdownTimeout, logger: a.logger})
	for _, w := range a.notifier.workers {
		sup.Add(w)
	}

	a.logger.Info("starting taskboard API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", a.server.Addr),
		zap.String("storage", a.cfg.Storage.Driver),
		zap.String("queue", a.cfg.Queue.Backend),
	)
	return serveSupervisor(ctx, sup)
}

// Close releases resources in reverse order of acquisition. It is safe to call more than once.
func (a *Application) Close() {
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.logger.Warn("close notification queue", zap.Error(err))
		}
		a.notifier = nil
	}
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
	if a.storage != nil {
		a.storage.Close()
		a.storage = nil
	}
	if a.tracer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("shutdown tracer", zap.Error(err))
		}
		cancel()
		a.tracer = nil
	}
	_ = a.logger.Sync()
}

func newHasher(cfg config.Argon2Settings) (*security.Argon2Hasher, error) {
	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Memory,
		Iterations:  cfg.Iterations,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("init argon2: %w", err)
	}
	return hasher, nil
}

// serveSupervisor treats a cancelled context as a clean shutdown.
func serveSupervisor(ctx context.Context, sup *suture.Supervisor) error {
	err := sup.Serve(ctx)
	if err == nil || ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}
