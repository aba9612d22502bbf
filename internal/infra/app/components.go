package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mhmdrz22/enginner/internal/core/port"
	"github.com/mhmdrz22/enginner/internal/infra/config"
	"github.com/mhmdrz22/enginner/internal/infra/database"
	kafkainfra "github.com/mhmdrz22/enginner/internal/infra/kafka"
	"github.com/mhmdrz22/enginner/internal/infra/mail"
	"github.com/mhmdrz22/enginner/internal/infra/queue"
	"github.com/mhmdrz22/enginner/internal/infra/telemetry"
	"github.com/mhmdrz22/enginner/internal/repository/memory"
	postgresrepo "github.com/mhmdrz22/enginner/internal/repository/postgres"
	"github.com/mhmdrz22/enginner/internal/usecase"
)

// storage is the repository set selected by storage.driver.
type storage struct {
	users    port.UserRepository
	tokens   port.TokenRepository
	tasks    port.TaskRepository
	overview port.OverviewRepository
	accounts port.AccountTransactor
	pool     *pgxpool.Pool
}

func (s *storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func openStorage(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*storage, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return &storage{
			users:    store.Users(),
			tokens:   store.Tokens(),
			tasks:    store.Tasks(),
			overview: store.Overview(),
			accounts: store.Accounts(),
		}, nil
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	if cfg.Storage.AutoMigrate {
		if err := database.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	repos := postgresrepo.NewRepositories(pool)
	return &storage{
		users:    repos.Users,
		tokens:   repos.Tokens,
		tasks:    repos.Tasks,
		overview: repos.Overview,
		accounts: repos.Accounts,
		pool:     pool,
	}, nil
}

// notifications is the job queue plus whatever must run or be closed alongside it.
type notifications struct {
	queue   port.JobQueue
	workers []namedService
	closers []func() error
}

func (n *notifications) Close() error {
	var firstErr error
	for i := len(n.closers) - 1; i >= 0; i-- {
		if err := n.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func retryPolicy(cfg config.QueueSettings) usecase.RetryPolicy {
	return usecase.RetryPolicy{MaxRetries: cfg.MaxRetries, Delay: cfg.RetryDelay}
}

// openNotifications builds the queue selected by queue.backend. With consume set the
// kafka backend also runs a consumer group in this process.
func openNotifications(cfg *config.AppConfig, metrics *telemetry.Metrics, consume bool, log *zap.Logger) (*notifications, error) {
	mailer, err := mail.New(cfg.Mail, log.Named("mail"))
	if err != nil {
		return nil, fmt.Errorf("init mailer: %w", err)
	}
	dispatcher := usecase.NewDispatcher(mailer, metrics, log.Named("dispatcher"))

	switch cfg.Queue.Backend {
	case config.QueueBackendInline:
		worker := usecase.NewNotificationWorker(retryPolicy(cfg.Queue), dispatcher, usecase.NewDeadLetterLog(metrics, log), metrics, log)
		return &notifications{queue: queue.NewInlineQueue(worker, log)}, nil

	case config.QueueBackendKafka:
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			return nil, fmt.Errorf("init kafka producer: %w", err)
		}
		publisher := kafkainfra.NewJobPublisher(producer, cfg.Kafka, cfg.App, log)
		n := &notifications{queue: publisher, closers: []func() error{producer.Close}}

		if consume {
			worker := usecase.NewNotificationWorker(retryPolicy(cfg.Queue), dispatcher, publisher, metrics, log)
			consumer, err := kafkainfra.NewNotificationConsumer(cfg.Kafka, worker, log)
			if err != nil {
				_ = n.Close()
				return nil, fmt.Errorf("init kafka consumer: %w", err)
			}
			n.workers = append(n.workers, namedService{name: "kafka-notification-consumer", serve: consumer.Serve})
			n.closers = append(n.closers, consumer.Close)
		}
		return n, nil

	default:
		mq, err := queue.NewMemoryQueue(cfg.Queue, dispatcher, usecase.NewDeadLetterLog(metrics, log), log)
		if err != nil {
			return nil, fmt.Errorf("init memory queue: %w", err)
		}
		return &notifications{
			queue:   mq,
			workers: []namedService{{name: "watermill-notification-router", serve: mq.Serve}},
			closers: []func() error{mq.Close},
		}, nil
	}
}
