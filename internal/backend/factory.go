package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pranit27-debug/Expense-Tracker/internal/amqp"
	"github.com/pranit27-debug/Expense-Tracker/internal/cache"
	applog "github.com/pranit27-debug/Expense-Tracker/internal/log"
	"github.com/pranit27-debug/Expense-Tracker/internal/services"
	"github.com/pranit27-debug/Expense-Tracker/internal/storage"
	"github.com/pranit27-debug/Expense-Tracker/internal/storage/memory"
)

const cacheCleanupInterval = time.Minute

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend opens the configured store and wires the expense service around it
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := f.openRepository(config)
	if err != nil {
		return nil, err
	}

	opts := []services.Option{services.WithLogger(f.logger)}
	var cleanups []CleanupFunc

	if config.SummaryCacheSize > 0 && config.SummaryCacheTTL > 0 {
		summaries := cache.NewSummaryCache(config.SummaryCacheSize, config.SummaryCacheTTL)
		manager := cache.NewManager(f.logger)
		manager.Register(summaries)
		manager.StartCleanup(cacheCleanupInterval)
		opts = append(opts, services.WithSummaryCache(summaries))
		cleanups = append(cleanups, func() error { manager.Stop(); return nil })
	}

	var publisher *amqp.Client
	if config.AMQPURL != "" {
		publisher, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			opts = append(opts, services.WithPublisher(publisher))
			cleanups = append(cleanups, publisher.Close)
		}
	}

	svc := services.NewExpenseService(repo, opts...)
	cleanups = append(cleanups, svc.Close)

	f.logger.InfoContext(ctx, "Initialized backend",
		"type", config.Type.String(),
		"events_enabled", publisher != nil)

	return &BackendResult{
		Service:      svc,
		EventsActive: publisher != nil,
		Cleanup:      joinCleanups(cleanups),
	}, nil
}

func (f *DefaultFactory) openRepository(config Config) (storage.Repository, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Opened SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Using in-memory store")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func joinCleanups(fns []CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for i := len(fns) - 1; i >= 0; i-- {
			if err := fns[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
