package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finx/internal/amqp"
	applog "finx/internal/log"
	"finx/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(applog.FieldComponent, applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	slot, err := f.openSlot(ctx, config)
	if err != nil {
		return nil, err
	}

	result := &BackendResult{Slot: slot, Cleanup: slot.Close}

	if config.AMQPURL == "" {
		return result, nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without notifications", applog.FieldError, err)
		return result, nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	result.Notifier = client
	result.Cleanup = func() error {
		return errors.Join(client.Close(), slot.Close())
	}
	return result, nil
}

func (f *DefaultFactory) openSlot(ctx context.Context, config Config) (storage.Slot, error) {
	switch config.Type {
	case MemoryBackend:
		f.logger.InfoContext(ctx, "Initialized memory backend")
		return storage.NewMemorySlot(), nil
	case BoltBackend:
		slot, err := storage.NewBoltSlot(config.BoltDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize bolt slot: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized bolt backend", "db_path", config.BoltDBPath)
		return slot, nil
	case SQLiteBackend:
		slot, err := storage.NewSQLiteSlot(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite slot: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return slot, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
