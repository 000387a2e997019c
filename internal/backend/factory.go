package backend

import (
	"context"
	"errors"
	"fmt"

	"receipts/internal/amqp"
	"receipts/internal/images"
	applog "receipts/internal/log"
	"receipts/internal/ports"
	"receipts/internal/storage"
	"receipts/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Default(applog.ComponentBackend)
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the record store, the image store and, when configured,
// the event publisher. On error everything opened so far is released.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Backend, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var closers []func() error
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	store, err := f.createStore(config)
	if err != nil {
		return nil, err
	}
	closers = append(closers, store.Close)

	imgs, closeImages, err := f.createImageStore(ctx, config)
	if err != nil {
		_ = cleanup()
		return nil, err
	}
	if closeImages != nil {
		closers = append(closers, closeImages)
	}

	b := &Backend{Store: store, Images: imgs}

	// AMQP is optional; a broker outage at startup must not keep the site down.
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without receipt events", applog.FieldError, err.Error())
		} else {
			b.Publisher = client
			closers = append(closers, client.Close)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	b.Cleanup = cleanup
	f.logger.InfoContext(ctx, "Initialized backend",
		"data", config.Data,
		"images", config.Images,
		"events_enabled", b.Publisher != nil)
	return b, nil
}

func (f *DefaultFactory) createStore(config Config) (ports.Store, error) {
	switch config.Data {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		f.logger.Warn("Using in-memory store; data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported data backend: %s", config.Data)
	}
}

func (f *DefaultFactory) createImageStore(ctx context.Context, config Config) (images.Store, func() error, error) {
	switch config.Images {
	case LocalImages:
		s, err := images.NewLocalStore(config.ImageDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize local image store: %w", err)
		}
		return s, nil, nil
	case GCSImages:
		s, err := images.NewGCSStore(ctx, config.GCSBucket)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize GCS image store: %w", err)
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported image backend: %s", config.Images)
	}
}
