package backend

import (
	"context"

	"receipts/internal/images"
	"receipts/internal/ports"
	"receipts/internal/services"
)

// CleanupFunc releases resources acquired while building a backend.
type CleanupFunc func() error

// Backend bundles the stores the web application runs on.
type Backend struct {
	Store  ports.Store
	Images images.Store
	// Publisher is nil when receipt events are disabled.
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Backend, error)
}

type DataType string

const (
	SQLiteBackend DataType = "sqlite"
	MemoryBackend DataType = "memory"
)

func (t DataType) IsValid() bool {
	return t == SQLiteBackend || t == MemoryBackend
}

func (t DataType) String() string {
	return string(t)
}

type ImageType string

const (
	LocalImages ImageType = "local"
	GCSImages   ImageType = "gcs"
)

func (t ImageType) IsValid() bool {
	return t == LocalImages || t == GCSImages
}

// Config holds configuration for backend creation
type Config struct {
	Data         DataType
	SQLiteDBPath string

	Images    ImageType
	ImageDir  string
	GCSBucket string

	// Empty disables receipt events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}
