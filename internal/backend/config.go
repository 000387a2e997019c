package backend

import (
	"fmt"

	"receipts/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	c := Config{
		Data:         DataType(appConfig.DataBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		Images:       ImageType(appConfig.ImageBackend),
		ImageDir:     appConfig.ImageDir,
		GCSBucket:    appConfig.GCSBucket,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	return c, c.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Data.IsValid() {
		return fmt.Errorf("invalid data backend: %s", c.Data)
	}
	if c.Data == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}

	switch c.Images {
	case LocalImages:
		if c.ImageDir == "" {
			return fmt.Errorf("image directory is required for local image backend")
		}
	case GCSImages:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS bucket is required for gcs image backend")
		}
	default:
		return fmt.Errorf("invalid image backend: %s", c.Images)
	}
	return nil
}
