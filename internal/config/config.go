package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// HTTP Server
	Port           string        `yaml:"port"`
	CookieSecure   bool          `yaml:"cookie_secure"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	RateLimitRPM   int           `yaml:"rate_limit_rpm"`
	TrustedProxies []string      `yaml:"trusted_proxies"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Storage
	DataBackend  string `yaml:"data_backend"`
	SQLiteDBPath string `yaml:"sqlite_db_path"`

	// Images
	ImageBackend string `yaml:"image_backend"`
	ImageDir     string `yaml:"image_dir"`
	GCSBucket    string `yaml:"gcs_bucket"`

	// Reports
	ReportLookbackDays int           `yaml:"report_lookback_days"`
	ReportCacheSize    int           `yaml:"report_cache_size"`
	ReportCacheTTL     time.Duration `yaml:"report_cache_ttl"`

	// AMQP; an empty URL disables receipt events
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// Google Sheets mirror (worker)
	GoogleSpreadsheetID string `yaml:"google_spreadsheet_id"`
	GoogleSheetName     string `yaml:"google_sheet_name"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:               "8080",
		SessionTTL:         14 * 24 * time.Hour,
		RateLimitRPM:       120,
		LogLevel:           "info",
		DataBackend:        "sqlite",
		SQLiteDBPath:       "./data/receipts.db",
		ImageBackend:       "local",
		ImageDir:           "./data/images",
		ReportLookbackDays: 180,
		ReportCacheSize:    256,
		ReportCacheTTL:     2 * time.Minute,
		AMQPExchange:       "receipts",
		AMQPQueue:          "receipt_events",
		GoogleSheetName:    "Receipts",
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.MergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// MergeFile overlays the keys present in a YAML file.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.CookieSecure = getEnvBool("COOKIE_SECURE", c.CookieSecure)
	c.SessionTTL = getEnvDuration("SESSION_TTL", c.SessionTTL)
	c.RateLimitRPM = getEnvInt("RATE_LIMIT_RPM", c.RateLimitRPM)
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		c.TrustedProxies = splitList(v)
	}
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)

	c.ImageBackend = getEnv("IMAGE_BACKEND", c.ImageBackend)
	c.ImageDir = getEnv("IMAGE_DIR", c.ImageDir)
	c.GCSBucket = getEnv("GCS_BUCKET", c.GCSBucket)

	c.ReportLookbackDays = getEnvInt("REPORT_LOOKBACK_DAYS", c.ReportLookbackDays)
	c.ReportCacheSize = getEnvInt("REPORT_CACHE_SIZE", c.ReportCacheSize)
	c.ReportCacheTTL = getEnvDuration("REPORT_CACHE_TTL", c.ReportCacheTTL)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", c.GoogleSheetName)
}

// Validate checks the web application settings and reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	switch c.ImageBackend {
	case "local":
		if c.ImageDir == "" {
			errors = append(errors, "image directory cannot be empty when using local image backend")
		}
	case "gcs":
		if c.GCSBucket == "" {
			errors = append(errors, "GCS_BUCKET is required when using gcs image backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid image backend '%s': must be one of [local gcs]", c.ImageBackend))
	}

	if c.ReportLookbackDays < 1 || c.ReportLookbackDays > 3660 {
		errors = append(errors, fmt.Sprintf("invalid report lookback %d: must be between 1 and 3660 days", c.ReportLookbackDays))
	}
	if c.ReportCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid report cache size %d: must be at least 1", c.ReportCacheSize))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}

	errors = append(errors, c.amqpErrors()...)

	return combine(errors)
}

// ValidateWorker checks the settings the sheets mirror worker needs.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the worker")
	}
	errors = append(errors, c.amqpErrors()...)
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "GOOGLE_SHEET_NAME is required for the worker")
	}
	if c.DataBackend != "sqlite" || c.SQLiteDBPath == "" {
		errors = append(errors, "the worker reads receipts from sqlite: set DATA_BACKEND=sqlite and SQLITE_DB_PATH")
	}
	return combine(errors)
}

func (c *Config) amqpErrors() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errors
}

func combine(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
