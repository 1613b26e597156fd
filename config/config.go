package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Server struct {
		Port string `env:"PORT" envDefault:"5250"`

		// Comma separated list of allowed CORS origins
		CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	}

	Database struct {
		Path string `env:"DB_PATH" envDefault:"database/rents.db"`
	}

	Logging struct {
		Level string `env:"LOG_LEVEL" envDefault:"info"`

		// Optional file that receives a rotated copy of the log
		File       string `env:"LOG_FILE"`
		MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"10"`
		MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
		MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`
	}

	Geocoding struct {
		BaseURL   string `env:"GEOCODER_URL" envDefault:"https://nominatim.openstreetmap.org/search"`
		CacheDir  string `env:"GEOCODER_CACHE_DIR"`
		UserAgent string `env:"GEOCODER_USER_AGENT" envDefault:"RentStats Region Analyzer/1.0"`

		// Request timeout in seconds
		Timeout int `env:"GEOCODER_TIMEOUT" envDefault:"10"`
	}

	Regions struct {
		// YAML file with the regions that are precomputed and ranked
		File string `env:"REGIONS_FILE" envDefault:"config/regions.yaml"`

		// Minutes between scheduled store reloads and region recomputation
		RefreshInterval int `env:"REFRESH_INTERVAL" envDefault:"60"`

		// Number of snapshots kept per region
		HistorySize int `env:"REGION_HISTORY" envDefault:"48"`
	}

	// BatchProcessing configuration
	BatchProcessing struct {
		// Maximum number of listings accepted in one ingestion batch
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Number of batches the ingestion queue buffers
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"64"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Regions.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %d", c.Regions.RefreshInterval)
	}
	if c.Regions.HistorySize <= 0 {
		return fmt.Errorf("region history size must be positive, got %d", c.Regions.HistorySize)
	}
	if c.BatchProcessing.MaxBatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchProcessing.MaxBatchSize)
	}
	if c.BatchProcessing.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive, got %d", c.BatchProcessing.QueueSize)
	}
	if c.BatchProcessing.MaxRetries < 0 || c.BatchProcessing.RetryDelay < 0 {
		return fmt.Errorf("batch retries and retry delay must not be negative")
	}
	if c.Geocoding.Timeout <= 0 {
		return fmt.Errorf("geocoder timeout must be positive, got %d", c.Geocoding.Timeout)
	}
	return nil
}
