// Package config defines the tradesim configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/tradesim/internal/models"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by TRADESIM_* environment variables.
type Config struct {
	Feed     FeedConfig     `toml:"feed"`
	Book     BookConfig     `toml:"book"`
	Models   ModelsConfig   `toml:"models"`
	Server   ServerConfig   `toml:"server"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Log      LogConfig      `toml:"log"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// FeedConfig selects the L2 websocket stream.
type FeedConfig struct {
	URL            string   `toml:"url"`
	Exchange       string   `toml:"exchange"`
	Asset          string   `toml:"asset"`
	ReconnectDelay duration `toml:"reconnect_delay"`
}

// BookConfig sizes the local book.
type BookConfig struct {
	Depth int `toml:"depth"`
}

// FeeTierConfig is one row of the fee schedule.
type FeeTierConfig struct {
	Name      string  `toml:"name"`
	MinVolume float64 `toml:"min_volume"`
	MakerRate float64 `toml:"maker_rate"`
	TakerRate float64 `toml:"taker_rate"`
}

// ModelsConfig holds the pricing model parameters. An empty FeeTiers keeps
// the built-in schedule.
type ModelsConfig struct {
	VolatilityWindow  int                           `toml:"volatility_window"`
	ImpactCoefficient float64                       `toml:"impact_coefficient"`
	RiskAversion      float64                       `toml:"risk_aversion"`
	Regression        models.RegressionCoefficients `toml:"regression"`
	FeeTiers          []FeeTierConfig               `toml:"fee_tiers"`
}

// Tiers converts the configured schedule, or returns nil for the built-in
// one.
func (c ModelsConfig) Tiers() []models.FeeTier {
	if len(c.FeeTiers) == 0 {
		return nil
	}
	out := make([]models.FeeTier, len(c.FeeTiers))
	for i, t := range c.FeeTiers {
		out[i] = models.FeeTier{Name: t.Name, MinVolume: t.MinVolume, MakerRate: t.MakerRate, TakerRate: t.TakerRate}
	}
	return out
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "3s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters. An empty APIKey disables auth
// and a zero RateLimitRPS disables rate limiting.
type ServerConfig struct {
	Enabled      bool     `toml:"enabled"`
	Port         int      `toml:"port"`
	CORSOrigins  []string `toml:"cors_origins"`
	APIKey       string   `toml:"api_key"`
	RateLimitRPS float64  `toml:"rate_limit_rps"`
	RateBurst    int      `toml:"rate_burst"`
}

// RedisConfig holds Redis connection parameters for the book mirror and bus.
type RedisConfig struct {
	Enabled      bool     `toml:"enabled"`
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	PoolSize     int      `toml:"pool_size"`
	MaxRetries   int      `toml:"max_retries"`
	TLSEnabled   bool     `toml:"tls_enabled"`
	MirrorBook   bool     `toml:"mirror_book"`
	BookTTL      duration `toml:"book_ttl"`
	StreamMaxLen int64    `toml:"stream_max_len"`
}

// PostgresConfig holds the simulation audit store connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls the periodic upload of simulation results. It only
// runs when s3 is enabled.
type ArchiveConfig struct {
	Interval  duration `toml:"interval"`
	BatchSize int      `toml:"batch_size"`
	Prefix    string   `toml:"prefix"`
}

// LogConfig enables rotated file output next to stdout.
type LogConfig struct {
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Defaults returns a Config populated with the values in
// config.example.toml.
func Defaults() Config {
	return Config{
		Feed: FeedConfig{
			URL:            "wss://ws.gomarket-cpp.goquant.io/ws/l2-orderbook/okx/BTC-USDT-SWAP",
			Exchange:       "OKX",
			Asset:          "BTC-USDT-SWAP",
			ReconnectDelay: duration{3 * time.Second},
		},
		Book: BookConfig{
			Depth: 20,
		},
		Models: ModelsConfig{
			VolatilityWindow:  models.DefaultVolatilityWindow,
			ImpactCoefficient: models.DefaultImpactCoefficient,
			RiskAversion:      models.DefaultRiskAversion,
			Regression:        models.DefaultRegression(),
		},
		Server: ServerConfig{
			Enabled:      true,
			Port:         8000,
			CORSOrigins:  []string{"http://localhost:3000"},
			RateLimitRPS: 50,
			RateBurst:    100,
		},
		Redis: RedisConfig{
			Enabled:      false,
			Addr:         "localhost:6379",
			PoolSize:     20,
			MaxRetries:   3,
			MirrorBook:   true,
			BookTTL:      duration{time.Minute},
			StreamMaxLen: 10000,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "tradesim",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "tradesim-archive",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Interval:  duration{5 * time.Minute},
			BatchSize: 1000,
			Prefix:    "simulations",
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"full":   true,
	"ingest": true,
	"api":    true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: full, ingest, api)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Feed
	if mode != "api" && c.Feed.URL == "" {
		errs = append(errs, "feed: url must not be empty")
	}
	if c.Feed.Exchange == "" || c.Feed.Asset == "" {
		errs = append(errs, "feed: exchange and asset must be set")
	}
	if c.Feed.ReconnectDelay.Duration < 0 {
		errs = append(errs, "feed: reconnect_delay must not be negative")
	}

	// Book and models
	if c.Book.Depth < 1 {
		errs = append(errs, "book: depth must be >= 1")
	}
	if c.Models.VolatilityWindow < 3 {
		errs = append(errs, "models: volatility_window must be >= 3")
	}
	if c.Models.ImpactCoefficient <= 0 {
		errs = append(errs, "models: impact_coefficient must be > 0")
	}
	if c.Models.RiskAversion <= 0 {
		errs = append(errs, "models: risk_aversion must be > 0")
	}
	for i, tier := range c.Models.FeeTiers {
		if tier.Name == "" {
			errs = append(errs, fmt.Sprintf("models: fee_tiers[%d]: name must not be empty", i))
		}
		if tier.MinVolume < 0 || tier.MakerRate < 0 || tier.TakerRate < 0 {
			errs = append(errs, fmt.Sprintf("models: fee_tiers[%d]: volume and rates must not be negative", i))
		}
		if i > 0 && tier.MinVolume >= c.Models.FeeTiers[i-1].MinVolume {
			errs = append(errs, "models: fee_tiers must be ordered by min_volume, highest first")
		}
	}

	// Server
	if mode == "api" && !c.Server.Enabled {
		errs = append(errs, "server: must be enabled for mode api")
	}
	if mode != "ingest" && c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimitRPS < 0 {
			errs = append(errs, "server: rate_limit_rps must not be negative")
		}
		if c.Server.RateLimitRPS > 0 && c.Server.RateBurst < 1 {
			errs = append(errs, "server: rate_burst must be >= 1 when rate limiting is on")
		}
	}

	// Redis
	if mode == "api" && !c.Redis.Enabled {
		errs = append(errs, "redis: must be enabled for mode api")
	}
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be > 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
