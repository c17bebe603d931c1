package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load decodes the TOML file at path over Defaults, loads .env if present and
// applies TRADESIM_* overrides. An empty path skips the file. The result is
// not validated; call Config.Validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites Config fields from non-empty TRADESIM_*
// variables so secrets can be injected at deploy time.
func applyEnvOverrides(cfg *Config) {
	// ── Feed ──
	setStr(&cfg.Feed.URL, "TRADESIM_FEED_URL")
	setStr(&cfg.Feed.Exchange, "TRADESIM_FEED_EXCHANGE")
	setStr(&cfg.Feed.Asset, "TRADESIM_FEED_ASSET")
	setDuration(&cfg.Feed.ReconnectDelay, "TRADESIM_FEED_RECONNECT_DELAY")

	// ── Book / models ──
	setInt(&cfg.Book.Depth, "TRADESIM_BOOK_DEPTH")
	setInt(&cfg.Models.VolatilityWindow, "TRADESIM_MODELS_VOLATILITY_WINDOW")
	setFloat64(&cfg.Models.ImpactCoefficient, "TRADESIM_MODELS_IMPACT_COEFFICIENT")
	setFloat64(&cfg.Models.RiskAversion, "TRADESIM_MODELS_RISK_AVERSION")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "TRADESIM_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "TRADESIM_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "TRADESIM_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "TRADESIM_SERVER_API_KEY")
	setFloat64(&cfg.Server.RateLimitRPS, "TRADESIM_SERVER_RATE_LIMIT_RPS")
	setInt(&cfg.Server.RateBurst, "TRADESIM_SERVER_RATE_BURST")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "TRADESIM_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "TRADESIM_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TRADESIM_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TRADESIM_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TRADESIM_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TRADESIM_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TRADESIM_REDIS_TLS_ENABLED")
	setBool(&cfg.Redis.MirrorBook, "TRADESIM_REDIS_MIRROR_BOOK")
	setDuration(&cfg.Redis.BookTTL, "TRADESIM_REDIS_BOOK_TTL")
	setInt64(&cfg.Redis.StreamMaxLen, "TRADESIM_REDIS_STREAM_MAX_LEN")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "TRADESIM_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "TRADESIM_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "TRADESIM_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TRADESIM_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TRADESIM_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TRADESIM_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TRADESIM_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TRADESIM_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "TRADESIM_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "TRADESIM_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "TRADESIM_POSTGRES_RUN_MIGRATIONS")

	// ── S3 / archive ──
	setBool(&cfg.S3.Enabled, "TRADESIM_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "TRADESIM_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TRADESIM_S3_REGION")
	setStr(&cfg.S3.Bucket, "TRADESIM_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TRADESIM_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TRADESIM_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TRADESIM_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TRADESIM_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.Archive.Interval, "TRADESIM_ARCHIVE_INTERVAL")
	setInt(&cfg.Archive.BatchSize, "TRADESIM_ARCHIVE_BATCH_SIZE")
	setStr(&cfg.Archive.Prefix, "TRADESIM_ARCHIVE_PREFIX")

	// ── Log ──
	setStr(&cfg.Log.File, "TRADESIM_LOG_FILE")
	setInt(&cfg.Log.MaxSizeMB, "TRADESIM_LOG_MAX_SIZE_MB")
	setInt(&cfg.Log.MaxBackups, "TRADESIM_LOG_MAX_BACKUPS")
	setInt(&cfg.Log.MaxAgeDays, "TRADESIM_LOG_MAX_AGE_DAYS")
	setBool(&cfg.Log.Compress, "TRADESIM_LOG_COMPRESS")

	// ── Top-level ──
	setStr(&cfg.Mode, "TRADESIM_MODE")
	setStr(&cfg.LogLevel, "TRADESIM_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the variable is
// present, non-empty and parses.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var cleaned []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) > 0 {
		*dst = cleaned
	}
}
