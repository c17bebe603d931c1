package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "wss://ws.gomarket-cpp.goquant.io/ws/l2-orderbook/okx/BTC-USDT-SWAP", cfg.Feed.URL)
	assert.Equal(t, 3*time.Second, cfg.Feed.ReconnectDelay.Duration)
	assert.Equal(t, 20, cfg.Book.Depth)
	assert.Nil(t, cfg.Models.Tiers())
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	var cfg Config
	_, err := toml.DecodeFile(filepath.Join("..", "..", "config.example.toml"), &cfg)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "ingest"
log_level = "debug"

[feed]
asset = "ETH-USDT-SWAP"
reconnect_delay = "500ms"

[book]
depth = 50

[models.regression]
slippage_intercept = 0.02

[[models.fee_tiers]]
name = "vip"
min_volume = 1000
taker_rate = 0.0002

[[models.fee_tiers]]
name = "base"
min_volume = 0
taker_rate = 0.001
`), 0o600))

	t.Setenv("TRADESIM_BOOK_DEPTH", "30")
	t.Setenv("TRADESIM_SERVER_CORS_ORIGINS", " http://a , ,http://b")
	t.Setenv("TRADESIM_REDIS_BOOK_TTL", "not-a-duration")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "ingest", cfg.Mode)
	assert.Equal(t, "ETH-USDT-SWAP", cfg.Feed.Asset)
	assert.Equal(t, "OKX", cfg.Feed.Exchange)
	assert.Equal(t, 500*time.Millisecond, cfg.Feed.ReconnectDelay.Duration)
	assert.Equal(t, 30, cfg.Book.Depth)
	assert.Equal(t, 0.02, cfg.Models.Regression.SlippageIntercept)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.CORSOrigins)
	assert.Equal(t, time.Minute, cfg.Redis.BookTTL.Duration)

	tiers := cfg.Models.Tiers()
	require.Len(t, tiers, 2)
	assert.Equal(t, "vip", tiers[0].Name)
	assert.Equal(t, 0.0002, tiers[0].TakerRate)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Book.Depth = 0
	cfg.Server.Port = 70000
	cfg.Postgres.Enabled = true
	cfg.Postgres.PoolMaxConns = 0

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown mode "trade"`)
	assert.Contains(t, msg, "book: depth must be >= 1")
	assert.Contains(t, msg, "server: port must be 1-65535")
	assert.Contains(t, msg, "postgres: pool_max_conns must be >= 1")
}

func TestValidateModeRules(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "api needs the server",
			mutate: func(c *Config) {
				c.Mode = "api"
				c.Redis.Enabled = true
				c.Server.Enabled = false
			},
			wantErr: "server: must be enabled for mode api",
		},
		{
			name:    "api needs redis",
			mutate:  func(c *Config) { c.Mode = "api" },
			wantErr: "redis: must be enabled for mode api",
		},
		{
			name: "api without feed url is fine",
			mutate: func(c *Config) {
				c.Mode = "api"
				c.Redis.Enabled = true
				c.Feed.URL = ""
			},
		},
		{
			name: "ingest needs feed url",
			mutate: func(c *Config) {
				c.Mode = "ingest"
				c.Feed.URL = ""
			},
			wantErr: "feed: url must not be empty",
		},
		{
			name: "unordered fee tiers",
			mutate: func(c *Config) {
				c.Models.FeeTiers = []FeeTierConfig{{Name: "a", MinVolume: 0}, {Name: "b", MinVolume: 10}}
			},
			wantErr: "highest first",
		},
		{
			name: "rate limit without burst",
			mutate: func(c *Config) {
				c.Server.RateLimitRPS = 5
				c.Server.RateBurst = 0
			},
			wantErr: "rate_burst",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Server.APIKey = "key"
	cfg.Postgres.Password = "pw"
	cfg.S3.SecretKey = "secret"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Equal(t, "***", out.Postgres.Password)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Empty(t, out.Redis.Password)
	assert.Equal(t, "key", cfg.Server.APIKey)

	out.Server.CORSOrigins[0] = "mutated"
	assert.Equal(t, "http://localhost:3000", cfg.Server.CORSOrigins[0])
}
