package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	tests := []struct {
		name       string
		cfg        ClientConfig
		wantErr    string
		serverName string
	}{
		{name: "missing addr", cfg: ClientConfig{}, wantErr: "addr is required"},
		{
			name: "plain",
			cfg:  ClientConfig{Addr: "localhost:6379", DB: 2, PoolSize: 20, DialTimeout: 2 * time.Second},
		},
		{
			name:       "tls takes server name from addr",
			cfg:        ClientConfig{Addr: "cache.internal:6380", TLSEnabled: true},
			serverName: "cache.internal",
		},
		{
			name:    "tls needs host:port",
			cfg:     ClientConfig{Addr: "cache.internal", TLSEnabled: true},
			wantErr: `addr "cache.internal"`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts, err := options(tc.cfg)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.cfg.Addr, opts.Addr)
			assert.Equal(t, tc.cfg.DB, opts.DB)
			assert.Equal(t, tc.cfg.PoolSize, opts.PoolSize)
			assert.Equal(t, tc.cfg.DialTimeout, opts.DialTimeout)
			if tc.serverName == "" {
				assert.Nil(t, opts.TLSConfig)
				return
			}
			require.NotNil(t, opts.TLSConfig)
			assert.Equal(t, tc.serverName, opts.TLSConfig.ServerName)
		})
	}
}
