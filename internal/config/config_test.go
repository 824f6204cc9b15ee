package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	var (
		addr = "localhost:8080"
		dsn  = "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"
		key  = "c29tZV9zZWNyZXQ="
		hash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
		orig = []string{"http://localhost:3000"}
	)

	tcases := []struct {
		name string
		addr string
		dsn  string
		key  string
		hash string
		orig []string
		err  bool
	}{
		{
			name: "valid config",
			addr: addr,
			dsn:  dsn,
			key:  key,
			hash: hash,
			orig: orig,
			err:  false,
		},
		{
			name: "empty address",
			addr: "",
			dsn:  dsn,
			key:  key,
			hash: hash,
			orig: orig,
			err:  true,
		},
		{
			name: "empty DSN",
			addr: addr,
			dsn:  "",
			key:  key,
			hash: hash,
			orig: orig,
			err:  true,
		},
		{
			name: "empty signing key",
			addr: addr,
			dsn:  dsn,
			key:  "",
			hash: hash,
			orig: orig,
			err:  true,
		},
		{
			name: "empty admin password hash",
			addr: addr,
			dsn:  dsn,
			key:  key,
			hash: "",
			orig: orig,
			err:  true,
		},
		{
			name: "invalid base64 signing key",
			addr: addr,
			dsn:  dsn,
			key:  "not-base64!!!",
			hash: hash,
			orig: orig,
			err:  true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.addr, tc.dsn, tc.key, tc.hash, tc.orig)
			if tc.err {
				assert.Error(t, err, "expected error creating config")
				assert.Nil(t, cfg, "expected nil config on error")
				return
			}

			assert.NoError(t, err, "expected no error creating config")
			assert.Equal(t, tc.addr, cfg.ServerAddr, "expected server address to be set")
			assert.Equal(t, tc.dsn, cfg.DatabaseDSN, "expected DSN to be set")
			assert.NotEmpty(t, cfg.SigningKey, "expected signing key to be decoded")
			assert.Equal(t, tc.hash, cfg.AdminPasswordHash, "expected admin password hash to be set")
			assert.Equal(t, tc.orig, cfg.AllowedOrigins, "expected allowed origins to be set")
			assert.Equal(t, defaultReapInterval, cfg.ReapInterval, "expected default reap interval")
			assert.Equal(t, defaultStaleAfter, cfg.StaleAfter, "expected default stale threshold")
		})
	}
}
