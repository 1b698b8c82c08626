package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected  *Config
		name      string
		args      []string
		expectErr bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-d", "db", "-s", "secret", "-k", "salt", "-e", "dev",
				"-t", "60", "-r", "3600", "-v", "120",
			},
			expected: &Config{
				Env:                "dev",
				EndpointAddrHTTP:   "127.0.0.1:9090",
				DatabaseDSN:        "db",
				SecretKey:          "secret",
				PasswordSalt:       "salt",
				AccessTokenTTL:     time.Minute,
				RefreshTokenTTL:    time.Hour,
				ActivationTokenTTL: 2 * time.Minute,
			},
		},
		{
			name: "foreign flags are ignored",
			args: []string{"-c", "server.yaml", "-x", "1", "-a", ":1"},
			expected: &Config{
				EndpointAddrHTTP: ":1",
			},
		},
		{
			name:      "bad integer",
			args:      []string{"-t", "abc"},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			err := parseFlags(cfg, tt.args)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
