package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 3020, cfg.Server.Port)
	assert.Equal(t, 20, cfg.Broadcast.Workers)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("WEBSOCKET_ADDRESS", "127.0.0.1:9000")
	t.Setenv("AETERNAL_LOG_LEVEL", "debug")
	t.Setenv("AETERNAL_BROADCAST_WORKERS", "4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 4, cfg.Broadcast.Workers)
}

func TestLoadIgnoresMalformedAddress(t *testing.T) {
	t.Setenv("WEBSOCKET_ADDRESS", "not-an-address")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 3020, cfg.Server.Port)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }},
		{name: "no workers", mutate: func(c *Config) { c.Broadcast.Workers = 0 }},
		{name: "no queue", mutate: func(c *Config) { c.Broadcast.QueueSize = -1 }},
		{name: "no send timeout", mutate: func(c *Config) { c.Broadcast.SendTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
