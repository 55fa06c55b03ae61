package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"ENVIRONMENT", "PORT", "ALLOWED_ORIGINS",
		"CONNECT_RATE", "CONNECT_BURST", "MAX_FRAME_BYTES", "SEND_BUFFER",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Port)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Equal(t, 0.2, cfg.ConnectRate)
	assert.Equal(t, 5, cfg.ConnectBurst)
	assert.Equal(t, int64(8192), cfg.MaxFrameBytes)
	assert.Equal(t, 256, cfg.SendBuffer)
}

func TestLoadConfigOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example , https://b.example,")
	t.Setenv("CONNECT_RATE", "2.5")
	t.Setenv("CONNECT_BURST", "10")
	t.Setenv("MAX_FRAME_BYTES", "16384")
	t.Setenv("SEND_BUFFER", "512")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 2.5, cfg.ConnectRate)
	assert.Equal(t, 10, cfg.ConnectBurst)
	assert.Equal(t, int64(16384), cfg.MaxFrameBytes)
	assert.Equal(t, 512, cfg.SendBuffer)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric port", "PORT", "eighty-eighty"},
		{"privileged port", "PORT", "80"},
		{"port out of range", "PORT", "70000"},
		{"zero connect rate", "CONNECT_RATE", "0"},
		{"garbage connect burst", "CONNECT_BURST", "lots"},
		{"negative frame size", "MAX_FRAME_BYTES", "-1"},
		{"zero send buffer", "SEND_BUFFER", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
