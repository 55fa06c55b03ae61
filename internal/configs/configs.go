/*
Package configs is responsible for loading and parsing the application's
configuration settings.

All settings are read from environment variables with working defaults, so the
server starts with no environment at all: the running environment, listen port,
CORS allowed origins, handshake rate limiting, and per-connection buffer sizes.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AppConfig contains all configuration parameters required for the application
// to run. All values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// ConnectRate and ConnectBurst bound the per-IP WebSocket handshake rate.
	ConnectRate  float64
	ConnectBurst int

	// MaxFrameBytes caps the size of a single inbound WebSocket frame.
	MaxFrameBytes int64

	// SendBuffer is the per-connection outbound queue length. Frames beyond a
	// full queue are dropped rather than stalling a broadcast round.
	SendBuffer int
}

// LoadConfig reads and parses the application configuration from environment
// variables, applying defaults and validating each value. It returns a pointer
// to the AppConfig struct and any error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		for _, origin := range strings.Split(originsStr, ",") {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	// --- Handshake Rate Limiting ---
	rateStr := os.Getenv("CONNECT_RATE")
	if rateStr == "" {
		rateStr = "0.2"
	}
	connectRate, err := strconv.ParseFloat(rateStr, 64)
	if err != nil || connectRate <= 0 {
		return nil, fmt.Errorf("invalid CONNECT_RATE environment variable: %q", rateStr)
	}
	cfg.ConnectRate = connectRate

	burstStr := os.Getenv("CONNECT_BURST")
	if burstStr == "" {
		burstStr = "5"
	}
	connectBurst, err := strconv.Atoi(burstStr)
	if err != nil || connectBurst <= 0 {
		return nil, fmt.Errorf("invalid CONNECT_BURST environment variable: %q", burstStr)
	}
	cfg.ConnectBurst = connectBurst

	// --- Connection Buffers ---
	frameStr := os.Getenv("MAX_FRAME_BYTES")
	if frameStr == "" {
		frameStr = "8192"
	}
	maxFrame, err := strconv.ParseInt(frameStr, 10, 64)
	if err != nil || maxFrame <= 0 {
		return nil, fmt.Errorf("invalid MAX_FRAME_BYTES environment variable: %q", frameStr)
	}
	cfg.MaxFrameBytes = maxFrame

	bufferStr := os.Getenv("SEND_BUFFER")
	if bufferStr == "" {
		bufferStr = "256"
	}
	sendBuffer, err := strconv.Atoi(bufferStr)
	if err != nil || sendBuffer <= 0 {
		return nil, fmt.Errorf("invalid SEND_BUFFER environment variable: %q", bufferStr)
	}
	cfg.SendBuffer = sendBuffer

	return cfg, nil
}
