// Package config loads server settings from the environment and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvLogLevel      = "LSPWIRE_LOG_LEVEL"
	EnvCodec         = "LSPWIRE_CODEC"
	EnvQueueSize     = "LSPWIRE_QUEUE_SIZE"
	EnvMaxFrameBytes = "LSPWIRE_MAX_FRAME_BYTES"
)

var ErrInvalid = errors.New("invalid configuration")

// Config holds the server settings.
type Config struct {
	LogLevel slog.Level
	// Codec names the codec for outgoing frames: "json" or "cbor".
	Codec         string
	QueueSize     int
	MaxFrameBytes int
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		LogLevel:      slog.LevelInfo,
		Codec:         "json",
		QueueSize:     64,
		MaxFrameBytes: 32 << 20,
	}
}

// Load reads settings from the environment, falling back to the given .env
// files. With no files it reads .env from the working directory if present.
// A non-empty environment variable takes precedence over a file entry.
func Load(files ...string) (*Config, error) {
	fileEnv, err := godotenv.Read(files...)
	if err != nil {
		if len(files) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading env files: %w", err)
		}
		fileEnv = map[string]string{}
	}
	return parse(func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fileEnv[key]
	})
}

func parse(get func(string) string) (*Config, error) {
	cfg := Default()

	if v := get(EnvLogLevel); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, EnvLogLevel, err)
		}
	}
	if v := get(EnvCodec); v != "" {
		switch c := strings.ToLower(v); c {
		case "json", "cbor":
			cfg.Codec = c
		default:
			return nil, fmt.Errorf("%w: %s must be json or cbor, got %q", ErrInvalid, EnvCodec, v)
		}
	}
	var err error
	if cfg.QueueSize, err = positiveInt(get, EnvQueueSize, cfg.QueueSize, true); err != nil {
		return nil, err
	}
	if cfg.MaxFrameBytes, err = positiveInt(get, EnvMaxFrameBytes, cfg.MaxFrameBytes, false); err != nil {
		return nil, err
	}
	return cfg, nil
}

func positiveInt(get func(string) string, key string, def int, allowZero bool) (int, error) {
	v := get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || (n == 0 && !allowZero) {
		return 0, fmt.Errorf("%w: %s: %q is not a valid size", ErrInvalid, key, v)
	}
	return n, nil
}
