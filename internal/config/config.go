package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	defaultListenAddr      = ":8080"
	defaultDBPath          = "docforge.db"
	defaultTmpRoot         = "/tmp/docforge"
	defaultEngineBin       = "libreoffice"
	defaultMaxConcurrent   = 4
	defaultConvertTimeoutS = 120
	defaultMaxUploadMB     = 50

	envListenAddr      = "DOCFORGE_LISTEN_ADDR"
	envDBPath          = "DOCFORGE_DB_PATH"
	envTmpRoot         = "DOCFORGE_TMP_ROOT"
	envEngineBin       = "DOCFORGE_ENGINE_BIN"
	envMaxConcurrent   = "DOCFORGE_MAX_CONCURRENT"
	envConvertTimeoutS = "DOCFORGE_CONVERT_TIMEOUT_S"
	envMaxUploadMB     = "DOCFORGE_MAX_UPLOAD_MB"
	envAPIKey          = "DOCFORGE_API_KEY"
	envLogLevel        = "DOCFORGE_LOG_LEVEL"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string

	// TmpRoot is the directory under which per-job workspaces are created.
	TmpRoot string

	// EngineBin is the LibreOffice binary invoked for conversions.
	EngineBin string

	// MaxConcurrent bounds simultaneously running engine invocations.
	MaxConcurrent int

	// ConvertTimeoutS is the per-job wall-clock deadline in seconds.
	ConvertTimeoutS int

	// MaxUploadMB caps the accepted request body size.
	MaxUploadMB int

	// APIKey guards the convert endpoint when non-empty. An empty key
	// leaves the endpoint open.
	APIKey string

	LogLevel slog.Level
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:      defaultListenAddr,
		DBPath:          defaultDBPath,
		TmpRoot:         defaultTmpRoot,
		EngineBin:       defaultEngineBin,
		MaxConcurrent:   defaultMaxConcurrent,
		ConvertTimeoutS: defaultConvertTimeoutS,
		MaxUploadMB:     defaultMaxUploadMB,
		LogLevel:        slog.LevelInfo,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envTmpRoot); v != "" {
		cfg.TmpRoot = v
	}
	if v := os.Getenv(envEngineBin); v != "" {
		cfg.EngineBin = v
	}
	if v := os.Getenv(envMaxConcurrent); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrent = n
		}
	}
	if v := os.Getenv(envConvertTimeoutS); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ConvertTimeoutS = n
		}
	}
	if v := os.Getenv(envMaxUploadMB); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxUploadMB = n
		}
	}
	cfg.APIKey = os.Getenv(envAPIKey)
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
