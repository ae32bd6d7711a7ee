package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Mode selects the output encoding.
type Mode string

const (
	// ModeProduction emits structured JSON records.
	ModeProduction Mode = "production"
	// ModeConsole emits human-readable records for running next to the desktop shell.
	ModeConsole Mode = "console"
)

// NewLogger returns a zap logger configured for the requested level and mode.
func NewLogger(level string, mode Mode) (*zap.Logger, error) {
	var cfg zap.Config
	switch mode {
	case ModeConsole:
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
	}

	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case "warn", "warning":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

// ParseMode normalizes a configured mode string, defaulting to production.
func ParseMode(value string) Mode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(ModeConsole):
		return ModeConsole
	default:
		return ModeProduction
	}
}
