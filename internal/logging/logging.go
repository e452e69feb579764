// Package logging configures the process-wide zerolog logger.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger for a binary. LOG_LEVEL and LOG_FORMAT control
// verbosity and output shape; format "console" is the development default,
// anything else emits JSON.
func New(component string) zerolog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	var w = os.Stdout
	logger := zerolog.New(w)
	if strings.ToLower(os.Getenv("LOG_FORMAT")) != "json" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().
		Timestamp().
		Str("service", "snapsight").
		Str("component", component).
		Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "", "info":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}
