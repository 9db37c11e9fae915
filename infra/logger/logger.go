package logger

import (
	"strings"

	"github.com/rs/zerolog"

	corelogger "github.com/kilianp07/stationrisk/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.NopLogger

// New returns a Logger for the given component. The environment is detected via
// the APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}

// SetLevel sets the global minimum level ("debug", "info", "warn", "error").
// Unknown values leave the level untouched.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return
	}
	zerolog.SetGlobalLevel(lvl)
}
