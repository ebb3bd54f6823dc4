// Package logging provides structured logging for lookersync using zerolog.
// Console output is used when running interactively in a terminal and JSON
// output everywhere else (the Lambda runtime, pipes, CI).
//
// Example usage:
//
//	log := logging.Default()
//	log.Info().Str("environment", "prod").Msg("Fetching snapshot")
//
//	ctx := logging.WithEnvironment(context.Background(), "dev")
//	logging.FromContext(ctx).Warn().Str("attribute", "tier").Msg("Creating missing attribute")
package logging

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var defaultLogger zerolog.Logger

func init() {
	defaultLogger = createDefaultLogger()
}

// createDefaultLogger honors LOG_LEVEL, LOG_FORMAT and DEBUG.
func createDefaultLogger() zerolog.Logger {
	level := os.Getenv("LOG_LEVEL")
	if level == "" && os.Getenv("DEBUG") != "" {
		level = "debug"
	}
	return NewLoggerFromConfig(&Config{
		Level:      level,
		Format:     getEnvOrDefault("LOG_FORMAT", "auto"),
		Output:     "stderr",
		TimeFormat: "kitchen",
		NoColor:    os.Getenv("NO_COLOR") != "",
	})
}

// Default returns the default global logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault sets the default global logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// New creates a JSON logger writing to w at the global level.
func New(w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).
		Level(zerolog.GlobalLevel()).
		With().
		Timestamp().
		Logger()
}

// Debug starts a new debug level log event.
func Debug() *zerolog.Event {
	return defaultLogger.Debug()
}

// Info starts a new info level log event.
func Info() *zerolog.Event {
	return defaultLogger.Info()
}

// Warn starts a new warning level log event.
func Warn() *zerolog.Event {
	return defaultLogger.Warn()
}

// Error starts a new error level log event.
func Error() *zerolog.Event {
	return defaultLogger.Error()
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
