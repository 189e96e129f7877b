// Package logging provides structured logging for idrstat using zerolog.
// Loggers write console output on terminals and JSON everywhere else.
//
// Example usage:
//
//	log := logging.Default()
//	log.Info().Str("screen", "idr0001-graml-sysgro/screenA").Msg("querying screen")
//
//	ctx := logging.WithLogger(context.Background(), log)
//	logging.FromContext(ctx).Debug().Msg("using logger from context")
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// defaultLogger backs FromContext when no logger was attached.
var defaultLogger = newDefaultLogger()

// newDefaultLogger honours LOG_LEVEL and LOG_FORMAT so library code logs
// sensibly before the CLI has parsed its flags.
func newDefaultLogger() zerolog.Logger {
	cfg := DefaultConfig()
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Format = format
	}
	return NewLoggerFromConfig(cfg)
}

// Default returns the process-wide logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the process-wide logger and zerolog's global one.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
