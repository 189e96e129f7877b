// Package appcontext provides the shared application context interface
// used by all commands. Commands depend on this interface rather than the
// concrete App, which keeps them testable with MockContext.
package appcontext

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/idr/idrstat/internal/metrics"
	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/hierarchy"
)

// Interface defines the application context interface that commands need.
// The App struct from cmd/idrstat/app implements it.
type Interface interface {
	// WithSession opens one catalog session, runs fn with it and closes
	// the session on every path, including when fn fails.
	WithSession(ctx context.Context, fn func(context.Context, catalog.Session) error) error

	// Scanner returns the study tree scanner rooted at the configured root.
	Scanner() *hierarchy.Scanner

	// OpenReport opens the search-audit report sink. The returned string
	// names the target for logging.
	OpenReport(ctx context.Context) (io.WriteCloser, string, error)

	// Metrics returns the run's recorder, or nil when metrics are disabled.
	Metrics() *metrics.Recorder

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured report format (table, json, yaml).
	OutputFormat() string

	// Stdout receives reports and listings.
	Stdout() io.Writer

	// Stderr receives diagnostics such as summary lines.
	Stderr() io.Writer

	// Version returns the application version string.
	Version() string
}
