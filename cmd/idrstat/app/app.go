// Package app wires configuration, logging, the catalog session and the
// report sinks into the idrstat CLI.
package app

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/idr/idrstat/internal/appcontext"
	"github.com/idr/idrstat/internal/catalog/sqlcatalog"
	"github.com/idr/idrstat/internal/metrics"
	"github.com/idr/idrstat/internal/sink"
	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/errors"
	"github.com/idr/idrstat/pkg/hierarchy"
)

// SessionFactory opens a catalog session for the configured connection.
type SessionFactory func(ctx context.Context, config *Config) (catalog.Session, error)

// App holds the dependencies of one CLI invocation.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	fs          afero.Fs
	stdout      io.Writer
	stderr      io.Writer
	metrics     *metrics.Recorder
	sinkOpts    []sink.Option
	openSession SessionFactory
}

var _ appcontext.Interface = (*App)(nil)

// New creates an App with configuration loaded from the default sources.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version:     version,
		commit:      commit,
		date:        date,
		builtBy:     builtBy,
		fs:          afero.NewOsFs(),
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		openSession: openSQLSession,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

func openSQLSession(ctx context.Context, config *Config) (catalog.Session, error) {
	dialect, err := sqlcatalog.ParseDialect(config.CatalogDriver)
	if err != nil {
		return nil, err
	}
	sess, err := sqlcatalog.Open(ctx, dialect, config.CatalogDSN)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Version returns the version information.
func (a *App) Version() string { return a.version }

// Commit returns the git commit hash.
func (a *App) Commit() string { return a.commit }

// Date returns the build date.
func (a *App) Date() string { return a.date }

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string { return a.builtBy }

// Config returns the application configuration.
func (a *App) Config() *Config { return a.config }

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger { return a.logger }

// Metrics returns the run's recorder, nil unless a metrics file is configured.
func (a *App) Metrics() *metrics.Recorder { return a.metrics }

// OutputFormat returns the configured report format.
func (a *App) OutputFormat() string { return a.config.Format }

// Stdout returns the report writer.
func (a *App) Stdout() io.Writer { return a.stdout }

// Stderr returns the diagnostics writer.
func (a *App) Stderr() io.Writer { return a.stderr }

// Scanner returns a study tree scanner rooted at the configured root.
func (a *App) Scanner() *hierarchy.Scanner {
	return hierarchy.NewScanner(a.fs, a.config.Root)
}

// WithSession opens a catalog session, runs fn and closes the session
// whether or not fn succeeds. A close error is returned only when fn
// succeeded.
func (a *App) WithSession(ctx context.Context, fn func(context.Context, catalog.Session) error) (err error) {
	sess, err := a.openSession(ctx, a.config)
	if err != nil {
		return err
	}
	sess = metrics.InstrumentSession(sess, a.metrics)

	defer func() {
		cerr := sess.Close()
		switch {
		case cerr == nil:
		case err == nil:
			err = errors.WrapResource("close", "session", "", cerr)
		default:
			a.logger.Warn().Err(cerr).Msg("Failed to close catalog session")
		}
	}()

	a.logger.Debug().Str("driver", a.config.CatalogDriver).Msg("catalog session open")
	return fn(ctx, sess)
}

// OpenReport opens the configured search report target, a local path or
// an s3://bucket/key URL.
func (a *App) OpenReport(ctx context.Context) (io.WriteCloser, string, error) {
	target := a.config.SearchOutput
	opts := append([]sink.Option{sink.WithS3Config(sink.S3Config{
		Region:    a.config.S3Region,
		Endpoint:  a.config.S3Endpoint,
		PathStyle: a.config.S3PathStyle,
	})}, a.sinkOpts...)

	w, err := sink.New(a.fs, opts...).Create(ctx, target)
	if err != nil {
		return nil, "", err
	}
	return w, target, nil
}

// Shutdown flushes the metrics textfile when one is configured.
func (a *App) Shutdown(_ context.Context) error {
	return a.metrics.WriteTextfile(a.config.MetricsFile)
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithFs sets the filesystem scanned for studies and used for local reports.
func WithFs(fs afero.Fs) Option {
	return func(a *App) error {
		a.fs = fs
		return nil
	}
}

// WithOutput sets the report and diagnostics writers.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) error {
		a.stdout = stdout
		a.stderr = stderr
		return nil
	}
}

// WithSessionFactory replaces the SQL catalog connection.
func WithSessionFactory(f SessionFactory) Option {
	return func(a *App) error {
		a.openSession = f
		return nil
	}
}

// WithSinkOptions adds options to every report sink, such as a custom S3 client.
func WithSinkOptions(opts ...sink.Option) Option {
	return func(a *App) error {
		a.sinkOpts = append(a.sinkOpts, opts...)
		return nil
	}
}
