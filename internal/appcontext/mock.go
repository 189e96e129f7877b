package appcontext

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/idr/idrstat/internal/metrics"
	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/hierarchy"
)

// MockContext provides a mock implementation of Interface for testing.
// Each method can be customized by setting the corresponding field.
// If a field is nil, the method returns a default/zero value.
//
// Example Usage:
//
//	sess := catalogtest.NewSession()
//	mock := &appcontext.MockContext{
//	    Session:    sess,
//	    ScannerVal: hierarchy.NewScanner(afero.NewMemMapFs(), "/data"),
//	}
//	err := screens.Run(ctx, mock)
type MockContext struct {
	Session     catalog.Session
	SessionErr  error
	ScannerVal  *hierarchy.Scanner
	ReportFunc  func(ctx context.Context) (io.WriteCloser, string, error)
	Recorder    *metrics.Recorder
	LoggerFunc  func() *zerolog.Logger
	Format      string
	Out         io.Writer
	Err         io.Writer
	VersionFunc func() string
}

var _ Interface = (*MockContext)(nil)

// WithSession runs fn with the mock session and closes it afterwards.
func (m *MockContext) WithSession(ctx context.Context, fn func(context.Context, catalog.Session) error) (err error) {
	if m.SessionErr != nil {
		return m.SessionErr
	}
	defer func() {
		if cerr := m.Session.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(ctx, m.Session)
}

// Scanner returns the configured scanner.
func (m *MockContext) Scanner() *hierarchy.Scanner {
	return m.ScannerVal
}

// OpenReport uses the mock function or returns a discarding writer.
func (m *MockContext) OpenReport(ctx context.Context) (io.WriteCloser, string, error) {
	if m.ReportFunc != nil {
		return m.ReportFunc(ctx)
	}
	return nopCloser{io.Discard}, "discard", nil
}

// Metrics returns the configured recorder.
func (m *MockContext) Metrics() *metrics.Recorder {
	return m.Recorder
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *MockContext) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns the configured format or "table".
func (m *MockContext) OutputFormat() string {
	if m.Format != "" {
		return m.Format
	}
	return "table"
}

// Stdout returns Out or io.Discard.
func (m *MockContext) Stdout() io.Writer {
	if m.Out != nil {
		return m.Out
	}
	return io.Discard
}

// Stderr returns Err or io.Discard.
func (m *MockContext) Stderr() io.Writer {
	if m.Err != nil {
		return m.Err
	}
	return io.Discard
}

// Version returns version using the mock function or "dev".
func (m *MockContext) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
