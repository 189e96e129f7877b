package logging_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/idr/idrstat/pkg/logging"
)

func TestDefaultLogger(t *testing.T) {
	original := *logging.Default()
	t.Cleanup(func() { logging.SetDefault(original) })

	buf := &bytes.Buffer{}
	logger := zerolog.New(buf).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	logging.SetDefault(logger)

	logging.Default().Info().Msg("info message")
	log.Warn().Msg("warning message")

	output := buf.String()
	if !strings.Contains(output, "info message") {
		t.Errorf("Expected info message in output, got: %s", output)
	}
	if !strings.Contains(output, "warning message") {
		t.Errorf("Expected warning message in output, got: %s", output)
	}
}

func TestContextLogger(t *testing.T) {
	testLogger := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), testLogger.Logger)
	ctx = logging.WithRunID(ctx, "run-1")
	ctx = logging.WithOperation(ctx, "screens")
	ctx = logging.WithScreen(ctx, "idr0001-study/screenA")

	logging.FromContext(ctx).Info().Msg("test message")

	testLogger.AssertContains(t, `"run_id":"run-1"`)
	testLogger.AssertContains(t, `"operation":"screens"`)
	testLogger.AssertContains(t, "idr0001-study/screenA")
	if got := logging.RunID(ctx); got != "run-1" {
		t.Errorf("RunID() = %q, want run-1", got)
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	if logging.FromContext(nil) != logging.Default() {
		t.Error("nil context should yield the default logger")
	}
	if logging.FromContext(context.Background()) != logging.Default() {
		t.Error("empty context should yield the default logger")
	}
}

func TestConfiguration(t *testing.T) {
	configs := []struct {
		name   string
		config *logging.Config
		check  func(t *testing.T, output string)
	}{
		{
			name:   "debug level",
			config: &logging.Config{Level: "debug", Format: "json", Output: "discard"},
			check: func(t *testing.T, output string) {
				if !strings.Contains(output, `"level":"debug"`) {
					t.Errorf("Expected debug level in output")
				}
			},
		},
		{
			name:   "error level only",
			config: &logging.Config{Level: "error", Format: "json", Output: "discard"},
			check: func(t *testing.T, output string) {
				if strings.Contains(output, `"level":"info"`) {
					t.Errorf("Should not contain info level when set to error")
				}
			},
		},
		{
			name: "default fields",
			config: &logging.Config{
				Level:  "info",
				Format: "json",
				Output: "discard",
				Fields: map[string]string{"component": "idrstat"},
			},
			check: func(t *testing.T, output string) {
				if !strings.Contains(output, `"component":"idrstat"`) {
					t.Errorf("Expected default field in output, got: %s", output)
				}
			},
		},
	}

	for _, tc := range configs {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := logging.NewLoggerFromConfig(tc.config).Output(buf)

			logger.Debug().Msg("debug")
			logger.Info().Msg("info")
			logger.Error().Msg("error")

			tc.check(t, buf.String())
		})
	}
}

func TestTestLogger(t *testing.T) {
	tl := logging.NewTestLogger(t)

	tl.Logger.Info().Str("value", "GFP").Msg("message 1")
	tl.Logger.Error().Msg("message 2")

	tl.AssertContains(t, "message 1")
	tl.AssertNotContains(t, "message 3")
	if tl.Count() != 2 {
		t.Errorf("Count() = %d, want 2", tl.Count())
	}

	entries := tl.Entries()
	if len(entries) != 2 || entries[0]["value"] != "GFP" {
		t.Errorf("unexpected entries: %v", entries)
	}
}
