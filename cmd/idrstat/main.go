// Package main provides the entry point for the idrstat CLI tool.
package main

import (
	"context"
	"os"

	"github.com/idr/idrstat/cmd/idrstat/app"
	"github.com/idr/idrstat/pkg/constants"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	application, err := app.New(version, commit, date, builtBy)
	if err != nil {
		app.ExitOnError(err)
	}

	// Create context with signal handling for graceful shutdown
	ctx, cancel := app.ContextWithSignals(context.Background())
	err = application.Execute(ctx, os.Args[1:])
	cancel()

	// The signal context may be cancelled; flush with a fresh one.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	if shutdownErr := application.Shutdown(shutdownCtx); shutdownErr != nil {
		application.Logger().Error().Err(shutdownErr).Msg("Shutdown error")
	}
	shutdownCancel()

	app.ExitOnError(err)
}
