// Package unknown provides the listing of catalog entities absent from disk.
package unknown

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/idr/idrstat/internal/appcontext"
	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/logging"
	"github.com/idr/idrstat/pkg/reconcile"
)

// NewCommand creates the unknown command with app dependencies.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "unknown",
		GroupID: "listings",
		Short:   "List catalog screens and plates not found on disk",
		Long: `Unknown compares every catalog screen and plate name with the names found
on disk and prints "Screen:<id> <name>" and "Plate:<id> <name> <screen>"
for those missing. Screen and plate names on disk are pooled, so a plate
named like any on-disk screen counts as known.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd.Context(), app)
		},
	}
}

// Run prints the unknown screens and plates.
func Run(ctx context.Context, app appcontext.Interface) error {
	ctx = logging.WithOperation(ctx, "unknown")
	h, err := app.Scanner().Scan()
	if err != nil {
		return err
	}
	return app.WithSession(ctx, func(ctx context.Context, sess catalog.Session) error {
		found, err := reconcile.FindUnknown(ctx, h.Names(), sess.Query(), app.Stdout())
		if err != nil {
			return err
		}
		app.Metrics().Unknown("screen", len(found.Screens))
		app.Metrics().Unknown("plate", len(found.Plates))
		app.Metrics().Finished("unknown")
		return nil
	})
}
