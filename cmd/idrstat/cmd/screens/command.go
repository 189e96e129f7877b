// Package screens provides the screen statistics command.
package screens

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/idr/idrstat/internal/appcontext"
	"github.com/idr/idrstat/internal/cmd/output"
	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/logging"
	"github.com/idr/idrstat/pkg/reconcile"
)

// NewCommand creates the screens command with app dependencies.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "screens",
		GroupID: "reports",
		Short:   "Aggregate statistics for every screen on disk",
		Long: `Screens scans idr*/screen* under the root directory and reports, for each
screen, the catalog id and the number of plates, wells, images, planes and
bytes the catalog holds for it. Screens unknown to the catalog are reported
as MISSING. A plate count that differs from the plates on disk is shown as
"<catalog> of <disk>".`,
		Example: `  idrstat screens
  idrstat screens --root /uod/idr/metadata -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd.Context(), app)
		},
	}
}

// Run prints the screen statistics report.
func Run(ctx context.Context, app appcontext.Interface) error {
	ctx = logging.WithOperation(ctx, "screens")
	h, err := app.Scanner().Scan()
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Debug().Int("studies", len(h)).Msg("scanned study tree")

	return app.WithSession(ctx, func(ctx context.Context, sess catalog.Session) error {
		r, err := reconcile.StatScreens(ctx, h, sess.Query())
		if err != nil {
			return err
		}
		app.Metrics().Missing("screen", r.Missing())
		app.Metrics().Finished("screens")
		return output.Render(app.Stdout(), app.OutputFormat(), r.Data())
	})
}
