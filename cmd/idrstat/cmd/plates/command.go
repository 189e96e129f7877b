// Package plates provides the plate statistics command.
package plates

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/idr/idrstat/internal/appcontext"
	"github.com/idr/idrstat/internal/cmd/output"
	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/logging"
	"github.com/idr/idrstat/pkg/reconcile"
)

// NewCommand creates the plates command with app dependencies.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "plates <screen>",
		GroupID: "reports",
		Short:   "Well and image counts for the plates of one screen",
		Long: `Plates looks the screen up in the catalog, then reports the catalog id,
well count and image count of every plate under <screen>/plates on disk.
The screen is named by its study-relative path. An unknown screen is an
error; plates unknown to the catalog are reported as MISSING.`,
		Example: `  idrstat plates idr0001-graml-sysgro/screenA`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), app, args[0])
		},
	}
}

// Run prints the plate statistics report for screen.
func Run(ctx context.Context, app appcontext.Interface, screen string) error {
	ctx = logging.WithScreen(logging.WithOperation(ctx, "plates"), screen)

	return app.WithSession(ctx, func(ctx context.Context, sess catalog.Session) error {
		r, err := reconcile.StatPlates(ctx, screen, sess.Query(), app.Scanner())
		if err != nil {
			return err
		}
		app.Metrics().Missing("plate", r.Missing())
		app.Metrics().Finished("plates")
		return output.Render(app.Stdout(), app.OutputFormat(), r.Data())
	})
}
