// Package orphans provides the orphaned fileset listing.
package orphans

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/idr/idrstat/internal/appcontext"
	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/logging"
	"github.com/idr/idrstat/pkg/reconcile"
)

// NewCommand creates the orphans command with app dependencies.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "orphans",
		GroupID: "listings",
		Short:   "List filesets whose images belong to no well",
		Long: `Orphans prints one "Fileset:<id>" line per fileset containing images that
are not linked to any well sample, ordered by id, followed by a total on
stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd.Context(), app)
		},
	}
}

// Run prints the orphaned filesets.
func Run(ctx context.Context, app appcontext.Interface) error {
	ctx = logging.WithOperation(ctx, "orphans")
	return app.WithSession(ctx, func(ctx context.Context, sess catalog.Session) error {
		ids, err := reconcile.FindOrphans(ctx, sess.Query(), app.Stdout(), app.Stderr())
		if err != nil {
			return err
		}
		app.Metrics().Orphans(len(ids))
		app.Metrics().Finished("orphans")
		return nil
	})
}
