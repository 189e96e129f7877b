// Package search provides the search-coverage audit command.
package search

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/idr/idrstat/internal/appcontext"
	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/logging"
	"github.com/idr/idrstat/pkg/searchaudit"
)

// NewCommand creates the search command with app dependencies.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:     "search",
		GroupID: "listings",
		Short:   "Find map-annotation values that full-text search cannot find",
		Long: `Search loads every map annotation, and probes each distinct value with the
catalog's full-text search against screens, plates and images. Values no
probe finds are written to the report (no_matches.txt by default, or an
s3://bucket/key target). Values the search service rejects are logged and
left out of the report.`,
		Example: `  idrstat search
  IDRSTAT_SEARCH_OUTPUT=s3://idr-reports/no_matches.txt idrstat search`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd.Context(), app)
		},
	}
}

// Run audits search coverage and writes the report.
func Run(ctx context.Context, app appcontext.Interface) error {
	ctx = logging.WithOperation(ctx, "search")
	return app.WithSession(ctx, func(ctx context.Context, sess catalog.Session) (err error) {
		searcher, err := sess.Search()
		if err != nil {
			return err
		}

		w, target, err := app.OpenReport(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := w.Close(); err == nil {
				err = cerr
			}
		}()

		auditor := searchaudit.New(sess.Query(), searcher)
		auditor.OnResult = func(r searchaudit.Result) {
			app.Metrics().SearchOutcome(r.Outcome.String())
		}
		summary, err := auditor.Run(ctx, w)
		if err != nil {
			return err
		}
		logging.FromContext(ctx).Info().
			Str("report", target).
			Int("not_found", summary.NotFound).
			Msg("search report written")
		app.Metrics().Finished("search")
		return nil
	})
}
