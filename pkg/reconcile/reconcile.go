// Package reconcile cross-references the on-disk study tree with the
// catalog.
//
// StatScreens and StatPlates produce aggregate reports; FindOrphans and
// FindUnknown print line-oriented discrepancy listings. Structural absence
// is never an error: it shows up as a MISSING row or a listed entry.
package reconcile

import (
	"context"

	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/errors"
	"github.com/idr/idrstat/pkg/hierarchy"
	"github.com/idr/idrstat/pkg/logging"
	"github.com/idr/idrstat/pkg/report"
)

// PlateLister lists the on-disk plates of one screen.
type PlateLister interface {
	Plates(screen string) ([]string, error)
}

// StatScreens runs one aggregate query per on-disk screen, studies in
// lexicographic order, and accumulates the matches into a screen report.
func StatScreens(ctx context.Context, h hierarchy.Hierarchy, q catalog.QueryService) (*report.ScreenReport, error) {
	logger := logging.FromContext(ctx)
	r := report.NewScreenReport()

	err := h.Walk(func(study, screen string, plates []string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := catalog.ScreenStats(ctx, q, screen)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			logger.Debug().Str("study", study).Str("screen", screen).Msg("screen missing from catalog")
			r.AddMissing(screen)
			return nil
		}
		if len(rows) > 1 {
			logger.Warn().Str("screen", screen).Int("matches", len(rows)).Msg("screen name is not unique in catalog")
		}
		for _, row := range rows {
			r.Add(screen, len(plates), row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// StatPlates reports every on-disk plate of screen. The screen must exist in
// the catalog; otherwise a NotFoundError is returned before any plate is
// queried.
func StatPlates(ctx context.Context, screen string, q catalog.QueryService, lister PlateLister) (*report.PlateReport, error) {
	logger := logging.FromContext(ctx)

	ref, ok, err := catalog.LookupScreen(ctx, q, screen)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewNotFoundError("screen", screen)
	}
	logger.Debug().Str("screen", screen).Int64("screen_id", ref.ID).Msg("screen found")

	plates, err := lister.Plates(screen)
	if err != nil {
		return nil, err
	}

	r := report.NewPlateReport()
	for _, plate := range plates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := catalog.PlateStats(ctx, q, screen, plate)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			logger.Debug().Str("plate", plate).Msg("plate missing from catalog")
			r.AddMissing(plate)
			continue
		}
		for _, row := range rows {
			r.Add(plate, row)
		}
	}
	return r, nil
}
