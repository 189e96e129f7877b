package reconcile

import (
	"context"
	"fmt"
	"io"

	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/errors"
	"github.com/idr/idrstat/pkg/hierarchy"
)

// Unknown lists catalog entities with no on-disk counterpart.
type Unknown struct {
	Screens []catalog.ScreenRef
	Plates  []catalog.PlateRef
}

// FindUnknown prints catalog screens and plates whose names are not in the
// on-disk name set. Screens print as "Screen:<id> <name>", plates as
// "Plate:<id> <name> <screen>".
//
// The name set mixes screen and plate names, so a catalog plate sharing a
// name with any on-disk screen is treated as known.
func FindUnknown(ctx context.Context, names hierarchy.NameSet, q catalog.QueryService, out io.Writer) (Unknown, error) {
	var result Unknown

	screens, err := catalog.ListScreens(ctx, q)
	if err != nil {
		return Unknown{}, err
	}
	for _, s := range screens {
		if names.Has(s.Name) {
			continue
		}
		result.Screens = append(result.Screens, s)
		if _, err := fmt.Fprintf(out, "Screen:%d %s\n", s.ID, s.Name); err != nil {
			return Unknown{}, errors.WrapIO("write", "stdout", err)
		}
	}

	plates, err := catalog.ListPlates(ctx, q)
	if err != nil {
		return Unknown{}, err
	}
	for _, p := range plates {
		if names.Has(p.Name) {
			continue
		}
		result.Plates = append(result.Plates, p)
		if _, err := fmt.Fprintf(out, "Plate:%d %s %s\n", p.ID, p.Name, p.Screen); err != nil {
			return Unknown{}, errors.WrapIO("write", "stdout", err)
		}
	}
	return result, nil
}
