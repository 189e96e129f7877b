package reconcile

import (
	"context"
	"fmt"
	"io"

	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/errors"
)

// FindOrphans prints "Fileset:<id>" for every fileset holding images that
// are not linked to a well sample, then "Total: <n>" on diag.
func FindOrphans(ctx context.Context, q catalog.QueryService, out, diag io.Writer) ([]int64, error) {
	ids, err := catalog.OrphanFilesets(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, err := fmt.Fprintf(out, "Fileset:%d\n", id); err != nil {
			return nil, errors.WrapIO("write", "stdout", err)
		}
	}
	if _, err := fmt.Fprintf(diag, "Total: %d\n", len(ids)); err != nil {
		return nil, errors.WrapIO("write", "stderr", err)
	}
	return ids, nil
}
