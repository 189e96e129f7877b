package unknown

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idr/idrstat/internal/appcontext"
	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/catalog/catalogtest"
	"github.com/idr/idrstat/pkg/hierarchy"
)

func TestRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data/idr0001-a/screenA/plates/P1", 0o755))

	sess := catalogtest.NewSession()
	sess.Queries.ProjectionFunc = func(query string, _ catalog.Params) ([]catalog.Row, error) {
		switch query {
		case catalog.QueryListScreens:
			return []catalog.Row{{"idr0001-a/screenA", int64(1)}, {"idr0009-z/screenZ", int64(9)}}, nil
		case catalog.QueryListPlates:
			return []catalog.Row{{"idr0001-a/screenA", "P1", int64(10)}, {"idr0009-z/screenZ", "PZ", int64(90)}}, nil
		}
		return nil, nil
	}
	var out bytes.Buffer
	app := &appcontext.MockContext{Session: sess, ScannerVal: hierarchy.NewScanner(fs, "/data"), Out: &out}

	require.NoError(t, Run(context.Background(), app))
	assert.Equal(t, "Screen:9 idr0009-z/screenZ\nPlate:90 PZ idr0009-z/screenZ\n", out.String())
	assert.Equal(t, 1, sess.Closed)
}
