package app

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/catalog/catalogtest"
	pkgerrors "github.com/idr/idrstat/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// database/sql keeps a connection opener per DB until Close.
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

type harness struct {
	app  *App
	sess *catalogtest.Session
	out  bytes.Buffer
	diag bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data/idr0001-a/screenA/plates/plateA", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/data/idr0001-a/screenA/plates/plateB.zarr", nil, 0o644))

	h := &harness{sess: catalogtest.NewSession()}
	logger := zerolog.Nop()
	app, err := New("1.2.3", "abc", "today", "test",
		WithConfig(testConfig()),
		WithLogger(&logger),
		WithFs(fs),
		WithOutput(&h.out, &h.diag),
		WithSessionFactory(func(context.Context, *Config) (catalog.Session, error) {
			return h.sess, nil
		}),
	)
	require.NoError(t, err)
	h.app = app
	return h
}

func testConfig() *Config {
	return &Config{
		Format:        "table",
		Root:          "/data",
		CatalogDriver: "sqlite",
		SearchOutput:  "/reports/no_matches.txt",
		LogFormat:     "json",
		LogOutput:     "discard",
	}
}

func TestExecute_DefaultModeIsScreenReport(t *testing.T) {
	h := newHarness(t)
	h.sess.Queries.ProjectionFunc = func(_ string, p catalog.Params) ([]catalog.Row, error) {
		if p["screen"] == "idr0001-a/screenA" {
			return []catalog.Row{{int64(1), int64(2), int64(3), int64(4), int64(5), int64(1024)}}, nil
		}
		return nil, nil
	}

	require.NoError(t, h.app.Execute(context.Background(), []string{"-o", "json"}))
	assert.JSONEq(t, `[
		{"screen": "idr0001-a/screenA", "id": "1", "plates": "2", "wells": "3", "images": "4", "planes": "5", "bytes": "1.0 KiB"},
		{"screen": "Total", "id": "", "plates": "2", "wells": "3", "images": "4", "planes": "5", "bytes": "1.0 KiB"}
	]`, h.out.String())
	assert.Equal(t, 1, h.sess.Closed)
}

func TestExecute_ScreenArgumentSelectsPlateReport(t *testing.T) {
	h := newHarness(t)
	h.sess.Queries.FindByQueryFunc = func(string, catalog.Params) (catalog.Row, bool, error) {
		return catalog.Row{int64(1), "idr0001-a/screenA"}, true, nil
	}

	require.NoError(t, h.app.Execute(context.Background(), []string{"idr0001-a/screenA"}))
	assert.Contains(t, h.out.String(), "plateB.zarr")
	assert.Contains(t, h.out.String(), "MISSING")
	assert.Equal(t, 1, h.sess.Closed)
}

func TestExecute_UnknownScreenReleasesSession(t *testing.T) {
	h := newHarness(t)

	err := h.app.Execute(context.Background(), []string{"idr0009-z/screenQ"})
	var notFound *pkgerrors.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 1, h.sess.Closed)
	assert.Empty(t, h.out.String())
}

func TestExecute_LegacyFlags(t *testing.T) {
	h := newHarness(t)
	h.sess.Queries.ProjectionFunc = func(string, catalog.Params) ([]catalog.Row, error) {
		return []catalog.Row{{int64(7)}}, nil
	}

	require.NoError(t, h.app.Execute(context.Background(), []string{"--orphans"}))
	assert.Equal(t, "Fileset:7\n", h.out.String())
	assert.Equal(t, "Total: 1\n", h.diag.String())
}

func TestExecute_LegacyFlagsAreExclusive(t *testing.T) {
	h := newHarness(t)

	err := h.app.Execute(context.Background(), []string{"--orphans", "--unknown"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
	assert.Zero(t, h.sess.Closed)
}

func TestExecute_TooManyArgs(t *testing.T) {
	h := newHarness(t)
	assert.Error(t, h.app.Execute(context.Background(), []string{"a", "b"}))
}

func TestExecute_InvalidFormat(t *testing.T) {
	h := newHarness(t)

	err := h.app.Execute(context.Background(), []string{"screens", "--format", "csv"})
	var verr *pkgerrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, h.sess.Closed)
}

func TestExecute_SearchWritesReport(t *testing.T) {
	h := newHarness(t)
	h.sess.Queries.FindAllByQueryFunc = func(string, catalog.Params) ([]catalog.Object, error) {
		return []catalog.Object{{ID: 1, Pairs: []catalog.Pair{{Name: "Gene", Value: "CDK1"}, {Name: "Cell", Value: "HeLa"}}}}, nil
	}
	h.sess.Searcher = &catalogtest.Search{Hits: map[string][]string{"Image": {"HeLa"}}}

	require.NoError(t, h.app.Execute(context.Background(), []string{"search", "--report", "/reports/out.txt"}))
	data, err := afero.ReadFile(h.app.fs, "/reports/out.txt")
	require.NoError(t, err)
	assert.Equal(t, "CDK1\n", string(data))
	assert.Equal(t, 1, h.sess.Closed)
}

func TestExecute_SessionFailure(t *testing.T) {
	h := newHarness(t)
	h.app.openSession = func(context.Context, *Config) (catalog.Session, error) {
		return nil, errors.New("connection refused")
	}
	assert.EqualError(t, h.app.Execute(context.Background(), nil), "connection refused")
}

func TestExecute_CloseErrorSurfacesOnSuccess(t *testing.T) {
	h := newHarness(t)
	h.sess.CloseErr = errors.New("broken pipe")

	err := h.app.Execute(context.Background(), []string{"orphans"})
	var rerr *pkgerrors.ResourceError
	require.ErrorAs(t, err, &rerr)
}

func TestExecute_Version(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.app.Execute(context.Background(), []string{"version"}))
	assert.Contains(t, h.out.String(), "idrstat version 1.2.3")
	assert.Contains(t, h.out.String(), "commit: abc")
}

func TestExecute_MetricsTextfile(t *testing.T) {
	h := newHarness(t)
	h.sess.Queries.ProjectionFunc = func(string, catalog.Params) ([]catalog.Row, error) {
		return []catalog.Row{{int64(7)}, {int64(8)}}, nil
	}
	path := filepath.Join(t.TempDir(), "idrstat.prom")

	require.NoError(t, h.app.Execute(context.Background(), []string{"orphans", "--metrics-file", path}))
	require.NoError(t, h.app.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "idrstat_orphan_filesets 2")
	assert.Contains(t, string(data), `idrstat_last_run_timestamp_seconds{mode="orphans"}`)
}

func TestShutdown_WithoutMetrics(t *testing.T) {
	h := newHarness(t)
	assert.NoError(t, h.app.Shutdown(context.Background()))
}

func TestExecute_SQLiteCatalog(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "catalog.db")
	seedOrphanCatalog(t, dsn)

	h := newHarness(t)
	h.app.openSession = openSQLSession

	args := []string{"--orphans", "--catalog-driver", "sqlite", "--catalog-dsn", dsn}
	require.NoError(t, h.app.Execute(context.Background(), args))
	assert.Equal(t, "Fileset:2\n", h.out.String())
}

func seedOrphanCatalog(t *testing.T, dsn string) {
	t.Helper()
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	for _, file := range []string{"schema.sql", "fixture.sql"} {
		data, err := os.ReadFile(filepath.Join("..", "..", "..", "internal", "catalog", "sqlcatalog", "testdata", file))
		require.NoError(t, err)
		for _, stmt := range strings.Split(string(data), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			_, err := db.Exec(stmt)
			require.NoError(t, err, stmt)
		}
	}
	// Link fileset 3 so only fileset 2 stays orphaned.
	_, err = db.Exec(`insert into wellsample (id, well, image) select 900 + id, 102, id from image where fileset = 3`)
	require.NoError(t, err)
}
