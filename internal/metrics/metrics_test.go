package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/catalog/catalogtest"
	"github.com/idr/idrstat/pkg/constants"
)

func readTextfile(t *testing.T, r *Recorder) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "idrstat.prom")
	require.NoError(t, r.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRecorder_Textfile(t *testing.T) {
	r := New()
	r.ObserveQuery(catalog.NameScreenStats, 10*time.Millisecond, nil)
	r.ObserveQuery(catalog.NameScreenStats, 5*time.Millisecond, errors.New("boom"))
	r.Missing("screen", 2)
	r.Unknown("plate", 3)
	r.Orphans(7)
	r.SearchOutcome("not_found")
	r.Finished("screens")

	out := readTextfile(t, r)
	assert.Contains(t, out, `idrstat_catalog_queries_total{query="screen_stats",result="ok"} 1`)
	assert.Contains(t, out, `idrstat_catalog_queries_total{query="screen_stats",result="error"} 1`)
	assert.Contains(t, out, `idrstat_catalog_query_duration_seconds_count{query="screen_stats"} 2`)
	assert.Contains(t, out, `idrstat_missing_total{level="screen"} 2`)
	assert.Contains(t, out, `idrstat_unknown_total{level="plate"} 3`)
	assert.Contains(t, out, `idrstat_orphan_filesets 7`)
	assert.Contains(t, out, `idrstat_search_values_total{outcome="not_found"} 1`)
	assert.Contains(t, out, `idrstat_last_run_timestamp_seconds{mode="screens"}`)
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveQuery("q", time.Second, nil)
		r.ObserveProbe(constants.TypeImage, true, nil)
		r.Missing("plate", 1)
		r.Orphans(1)
		r.Finished("orphans")
	})
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestRecorder_WriteTextfileError(t *testing.T) {
	r := New()
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing-dir", "x.prom"))
	assert.Error(t, err)
}

func TestInstrumentSession(t *testing.T) {
	fake := catalogtest.NewSession()
	fake.Queries.ProjectionFunc = func(string, catalog.Params) ([]catalog.Row, error) {
		return []catalog.Row{{int64(1)}}, nil
	}
	fake.Searcher = &catalogtest.Search{
		Hits:   map[string][]string{constants.TypePlate: {"GFP"}},
		Faults: map[string]error{"*bad": errors.New("bad usage")},
	}
	r := New()
	sess := InstrumentSession(fake, r)
	ctx := context.Background()

	ids, err := catalog.OrphanFilesets(ctx, sess.Query())
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)

	search, err := sess.Search()
	require.NoError(t, err)
	search.RestrictType(constants.TypePlate)
	require.NoError(t, search.ByFullText(ctx, "GFP"))
	assert.True(t, search.HasNext())
	require.NoError(t, search.ByFullText(ctx, "RFP"))
	assert.False(t, search.HasNext())
	assert.Error(t, search.ByFullText(ctx, "*bad"))

	require.NoError(t, sess.Close())
	assert.Equal(t, 1, fake.Closed)

	out := readTextfile(t, r)
	assert.Contains(t, out, `idrstat_catalog_queries_total{query="orphan_filesets",result="ok"} 1`)
	assert.Contains(t, out, `idrstat_search_probes_total{result="hit",type="Plate"} 1`)
	assert.Contains(t, out, `idrstat_search_probes_total{result="miss",type="Plate"} 1`)
	assert.Contains(t, out, `idrstat_search_probes_total{result="fault",type="Plate"} 1`)
}

func TestInstrumentSession_NilRecorder(t *testing.T) {
	fake := catalogtest.NewSession()
	assert.Same(t, fake, InstrumentSession(fake, nil))
}
