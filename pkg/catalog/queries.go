package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/idr/idrstat/pkg/constants"
	"github.com/idr/idrstat/pkg/errors"
)

// Query names used in errors, logs and metrics.
const (
	NameScreenStats    = "screen_stats"
	NamePlateStats     = "plate_stats"
	NameLookupScreen   = "lookup_screen"
	NameListScreens    = "list_screens"
	NameListPlates     = "list_plates"
	NameOrphans        = "orphan_filesets"
	NameMapAnnotations = "map_annotations"
)

// Query text. Sums are cast back to bigint because Postgres widens sum(bigint)
// to numeric; the plane product is widened before multiplying so large
// pixel sets cannot overflow.
var (
	QueryScreenStats = fmt.Sprintf(`select s.id, count(distinct p.id), count(distinct w.id), count(distinct i.id),
       cast(sum(cast(pix.sizez as bigint) * pix.sizet * pix.sizec) as bigint),
       cast(sum(cast(pix.sizez as bigint) * pix.sizet * pix.sizec * pix.sizex * pix.sizey * %d) as bigint)
from screen s
left outer join screenplatelink spl on spl.parent = s.id
left outer join plate p on spl.child = p.id
left outer join well w on w.plate = p.id
left outer join wellsample ws on ws.well = w.id
left outer join image i on ws.image = i.id
left outer join pixels pix on pix.image = i.id
where s.name = :screen
group by s.id
order by s.id`, constants.BytesPerSample)

	QueryPlateStats = `select p.id, count(distinct w.id), count(distinct i.id)
from screen s
left outer join screenplatelink spl on spl.parent = s.id
join plate p on spl.child = p.id
left outer join well w on w.plate = p.id
left outer join wellsample ws on ws.well = w.id
left outer join image i on ws.image = i.id
where s.name = :screen and p.name = :plate
group by p.id
order by p.id`

	QueryLookupScreen = `select s.id, s.name from screen s where s.name = :screen order by s.id`

	QueryListScreens = `select s.name, s.id from screen s order by s.id`

	QueryListPlates = `select s.name, p.name, p.id
from plate p
join screenplatelink sl on sl.child = p.id
join screen s on sl.parent = s.id
order by p.id, s.id`

	QueryOrphans = `select distinct f.id
from image i
join fileset f on i.fileset = f.id
left outer join wellsample ws on ws.image = i.id
where ws.id is null
order by f.id`

	QueryMapAnnotations = `select m.annotation_id, m.name, m.value
from annotation_mapvalue m
join annotation a on m.annotation_id = a.id
order by m.annotation_id, m."index"`
)

var queryNames = map[string]string{
	QueryScreenStats:    NameScreenStats,
	QueryPlateStats:     NamePlateStats,
	QueryLookupScreen:   NameLookupScreen,
	QueryListScreens:    NameListScreens,
	QueryListPlates:     NameListPlates,
	QueryOrphans:        NameOrphans,
	QueryMapAnnotations: NameMapAnnotations,
}

// QueryName returns the short name of a known query, or "adhoc".
func QueryName(query string) string {
	if name, ok := queryNames[query]; ok {
		return name
	}
	return "adhoc"
}

// ScreenStatsRow is one catalog screen matching a screen name. Planes and
// Bytes are null when the screen has no pixels.
type ScreenStatsRow struct {
	ScreenID int64
	Plates   int64
	Wells    int64
	Images   int64
	Planes   sql.NullInt64
	Bytes    sql.NullInt64
}

// PlateStatsRow is one catalog plate matching a (screen, plate) pair.
type PlateStatsRow struct {
	PlateID int64
	Wells   int64
	Images  int64
}

// ScreenRef identifies a catalog screen.
type ScreenRef struct {
	ID   int64
	Name string
}

// PlateRef identifies a catalog plate and the screen linking it.
type PlateRef struct {
	ID     int64
	Name   string
	Screen string
}

// ScreenStats returns one row per catalog screen named screen.
func ScreenStats(ctx context.Context, q QueryService, screen string) ([]ScreenStatsRow, error) {
	rows, err := q.Projection(ctx, QueryScreenStats, NewParams().AddString("screen", screen))
	if err != nil {
		return nil, errors.WrapQuery(NameScreenStats, err)
	}
	out := make([]ScreenStatsRow, 0, len(rows))
	for _, row := range rows {
		d := decoder{query: NameScreenStats, row: row}
		r := ScreenStatsRow{
			ScreenID: d.intAt(0),
			Plates:   d.intAt(1),
			Wells:    d.intAt(2),
			Images:   d.intAt(3),
			Planes:   d.nullIntAt(4),
			Bytes:    d.nullIntAt(5),
		}
		if d.err != nil {
			return nil, d.err
		}
		out = append(out, r)
	}
	return out, nil
}

// PlateStats returns one row per catalog plate named plate in screen.
func PlateStats(ctx context.Context, q QueryService, screen, plate string) ([]PlateStatsRow, error) {
	params := NewParams().AddString("screen", screen).AddString("plate", plate)
	rows, err := q.Projection(ctx, QueryPlateStats, params)
	if err != nil {
		return nil, errors.WrapQuery(NamePlateStats, err)
	}
	out := make([]PlateStatsRow, 0, len(rows))
	for _, row := range rows {
		d := decoder{query: NamePlateStats, row: row}
		r := PlateStatsRow{PlateID: d.intAt(0), Wells: d.intAt(1), Images: d.intAt(2)}
		if d.err != nil {
			return nil, d.err
		}
		out = append(out, r)
	}
	return out, nil
}

// LookupScreen finds a screen by name. The bool is false when no screen has
// that name.
func LookupScreen(ctx context.Context, q QueryService, name string) (ScreenRef, bool, error) {
	row, ok, err := q.FindByQuery(ctx, QueryLookupScreen, NewParams().AddString("screen", name))
	if err != nil {
		return ScreenRef{}, false, errors.WrapQuery(NameLookupScreen, err)
	}
	if !ok {
		return ScreenRef{}, false, nil
	}
	d := decoder{query: NameLookupScreen, row: row}
	ref := ScreenRef{ID: d.intAt(0), Name: d.stringAt(1)}
	if d.err != nil {
		return ScreenRef{}, false, d.err
	}
	return ref, true, nil
}

// ListScreens returns every catalog screen.
func ListScreens(ctx context.Context, q QueryService) ([]ScreenRef, error) {
	rows, err := q.Projection(ctx, QueryListScreens, nil)
	if err != nil {
		return nil, errors.WrapQuery(NameListScreens, err)
	}
	out := make([]ScreenRef, 0, len(rows))
	for _, row := range rows {
		d := decoder{query: NameListScreens, row: row}
		ref := ScreenRef{Name: d.stringAt(0), ID: d.intAt(1)}
		if d.err != nil {
			return nil, d.err
		}
		out = append(out, ref)
	}
	return out, nil
}

// ListPlates returns every (screen, plate) link in the catalog.
func ListPlates(ctx context.Context, q QueryService) ([]PlateRef, error) {
	rows, err := q.Projection(ctx, QueryListPlates, nil)
	if err != nil {
		return nil, errors.WrapQuery(NameListPlates, err)
	}
	out := make([]PlateRef, 0, len(rows))
	for _, row := range rows {
		d := decoder{query: NameListPlates, row: row}
		ref := PlateRef{Screen: d.stringAt(0), Name: d.stringAt(1), ID: d.intAt(2)}
		if d.err != nil {
			return nil, d.err
		}
		out = append(out, ref)
	}
	return out, nil
}

// OrphanFilesets returns the ids of filesets holding images without a
// well-sample link, ascending. The full result is materialized in memory.
func OrphanFilesets(ctx context.Context, q QueryService) ([]int64, error) {
	rows, err := q.Projection(ctx, QueryOrphans, nil)
	if err != nil {
		return nil, errors.WrapQuery(NameOrphans, err)
	}
	out := make([]int64, 0, len(rows))
	for _, row := range rows {
		d := decoder{query: NameOrphans, row: row}
		id := d.intAt(0)
		if d.err != nil {
			return nil, d.err
		}
		out = append(out, id)
	}
	return out, nil
}

// MapAnnotations loads every map annotation in the catalog.
func MapAnnotations(ctx context.Context, q QueryService) ([]Object, error) {
	objects, err := q.FindAllByQuery(ctx, QueryMapAnnotations, nil)
	if err != nil {
		return nil, errors.WrapQuery(NameMapAnnotations, err)
	}
	return objects, nil
}

// decoder converts positional row values, keeping the first error.
type decoder struct {
	query string
	row   Row
	err   error
}

func (d *decoder) value(i int) (any, bool) {
	if d.err != nil {
		return nil, false
	}
	if i >= len(d.row) {
		d.fail(i, fmt.Errorf("row has %d columns", len(d.row)))
		return nil, false
	}
	return d.row[i], true
}

func (d *decoder) fail(i int, err error) {
	d.err = errors.NewQueryError(d.query, fmt.Errorf("decode column %d: %w", i, err))
}

func (d *decoder) intAt(i int) int64 {
	v, ok := d.value(i)
	if !ok {
		return 0
	}
	n, valid, err := toInt64(v)
	if err != nil {
		d.fail(i, err)
		return 0
	}
	if !valid {
		d.fail(i, fmt.Errorf("unexpected null"))
	}
	return n
}

func (d *decoder) nullIntAt(i int) sql.NullInt64 {
	v, ok := d.value(i)
	if !ok {
		return sql.NullInt64{}
	}
	n, valid, err := toInt64(v)
	if err != nil {
		d.fail(i, err)
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: n, Valid: valid}
}

func (d *decoder) stringAt(i int) string {
	v, ok := d.value(i)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		d.fail(i, fmt.Errorf("cannot decode %T as string", v))
		return ""
	}
}

func toInt64(v any) (int64, bool, error) {
	switch n := v.(type) {
	case nil:
		return 0, false, nil
	case int64:
		return n, true, nil
	case int32:
		return int64(n), true, nil
	case int:
		return int64(n), true, nil
	case float64:
		return int64(n), true, nil
	case []byte:
		parsed, err := strconv.ParseInt(string(n), 10, 64)
		return parsed, err == nil, err
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		return parsed, err == nil, err
	default:
		return 0, false, fmt.Errorf("cannot decode %T as integer", v)
	}
}
