// Package report accumulates reconciliation rows and running totals and
// renders them as tables.
//
// Totals are kept in raw units; byte counts are converted to binary-multiple
// sizes only when a row is rendered.
package report

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/idr/idrstat/internal/cmd/output"
	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/constants"
)

// ScreenTotals are the running sums of a screen report.
type ScreenTotals struct {
	Plates int64
	Wells  int64
	Images int64
	Planes int64
	Bytes  int64
}

// ScreenReport collects one row per catalog screen match.
type ScreenReport struct {
	rows    [][]string
	totals  ScreenTotals
	missing int
}

// NewScreenReport returns an empty screen report.
func NewScreenReport() *ScreenReport {
	return &ScreenReport{}
}

// AddMissing records a screen with no catalog match. It does not count
// towards the totals.
func (r *ScreenReport) AddMissing(screen string) {
	r.missing++
	r.rows = append(r.rows, []string{screen, constants.MissingCell, "", "", "", "", ""})
}

// Add records one catalog match for screen. expectedPlates is the number of
// plates found on disk.
func (r *ScreenReport) Add(screen string, expectedPlates int, row catalog.ScreenStatsRow) {
	planes := nullToZero(row.Planes.Int64, row.Planes.Valid)
	bytes := nullToZero(row.Bytes.Int64, row.Bytes.Valid)

	r.totals.Plates += row.Plates
	r.totals.Wells += row.Wells
	r.totals.Images += row.Images
	r.totals.Planes += planes
	r.totals.Bytes += bytes

	r.rows = append(r.rows, []string{
		screen,
		itoa(row.ScreenID),
		PlateCell(row.Plates, expectedPlates),
		itoa(row.Wells),
		itoa(row.Images),
		itoa(planes),
		FormatBytes(bytes),
	})
}

// Totals returns the running sums.
func (r *ScreenReport) Totals() ScreenTotals {
	return r.totals
}

// Missing returns the number of MISSING rows.
func (r *ScreenReport) Missing() int {
	return r.missing
}

// Data renders the rows followed by the Total row.
func (r *ScreenReport) Data() output.Data {
	rows := make([][]string, 0, len(r.rows)+1)
	rows = append(rows, r.rows...)
	rows = append(rows, []string{
		constants.TotalLabel,
		"",
		itoa(r.totals.Plates),
		itoa(r.totals.Wells),
		itoa(r.totals.Images),
		itoa(r.totals.Planes),
		FormatBytes(r.totals.Bytes),
	})
	return output.Data{
		Headers:         []string{"Screen", "ID", "Plates", "Wells", "Images", "Planes", "Bytes"},
		Rows:            rows,
		ColumnAlignment: alignment(7),
	}
}

// PlateTotals are the running sums of a plate report.
type PlateTotals struct {
	Wells  int64
	Images int64
}

// PlateReport collects one row per catalog plate match within one screen.
type PlateReport struct {
	rows    [][]string
	totals  PlateTotals
	missing int
}

// NewPlateReport returns an empty plate report.
func NewPlateReport() *PlateReport {
	return &PlateReport{}
}

// AddMissing records a plate with no catalog match.
func (r *PlateReport) AddMissing(plate string) {
	r.missing++
	r.rows = append(r.rows, []string{plate, constants.MissingCell, "", ""})
}

// Add records one catalog match for plate.
func (r *PlateReport) Add(plate string, row catalog.PlateStatsRow) {
	r.totals.Wells += row.Wells
	r.totals.Images += row.Images
	r.rows = append(r.rows, []string{plate, itoa(row.PlateID), itoa(row.Wells), itoa(row.Images)})
}

// Totals returns the running sums.
func (r *PlateReport) Totals() PlateTotals {
	return r.totals
}

// Missing returns the number of MISSING rows.
func (r *PlateReport) Missing() int {
	return r.missing
}

// Data renders the rows followed by the Total row.
func (r *PlateReport) Data() output.Data {
	rows := make([][]string, 0, len(r.rows)+1)
	rows = append(rows, r.rows...)
	rows = append(rows, []string{constants.TotalLabel, "", itoa(r.totals.Wells), itoa(r.totals.Images)})
	return output.Data{
		Headers:         []string{"Plate", "PID", "Wells", "Images"},
		Rows:            rows,
		ColumnAlignment: alignment(4),
	}
}

// PlateCell renders a plate count, flagging a mismatch with the on-disk
// count as "<actual> of <expected>".
func PlateCell(actual int64, expected int) string {
	if actual != int64(expected) {
		return fmt.Sprintf("%d of %d", actual, expected)
	}
	return itoa(actual)
}

// FormatBytes renders a byte count in binary-multiple units.
func FormatBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

func nullToZero(v int64, valid bool) int64 {
	if !valid {
		return 0
	}
	return v
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// alignment left-aligns the name column and right-aligns the numbers.
func alignment(columns int) []output.Align {
	align := make([]output.Align, columns)
	align[0] = output.AlignLeft
	for i := 1; i < columns; i++ {
		align[i] = output.AlignRight
	}
	return align
}
