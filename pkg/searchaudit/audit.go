// Package searchaudit checks that every map-annotation value in the catalog
// can be found through full-text search.
//
// Each distinct value is probed against Screen, Plate and Image. The
// outcome of a value is Found on the first hit, NotFound after three misses
// and Faulted when the search service refuses the term. Only NotFound values
// are written to the report.
package searchaudit

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/agentstation/utc"

	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/constants"
	"github.com/idr/idrstat/pkg/errors"
	"github.com/idr/idrstat/pkg/logging"
)

// Outcome classifies one audited value.
type Outcome int

const (
	// Found means at least one object type matched the value.
	Found Outcome = iota
	// NotFound means no object type matched.
	NotFound
	// Faulted means the search service rejected the value.
	Faulted
)

// String returns the outcome name used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Reportable reports whether values with this outcome go to the report.
// Faulted values are logged instead.
func (o Outcome) Reportable() bool {
	return o == NotFound
}

// Result is the audit outcome of one value.
type Result struct {
	Value   string
	Outcome Outcome
	Detail  string // fault message for Faulted values
}

// Summary counts outcomes of a run.
type Summary struct {
	Values   int
	Found    int
	NotFound int
	Faulted  int
	Started  utc.Time
	Elapsed  time.Duration
}

// Auditor probes annotation values against the search service.
type Auditor struct {
	query  catalog.QueryService
	search catalog.SearchService
	types  []string

	// OnResult, when set, is called for every audited value.
	OnResult func(Result)
}

// New creates an Auditor probing the default object types.
func New(query catalog.QueryService, search catalog.SearchService) *Auditor {
	return &Auditor{query: query, search: search, types: constants.SearchTypes}
}

// Values loads every map annotation and returns its distinct values,
// sorted. Keys are discarded.
func (a *Auditor) Values(ctx context.Context) ([]string, error) {
	objects, err := catalog.MapAnnotations(ctx, a.query)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	for _, obj := range objects {
		for _, p := range obj.Pairs {
			seen[p.Value] = struct{}{}
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}

// Probe classifies one value. Bad-usage faults become a Faulted result and
// abandon the remaining types; any other error aborts.
func (a *Auditor) Probe(ctx context.Context, value string) (Result, error) {
	for _, t := range a.types {
		a.search.RestrictType(t)
		if err := a.search.ByFullText(ctx, value); err != nil {
			if errors.IsBadUsage(err) {
				return Result{Value: value, Outcome: Faulted, Detail: err.Error()}, nil
			}
			return Result{}, errors.NewQueryError("search", err)
		}
		if a.search.HasNext() {
			return Result{Value: value, Outcome: Found}, nil
		}
	}
	return Result{Value: value, Outcome: NotFound}, nil
}

// Run audits every annotation value and writes the NotFound values to w,
// one per line.
func (a *Auditor) Run(ctx context.Context, w io.Writer) (Summary, error) {
	logger := logging.FromContext(ctx)
	summary := Summary{Started: utc.Now()}

	logger.Info().Msg("loading all map annotations")
	values, err := a.Values(ctx)
	if err != nil {
		return summary, err
	}
	summary.Values = len(values)
	logger.Info().Int("values", len(values)).Msgf("searching for all unique values [%d]", len(values))

	bw := bufio.NewWriter(w)
	for _, v := range values {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		res, err := a.Probe(ctx, v)
		if err != nil {
			return summary, err
		}
		switch res.Outcome {
		case Found:
			summary.Found++
		case NotFound:
			summary.NotFound++
		case Faulted:
			summary.Faulted++
			logger.Warn().Str("value", v).Str("detail", res.Detail).Msg("search rejected value")
		}
		if res.Outcome.Reportable() {
			if _, err := fmt.Fprintln(bw, v); err != nil {
				return summary, errors.WrapIO("write", "report", err)
			}
		}
		if a.OnResult != nil {
			a.OnResult(res)
		}
	}
	if err := bw.Flush(); err != nil {
		return summary, errors.WrapIO("write", "report", err)
	}

	summary.Elapsed = time.Since(summary.Started.Time)
	logger.Info().
		Int("found", summary.Found).
		Int("not_found", summary.NotFound).
		Int("faulted", summary.Faulted).
		Dur("elapsed", summary.Elapsed).
		Msg("search audit complete")
	return summary, nil
}
