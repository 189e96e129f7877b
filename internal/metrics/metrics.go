// Package metrics records run statistics for scheduled reconciliation runs.
//
// Metrics live in a private registry and are written once per run to a
// node-exporter style textfile; there is no scrape endpoint.
package metrics

import (
	"time"

	"github.com/agentstation/utc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/idr/idrstat/pkg/errors"
)

const namespace = "idrstat"

// Recorder holds the run's collectors. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	probes        *prometheus.CounterVec
	outcomes      *prometheus.CounterVec
	missing       *prometheus.CounterVec
	unknown       *prometheus.CounterVec
	orphans       prometheus.Gauge
	lastRun       *prometheus.GaugeVec
}

// New creates a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_queries_total",
			Help:      "Catalog queries by query name and result.",
		}, []string{"query", "result"}),
		queryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_query_duration_seconds",
			Help:      "Catalog query latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"query"}),
		probes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_probes_total",
			Help:      "Full-text search probes by object type and result.",
		}, []string{"type", "result"}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_values_total",
			Help:      "Audited annotation values by outcome.",
		}, []string{"outcome"}),
		missing: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_total",
			Help:      "On-disk entities with no catalog match.",
		}, []string{"level"}),
		unknown: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_total",
			Help:      "Catalog entities with no on-disk counterpart.",
		}, []string{"level"}),
		orphans: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orphan_filesets",
			Help:      "Filesets whose images have no well-sample link.",
		}),
		lastRun: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run of a mode finished.",
		}, []string{"mode"}),
	}
}

// ObserveQuery records one catalog query.
func (r *Recorder) ObserveQuery(name string, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.queries.WithLabelValues(name, result(err)).Inc()
	r.queryDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// ObserveProbe records one search probe.
func (r *Recorder) ObserveProbe(typeName string, hit bool, err error) {
	if r == nil {
		return
	}
	res := "miss"
	switch {
	case err != nil:
		res = "fault"
	case hit:
		res = "hit"
	}
	r.probes.WithLabelValues(typeName, res).Inc()
}

// SearchOutcome counts one audited value.
func (r *Recorder) SearchOutcome(outcome string) {
	if r == nil {
		return
	}
	r.outcomes.WithLabelValues(outcome).Inc()
}

// Missing counts on-disk entities absent from the catalog.
func (r *Recorder) Missing(level string, n int) {
	if r == nil {
		return
	}
	r.missing.WithLabelValues(level).Add(float64(n))
}

// Unknown counts catalog entities absent from disk.
func (r *Recorder) Unknown(level string, n int) {
	if r == nil {
		return
	}
	r.unknown.WithLabelValues(level).Add(float64(n))
}

// Orphans sets the orphan fileset count.
func (r *Recorder) Orphans(n int) {
	if r == nil {
		return
	}
	r.orphans.Set(float64(n))
}

// Finished stamps the completion time of a mode.
func (r *Recorder) Finished(mode string) {
	if r == nil {
		return
	}
	r.lastRun.WithLabelValues(mode).Set(float64(utc.Now().Unix()))
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return errors.WrapIO("write", path, prometheus.WriteToTextfile(path, r.registry))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
