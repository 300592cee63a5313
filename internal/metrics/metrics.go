// Package metrics provides Prometheus metrics for search, enrichment and indexing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Search outcomes recorded by ObserveSearch.
const (
	OutcomeOK          = "ok"
	OutcomeBlank       = "blank"
	OutcomeUnavailable = "unavailable"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// search orchestrator
	SearchesTotal      *prometheus.CounterVec
	SearchDuration     *prometheus.HistogramVec
	GateWaitSeconds    prometheus.Histogram
	ThrottleWaitTotal  prometheus.Counter
	ResultsTotal       prometheus.Counter
	HighlightAttempts  *prometheus.CounterVec
	HighlightCutoffs   prometheus.Counter
	EngineQueryLatency prometheus.Histogram

	// file index
	IndexedFilesTotal *prometheus.CounterVec
	IndexDocuments    prometheus.Gauge

	// watched directories
	WatchedDirectories prometheus.Gauge
	FileEventsTotal    *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SearchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nomad_searches_total",
			Help: "Total number of search calls by mode and outcome",
		}, []string{"mode", "outcome"}),
		SearchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nomad_search_duration_seconds",
			Help:    "End-to-end duration of search calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		GateWaitSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nomad_search_gate_wait_seconds",
			Help:    "Time spent waiting for the engine gate",
			Buckets: []float64{.001, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		ThrottleWaitTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "nomad_search_throttled_total",
			Help: "Number of search calls delayed by the minimum engine interval",
		}),
		ResultsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "nomad_search_results_total",
			Help: "Total number of rows returned by search calls",
		}),
		HighlightAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nomad_highlight_extractions_total",
			Help: "Highlight extraction attempts by result",
		}, []string{"result"}),
		HighlightCutoffs: f.NewCounter(prometheus.CounterOpts{
			Name: "nomad_highlight_cutoffs_total",
			Help: "Number of searches where the highlight budget ran out",
		}),
		EngineQueryLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nomad_engine_query_seconds",
			Help:    "Latency of engine queries",
			Buckets: prometheus.DefBuckets,
		}),
		IndexedFilesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nomad_index_files_total",
			Help: "Files processed by the index builder by result",
		}, []string{"result"}),
		IndexDocuments: f.NewGauge(prometheus.GaugeOpts{
			Name: "nomad_index_documents",
			Help: "Number of documents in the file index",
		}),
		WatchedDirectories: f.NewGauge(prometheus.GaugeOpts{
			Name: "nomad_watched_directories",
			Help: "Number of directories watched for UI change events",
		}),
		FileEventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nomad_file_events_total",
			Help: "File change events emitted by type",
		}, []string{"event_type"}),
	}
}

// ObserveSearch records one finished search call.
func (m *Metrics) ObserveSearch(mode, outcome string, rows int, took time.Duration) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(mode, outcome).Inc()
	m.SearchDuration.WithLabelValues(mode).Observe(took.Seconds())
	m.ResultsTotal.Add(float64(rows))
}

// ObserveGateWait records how long a call waited for the engine gate.
func (m *Metrics) ObserveGateWait(d time.Duration) {
	if m == nil {
		return
	}
	m.GateWaitSeconds.Observe(d.Seconds())
}

// ObserveThrottle counts a call that had to wait for the minimum interval.
func (m *Metrics) ObserveThrottle() {
	if m == nil {
		return
	}
	m.ThrottleWaitTotal.Inc()
}

// ObserveEngineQuery records the latency of one engine query.
func (m *Metrics) ObserveEngineQuery(d time.Duration) {
	if m == nil {
		return
	}
	m.EngineQueryLatency.Observe(d.Seconds())
}

// ObserveHighlight records one extraction attempt: "found", "empty" or "error".
func (m *Metrics) ObserveHighlight(result string) {
	if m == nil {
		return
	}
	m.HighlightAttempts.WithLabelValues(result).Inc()
}

// ObserveHighlightCutoff counts a search whose highlight budget ran out.
func (m *Metrics) ObserveHighlightCutoff() {
	if m == nil {
		return
	}
	m.HighlightCutoffs.Inc()
}

// ObserveIndexed records one file handled by the index builder:
// "indexed", "skipped", "removed" or "error".
func (m *Metrics) ObserveIndexed(result string) {
	if m == nil {
		return
	}
	m.IndexedFilesTotal.WithLabelValues(result).Inc()
}

// SetIndexDocuments sets the index document gauge.
func (m *Metrics) SetIndexDocuments(n uint64) {
	if m == nil {
		return
	}
	m.IndexDocuments.Set(float64(n))
}

// SetWatchedDirectories sets the watched directory gauge.
func (m *Metrics) SetWatchedDirectories(n int) {
	if m == nil {
		return
	}
	m.WatchedDirectories.Set(float64(n))
}

// ObserveFileEvent counts one emitted file change event.
func (m *Metrics) ObserveFileEvent(eventType string) {
	if m == nil {
		return
	}
	m.FileEventsTotal.WithLabelValues(eventType).Inc()
}
