// Package metrics exposes prometheus counters for a watch session. Every
// method is safe to call on a nil *Recorder, which records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "codewatch"

// Recorder owns a private registry so several sessions can coexist.
type Recorder struct {
	registry *prometheus.Registry

	events        *prometheus.CounterVec
	propagations  prometheus.Counter
	dependents    prometheus.Counter
	modifiedFiles prometheus.Counter
	fileErrors    *prometheus.CounterVec
	graphFiles    prometheus.Gauge
	graphEdges    prometheus.Gauge
	graphBuilds   *prometheus.CounterVec
}

// NewRecorder registers every collector on a new registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "File modification events processed, by file kind.",
		}, []string{"kind"}),
		propagations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "propagations_total",
			Help:      "Propagation lookups performed.",
		}),
		dependents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dependents_analyzed_total",
			Help:      "Dependent files found by propagation lookups.",
		}),
		modifiedFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_modified_total",
			Help:      "Files rewritten by pattern substitution.",
		}),
		fileErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_errors_total",
			Help:      "Per-file errors tolerated during bulk operations, by operation.",
		}, []string{"operation"}),
		graphFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_files",
			Help:      "Files in the current dependency graph.",
		}),
		graphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Include edges in the current dependency graph.",
		}),
		graphBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_builds_total",
			Help:      "Dependency graph builds, by source (scan or cache).",
		}, []string{"source"}),
	}

	r.registry.MustRegister(
		r.events,
		r.propagations,
		r.dependents,
		r.modifiedFiles,
		r.fileErrors,
		r.graphFiles,
		r.graphEdges,
		r.graphBuilds,
		collectors.NewGoCollector(),
	)

	return r
}

// Registry returns the registry backing r.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveEvent(kind string) {
	if r == nil {
		return
	}
	r.events.WithLabelValues(kind).Inc()
}

func (r *Recorder) ObservePropagation(dependents int) {
	if r == nil {
		return
	}
	r.propagations.Inc()
	r.dependents.Add(float64(dependents))
}

func (r *Recorder) ObserveModified(files int) {
	if r == nil {
		return
	}
	r.modifiedFiles.Add(float64(files))
}

func (r *Recorder) ObserveFileError(operation string) {
	if r == nil {
		return
	}
	r.fileErrors.WithLabelValues(operation).Inc()
}

// ObserveGraph records a finished build and the size of the new graph.
func (r *Recorder) ObserveGraph(files int, edges int, fromCache bool) {
	if r == nil {
		return
	}
	source := "scan"
	if fromCache {
		source = "cache"
	}
	r.graphBuilds.WithLabelValues(source).Inc()
	r.graphFiles.Set(float64(files))
	r.graphEdges.Set(float64(edges))
}
