// Package metrics defines Prometheus metrics for netscope.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netscope_analysis_duration_seconds",
			Help:    "Analysis duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
		[]string{"kind"},
	)

	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netscope_analyses_total",
			Help: "Total analyses run by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netscope_cache_lookups_total",
			Help: "Report cache lookups by result",
		},
		[]string{"result"},
	)

	MalformedLines = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "netscope_malformed_lines_total",
			Help: "Edge-list lines skipped while loading",
		},
	)

	GraphReloads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "netscope_graph_reloads_total",
			Help: "Graph reloads triggered by file changes",
		},
	)

	NodeCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "netscope_graph_nodes",
			Help: "Node count of the most recently analyzed graph",
		},
	)

	EdgeCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "netscope_graph_edges",
			Help: "Edge count of the most recently analyzed graph",
		},
	)
)

func init() {
	prometheus.MustRegister(
		AnalysisDuration, AnalysesTotal, CacheLookups,
		MalformedLines, GraphReloads,
		NodeCount, EdgeCount,
	)
}

// ObserveAnalysis records one finished analysis.
func ObserveAnalysis(kind string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	AnalysisDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	AnalysesTotal.WithLabelValues(kind, status).Inc()
}

// ObserveGraph records the size of the graph being analyzed.
func ObserveGraph(nodes, edges int) {
	NodeCount.Set(float64(nodes))
	EdgeCount.Set(float64(edges))
}

// ObserveCache records a cache hit or miss.
func ObserveCache(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}
