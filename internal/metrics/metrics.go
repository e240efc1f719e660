// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus collectors for analysis and HTTP
// instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ccan_analyses_total",
		Help: "Completed analysis runs by outcome",
	}, []string{"outcome"}) // outcome=completed|failed

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ccan_analysis_duration_seconds",
		Help:    "Wall time of analysis runs in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	filesAnalyzed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ccan_files_analyzed",
		Help: "Number of files in the last analysis",
	})

	commitsMined = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ccan_commits_mined",
		Help: "Number of date bins mined in the last analysis",
	})

	historyCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ccan_history_cache_total",
		Help: "History cache lookups by result",
	}, []string{"result"}) // result=hit|miss

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ccan_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

// RecordAnalysis records the outcome and duration of an analysis run.
func RecordAnalysis(outcome string, duration time.Duration) {
	analysesTotal.WithLabelValues(outcome).Inc()
	analysisDuration.Observe(duration.Seconds())
}

// RecordAnalysisSize records the dimensions of the last analysed history.
func RecordAnalysisSize(files, bins int) {
	filesAnalyzed.Set(float64(files))
	commitsMined.Set(float64(bins))
}

// IncHistoryCache counts a history cache lookup ("hit" or "miss").
func IncHistoryCache(result string) {
	historyCacheTotal.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
