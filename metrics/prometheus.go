/*
 * Copyright 2026 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/flamego/flamego"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Report metrics
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_analyses_total",
			Help: "Total number of report uploads by outcome",
		},
		[]string{"outcome"},
	)

	analyzerDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "report_analyzer_duration_seconds",
			Help:    "Time spent waiting for the external analyzer",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	exportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "report_exports_total",
			Help: "Total number of analysis JSON downloads",
		},
	)
)

// knownPaths are the routes reported with their own label.
var knownPaths = map[string]bool{
	"/":        true,
	"/analyze": true,
	"/export":  true,
	"/metrics": true,
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes Handler as a flamego route handler.
func Serve(c flamego.Context) {
	Handler().ServeHTTP(c.ResponseWriter(), c.Request().Request)
}

// Middleware records request counts and latency.
func Middleware() flamego.Handler {
	return func(c flamego.Context) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		c.Next()

		status := c.ResponseWriter().Status()
		if status == 0 {
			status = http.StatusOK
		}

		method := c.Request().Method
		path := normalizePath(c.Request().URL.Path)

		httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// normalizePath keeps label cardinality bounded.
func normalizePath(path string) string {
	if knownPaths[path] {
		return path
	}

	return "other"
}

// RecordAnalysis records one upload attempt. Waited is the time spent on the
// analyzer call; it is zero when no call was made.
func RecordAnalysis(outcome string, waited time.Duration) {
	analysesTotal.WithLabelValues(outcome).Inc()

	if waited > 0 {
		analyzerDuration.Observe(waited.Seconds())
	}
}

// RecordExport records an analysis download.
func RecordExport() {
	exportsTotal.Inc()
}
