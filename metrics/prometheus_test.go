// SPDX-FileCopyrightText: 2026 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flamego/flamego"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/":            "/",
		"/analyze":     "/analyze",
		"/style.css":   "other",
		"/export/x/yz": "other",
	}

	for in, want := range tests {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

//nolint:paralleltest // Reads process-wide counters.
func TestRecordAnalysis(t *testing.T) {
	before := testutil.ToFloat64(analysesTotal.WithLabelValues("empty"))

	RecordAnalysis("empty", 2*time.Second)

	if got := testutil.ToFloat64(analysesTotal.WithLabelValues("empty")); got != before+1 {
		t.Fatalf("expected counter to increase by one, got %v -> %v", before, got)
	}

	exportsBefore := testutil.ToFloat64(exportsTotal)
	RecordExport()

	if got := testutil.ToFloat64(exportsTotal); got != exportsBefore+1 {
		t.Fatalf("expected export counter to increase by one, got %v -> %v", exportsBefore, got)
	}
}

//nolint:paralleltest // Reads process-wide counters.
func TestMiddlewareAndServe(t *testing.T) {
	f := flamego.New()
	f.Use(Middleware())
	f.Get("/export", func(c flamego.Context) {
		c.ResponseWriter().WriteHeader(http.StatusNotFound)
	})
	f.Get("/metrics", Serve)

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/export", "404"))

	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/export", "404")); got != before+1 {
		t.Fatalf("expected request counter to increase by one, got %v -> %v", before, got)
	}

	RecordAnalysis("success", 0)

	rec = httptest.NewRecorder()
	f.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	if !strings.Contains(rec.Body.String(), "report_analyses_total") {
		t.Fatalf("expected metrics output to include report_analyses_total")
	}
}
