// SPDX-FileCopyrightText: 2026 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package routes

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
)

func TestIPRateLimiterPerIP(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	l := NewIPRateLimiter(2, false)
	l.now = func() time.Time { return now }

	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatal("expected burst of two uploads to be allowed")
	}

	if l.Allow("10.0.0.1") {
		t.Fatal("expected third upload to be limited")
	}

	if !l.Allow("10.0.0.2") {
		t.Fatal("expected other IP to be allowed")
	}

	now = now.Add(30 * time.Second)
	if !l.Allow("10.0.0.1") {
		t.Fatal("expected upload to be allowed after refill")
	}
}

func TestIPRateLimiterSweepsIdleVisitors(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	l := NewIPRateLimiter(5, false)
	l.now = func() time.Time { return now }

	l.Allow("10.0.0.1")

	now = now.Add(2 * limiterIdleTTL)
	l.Allow("10.0.0.2")

	if _, ok := l.limiters["10.0.0.1"]; ok {
		t.Fatal("expected idle visitor to be swept")
	}
}

func TestIPRateLimiterDisabled(t *testing.T) {
	t.Parallel()

	l := NewIPRateLimiter(0, false)
	for range 100 {
		if !l.Allow("10.0.0.1") {
			t.Fatal("expected disabled limiter to allow everything")
		}
	}
}

func TestIPRateLimiterHandlerRedirectsWithFlash(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	l := NewIPRateLimiter(1, false)

	f := flamego.New()
	f.Use(func(c flamego.Context) {
		c.MapTo(s, (*session.Session)(nil))
		c.Next()
	})
	f.Post("/analyze", l.Handler(), func(c flamego.Context) {
		c.ResponseWriter().WriteHeader(http.StatusNoContent)
	})

	first := httptest.NewRecorder()
	f.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/analyze", nil))

	if first.Code != http.StatusNoContent {
		t.Fatalf("expected first upload to pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	f.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/analyze", nil))

	assertRedirect(t, second, "/")
	assertFlash(t, s, FlashError, rateLimitedMessage)
}

func newLimitedApp(l *IPRateLimiter, s *testSession) *flamego.Flame {
	f := flamego.New()
	f.Use(func(c flamego.Context) {
		c.MapTo(s, (*session.Session)(nil))
		c.Next()
	})
	f.Post("/analyze", l.Handler(), func(c flamego.Context) {
		c.ResponseWriter().WriteHeader(http.StatusNoContent)
	})

	return f
}

func postFrom(f *flamego.Flame, remoteAddr, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
	req.RemoteAddr = remoteAddr

	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}

	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)

	return rec
}

func TestIPRateLimiterIgnoresForwardedForByDefault(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	l := NewIPRateLimiter(1, false)
	f := newLimitedApp(l, s)

	if rec := postFrom(f, "203.0.113.7:1234", "10.0.0.0"); rec.Code != http.StatusNoContent {
		t.Fatalf("expected first upload to pass, got %d", rec.Code)
	}

	for i := 1; i < 20; i++ {
		rec := postFrom(f, "203.0.113.7:1234", fmt.Sprintf("10.0.0.%d", i))
		assertRedirect(t, rec, "/")
	}

	assertFlash(t, s, FlashError, rateLimitedMessage)

	if len(l.limiters) != 1 {
		t.Fatalf("expected one tracked visitor, got %d", len(l.limiters))
	}

	if _, ok := l.limiters["203.0.113.7"]; !ok {
		t.Fatalf("expected visitor keyed by socket address, got %v", l.limiters)
	}
}

func TestIPRateLimiterTrustsForwardedForWhenConfigured(t *testing.T) {
	t.Parallel()

	l := NewIPRateLimiter(1, true)
	f := newLimitedApp(l, newTestSession())

	if rec := postFrom(f, "127.0.0.1:5000", "198.51.100.1"); rec.Code != http.StatusNoContent {
		t.Fatalf("expected first client to pass, got %d", rec.Code)
	}

	if rec := postFrom(f, "127.0.0.1:5000", "198.51.100.2, 127.0.0.1"); rec.Code != http.StatusNoContent {
		t.Fatalf("expected second client behind the proxy to pass, got %d", rec.Code)
	}

	assertRedirect(t, postFrom(f, "127.0.0.1:5000", "198.51.100.1"), "/")

	if rec := postFrom(f, "192.0.2.50:4000", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected direct client without header to pass, got %d", rec.Code)
	}
}
