/*
 * Copyright 2026 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"
	"sync"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"golang.org/x/time/rate"
)

const (
	rateLimitedMessage = "Too many uploads. Please wait a moment and try again."
	limiterIdleTTL     = 10 * time.Minute
)

type visitorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter limits upload attempts per client IP.
type IPRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*visitorLimiter
	rate      rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time

	trustForwarded bool
}

// NewIPRateLimiter allows perMinute uploads per IP with a burst of the same
// size (at least one). A non-positive perMinute disables limiting. Visitors
// are keyed by the connection address; X-Forwarded-For is only honoured when
// trustForwarded is set, i.e. behind a proxy that overwrites it.
func NewIPRateLimiter(perMinute float64, trustForwarded bool) *IPRateLimiter {
	burst := int(perMinute)
	if burst < 1 {
		burst = 1
	}

	return &IPRateLimiter{
		limiters: make(map[string]*visitorLimiter),
		rate:     rate.Limit(perMinute / 60),
		burst:    burst,
		now:      time.Now,

		trustForwarded: trustForwarded,
	}
}

// Enabled reports whether the limiter rejects anything.
func (i *IPRateLimiter) Enabled() bool {
	return i != nil && i.rate > 0
}

// Allow reports whether the IP may upload now.
func (i *IPRateLimiter) Allow(ip string) bool {
	if !i.Enabled() {
		return true
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now()
	i.sweep(now)

	v, exists := i.limiters[ip]
	if !exists {
		v = &visitorLimiter{limiter: rate.NewLimiter(i.rate, i.burst)}
		i.limiters[ip] = v
	}

	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// sweep drops limiters of idle visitors. Callers hold i.mu.
func (i *IPRateLimiter) sweep(now time.Time) {
	if now.Sub(i.lastSweep) < limiterIdleTTL {
		return
	}

	for ip, v := range i.limiters {
		if now.Sub(v.lastSeen) > limiterIdleTTL {
			delete(i.limiters, ip)
		}
	}

	i.lastSweep = now
}

// visitorKey identifies the client a request is counted against.
func (i *IPRateLimiter) visitorKey(r *http.Request) string {
	if i.trustForwarded {
		if ip := forwardedFor(r.Header); ip != "" {
			return ip
		}
	}

	return socketIP(r.RemoteAddr)
}

// Handler rejects uploads over the limit with an error flash.
func (i *IPRateLimiter) Handler() flamego.Handler {
	return func(c flamego.Context, s session.Session) {
		if i.Allow(i.visitorKey(c.Request().Request)) {
			c.Next()
			return
		}

		logger.Warn("upload rate limited", baseRequestFields(c)...)
		SetErrorFlash(s, rateLimitedMessage)
		c.Redirect("/", http.StatusSeeOther)
	}
}
