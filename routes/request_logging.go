/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/flamego/flamego"
	"github.com/google/uuid"

	"github.com/humaidq/hemalyze/analyzer"
	"github.com/humaidq/hemalyze/logging"
)

var (
	logger        = logging.Logger(logging.SourceWeb)
	requestLogger = logging.Logger(logging.SourceWebRequest)
)

// RequestLogger logs request metadata and timing for each HTTP request. It
// also assigns the request id echoed in the X-Request-ID response header.
func RequestLogger(c flamego.Context) {
	start := time.Now()

	id := strings.TrimSpace(c.Request().Header.Get(analyzer.RequestIDHeader))
	if id == "" || len(id) > 64 {
		id = uuid.NewString()
	}

	c.ResponseWriter().Header().Set(analyzer.RequestIDHeader, id)

	c.Next()

	status := c.ResponseWriter().Status()
	if status == 0 {
		status = http.StatusOK
	}

	fields := []interface{}{
		"event", "request",
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	fields = append(fields, baseRequestFields(c)...)

	requestLogger.Info("request", fields...)
}

func baseRequestFields(c flamego.Context) []interface{} {
	return []interface{}{
		"request_id", requestID(c),
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
		"ip", clientIP(c),
		"user_agent", c.Request().UserAgent(),
	}
}

// requestID returns the id assigned by RequestLogger, if it ran.
func requestID(c flamego.Context) string {
	return c.ResponseWriter().Header().Get(analyzer.RequestIDHeader)
}

// clientIP is the address reported in logs. It prefers X-Forwarded-For and
// must not be used for access decisions.
func clientIP(c flamego.Context) string {
	if ip := forwardedFor(c.Request().Header); ip != "" {
		return ip
	}

	return c.RemoteAddr()
}

// forwardedFor returns the first address of X-Forwarded-For, if any.
func forwardedFor(header http.Header) string {
	value := header.Get("X-Forwarded-For")
	if idx := strings.Index(value, ","); idx != -1 {
		value = value[:idx]
	}

	return strings.TrimSpace(value)
}

// socketIP returns the host part of the connection's remote address.
func socketIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}

	return host
}
