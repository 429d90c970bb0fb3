/*
 * Copyright 2026 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/humaidq/hemalyze/logging"
)

// DefaultEndpoint is the analyzer address used when none is configured.
const DefaultEndpoint = "http://localhost:8000/api/analyze-report"

// FormField is the multipart field carrying the report document.
const FormField = "file"

// RequestIDHeader is forwarded to the analyzer when the context carries an id.
const RequestIDHeader = "X-Request-ID"

const (
	maxResponseBytes = 16 << 20
	maxErrorBytes    = 1 << 20
)

var logger = logging.Logger(logging.SourceAnalyzer)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

type requestIDKey struct{}

// ContextWithRequestID attaches a request id that Analyze forwards upstream.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Client posts report documents to the external analyzer.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for analyzer calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient returns a client for the given analyzer endpoint. An empty
// endpoint selects DefaultEndpoint. The default HTTP client sets no timeout.
func NewClient(endpoint string, opts ...Option) *Client {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Endpoint returns the analyzer URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Analyze uploads one report document and decodes the analysis. Unsupported
// file names are rejected before any network traffic.
func (c *Client) Analyze(ctx context.Context, filename string, document io.Reader) (*ReportAnalysis, error) {
	if err := ValidateFilename(filename); err != nil {
		return nil, err
	}

	filename = BaseName(filename)

	body, contentType, err := buildUploadBody(filename, document)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	if id := requestIDFromContext(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}

	start := time.Now()

	logger.Debug("sending report", "file", filename, "bytes", body.Len(), "endpoint", c.endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalyzerUnreachable, err)
	}
	defer resp.Body.Close()

	logger.Debug("analyzer responded", "file", filename, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readServerError(resp)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrAnalyzerUnreachable, err)
	}

	return Decode(raw)
}

func buildUploadBody(filename string, document io.Reader) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FormField, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", ContentType(filename))

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form part: %w", err)
	}

	if _, err := io.Copy(part, document); err != nil {
		return nil, "", fmt.Errorf("failed to read document: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}

	return &buf, mw.FormDataContentType(), nil
}

func readServerError(resp *http.Response) error {
	serverErr := &ServerError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
	if err != nil {
		return serverErr
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		logger.Warn("analyzer error body is not JSON", "status", resp.StatusCode)
		return serverErr
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		serverErr.Detail = strings.TrimSpace(detail)
	}

	return serverErr
}
