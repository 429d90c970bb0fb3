// SPDX-FileCopyrightText: 2026 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package analyzer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

const sampleAnalysis = `{
  "patientInfo": {"name": "Jane Doe", "age": 42, "gender": "", "date": "2024-03-01"},
  "abnormalResults": [
    {"parameter": "Hemoglobin", "value": 10.2, "unit": "g/dL", "interpretation": "Low hemoglobin"}
  ],
  "allResults": [
    {"parameter": "Hemoglobin", "value": 10.2, "unit": "g/dL", "referenceRange": "12-16", "status": "abnormal"},
    {"parameter": "WBC", "value": "7,500", "unit": "/uL", "status": "normal"}
  ],
  "recommendations": ["Increase iron intake", "Repeat CBC in 4 weeks"]
}`

func newAnalyzerServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	return srv, &calls
}

func TestAnalyzeSendsSingleMultipartFileField(t *testing.T) {
	t.Parallel()

	srv, _ := newAnalyzerServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}

		if got := r.Header.Get(RequestIDHeader); got != "req-123" {
			t.Errorf("expected request id header, got %q", got)
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
			return
		}

		if len(r.MultipartForm.File) != 1 || len(r.MultipartForm.Value) != 0 {
			t.Errorf("expected exactly one file field, got files=%d values=%d", len(r.MultipartForm.File), len(r.MultipartForm.Value))
		}

		file, header, err := r.FormFile(FormField)
		if err != nil {
			t.Errorf("missing %q field: %v", FormField, err)
			return
		}
		defer file.Close()

		if header.Filename != "report.PDF" {
			t.Errorf("unexpected filename %q", header.Filename)
		}

		if got := header.Header.Get("Content-Type"); got != "application/pdf" {
			t.Errorf("unexpected part content type %q", got)
		}

		content, _ := io.ReadAll(file)
		if string(content) != "%PDF-1.4" {
			t.Errorf("unexpected file content %q", content)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, sampleAnalysis)
	})

	ctx := ContextWithRequestID(context.Background(), "req-123")

	analysis, err := NewClient(srv.URL).Analyze(ctx, `C:\scans\report.PDF`, strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if analysis.PatientInfo.Len() != 4 {
		t.Fatalf("expected 4 patient fields, got %d", analysis.PatientInfo.Len())
	}

	if len(analysis.AbnormalResults) != 1 || len(analysis.AllResults) != 2 || len(analysis.Recommendations) != 2 {
		t.Fatalf("unexpected analysis shape: %+v", analysis)
	}
}

func TestAnalyzeRejectsUnsupportedFileWithoutNetworkCall(t *testing.T) {
	t.Parallel()

	srv, calls := newAnalyzerServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := NewClient(srv.URL).Analyze(context.Background(), "notes.docx", strings.NewReader("x"))
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}

	if calls.Load() != 0 {
		t.Fatalf("expected no analyzer calls, got %d", calls.Load())
	}

	if msg := UserMessage(err); msg != MsgInvalidFileType {
		t.Fatalf("unexpected user message %q", msg)
	}
}

func TestAnalyzeErrorClasses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     error
		wantMessage string
		wantOutcome string
	}{
		{
			name:        "server detail",
			status:      http.StatusInternalServerError,
			body:        `{"detail": "Text extraction failed: No text extracted"}`,
			wantMessage: "Text extraction failed: No text extracted",
			wantOutcome: "server_error",
		},
		{
			name:        "server without detail",
			status:      http.StatusBadGateway,
			body:        `{"error": "upstream"}`,
			wantMessage: MsgAnalyzeFailed,
			wantOutcome: "server_error",
		},
		{
			name:        "server non-string detail",
			status:      http.StatusUnprocessableEntity,
			body:        `{"detail": [{"loc": ["body", "file"], "msg": "field required"}]}`,
			wantMessage: MsgAnalyzeFailed,
			wantOutcome: "server_error",
		},
		{
			name:        "server html body",
			status:      http.StatusInternalServerError,
			body:        `<html>oops</html>`,
			wantMessage: MsgAnalyzeFailed,
			wantOutcome: "server_error",
		},
		{
			name:        "empty object",
			status:      http.StatusOK,
			body:        `{}`,
			wantErr:     ErrEmptyAnalysis,
			wantMessage: MsgNoData,
			wantOutcome: "empty",
		},
		{
			name:        "empty body",
			status:      http.StatusOK,
			body:        ``,
			wantErr:     ErrEmptyAnalysis,
			wantMessage: MsgNoData,
			wantOutcome: "empty",
		},
		{
			name:        "malformed json",
			status:      http.StatusOK,
			body:        `{"patientInfo": `,
			wantErr:     ErrMalformedResponse,
			wantMessage: MsgTryAgain,
			wantOutcome: "malformed",
		},
		{
			name:        "array body",
			status:      http.StatusOK,
			body:        `[1, 2]`,
			wantErr:     ErrMalformedResponse,
			wantMessage: MsgTryAgain,
			wantOutcome: "malformed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, _ := newAnalyzerServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			analysis, err := NewClient(srv.URL).Analyze(context.Background(), "scan.png", strings.NewReader("png"))
			if err == nil {
				t.Fatalf("expected error, got analysis %+v", analysis)
			}

			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			if tt.status >= 300 {
				var serverErr *ServerError
				if !errors.As(err, &serverErr) || serverErr.StatusCode != tt.status {
					t.Fatalf("expected ServerError with status %d, got %v", tt.status, err)
				}
			}

			if got := UserMessage(err); got != tt.wantMessage {
				t.Fatalf("expected message %q, got %q", tt.wantMessage, got)
			}

			if got := Outcome(err); got != tt.wantOutcome {
				t.Fatalf("expected outcome %q, got %q", tt.wantOutcome, got)
			}
		})
	}
}

func TestAnalyzeUnreachableAnalyzer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	_, err := NewClient(endpoint).Analyze(context.Background(), "scan.jpeg", strings.NewReader("jpeg"))
	if !errors.Is(err, ErrAnalyzerUnreachable) {
		t.Fatalf("expected ErrAnalyzerUnreachable, got %v", err)
	}

	if got := UserMessage(err); got != MsgTryAgain {
		t.Fatalf("unexpected user message %q", got)
	}
}

func TestNewClientDefaultsEndpoint(t *testing.T) {
	t.Parallel()

	c := NewClient("  ")
	if c.Endpoint() != DefaultEndpoint {
		t.Fatalf("expected default endpoint, got %q", c.Endpoint())
	}

	if c.httpClient.Timeout != 0 {
		t.Fatalf("expected no client timeout, got %v", c.httpClient.Timeout)
	}

	custom := &http.Client{}
	if got := NewClient("http://analyzer", WithHTTPClient(custom)); got.httpClient != custom {
		t.Fatal("expected custom HTTP client to be used")
	}
}
