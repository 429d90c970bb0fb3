/*
 * Copyright 2026 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/humaidq/hemalyze/analyzer"
	"github.com/humaidq/hemalyze/metrics"
	"github.com/humaidq/hemalyze/report"
)

// MaxUploadBytes is the largest upload request accepted, multipart framing
// included.
const MaxUploadBytes = 20 << 20

const (
	uploadMaxMemory      = 32 << 20
	uploadMissingMsg     = "No file uploaded or invalid file"
	uploadTooLargeMsg    = "File is too large. Please upload a report under 20 MB."
	uploadSuccessMsg     = "Report analyzed"
	exportUnavailableMsg = "No analysis to export. Upload a report first."
	outcomeTooLarge      = "too_large"
)

// ReportAnalyzer sends a report document to the external analyzer.
type ReportAnalyzer interface {
	Analyze(ctx context.Context, filename string, document io.Reader) (*analyzer.ReportAnalysis, error)
}

// ReportPage renders the upload card and the cards of the visitor's analysis.
func ReportPage(c flamego.Context, s session.Session, t template.Template, data template.Data) {
	setSiteTitle(data)

	showAll, _ := strconv.ParseBool(c.Query("all"))

	data["Accept"] = analyzer.AcceptAttr
	data["FileName"] = sessionFileName(s)
	data["ShowAll"] = showAll

	if showAll {
		data["ToggleURL"] = "/"
	} else {
		data["ToggleURL"] = "/?all=1"
	}

	analysis, err := loadAnalysis(s)

	switch {
	case err == nil:
		data["HasAnalysis"] = true
		data["View"] = report.Build(analysis, showAll)
	case errors.Is(err, errNoAnalysis):
	default:
		logger.Error("Error loading stored analysis", "error", err)
		s.Delete(sessionKeyAnalysis)
	}

	t.HTML(http.StatusOK, "index")
}

// AnalyzeReport forwards one uploaded report to the analyzer and stores the
// outcome in the session. Every outcome redirects back to the report page.
func AnalyzeReport(c flamego.Context, s session.Session, a ReportAnalyzer) {
	if err := c.Request().ParseMultipartForm(uploadMaxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rejectOversizedUpload(c, s)
			return
		}

		logger.Error("Error parsing upload form", "error", err)
		SetErrorFlash(s, uploadMissingMsg)
		c.Redirect("/", http.StatusSeeOther)

		return
	}

	file, header, err := c.Request().FormFile(analyzer.FormField)
	if err != nil {
		logger.Error("Error reading upload file", "error", err)
		SetErrorFlash(s, uploadMissingMsg)
		c.Redirect("/", http.StatusSeeOther)

		return
	}

	defer func() {
		if err := file.Close(); err != nil {
			logger.Error("Error closing upload file", "error", err)
		}
	}()

	fileName := analyzer.BaseName(header.Filename)

	// Rejected files leave the previous analysis in place.
	if err := analyzer.ValidateFilename(fileName); err != nil {
		metrics.RecordAnalysis(analyzer.Outcome(err), 0)
		logger.Info("Rejected upload", "file", fileName, "request_id", requestID(c))
		SetErrorFlash(s, analyzer.UserMessage(err))
		c.Redirect("/", http.StatusSeeOther)

		return
	}

	ctx := c.Request().Context()
	if id := requestID(c); id != "" {
		ctx = analyzer.ContextWithRequestID(ctx, id)
	}

	start := time.Now()
	analysis, err := a.Analyze(ctx, fileName, file)
	waited := time.Since(start)

	metrics.RecordAnalysis(analyzer.Outcome(err), waited)

	if err != nil {
		logger.Error("Error analyzing report",
			"file", fileName,
			"outcome", analyzer.Outcome(err),
			"request_id", requestID(c),
			"error", err,
		)
		clearAnalysis(s, fileName)
		SetErrorFlash(s, analyzer.UserMessage(err))
		c.Redirect("/", http.StatusSeeOther)

		return
	}

	logger.Info("Report analyzed",
		"file", fileName,
		"abnormal", len(analysis.AbnormalResults),
		"results", len(analysis.AllResults),
		"duration_ms", waited.Milliseconds(),
		"request_id", requestID(c),
	)

	storeAnalysis(s, fileName, analysis)
	SetSuccessFlash(s, uploadSuccessMsg)
	c.Redirect("/", http.StatusSeeOther)
}

// LimitUploadSize caps the request body at limit bytes. Requests that
// announce a larger body are turned away before anything is read.
func LimitUploadSize(limit int64) flamego.Handler {
	return func(c flamego.Context, s session.Session) {
		r := c.Request().Request
		if r.ContentLength > limit {
			rejectOversizedUpload(c, s)
			return
		}

		r.Body = http.MaxBytesReader(c.ResponseWriter(), r.Body, limit)

		c.Next()
	}
}

func rejectOversizedUpload(c flamego.Context, s session.Session) {
	metrics.RecordAnalysis(outcomeTooLarge, 0)
	logger.Info("Rejected oversized upload", "content_length", c.Request().ContentLength, "request_id", requestID(c))
	SetErrorFlash(s, uploadTooLargeMsg)
	c.Redirect("/", http.StatusSeeOther)
}

// ExportReport downloads the visitor's analysis as indented JSON.
func ExportReport(c flamego.Context, s session.Session) {
	analysis, err := loadAnalysis(s)
	if err != nil {
		if !errors.Is(err, errNoAnalysis) {
			logger.Error("Error loading stored analysis", "error", err)
		}

		SetErrorFlash(s, exportUnavailableMsg)
		c.Redirect("/", http.StatusSeeOther)

		return
	}

	body, err := analysis.Export()
	if err != nil {
		logger.Error("Error exporting analysis", "error", err)
		SetErrorFlash(s, exportUnavailableMsg)
		c.Redirect("/", http.StatusSeeOther)

		return
	}

	metrics.RecordExport()

	header := c.ResponseWriter().Header()
	header.Set("Content-Type", "application/json")
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": analyzer.ExportFilename,
	}))
	header.Set("Content-Length", strconv.Itoa(len(body)))

	c.ResponseWriter().WriteHeader(http.StatusOK)

	if _, err := c.ResponseWriter().Write(body); err != nil {
		logger.Error("Error writing export response", "error", err)
	}
}
