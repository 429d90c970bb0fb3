/*
 * Copyright 2026 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analyzer

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyAnalysis       = errors.New("analysis contains no data")
	ErrMalformedResponse   = errors.New("malformed analyzer response")
	ErrAnalyzerUnreachable = errors.New("analyzer unreachable")
	errNotAnObject         = errors.New("not a JSON object")
)

// Messages shown to the user for each failure class.
const (
	MsgInvalidFileType = "Invalid file type. Please upload PDF or image files only."
	MsgAnalyzeFailed   = "Failed to analyze report"
	MsgNoData          = "No data could be extracted from the report"
	MsgTryAgain        = "Failed to analyze report. Please try again."
)

// ServerError is returned when the analyzer answers with a non-2xx status.
type ServerError struct {
	StatusCode int
	// Detail is the "detail" field of the JSON error body, if any.
	Detail string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("analyzer returned status %d: %s", e.StatusCode, e.Detail)
	}

	return fmt.Sprintf("analyzer returned status %d", e.StatusCode)
}

// UserMessage maps an Analyze error to the single message displayed to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var serverErr *ServerError

	switch {
	case errors.Is(err, ErrUnsupportedFileType):
		return MsgInvalidFileType
	case errors.As(err, &serverErr):
		if serverErr.Detail != "" {
			return serverErr.Detail
		}

		return MsgAnalyzeFailed
	case errors.Is(err, ErrEmptyAnalysis):
		return MsgNoData
	default:
		return MsgTryAgain
	}
}

// Outcome returns a short label for an Analyze result, used for metrics and logs.
func Outcome(err error) string {
	var serverErr *ServerError

	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnsupportedFileType):
		return "invalid_file"
	case errors.As(err, &serverErr):
		return "server_error"
	case errors.Is(err, ErrEmptyAnalysis):
		return "empty"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ErrAnalyzerUnreachable):
		return "unreachable"
	default:
		return "error"
	}
}
