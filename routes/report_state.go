/*
 * Copyright 2026 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"fmt"

	"github.com/flamego/session"

	"github.com/humaidq/hemalyze/analyzer"
)

const (
	sessionKeyAnalysis = "report_analysis"
	sessionKeyFileName = "report_file_name"
)

// storeAnalysis replaces the visitor's analysis. Only the received JSON is
// kept; it is decoded again on each page view.
func storeAnalysis(s session.Session, fileName string, analysis *analyzer.ReportAnalysis) {
	s.Set(sessionKeyFileName, fileName)
	s.Set(sessionKeyAnalysis, analysis.Raw())
}

// clearAnalysis drops the stored analysis and records the file whose upload failed.
func clearAnalysis(s session.Session, fileName string) {
	s.Delete(sessionKeyAnalysis)
	s.Set(sessionKeyFileName, fileName)
}

func sessionFileName(s session.Session) string {
	name, _ := s.Get(sessionKeyFileName).(string)
	return name
}

func loadAnalysis(s session.Session) (*analyzer.ReportAnalysis, error) {
	raw, ok := s.Get(sessionKeyAnalysis).([]byte)
	if !ok || len(raw) == 0 {
		return nil, errNoAnalysis
	}

	analysis, err := analyzer.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errAnalysisCorrupt, err)
	}

	return analysis, nil
}
