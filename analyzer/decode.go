/*
 * Copyright 2026 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analyzer

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type wireAnalysis struct {
	PatientInfo     json.RawMessage `json:"patientInfo"`
	AbnormalResults json.RawMessage `json:"abnormalResults"`
	AllResults      json.RawMessage `json:"allResults"`
	Recommendations json.RawMessage `json:"recommendations"`
}

type wireResult struct {
	Parameter      Value `json:"parameter"`
	Value          Value `json:"value"`
	Unit           Value `json:"unit"`
	ReferenceRange Value `json:"referenceRange"`
	Status         Value `json:"status"`
	Interpretation Value `json:"interpretation"`
}

// Decode parses an analyzer response body. A body that is not a JSON object
// yields ErrMalformedResponse; an object with none of the analysis sections
// yields ErrEmptyAnalysis. Sections of the wrong shape are treated as absent.
func Decode(body []byte) (*ReportAnalysis, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrEmptyAnalysis
	}

	if trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, errNotAnObject)
	}

	var wire wireAnalysis
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if wire.PatientInfo == nil && wire.AbnormalResults == nil &&
		wire.AllResults == nil && wire.Recommendations == nil {
		return nil, ErrEmptyAnalysis
	}

	analysis := &ReportAnalysis{
		PatientInfo:     NewPatientInfo(),
		AbnormalResults: decodeResults(wire.AbnormalResults),
		AllResults:      decodeResults(wire.AllResults),
		Recommendations: decodeStrings(wire.Recommendations),
		raw:             append([]byte(nil), trimmed...),
	}

	if len(wire.PatientInfo) > 0 {
		info := NewPatientInfo()
		if err := info.UnmarshalJSON(wire.PatientInfo); err == nil {
			analysis.PatientInfo = info
		}
	}

	return analysis, nil
}

func decodeResults(raw json.RawMessage) []ResultEntry {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	results := make([]ResultEntry, 0, len(items))

	for _, item := range items {
		if bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
			continue
		}

		var w wireResult
		if err := json.Unmarshal(item, &w); err != nil {
			continue
		}

		results = append(results, ResultEntry{
			Parameter:      w.Parameter.String(),
			Value:          w.Value,
			Unit:           w.Unit.String(),
			ReferenceRange: w.ReferenceRange.String(),
			Status:         w.Status.String(),
			Interpretation: w.Interpretation.String(),
		})
	}

	return results
}

func decodeStrings(raw json.RawMessage) []string {
	var items []Value
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}

	return out
}
