/*
 * Copyright 2026 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package report

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/humaidq/hemalyze/analyzer"
)

// NotAvailable is shown in place of missing values.
const NotAvailable = "N/A"

const (
	toggleShowAll      = "Show All Results"
	toggleAbnormalOnly = "Show Abnormal Only"
)

// Field is a label/value pair of the patient card.
type Field struct {
	Label string
	Value string
}

// ResultRow is one row of the results card.
type ResultRow struct {
	Parameter      string
	Interpretation string
	Measurement    string
	Range          string
	Abnormal       bool
}

// View holds everything needed to draw the three result cards.
type View struct {
	Patient         []Field
	Abnormal        []ResultRow
	All             []ResultRow
	Recommendations []string
	ShowAll         bool
}

// Build maps an analysis onto the three cards. A nil analysis yields an
// empty view.
func Build(a *analyzer.ReportAnalysis, showAll bool) View {
	v := View{ShowAll: showAll}
	if a == nil {
		return v
	}

	for _, f := range a.PatientInfo.Fields() {
		value := NotAvailable
		if !f.Value.Falsy() {
			value = f.Value.String()
		}

		v.Patient = append(v.Patient, Field{Label: Label(f.Key), Value: value})
	}

	for _, r := range a.AbnormalResults {
		v.Abnormal = append(v.Abnormal, newRow(r))
	}

	for _, r := range a.AllResults {
		v.All = append(v.All, newRow(r))
	}

	v.Recommendations = append(v.Recommendations, a.Recommendations...)

	return v
}

func newRow(r analyzer.ResultEntry) ResultRow {
	rng := r.ReferenceRange
	if rng == "" {
		rng = NotAvailable
	}

	return ResultRow{
		Parameter:      r.Parameter,
		Interpretation: r.Interpretation,
		Measurement:    strings.TrimSpace(r.Value.String() + " " + r.Unit),
		Range:          rng,
		Abnormal:       r.IsAbnormal(),
	}
}

// Label capitalises each word of a patient field key.
func Label(key string) string {
	// Casers are stateful and cannot be shared between requests.
	return cases.Title(language.Und, cases.NoLower).String(key)
}

// HasPatient reports whether the patient card is shown.
func (v View) HasPatient() bool {
	return len(v.Patient) > 0
}

// HasResults reports whether the results card is shown.
func (v View) HasResults() bool {
	return len(v.Abnormal) > 0 || len(v.All) > 0
}

// HasRecommendations reports whether the recommendations card is shown.
func (v View) HasRecommendations() bool {
	return len(v.Recommendations) > 0
}

// Empty reports whether no card is shown at all.
func (v View) Empty() bool {
	return !v.HasPatient() && !v.HasResults() && !v.HasRecommendations()
}

// ShowAllRows reports whether the full result list is drawn.
func (v View) ShowAllRows() bool {
	return v.ShowAll && len(v.All) > 0
}

// ToggleLabel is the caption of the show-all toggle.
func (v View) ToggleLabel() string {
	if v.ShowAll {
		return toggleAbnormalOnly
	}

	return toggleShowAll
}
