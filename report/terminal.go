/*
 * Copyright 2026 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
	titleStyle    = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	abnormalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	bulletStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
)

// RenderTerminal draws the cards of v for a terminal. Cards that have no
// content are left out; an empty view renders as "".
func RenderTerminal(v View) string {
	var cards []string

	if v.HasPatient() {
		cards = append(cards, renderPatient(v))
	}

	if v.HasResults() {
		cards = append(cards, renderResults(v))
	}

	if v.HasRecommendations() {
		cards = append(cards, renderRecommendations(v))
	}

	if len(cards) == 0 {
		return ""
	}

	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func card(title string, lines []string) string {
	body := append([]string{titleStyle.Render(title), ""}, lines...)
	return cardStyle.Render(strings.Join(body, "\n"))
}

func renderPatient(v View) string {
	width := 0
	for _, f := range v.Patient {
		width = max(width, lipgloss.Width(f.Label))
	}

	lines := make([]string, 0, len(v.Patient))
	for _, f := range v.Patient {
		label := f.Label + strings.Repeat(" ", width-lipgloss.Width(f.Label))
		lines = append(lines, mutedStyle.Render(label)+"  "+f.Value)
	}

	return card("Patient Information", lines)
}

func renderResults(v View) string {
	var lines []string

	for _, r := range v.Abnormal {
		lines = append(lines, abnormalStyle.Render("! ")+r.Parameter+"  "+titleStyle.Render(r.Measurement))
		if r.Interpretation != "" {
			lines = append(lines, "  "+abnormalStyle.Render(r.Interpretation))
		}
	}

	if v.ShowAllRows() {
		if len(lines) > 0 {
			lines = append(lines, "")
		}

		for _, r := range v.All {
			row := r.Parameter + "  " + r.Measurement + "  " + mutedStyle.Render("Range: "+r.Range)
			if r.Abnormal {
				row = abnormalStyle.Render("! ") + row
			} else {
				row = "  " + row
			}

			lines = append(lines, row)
		}
	} else if len(v.All) > 0 {
		lines = append(lines, "", mutedStyle.Render("(use --all to show all results)"))
	}

	return card("Test Results", lines)
}

func renderRecommendations(v View) string {
	lines := make([]string, 0, len(v.Recommendations))
	for _, rec := range v.Recommendations {
		lines = append(lines, bulletStyle.Render("•")+" "+rec)
	}

	return card("Recommendations", lines)
}
