// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package notify

import "github.com/charmbracelet/lipgloss"

type styles struct {
	success lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	faint   lipgloss.Style
	alert   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		success: r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		warning: r.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		info:    r.NewStyle().Foreground(lipgloss.Color("6")),
		faint:   r.NewStyle().Faint(true),
		alert:   r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("1")).Padding(0, 1),
	}
}
