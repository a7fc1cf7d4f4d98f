package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/thywilljoshua/bookingest/internal/convert"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

func statusStyle(s convert.Status) lipgloss.Style {
	switch s {
	case convert.StatusComplete:
		return successStyle
	case convert.StatusIncomplete:
		return warnStyle
	case convert.StatusFailed:
		return errorStyle
	default:
		return dimStyle
	}
}

// renderReport prints one line per book and a summary box.
func renderReport(w io.Writer, r convert.Report) {
	idWidth := 0
	for _, b := range r.Books {
		idWidth = max(idWidth, len(b.ID))
	}

	var lines []string
	for _, b := range r.Books {
		status := statusStyle(b.Status).Render(fmt.Sprintf("%-10s", strings.ToUpper(string(b.Status))))
		line := fmt.Sprintf("%s %-*s", status, idWidth, b.ID)
		switch b.Status {
		case convert.StatusComplete, convert.StatusIncomplete:
			line += dimStyle.Render(fmt.Sprintf("  %d pages  %d sections  %d images  %d turns  %s",
				b.Pages, b.Sections, b.Images, b.Turns, b.Elapsed.Round(time.Second)))
		}
		if b.Reason != "" {
			line += "  " + dimStyle.Render(b.Reason)
		}
		lines = append(lines, line)
	}
	if len(lines) > 0 {
		fmt.Fprintln(w, strings.Join(lines, "\n"))
	}

	summary := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		dimStyle.Render("Complete:"), successStyle.Render(fmt.Sprint(r.Count(convert.StatusComplete))),
		dimStyle.Render("Incomplete:"), warnStyle.Render(fmt.Sprint(r.Count(convert.StatusIncomplete))),
		dimStyle.Render("Skipped:"), fmt.Sprint(r.Count(convert.StatusSkipped)),
		dimStyle.Render("Failed:"), errorStyle.Render(fmt.Sprint(r.Count(convert.StatusFailed))),
	)
	if r.RunID != "" {
		summary = fmt.Sprintf("%s %s\n%s\n%s %s",
			dimStyle.Render("Run:"), titleStyle.Render(r.RunID),
			summary,
			dimStyle.Render("Elapsed:"), r.Elapsed.Round(time.Second),
		)
	}
	fmt.Fprintln(w, boxStyle.Render(summary))
}
