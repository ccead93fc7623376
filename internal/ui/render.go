package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/sptdl/internal/models"
)

// Banner renders the application title line.
func Banner(name, version string) string {
	return styles.title.Render(fmt.Sprintf("♫ %s %s", name, version))
}

// KeyValueTable renders two-column rows, e.g. the active configuration.
func KeyValueTable(rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return styles.help.PaddingRight(1)
			}
			return lipgloss.NewStyle().PaddingLeft(1)
		}).
		Rows(rows...)
	return t.Render()
}

// HeaderTable renders rows under a header row.
func HeaderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.border).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.success.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Rows(rows...)
	return t.Render()
}

// StatusLine renders one finished track for console output.
func StatusLine(step, total int, res models.DownloadResult) string {
	prefix := fmt.Sprintf("[%d/%d]", step, total)
	switch res.Status {
	case models.StatusCompleted:
		return fmt.Sprintf("%s %s %s", prefix, Success("✓"), res.Track)
	case models.StatusSkipped:
		return fmt.Sprintf("%s %s %s %s", prefix, Muted("-"), res.Track, Muted("(already exists)"))
	default:
		return fmt.Sprintf("%s %s %s: %v", prefix, Error("✗"), res.Track, res.Err)
	}
}

// Summary renders aggregate stats followed by the failed tracks, if any.
func Summary(stats models.Stats, results []models.DownloadResult) string {
	rows := [][]string{
		{"Total", fmt.Sprint(stats.Total)},
		{"Succeeded", Success(fmt.Sprint(stats.Succeeded))},
		{"Skipped", Muted(fmt.Sprint(stats.Skipped))},
		{"Failed", failedCount(stats.Failed)},
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("Summary") + "\n")
	b.WriteString(KeyValueTable(rows) + "\n")

	var failed []string
	for _, r := range results {
		if r.Status == models.StatusFailed {
			failed = append(failed, fmt.Sprintf("  • %s", r.Track))
		}
	}
	if len(failed) > 0 {
		b.WriteString(Warning(fmt.Sprintf("Failed tracks (%d):", len(failed))) + "\n")
		b.WriteString(strings.Join(failed, "\n") + "\n")
	}
	return b.String()
}

func failedCount(n int) string {
	if n == 0 {
		return fmt.Sprint(n)
	}
	return Error(fmt.Sprint(n))
}
