// package formatter renders resolved track lists in various formats (CSV, Markdown, JSON, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/sptdl/internal/models"
	"github.com/desertthunder/sptdl/internal/shared"
	"github.com/samber/lo"
)

// Format is an export format name.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatJSON     Format = "json"
)

// Formats lists the supported formats in help order.
var Formats = []Format{FormatText, FormatCSV, FormatMarkdown, FormatJSON}

// ParseFormat accepts a format name or a common alias ("txt", "markdown").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
}

// Ext returns the file extension for f.
func (f Format) Ext() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// TrackList is a resolved reference with its tracks.
type TrackList struct {
	Reference string
	Tracks    []models.Track
}

type jsonTrack struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album,omitempty"`
	Year        string   `json:"year,omitempty"`
	Duration    int      `json:"duration"`
	TrackNumber int      `json:"track_number,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	ISRC        string   `json:"isrc,omitempty"`
	URL         string   `json:"url,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty"`
	Filename    string   `json:"filename"`
}

// Render dispatches to the exporter for f.
func Render(list TrackList, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(list)
	case FormatMarkdown:
		return ExportToMarkdown(list)
	case FormatJSON:
		return ExportToJSON(list)
	default:
		return ExportToText(list)
	}
}

// ExportToCSV converts a TrackList to CSV format with columns: ID, Title, Artists, Album, Year, Duration, ISRC
func ExportToCSV(list TrackList) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artists", "Album", "Year", "Duration", "ISRC"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range list.Tracks {
		record := []string{
			track.ID,
			track.Title,
			track.ArtistLine(),
			track.Album,
			track.Year,
			strconv.Itoa(track.Duration),
			track.ISRC,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a TrackList to a Markdown document
func ExportToMarkdown(list TrackList) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", list.Reference)
	if len(list.Tracks) > 0 && list.Tracks[0].CoverURL != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", list.Tracks[0].CoverURL)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(list.Tracks))
	fmt.Fprintf(&buf, "**Length**: %s\n\n", shared.FormatDuration(totalDuration(list.Tracks)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range list.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.ArtistLine(), track.Title, albumPart, shared.FormatDuration(track.Duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a TrackList to plain text format
func ExportToText(list TrackList) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Reference: %s\n", list.Reference)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(list.Tracks))

	for i, track := range list.Tracks {
		fmt.Fprintf(&buf, "%d. %s [%s]\n", i+1, track, shared.FormatDuration(track.Duration))
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a TrackList to an indented JSON array. Each entry carries the file name
// the default template would produce.
func ExportToJSON(list TrackList) ([]byte, error) {
	out := make([]jsonTrack, len(list.Tracks))
	for i, t := range list.Tracks {
		out[i] = jsonTrack{
			ID:          t.ID,
			Title:       t.Title,
			Artists:     t.Artists,
			Album:       t.Album,
			Year:        t.Year,
			Duration:    t.Duration,
			TrackNumber: t.TrackNumber,
			Genres:      t.Genres,
			ISRC:        t.ISRC,
			URL:         t.URL,
			CoverURL:    t.CoverURL,
			Filename:    shared.TargetFilename(t, "mp3"),
		}
	}
	return shared.MarshalJSON(out, true)
}

// WriteExport renders list and writes it to path, creating parent directories.
//
// An empty path defaults to "{reference id}_tracks.{ext}" in the working directory.
func WriteExport(list TrackList, f Format, path string) (string, error) {
	if path == "" {
		base := shared.Sanitize(filepath.Base(list.Reference))
		if base == "" || base == "." {
			base = "export"
		}
		path = fmt.Sprintf("%s_tracks.%s", base, f.Ext())
	}

	data, err := Render(list, f)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", f, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}
	return path, nil
}

func totalDuration(tracks []models.Track) int {
	return lo.SumBy(tracks, func(t models.Track) int { return t.Duration })
}
