package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/sptdl/internal/models"
	"github.com/desertthunder/sptdl/internal/shared"
	th "github.com/desertthunder/sptdl/internal/testing"
)

func sampleList() TrackList {
	return TrackList{
		Reference: "https://open.spotify.com/playlist/test123",
		Tracks: []models.Track{
			{
				ID:       "track1",
				Title:    "Song One",
				Artists:  []string{"Artist One", "Guest"},
				Album:    "Album One",
				Year:     "2020",
				Duration: 180,
				ISRC:     "USRC12345678",
				CoverURL: "https://i.scdn.co/image/abc",
			},
			{
				ID:       "track2",
				Title:    "Song: Two?",
				Artists:  []string{"Artist Two"},
				Duration: 240,
			},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleList())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "ID,Title,Artists,Album,Year,Duration,ISRC") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, `"Artist One, Guest"`) {
			t.Errorf("CSV should quote the joined artist line, got: %s", output)
		}
		if !strings.Contains(output, "USRC12345678") {
			t.Errorf("CSV missing track1 ISRC")
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleList())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# https://open.spotify.com/playlist/test123",
			"![Cover](https://i.scdn.co/image/abc)",
			"**Tracks**: 2",
			"**Length**: 7:00",
			"1. Artist One, Guest - Song One (Album One) [3:00]",
			"2. Artist Two - Song: Two? [4:00]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleList())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Tracks: 2") || !strings.Contains(output, "1. Artist One, Guest - Song One [3:00]") {
			t.Errorf("unexpected text output:\n%s", output)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleList())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded []map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(decoded))
		}
		if decoded[1]["filename"] != "Artist Two - Song Two.mp3" {
			t.Errorf("unexpected sanitized filename %v", decoded[1]["filename"])
		}
		if _, ok := decoded[1]["album"]; ok {
			t.Error("empty album should be omitted")
		}
	})

	t.Run("Empty list", func(t *testing.T) {
		for _, f := range Formats {
			if _, err := Render(TrackList{Reference: "x"}, f); err != nil {
				t.Errorf("Render(%s) on empty list failed: %v", f, err)
			}
		}
	})
}

func TestParseFormat(t *testing.T) {
	tc := []struct {
		in   string
		want Format
	}{
		{"", FormatText},
		{"txt", FormatText},
		{"CSV", FormatCSV},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"json", FormatJSON},
	}
	for _, tt := range tc {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}
}

func TestWriteExport(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "out.csv")

		got, err := WriteExport(sampleList(), FormatCSV, path)
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		th.AssertFileExists(t, path)
		if !strings.HasPrefix(th.MustReadFile(t, path), "ID,Title") {
			t.Error("unexpected file contents")
		}
	})

	t.Run("default path", func(t *testing.T) {
		t.Chdir(t.TempDir())

		got, err := WriteExport(sampleList(), FormatMarkdown, "")
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != "test123_tracks.md" {
			t.Errorf("unexpected default path %s", got)
		}
		th.AssertFileExists(t, got)
	})
}
