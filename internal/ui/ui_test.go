package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sptdl/internal/models"
	"github.com/desertthunder/sptdl/internal/services"
	"github.com/desertthunder/sptdl/internal/tasks"
	tu "github.com/desertthunder/sptdl/internal/testing"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// stalledSearcher blocks every search until its context is cancelled.
type stalledSearcher struct {
	once    sync.Once
	started chan struct{}
}

func (s *stalledSearcher) Search(ctx context.Context, query string, limit int) ([]models.Candidate, error) {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSummary(t *testing.T) {
	results := []models.DownloadResult{
		{Track: models.Track{Title: "One", Artists: []string{"A"}}, Status: models.StatusCompleted},
		{Track: models.Track{Title: "Two", Artists: []string{"B"}}, Status: models.StatusFailed, Err: errors.New("boom")},
	}
	out := Summary(models.StatsFrom(results), results)

	for _, want := range []string{"Summary", "Total", "Succeeded", "Failed tracks (1)", "B - Two"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "A - One") {
		t.Error("successful tracks should not be listed")
	}

	clean := Summary(models.Stats{Total: 1, Succeeded: 1}, results[:1])
	if strings.Contains(clean, "Failed tracks") {
		t.Error("no failure section expected")
	}
}

func TestStatusLine(t *testing.T) {
	track := models.Track{Title: "Song", Artists: []string{"Artist"}}
	tc := []struct {
		name string
		res  models.DownloadResult
		want string
	}{
		{"completed", models.DownloadResult{Track: track, Status: models.StatusCompleted}, "Artist - Song"},
		{"skipped", models.DownloadResult{Track: track, Status: models.StatusSkipped}, "already exists"},
		{"failed", models.DownloadResult{Track: track, Status: models.StatusFailed, Err: errors.New("no match")}, "no match"},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := StatusLine(2, 5, tt.res)
			if !strings.Contains(got, "[2/5]") || !strings.Contains(got, tt.want) {
				t.Errorf("StatusLine() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestTables(t *testing.T) {
	kv := KeyValueTable([][]string{{"Engine", "ytdlp"}, {"Format", "mp3"}})
	if !strings.Contains(kv, "Engine") || !strings.Contains(kv, "ytdlp") {
		t.Errorf("unexpected table:\n%s", kv)
	}

	ht := HeaderTable([]string{"ID", "Reference"}, [][]string{{"1", "ref"}})
	if !strings.Contains(ht, "Reference") || !strings.Contains(ht, "ref") {
		t.Errorf("unexpected table:\n%s", ht)
	}
}

func TestModel(t *testing.T) {
	ref := services.Reference{Kind: services.KindPlaylist, ID: "abc"}

	t.Run("resolve, confirm and download", func(t *testing.T) {
		tracks := tu.Tracks(2)
		search := &tu.MockSearcher{Default: []models.Candidate{{Reference: "yt:1", Duration: models.Seconds(200)}}}
		pipeline := tasks.NewPipeline(
			&tasks.DirectStrategy{Searcher: search, Fetcher: &tu.MockFetcher{Content: "a"}},
			nil, tasks.PipelineOpts{Folder: t.TempDir()}, nil,
		)
		m := NewModel(context.Background(), &tu.MockProvider{Tracks: tracks}, pipeline, ref)

		m.Update(m.Init()())
		if m.view != TrackListView {
			t.Fatalf("expected track list, got view %d", m.view)
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if m.view != ConfirmView {
			t.Fatalf("expected confirm view, got %d", m.view)
		}
		if !strings.Contains(m.View(), "Download 2 tracks?") {
			t.Errorf("unexpected confirm view:\n%s", m.View())
		}

		_, cmd := m.Update(keyRunes("y"))
		if m.view != DownloadView {
			t.Fatalf("expected download view, got %d", m.view)
		}

		for i := 0; cmd != nil && i < 100; i++ {
			_, cmd = m.Update(cmd())
		}

		if m.view != ResultView || m.Result() == nil {
			t.Fatalf("expected result view with result, got %d", m.view)
		}
		if m.Result().Stats.Succeeded != 2 {
			t.Errorf("unexpected stats %+v", m.Result().Stats)
		}
		if !strings.Contains(m.View(), "Summary") {
			t.Errorf("expected summary in result view")
		}
	})

	t.Run("declining returns to the list", func(t *testing.T) {
		m := NewModel(context.Background(), &tu.MockProvider{Tracks: tu.Tracks(1)}, nil, ref)
		m.Update(m.Init()())
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m.Update(keyRunes("n"))
		if m.view != TrackListView {
			t.Errorf("expected track list, got %d", m.view)
		}
	})

	t.Run("quit from confirm exits", func(t *testing.T) {
		m := NewModel(context.Background(), &tu.MockProvider{Tracks: tu.Tracks(1)}, nil, ref)
		m.Update(m.Init()())
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})

		_, cmd := m.Update(keyRunes("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("expected tea.QuitMsg, got %T", cmd())
		}
	})

	t.Run("ctrl+c during download cancels the run", func(t *testing.T) {
		search := &stalledSearcher{started: make(chan struct{})}
		pipeline := tasks.NewPipeline(
			&tasks.DirectStrategy{Searcher: search, Fetcher: &tu.MockFetcher{Content: "a"}},
			nil, tasks.PipelineOpts{Folder: t.TempDir()}, nil,
		)
		m := NewModel(context.Background(), &tu.MockProvider{Tracks: tu.Tracks(3)}, pipeline, ref)
		m.Update(m.Init()())
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		_, cmd := m.Update(keyRunes("y"))

		<-search.started
		m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		if !strings.Contains(m.View(), "Cancelling") {
			t.Errorf("expected cancelling status:\n%s", m.View())
		}

		quit := false
		for i := 0; cmd != nil && i < 100; i++ {
			msg := cmd()
			if _, ok := msg.(tea.QuitMsg); ok {
				quit = true
				break
			}
			_, cmd = m.Update(msg)
		}

		if !quit {
			t.Fatal("expected the program to quit after the run stopped")
		}
		if m.Result() == nil || !m.Result().Interrupted {
			t.Fatalf("expected interrupted result, got %+v", m.Result())
		}
		if n := len(m.Result().Results); n != 1 {
			t.Errorf("expected 1 processed track, got %d", n)
		}
	})

	t.Run("resolve error", func(t *testing.T) {
		m := NewModel(context.Background(), &tu.MockProvider{Err: errors.New("404")}, nil, ref)
		m.Update(m.Init()())
		if m.view != ResultView || !strings.Contains(m.View(), "404") {
			t.Errorf("expected error result view, got %d:\n%s", m.view, m.View())
		}
	})
}

func TestPromptModel(t *testing.T) {
	t.Run("submit", func(t *testing.T) {
		var model tea.Model = newPromptModel("title", "")
		model, _ = model.Update(keyRunes(" https://open.spotify.com/track/x "))
		model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})

		pm := model.(promptModel)
		if pm.value != "https://open.spotify.com/track/x" || pm.cancelled {
			t.Errorf("unexpected prompt state %q cancelled=%v", pm.value, pm.cancelled)
		}
		if cmd == nil {
			t.Error("expected quit command")
		}
	})

	t.Run("cancel", func(t *testing.T) {
		var model tea.Model = newPromptModel("title", "")
		model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if !model.(promptModel).cancelled {
			t.Error("expected cancelled prompt")
		}
	})
}
