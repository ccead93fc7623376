package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/sptdl/internal/shared"
)

const searchOutput = `{"id":"aaa","title":"Foo - Song (Official Video)","duration":212.0,"webpage_url":"https://www.youtube.com/watch?v=aaa"}
{"id":"bbb","title":"Foo - Song (Live)","duration":null,"url":"https://www.youtube.com/watch?v=bbb"}
WARNING: something noisy
{"id":"ccc","title":"Foo - Song (Audio)","duration":199.6}
{"title":"no reference at all"}
`

func TestParseSearchOutput(t *testing.T) {
	candidates := parseSearchOutput(searchOutput)
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}

	t.Run("present duration", func(t *testing.T) {
		c := candidates[0]
		if c.Reference != "https://www.youtube.com/watch?v=aaa" {
			t.Errorf("unexpected reference %q", c.Reference)
		}
		if c.Duration == nil || *c.Duration != 212 {
			t.Errorf("expected duration 212, got %v", c.Duration)
		}
	})

	t.Run("null duration is absent", func(t *testing.T) {
		c := candidates[1]
		if c.Duration != nil {
			t.Errorf("expected nil duration, got %d", *c.Duration)
		}
		if c.Reference != "https://www.youtube.com/watch?v=bbb" {
			t.Errorf("expected url fallback, got %q", c.Reference)
		}
	})

	t.Run("id fallback and rounding", func(t *testing.T) {
		c := candidates[2]
		if c.Reference != youtubeWatchURL+"ccc" {
			t.Errorf("expected watch URL from id, got %q", c.Reference)
		}
		if c.Duration == nil || *c.Duration != 200 {
			t.Errorf("expected rounded duration 200, got %v", c.Duration)
		}
	})
}

func TestYTDLPSearcher(t *testing.T) {
	retryDelay = 0

	t.Run("builds ytsearch term", func(t *testing.T) {
		var gotArgs []string
		s := NewSearcherWithRunner(func(ctx context.Context, args ...string) (string, error) {
			gotArgs = args
			return searchOutput, nil
		}, 0, nil)

		candidates, err := s.Search(context.Background(), "Song Foo", 3)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(candidates) != 3 {
			t.Errorf("expected 3 candidates, got %d", len(candidates))
		}
		if strings.Join(gotArgs, " ") != "ytsearch3:Song Foo" {
			t.Errorf("unexpected args %v", gotArgs)
		}
	})

	t.Run("default limit", func(t *testing.T) {
		var gotArgs []string
		s := NewSearcherWithRunner(func(ctx context.Context, args ...string) (string, error) {
			gotArgs = args
			return "", nil
		}, 0, nil)

		if _, err := s.Search(context.Background(), "q", 0); err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if gotArgs[0] != "ytsearch5:q" {
			t.Errorf("expected default of 5 results, got %v", gotArgs)
		}
	})

	t.Run("failure is retried then reported", func(t *testing.T) {
		var calls int
		s := NewSearcherWithRunner(func(ctx context.Context, args ...string) (string, error) {
			calls++
			return "", errors.New("yt-dlp exited 1")
		}, 0, nil)

		_, err := s.Search(context.Background(), "q", 1)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if calls != 2 {
			t.Errorf("expected 2 attempts, got %d", calls)
		}
	})

	t.Run("empty query", func(t *testing.T) {
		s := NewSearcherWithRunner(nil, 0, nil)
		if _, err := s.Search(context.Background(), "   ", 1); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
