package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/sptdl/internal/shared"
)

func TestParseReference(t *testing.T) {
	tc := []struct {
		name     string
		input    string
		wantKind Kind
		wantID   string
		wantErr  bool
	}{
		{name: "playlist url", input: "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc", wantKind: KindPlaylist, wantID: "37i9dQZF1DXcBWIGoYBM5M"},
		{name: "intl album url", input: "https://open.spotify.com/intl-de/album/1DFixLWuPkv3KT3TnV35m3", wantKind: KindAlbum, wantID: "1DFixLWuPkv3KT3TnV35m3"},
		{name: "track uri", input: "spotify:track:4uLU6hMCjMI75M1A2tKUQC", wantKind: KindTrack, wantID: "4uLU6hMCjMI75M1A2tKUQC"},
		{name: "artist url with whitespace", input: "  https://open.spotify.com/artist/0OdUWJ0sBjDrqHygGUXeCF  ", wantKind: KindArtist, wantID: "0OdUWJ0sBjDrqHygGUXeCF"},
		{name: "embed url", input: "https://open.spotify.com/embed/track/abc", wantKind: KindTrack, wantID: "abc"},
		{name: "empty", input: "", wantErr: true},
		{name: "other host", input: "https://www.youtube.com/watch?v=abc", wantErr: true},
		{name: "unsupported kind", input: "https://open.spotify.com/show/abc", wantErr: true},
		{name: "missing id", input: "spotify:playlist:", wantErr: true},
		{name: "free text", input: "some song name", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseReference(tt.input)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidReference) {
					t.Errorf("expected ErrInvalidReference, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ref.Kind != tt.wantKind || ref.ID != tt.wantID {
				t.Errorf("ParseReference() = %+v, want %s/%s", ref, tt.wantKind, tt.wantID)
			}
		})
	}

	t.Run("String", func(t *testing.T) {
		ref := Reference{Kind: KindAlbum, ID: "x"}
		if ref.String() != "https://open.spotify.com/album/x" {
			t.Errorf("unexpected canonical URL %s", ref.String())
		}
	})
}

func TestLooksLikeSpotify(t *testing.T) {
	if !LooksLikeSpotify("https://open.spotify.com/track/x") || !LooksLikeSpotify("spotify:album:x") {
		t.Error("expected spotify references to be recognized")
	}
	if LooksLikeSpotify("https://music.apple.com/album/x") {
		t.Error("expected non-spotify URL to be rejected")
	}
}

func TestWithRetry(t *testing.T) {
	retryDelay = 0

	t.Run("success first try", func(t *testing.T) {
		var calls int
		v, err := WithRetry(context.Background(), nil, "op", time.Second, func(ctx context.Context) (int, error) {
			calls++
			return 42, nil
		})
		if err != nil || v != 42 || calls != 1 {
			t.Errorf("got v=%d err=%v calls=%d", v, err, calls)
		}
	})

	t.Run("retries exactly once", func(t *testing.T) {
		var calls int
		_, err := WithRetry(context.Background(), nil, "op", time.Second, func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("boom")
		})
		if err == nil || calls != 2 {
			t.Errorf("expected two attempts and an error, got calls=%d err=%v", calls, err)
		}
	})

	t.Run("second attempt succeeds", func(t *testing.T) {
		var calls int
		v, err := WithRetry(context.Background(), nil, "op", time.Second, func(ctx context.Context) (string, error) {
			calls++
			if calls == 1 {
				return "", errors.New("transient")
			}
			return "ok", nil
		})
		if err != nil || v != "ok" {
			t.Errorf("got v=%q err=%v", v, err)
		}
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		var calls int
		sentinel := errors.New("not found")
		_, err := WithRetry(context.Background(), nil, "op", time.Second, func(ctx context.Context) (int, error) {
			calls++
			return 0, Permanent(sentinel)
		})
		if !errors.Is(err, sentinel) || calls != 1 {
			t.Errorf("expected single attempt returning sentinel, got calls=%d err=%v", calls, err)
		}
	})

	t.Run("per attempt timeout", func(t *testing.T) {
		var calls atomic.Int32
		_, err := WithRetry(context.Background(), nil, "slow", 10*time.Millisecond, func(ctx context.Context) (int, error) {
			calls.Add(1)
			<-ctx.Done()
			return 0, ctx.Err()
		})
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("expected two attempts, got %d", calls.Load())
		}
	})

	t.Run("parent cancellation stops immediately", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var calls int
		_, err := WithRetry(ctx, nil, "op", time.Second, func(ctx context.Context) (int, error) {
			calls++
			return 0, ctx.Err()
		})
		if !errors.Is(err, context.Canceled) || calls != 1 {
			t.Errorf("expected cancellation after one call, got calls=%d err=%v", calls, err)
		}
	})
}
