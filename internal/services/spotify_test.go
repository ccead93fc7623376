package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/sptdl/internal/shared"
	"github.com/zmb3/spotify/v2"
)

const fullTrackJSON = `{
	"id": "%s",
	"type": "track",
	"name": "%s",
	"duration_ms": 200500,
	"track_number": 4,
	"external_urls": {"spotify": "https://open.spotify.com/track/%s"},
	"external_ids": {"isrc": "USRC17607839"},
	"artists": [{"id": "art1", "name": "Foo"}, {"id": "art2", "name": "Bar"}],
	"album": {
		"id": "alb1",
		"name": "Album",
		"release_date": "2019-05-01",
		"images": [
			{"url": "https://i.scdn.co/small", "width": 64, "height": 64},
			{"url": "https://i.scdn.co/large", "width": 640, "height": 640}
		]
	}
}`

func trackJSON(id, name string) string {
	return fmt.Sprintf(fullTrackJSON, id, name, id)
}

func newTestResolver(t *testing.T, handler http.Handler) *SpotifyResolver {
	t.Helper()
	retryDelay = 0

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := spotify.New(server.Client(), spotify.WithBaseURL(server.URL+"/"))
	return NewSpotifyResolver(client, "", 0, nil)
}

func artistsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"artists":[{"id":"art1","name":"Foo","genres":["rock","indie","pop","jazz"]}]}`)
}

func TestSpotifyResolver(t *testing.T) {
	t.Run("Name", func(t *testing.T) {
		if got := NewSpotifyResolver(nil, "", 0, nil).Name(); got != "Spotify" {
			t.Errorf("expected service name 'Spotify', got %s", got)
		}
	})

	t.Run("Track", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/tracks/t1", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("market") != "US" {
				t.Errorf("expected default market US, got %q", r.URL.Query().Get("market"))
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, trackJSON("t1", "Song"))
		})
		mux.HandleFunc("/artists", artistsHandler)

		tracks, err := newTestResolver(t, mux).Resolve(context.Background(), Reference{Kind: KindTrack, ID: "t1"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if len(tracks) != 1 {
			t.Fatalf("expected 1 track, got %d", len(tracks))
		}

		tr := tracks[0]
		if tr.Title != "Song" || tr.ArtistLine() != "Foo, Bar" {
			t.Errorf("unexpected track %+v", tr)
		}
		if tr.Duration != 200 {
			t.Errorf("expected duration 200, got %d", tr.Duration)
		}
		if tr.Year != "2019" {
			t.Errorf("expected year 2019, got %q", tr.Year)
		}
		if tr.CoverURL != "https://i.scdn.co/large" {
			t.Errorf("expected largest cover, got %q", tr.CoverURL)
		}
		if tr.TrackNumber != 4 || tr.ISRC != "USRC17607839" {
			t.Errorf("unexpected number/isrc %d %q", tr.TrackNumber, tr.ISRC)
		}
		if strings.Join(tr.Genres, ",") != "rock,indie,pop,jazz" {
			t.Errorf("expected primary artist genres, got %v", tr.Genres)
		}
	})

	t.Run("Playlist Pagination", func(t *testing.T) {
		var serverURL string
		mux := http.NewServeMux()
		mux.HandleFunc("/playlists/p1/tracks", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Query().Get("offset") == "2" {
				fmt.Fprintf(w, `{"items":[{"is_local":false,"track":%s}],"next":null,"total":3}`, trackJSON("c", "Third"))
				return
			}
			fmt.Fprintf(w, `{"items":[{"is_local":false,"track":%s},{"is_local":true,"track":%s},{"is_local":false,"track":%s}],"next":"%s/playlists/p1/tracks?offset=2","total":3}`,
				trackJSON("a", "First"), trackJSON("local", "Local"), trackJSON("b", "Second"), serverURL)
		})
		mux.HandleFunc("/artists", artistsHandler)

		server := httptest.NewServer(mux)
		defer server.Close()
		serverURL = server.URL
		retryDelay = 0

		resolver := NewSpotifyResolver(spotify.New(server.Client(), spotify.WithBaseURL(server.URL+"/")), "", 0, nil)
		tracks, err := resolver.Resolve(context.Background(), Reference{Kind: KindPlaylist, ID: "p1"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}

		var titles []string
		for _, tr := range tracks {
			titles = append(titles, tr.Title)
		}
		if strings.Join(titles, ",") != "First,Second,Third" {
			t.Errorf("expected ordered non-local tracks from both pages, got %v", titles)
		}
	})

	t.Run("Album Tracks Carry ISRC", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/albums/al1", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{
				"id": "al1", "name": "Album", "release_date": "2019", "genres": ["ambient"],
				"tracks": {"items": [
					{"id": "a", "name": "First", "duration_ms": 1000, "track_number": 1, "artists": [{"id": "art1", "name": "Foo"}]},
					{"id": "b", "name": "Second", "duration_ms": 2000, "track_number": 2, "artists": [{"id": "art1", "name": "Foo"}]}
				], "next": null}
			}`)
		})
		var lookups atomic.Int32
		mux.HandleFunc("/tracks", func(w http.ResponseWriter, r *http.Request) {
			lookups.Add(1)
			if got := r.URL.Query().Get("ids"); got != "a,b" {
				t.Errorf("expected ids a,b, got %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"tracks":[%s,%s]}`, trackJSON("a", "First"), trackJSON("b", "Second"))
		})

		tracks, err := newTestResolver(t, mux).Resolve(context.Background(), Reference{Kind: KindAlbum, ID: "al1"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}
		if lookups.Load() != 1 {
			t.Errorf("expected one batched lookup, got %d", lookups.Load())
		}
		for _, tr := range tracks {
			if tr.ISRC != "USRC17607839" {
				t.Errorf("%s: expected ISRC, got %q", tr.Title, tr.ISRC)
			}
			if tr.Album != "Album" || tr.Year != "2019" || strings.Join(tr.Genres, ",") != "ambient" {
				t.Errorf("%s: album fields lost: %+v", tr.Title, tr)
			}
		}
	})

	t.Run("Album ISRC Failure Is Not Fatal", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/albums/al1", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id": "al1", "name": "Album", "genres": ["ambient"], "tracks": {"items": [{"id": "a", "name": "First"}], "next": null}}`)
		})
		mux.HandleFunc("/tracks", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error":{"status":403,"message":"forbidden"}}`)
		})

		tracks, err := newTestResolver(t, mux).Resolve(context.Background(), Reference{Kind: KindAlbum, ID: "al1"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if len(tracks) != 1 || tracks[0].ISRC != "" {
			t.Errorf("expected one track without ISRC, got %+v", tracks)
		}
	})

	t.Run("Not Found Is Fatal Without Retry", func(t *testing.T) {
		var calls atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/tracks/missing", func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"status":404,"message":"non existing id"}}`)
		})

		_, err := newTestResolver(t, mux).Resolve(context.Background(), Reference{Kind: KindTrack, ID: "missing"})
		if !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("expected a single request for a 404, got %d", calls.Load())
		}
	})

	t.Run("Server Error Is Retried Once", func(t *testing.T) {
		var calls atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/tracks/flaky", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				fmt.Fprint(w, `{"error":{"status":502,"message":"bad gateway"}}`)
				return
			}
			fmt.Fprint(w, trackJSON("flaky", "Recovered"))
		})
		mux.HandleFunc("/artists", artistsHandler)

		tracks, err := newTestResolver(t, mux).Resolve(context.Background(), Reference{Kind: KindTrack, ID: "flaky"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if calls.Load() != 2 || tracks[0].Title != "Recovered" {
			t.Errorf("expected recovery on second attempt, calls=%d", calls.Load())
		}
	})

	t.Run("Genre Failure Is Not Fatal", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/tracks/t1", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, trackJSON("t1", "Song"))
		})
		mux.HandleFunc("/artists", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error":{"status":403,"message":"forbidden"}}`)
		})

		tracks, err := newTestResolver(t, mux).Resolve(context.Background(), Reference{Kind: KindTrack, ID: "t1"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if len(tracks[0].Genres) != 0 {
			t.Errorf("expected no genres, got %v", tracks[0].Genres)
		}
	})

	t.Run("NewSpotifyClient Missing Credentials", func(t *testing.T) {
		_, err := NewSpotifyClient(context.Background(), shared.SpotifyConfig{ClientID: "id"})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestReleaseYear(t *testing.T) {
	tc := map[string]string{
		"2019-05-01": "2019",
		"1999":       "1999",
		"2001-03":    "2001",
		"":           "",
		"abc":        "",
		"0000-00-00": "0000",
	}
	for in, want := range tc {
		if got := releaseYear(in); got != want {
			t.Errorf("releaseYear(%q) = %q, want %q", in, got, want)
		}
	}
}
