// package services defines the metadata provider and video search collaborators of the download pipeline
package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/sptdl/internal/models"
	"github.com/desertthunder/sptdl/internal/shared"
)

// MetadataProvider resolves a user supplied reference into an ordered list of tracks.
type MetadataProvider interface {
	// Resolve returns every track the reference points to, in provider order.
	// Any failure is fatal to the run; partial lists are never returned.
	Resolve(ctx context.Context, ref Reference) ([]models.Track, error)

	// Name returns the name of the provider (e.g., "Spotify")
	Name() string
}

// Searcher finds candidate videos for a free-text query.
type Searcher interface {
	// Search returns up to limit candidates in provider relevance order.
	Search(ctx context.Context, query string, limit int) ([]models.Candidate, error)
}

// Kind is the type of entity a [Reference] points to.
type Kind string

const (
	KindPlaylist Kind = "playlist"
	KindAlbum    Kind = "album"
	KindTrack    Kind = "track"
	KindArtist   Kind = "artist"
)

// Reference is a parsed Spotify URL or URI.
type Reference struct {
	Kind Kind
	ID   string
	Raw  string
}

// String returns the canonical open.spotify.com URL.
func (r Reference) String() string {
	return fmt.Sprintf("https://open.spotify.com/%s/%s", r.Kind, r.ID)
}

// LooksLikeSpotify reports whether s resembles a Spotify link or URI.
func LooksLikeSpotify(s string) bool {
	return strings.Contains(s, "spotify.com") || strings.HasPrefix(s, "spotify:")
}

// ParseReference accepts open.spotify.com URLs (optionally with an intl-xx segment and query string)
// and spotify:{kind}:{id} URIs.
func ParseReference(s string) (Reference, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Reference{}, fmt.Errorf("%w: empty reference", shared.ErrInvalidReference)
	}

	var segments []string
	if strings.HasPrefix(raw, "spotify:") {
		segments = strings.Split(strings.TrimPrefix(raw, "spotify:"), ":")
	} else {
		u, err := url.Parse(raw)
		if err != nil || !strings.HasSuffix(u.Hostname(), "spotify.com") {
			return Reference{}, fmt.Errorf("%w: %s", shared.ErrInvalidReference, raw)
		}
		for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
			if seg != "" && !strings.HasPrefix(seg, "intl-") && seg != "embed" {
				segments = append(segments, seg)
			}
		}
	}

	if len(segments) != 2 || segments[1] == "" {
		return Reference{}, fmt.Errorf("%w: %s", shared.ErrInvalidReference, raw)
	}

	kind := Kind(segments[0])
	switch kind {
	case KindPlaylist, KindAlbum, KindTrack, KindArtist:
	default:
		return Reference{}, fmt.Errorf("%w: unsupported kind %q", shared.ErrInvalidReference, kind)
	}

	return Reference{Kind: kind, ID: segments[1], Raw: raw}, nil
}
