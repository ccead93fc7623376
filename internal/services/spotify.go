// Spotify Web API implementation of [MetadataProvider]
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptdl/internal/models"
	"github.com/desertthunder/sptdl/internal/shared"
	"github.com/samber/lo"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyPageSize = 50
	defaultMarket   = "US"
)

// SpotifyResolver resolves playlists, albums, tracks and artists through the Spotify Web API.
type SpotifyResolver struct {
	client  *spotify.Client
	market  string
	timeout time.Duration
	logger  *log.Logger
}

// NewSpotifyClient creates an API client authenticated with the client credentials flow.
//
// The returned client refreshes its token automatically.
func NewSpotifyClient(ctx context.Context, creds shared.SpotifyConfig) (*spotify.Client, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	config := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	if _, err := config.Token(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	return spotify.New(config.Client(ctx)), nil
}

// NewSpotifyResolver wraps an API client. A non-positive timeout uses [DefaultCallTimeout].
func NewSpotifyResolver(client *spotify.Client, market string, timeout time.Duration, logger *log.Logger) *SpotifyResolver {
	if market == "" {
		market = defaultMarket
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &SpotifyResolver{client: client, market: market, timeout: timeout, logger: logger}
}

// Name returns the service name
func (s *SpotifyResolver) Name() string {
	return "Spotify"
}

// Resolve implements [MetadataProvider].
func (s *SpotifyResolver) Resolve(ctx context.Context, ref Reference) ([]models.Track, error) {
	var (
		tracks []models.Track
		err    error
	)

	switch ref.Kind {
	case KindPlaylist:
		tracks, err = s.playlistTracks(ctx, spotify.ID(ref.ID))
	case KindAlbum:
		tracks, err = s.albumTracks(ctx, spotify.ID(ref.ID))
	case KindTrack:
		tracks, err = s.singleTrack(ctx, spotify.ID(ref.ID))
	case KindArtist:
		tracks, err = s.artistTopTracks(ctx, spotify.ID(ref.ID))
	default:
		return nil, fmt.Errorf("%w: unsupported kind %q", shared.ErrInvalidReference, ref.Kind)
	}
	if err != nil {
		return nil, err
	}

	s.attachGenres(ctx, tracks)
	return tracks, nil
}

func (s *SpotifyResolver) playlistTracks(ctx context.Context, id spotify.ID) ([]models.Track, error) {
	page, err := WithRetry(ctx, s.logger, "playlist items", s.timeout, func(ctx context.Context) (*spotify.PlaylistItemPage, error) {
		v, err := s.client.GetPlaylistItems(ctx, id, spotify.Limit(100), spotify.Market(s.market))
		return v, classifySpotifyError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrPlaylistNotFound, err)
	}

	var tracks []models.Track
	for {
		for _, item := range page.Items {
			if item.IsLocal || item.Track.Track == nil {
				continue
			}
			tracks = append(tracks, fromFullTrack(item.Track.Track))
		}

		done, err := s.nextPage(ctx, page.Next, func(ctx context.Context) error { return s.client.NextPage(ctx, page) })
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}

	return tracks, nil
}

func (s *SpotifyResolver) albumTracks(ctx context.Context, id spotify.ID) ([]models.Track, error) {
	album, err := WithRetry(ctx, s.logger, "album", s.timeout, func(ctx context.Context) (*spotify.FullAlbum, error) {
		v, err := s.client.GetAlbum(ctx, id, spotify.Market(s.market))
		return v, classifySpotifyError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	page := &album.Tracks
	var simple []spotify.SimpleTrack
	for {
		simple = append(simple, page.Tracks...)

		done, err := s.nextPage(ctx, page.Next, func(ctx context.Context) error { return s.client.NextPage(ctx, page) })
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}

	isrcs := s.trackISRCs(ctx, lo.Map(simple, func(t spotify.SimpleTrack, _ int) spotify.ID { return t.ID }))
	return lo.Map(simple, func(st spotify.SimpleTrack, _ int) models.Track {
		t := fromSimpleTrack(st, album.SimpleAlbum)
		t.ISRC = isrcs[st.ID]
		t.Genres = album.Genres
		return t
	}), nil
}

// trackISRCs looks up ISRCs, which album listings omit, in batches of [spotifyPageSize]. A failed
// batch only leaves its tracks without an ISRC.
func (s *SpotifyResolver) trackISRCs(ctx context.Context, ids []spotify.ID) map[spotify.ID]string {
	isrcs := make(map[spotify.ID]string, len(ids))
	for _, batch := range lo.Chunk(ids, spotifyPageSize) {
		full, err := WithRetry(ctx, s.logger, "tracks", s.timeout, func(ctx context.Context) ([]*spotify.FullTrack, error) {
			v, err := s.client.GetTracks(ctx, batch, spotify.Market(s.market))
			return v, classifySpotifyError(err)
		})
		if err != nil {
			s.logger.Warn("isrc lookup failed", "tracks", len(batch), "err", err)
			continue
		}
		for i, ft := range full {
			if ft != nil && i < len(batch) {
				isrcs[batch[i]] = ft.ExternalIDs["isrc"]
			}
		}
	}
	return isrcs
}

// nextPage runs advance, which moves a page in place, unless next is empty. It reports done when
// there is no next page.
func (s *SpotifyResolver) nextPage(ctx context.Context, next string, advance func(context.Context) error) (bool, error) {
	if next == "" {
		return true, nil
	}
	_, err := WithRetry(ctx, s.logger, "next page", s.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, classifySpotifyError(advance(ctx))
	})
	if errors.Is(err, spotify.ErrNoMorePages) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	return false, nil
}

func (s *SpotifyResolver) singleTrack(ctx context.Context, id spotify.ID) ([]models.Track, error) {
	full, err := WithRetry(ctx, s.logger, "track", s.timeout, func(ctx context.Context) (*spotify.FullTrack, error) {
		v, err := s.client.GetTrack(ctx, id, spotify.Market(s.market))
		return v, classifySpotifyError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrTrackNotFound, err)
	}
	return []models.Track{fromFullTrack(full)}, nil
}

func (s *SpotifyResolver) artistTopTracks(ctx context.Context, id spotify.ID) ([]models.Track, error) {
	top, err := WithRetry(ctx, s.logger, "artist top tracks", s.timeout, func(ctx context.Context) ([]spotify.FullTrack, error) {
		v, err := s.client.GetArtistsTopTracks(ctx, id, s.market)
		return v, classifySpotifyError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	return lo.Map(top, func(t spotify.FullTrack, _ int) models.Track { return fromFullTrack(&t) }), nil
}

// attachGenres fills genres from each track's primary artist. Lookups are cached per call and
// failures only cost the genre tag.
func (s *SpotifyResolver) attachGenres(ctx context.Context, tracks []models.Track) {
	ids := lo.Uniq(lo.FilterMap(tracks, func(t models.Track, _ int) (spotify.ID, bool) {
		id := primaryArtistID(t)
		return id, len(t.Genres) == 0 && id != ""
	}))
	if len(ids) == 0 {
		return
	}

	genres := make(map[spotify.ID][]string, len(ids))
	for _, batch := range lo.Chunk(ids, spotifyPageSize) {
		artists, err := WithRetry(ctx, s.logger, "artists", s.timeout, func(ctx context.Context) ([]*spotify.FullArtist, error) {
			v, err := s.client.GetArtists(ctx, batch...)
			return v, classifySpotifyError(err)
		})
		if err != nil {
			s.logger.Warn("genre lookup failed", "artists", len(batch), "err", err)
			continue
		}
		for _, a := range artists {
			if a != nil {
				genres[a.ID] = a.Genres
			}
		}
	}

	for i := range tracks {
		if len(tracks[i].Genres) > 0 {
			continue
		}
		tracks[i].Genres = genres[primaryArtistID(tracks[i])]
	}
}

// classifySpotifyError marks client errors that a retry cannot fix as permanent.
func classifySpotifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, spotify.ErrNoMorePages) {
		return Permanent(err)
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Status != 429 {
		return Permanent(err)
	}
	return err
}
