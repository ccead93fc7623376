package services

import (
	"github.com/desertthunder/sptdl/internal/models"
	"github.com/samber/lo"
	"github.com/zmb3/spotify/v2"
)

func fromFullTrack(t *spotify.FullTrack) models.Track {
	track := fromSimpleTrack(t.SimpleTrack, t.Album)
	track.ISRC = t.ExternalIDs["isrc"]
	return track
}

func fromSimpleTrack(t spotify.SimpleTrack, album spotify.SimpleAlbum) models.Track {
	return models.Track{
		ID:          string(t.ID),
		Title:       t.Name,
		Artists:     lo.Map(t.Artists, func(a spotify.SimpleArtist, _ int) string { return a.Name }),
		ArtistIDs:   lo.Map(t.Artists, func(a spotify.SimpleArtist, _ int) string { return string(a.ID) }),
		Album:       album.Name,
		Year:        releaseYear(album.ReleaseDate),
		Duration:    int(t.Duration) / 1000,
		CoverURL:    largestImage(album.Images),
		TrackNumber: int(t.TrackNumber),
		URL:         t.ExternalURLs["spotify"],
	}
}

// releaseYear returns the leading four digit year of a YYYY, YYYY-MM or YYYY-MM-DD date.
func releaseYear(date string) string {
	if len(date) < 4 {
		return ""
	}
	for _, r := range date[:4] {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return date[:4]
}

func largestImage(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	best := lo.MaxBy(images, func(a, b spotify.Image) bool {
		return int(a.Width)*int(a.Height) > int(b.Width)*int(b.Height)
	})
	return best.URL
}

func primaryArtistID(t models.Track) spotify.ID {
	if len(t.ArtistIDs) == 0 {
		return ""
	}
	return spotify.ID(t.ArtistIDs[0])
}
