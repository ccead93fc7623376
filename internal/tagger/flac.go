package tagger

import (
	"fmt"
	"strconv"

	"github.com/desertthunder/sptdl/internal/models"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
	"github.com/samber/lo"
)

type flacWriter struct{}

func (flacWriter) write(path string, track models.Track, cover *Cover) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	f.Meta = lo.Filter(f.Meta, func(b *flac.MetaDataBlock, _ int) bool {
		return b.Type != flac.VorbisComment && b.Type != flac.Picture
	})

	comment := flacvorbis.New()
	addField(comment, flacvorbis.FIELD_TITLE, track.Title)
	addField(comment, flacvorbis.FIELD_ARTIST, track.ArtistLine())
	addField(comment, flacvorbis.FIELD_ALBUM, track.Album)
	addField(comment, flacvorbis.FIELD_DATE, track.Year)
	if track.TrackNumber > 0 {
		addField(comment, flacvorbis.FIELD_TRACKNUMBER, strconv.Itoa(track.TrackNumber))
	}
	addField(comment, flacvorbis.FIELD_GENRE, genreLine(track.Genres))
	addField(comment, flacvorbis.FIELD_ISRC, track.ISRC)

	block := comment.Marshal()
	f.Meta = append(f.Meta, &block)

	// Undecodable artwork is dropped so the text fields still land.
	if cover != nil {
		if pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, CoverDescription, cover.Data, cover.MIME); err == nil {
			picBlock := pic.Marshal()
			f.Meta = append(f.Meta, &picBlock)
		}
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save FLAC file with metadata: %w", err)
	}
	return nil
}

// addField adds a field to vorbis comment only if value is not empty
func addField(comment *flacvorbis.MetaDataBlockVorbisComment, field, value string) {
	if value != "" {
		comment.Add(field, value)
	}
}
