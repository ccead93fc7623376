package tagger

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bogem/id3v2/v2"
	"github.com/desertthunder/sptdl/internal/models"
)

const id3HeaderSize = 10

type id3Writer struct{}

func (id3Writer) write(path string, track models.Track, cover *Cover) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return writeFreshID3(path, track, cover)
	}
	defer tag.Close()

	populateID3(tag, track, cover)
	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save ID3 tag: %w", err)
	}
	return nil
}

// populateID3 replaces every frame of tag with track's metadata.
func populateID3(tag *id3v2.Tag, track models.Track, cover *Cover) {
	tag.DeleteAllFrames()
	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	tag.SetTitle(track.Title)
	tag.SetArtist(track.ArtistLine())
	tag.SetAlbum(track.Album)
	if track.Year != "" {
		tag.SetYear(track.Year)
	}
	if track.TrackNumber > 0 {
		tag.AddTextFrame(tag.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, strconv.Itoa(track.TrackNumber))
	}
	if g := genreLine(track.Genres); g != "" {
		tag.SetGenre(g)
	}

	if cover != nil {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    cover.MIME,
			PictureType: id3v2.PTFrontCover,
			Description: CoverDescription,
			Picture:     cover.Data,
		})
	}
}

// writeFreshID3 rewrites path with a new tag in front of the audio, dropping an unreadable one.
func writeFreshID3(path string, track models.Track, cover *Cover) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	tag := id3v2.NewEmptyTag()
	populateID3(tag, track, cover)

	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to encode ID3 tag: %w", err)
	}
	buf.Write(stripID3(data))

	tmp, err := os.CreateTemp(filepath.Dir(path), ".sptdl-tag-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// stripID3 drops a leading ID3v2 block when its header size is well formed.
func stripID3(data []byte) []byte {
	if len(data) < id3HeaderSize || !bytes.HasPrefix(data, []byte("ID3")) {
		return data
	}

	size := 0
	for _, b := range data[6:10] {
		if b&0x80 != 0 {
			return data
		}
		size = size<<7 | int(b)
	}

	end := id3HeaderSize + size
	if data[5]&0x10 != 0 {
		end += id3HeaderSize // footer
	}
	if end > len(data) {
		return data
	}
	return data[end:]
}
