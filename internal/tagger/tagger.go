// Package tagger writes track metadata and cover art into downloaded audio files.
//
// Tagging is best effort: every failure is logged and swallowed, so a file that downloaded
// correctly is never discarded because of its tags. Writes replace the previous tag wholesale,
// which makes repeated application idempotent.
package tagger

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptdl/internal/models"
	"github.com/desertthunder/sptdl/internal/shared"
)

const (
	MaxGenres        = 3
	CoverDescription = "Cover"
)

// ImageSource fetches cover art.
type ImageSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Cover is fetched artwork with its sniffed MIME type.
type Cover struct {
	Data []byte
	MIME string
}

type writer interface {
	write(path string, track models.Track, cover *Cover) error
}

// Tagger applies metadata to files by extension.
type Tagger struct {
	images  ImageSource
	writers map[string]writer
	logger  *log.Logger
}

// New creates a Tagger. images may be nil, in which case cover art is skipped.
func New(images ImageSource, logger *log.Logger) *Tagger {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Tagger{
		images: images,
		writers: map[string]writer{
			".mp3":  id3Writer{},
			".flac": flacWriter{},
		},
		logger: logger,
	}
}

// Supports reports whether files with ext (".mp3" or "mp3") can be tagged.
func (t *Tagger) Supports(ext string) bool {
	ext = "." + strings.TrimPrefix(strings.ToLower(ext), ".")
	_, ok := t.writers[ext]
	return ok
}

// Apply writes track's metadata into the file at path. It never fails: problems are logged.
func (t *Tagger) Apply(ctx context.Context, path string, track models.Track) {
	logger := t.logger.With("file", filepath.Base(path))

	defer func() {
		if r := recover(); r != nil {
			logger.Warn("tagging panicked", "panic", r)
		}
	}()

	if _, err := os.Stat(path); err != nil {
		logger.Warn("cannot tag missing file", "err", err)
		return
	}

	w, ok := t.writers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		logger.Debug("no tag writer for container")
		return
	}

	cover := t.fetchCover(ctx, track.CoverURL, logger)
	if err := w.write(path, track, cover); err != nil {
		logger.Warn("failed to write tags", "err", err)
		return
	}
	logger.Debug("tags written", "cover", cover != nil)
}

func (t *Tagger) fetchCover(ctx context.Context, url string, logger *log.Logger) *Cover {
	if url == "" || t.images == nil {
		return nil
	}
	data, err := t.images.Fetch(ctx, url)
	if err != nil {
		logger.Warn("cover art unavailable", "err", err)
		return nil
	}
	return &Cover{Data: data, MIME: shared.SniffImageMIME(data)}
}

// genreLine joins at most [MaxGenres] genres with ", ".
func genreLine(genres []string) string {
	if len(genres) > MaxGenres {
		genres = genres[:MaxGenres]
	}
	return strings.Join(genres, ", ")
}
