// Package fetcher downloads the audio of a chosen candidate and normalizes it to the preferred
// container at a fixed sample rate and bitrate.
//
// An [Engine] writes "<stem>.<ext>" for whatever extension it produces. [Fetcher] then probes the
// preferred extension first and falls back to [FallbackExtensions], converting the first file it
// finds with a [Transcoder]. Failures are logged and reported as "nothing", never as an error.
package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptdl/internal/shared"
)

const (
	DefaultSampleRate = 44100
	DefaultBitrate    = "192k"
	DefaultFormat     = "mp3"
)

// FallbackExtensions are probed, in order, after the preferred extension.
var FallbackExtensions = []string{"webm", "m4a", "opus", "ogg", "mp4", "mp3", "flac", "wav"}

// Options describe the requested output.
type Options struct {
	Format     string // Preferred extension without the dot
	Bitrate    string // e.g. "192k"
	SampleRate int    // Hz
}

func (o Options) withDefaults() Options {
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	o.Format = strings.TrimPrefix(strings.ToLower(o.Format), ".")
	if o.Bitrate == "" {
		o.Bitrate = DefaultBitrate
	}
	if o.SampleRate <= 0 {
		o.SampleRate = DefaultSampleRate
	}
	return o
}

// Engine downloads the audio behind reference into "<stem>.<ext>".
type Engine interface {
	Name() string
	Download(ctx context.Context, reference, stem string, opts Options) error
}

// Transcoder converts src into dst using the container implied by dst's extension.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst string, opts Options) error
}

// Fetcher combines an [Engine] and a [Transcoder].
type Fetcher struct {
	engine         Engine
	transcoder     Transcoder
	opts           Options
	cleanupPartial bool
	logger         *log.Logger
}

// New creates a Fetcher.
func New(engine Engine, transcoder Transcoder, opts Options, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Fetcher{engine: engine, transcoder: transcoder, opts: opts.withDefaults(), logger: logger}
}

// WithCleanupPartial removes "<stem>.*" files when a fetch is interrupted by cancellation.
func (f *Fetcher) WithCleanupPartial(enabled bool) *Fetcher {
	f.cleanupPartial = enabled
	return f
}

// Engine returns the configured engine.
func (f *Fetcher) Engine() Engine {
	return f.engine
}

// Format returns the preferred extension.
func (f *Fetcher) Format() string {
	return f.opts.Format
}

// FetchAndNormalize downloads reference next to targetBase and returns the path of a non-empty
// file with the preferred extension. The boolean is false on any failure.
func (f *Fetcher) FetchAndNormalize(ctx context.Context, reference, targetBase string) (path string, ok bool) {
	stem := strings.TrimSuffix(targetBase, filepath.Ext(targetBase))
	logger := f.logger.With("stem", filepath.Base(stem))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("fetch panicked", "panic", r)
			path, ok = "", false
		}
		if !ok && ctx.Err() != nil && f.cleanupPartial {
			f.removePartials(stem)
		}
	}()

	if err := os.MkdirAll(filepath.Dir(stem), 0o755); err != nil {
		logger.Error("cannot create output directory", "err", err)
		return "", false
	}

	if err := f.engine.Download(ctx, reference, stem, f.opts); err != nil {
		logger.Warn("download failed", "engine", f.engine.Name(), "err", err)
	}
	if ctx.Err() != nil {
		return "", false
	}

	preferred := stem + "." + f.opts.Format
	if nonEmpty(preferred) {
		return preferred, true
	}

	for _, ext := range probeOrder(f.opts.Format) {
		src := stem + "." + ext
		if !nonEmpty(src) {
			continue
		}

		logger.Debug("converting fallback file", "from", ext, "to", f.opts.Format)
		if err := f.transcode(ctx, src, preferred); err != nil {
			logger.Warn("conversion failed", "err", err)
			os.Remove(preferred)
			return "", false
		}
		os.Remove(src)
		return preferred, true
	}

	logger.Warn("no output file produced", "engine", f.engine.Name())
	return "", false
}

func (f *Fetcher) transcode(ctx context.Context, src, dst string) error {
	if f.transcoder == nil {
		return fmt.Errorf("%w: no transcoder configured", shared.ErrTranscodeFailed)
	}
	if err := f.transcoder.Transcode(ctx, src, dst, f.opts); err != nil {
		return err
	}
	if !nonEmpty(dst) {
		return fmt.Errorf("%w: %s", shared.ErrEmptyOutput, filepath.Base(dst))
	}
	return nil
}

// removePartials deletes files named "<stem>.<anything>" in stem's directory.
func (f *Fetcher) removePartials(stem string) {
	dir, base := filepath.Dir(stem), filepath.Base(stem)+"."
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), base) {
			p := filepath.Join(dir, e.Name())
			if err := os.Remove(p); err == nil {
				f.logger.Info("removed partial file", "path", p)
			}
		}
	}
}

// probeOrder lists fallback extensions with the preferred one removed.
func probeOrder(preferred string) []string {
	out := make([]string, 0, len(FallbackExtensions))
	for _, ext := range FallbackExtensions {
		if ext != preferred {
			out = append(out, ext)
		}
	}
	return out
}

func nonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
