package fetcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/sptdl/internal/shared"
	"github.com/desertthunder/sptdl/internal/spotdl"
	"github.com/kkdai/youtube/v2"
	"github.com/lrstanley/go-ytdlp"
	"github.com/samber/lo"
)

// YTDLPEngine extracts audio with yt-dlp, which converts to the preferred format itself.
type YTDLPEngine struct {
	Executable string // yt-dlp binary; empty uses PATH
	FFmpeg     string // ffmpeg binary handed to yt-dlp; empty uses PATH
}

func (e *YTDLPEngine) Name() string { return "ytdlp" }

// Command builds the yt-dlp invocation for stem. Exposed for inspection in tests.
func (e *YTDLPEngine) Command(stem string, opts Options) *ytdlp.Command {
	opts = opts.withDefaults()
	cmd := ytdlp.New().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat(opts.Format).
		AudioQuality(strings.ToUpper(opts.Bitrate)).
		PostProcessorArgs(fmt.Sprintf("ffmpeg:-ar %d", opts.SampleRate)).
		NoPlaylist().
		NoProgress().
		NoWarnings().
		IgnoreConfig().
		ForceOverwrites().
		Output(stem + ".%(ext)s")

	if e.Executable != "" {
		cmd.SetExecutable(e.Executable)
	}
	if e.FFmpeg != "" {
		cmd.FFmpegLocation(e.FFmpeg)
	}
	return cmd
}

// Download implements [Engine].
func (e *YTDLPEngine) Download(ctx context.Context, reference, stem string, opts Options) error {
	if _, err := e.Command(stem, opts).Run(ctx, reference); err != nil {
		return fmt.Errorf("%w: yt-dlp: %w", shared.ErrFetchFailed, err)
	}
	return nil
}

// NativeEngine streams the best audio-only format with a pure Go YouTube client. It writes the
// source container (webm or m4a) and relies on the [Fetcher] fallback to convert it.
type NativeEngine struct {
	Client *youtube.Client
}

// NewNativeEngine creates a [NativeEngine] with a default client.
func NewNativeEngine() *NativeEngine {
	return &NativeEngine{Client: &youtube.Client{}}
}

func (e *NativeEngine) Name() string { return "native" }

// Download implements [Engine].
func (e *NativeEngine) Download(ctx context.Context, reference, stem string, _ Options) error {
	video, err := e.Client.GetVideoContext(ctx, reference)
	if err != nil {
		return fmt.Errorf("%w: video lookup: %w", shared.ErrFetchFailed, err)
	}

	format, ok := pickAudioFormat(video.Formats)
	if !ok {
		return fmt.Errorf("%w: no audio-only format for %s", shared.ErrFetchFailed, video.ID)
	}

	stream, _, err := e.Client.GetStreamContext(ctx, video, &format)
	if err != nil {
		return fmt.Errorf("%w: open stream: %w", shared.ErrFetchFailed, err)
	}
	defer stream.Close()

	path := stem + "." + extensionForMime(format.MimeType)
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}

	if _, err := io.Copy(out, stream); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("%w: stream copy: %w", shared.ErrFetchFailed, err)
	}
	return out.Close()
}

// pickAudioFormat returns the audio-only format with the highest bitrate.
func pickAudioFormat(formats youtube.FormatList) (youtube.Format, bool) {
	audio := lo.Filter(formats, func(f youtube.Format, _ int) bool {
		return strings.HasPrefix(f.MimeType, "audio/")
	})
	if len(audio) == 0 {
		return youtube.Format{}, false
	}
	return lo.MaxBy(audio, func(a, b youtube.Format) bool { return a.Bitrate > b.Bitrate }), true
}

// extensionForMime maps a format MIME type such as `audio/webm; codecs="opus"` to a file extension.
func extensionForMime(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	switch strings.TrimSpace(base) {
	case "audio/mp4":
		return "m4a"
	case "audio/webm":
		return "webm"
	case "audio/mpeg":
		return "mp3"
	case "audio/ogg":
		return "ogg"
	default:
		return "webm"
	}
}

// SpotDLEngine hands a track to spotDL, which does its own search and download. The reference
// is the track's Spotify URL rather than a video candidate.
type SpotDLEngine struct {
	Runner *spotdl.Runner
}

func (e *SpotDLEngine) Name() string { return "spotdl" }

// Download implements [Engine]. The output template pins spotDL's file name to stem.
func (e *SpotDLEngine) Download(ctx context.Context, reference, stem string, opts Options) error {
	opts = opts.withDefaults()
	args := spotdl.Args{
		Output:  stem + ".{output-ext}",
		Format:  opts.Format,
		Bitrate: opts.Bitrate,
	}

	tally, code, err := e.Runner.Download(ctx, reference, args, nil)
	if err != nil {
		return err
	}
	if code != 0 || tally.Failed > 0 {
		return fmt.Errorf("%w: spotdl exited %d with %d failure lines", shared.ErrFetchFailed, code, tally.Failed)
	}
	return nil
}
