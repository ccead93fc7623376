package fetcher

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/sptdl/internal/shared"
)

// FFmpeg constants for audio normalization
const (
	FFmpegCommand  = "ffmpeg"
	FFmpegLogLevel = "error"
	NoVideoFlag    = "-vn"
)

// losslessFormats ignore the bitrate option.
var losslessFormats = map[string]bool{"flac": true, "wav": true}

// FFmpegTranscoder shells out to ffmpeg.
type FFmpegTranscoder struct {
	Executable string
}

// NewFFmpegTranscoder creates a transcoder for the ffmpeg binary at executable (default "ffmpeg").
func NewFFmpegTranscoder(executable string) *FFmpegTranscoder {
	if executable == "" {
		executable = FFmpegCommand
	}
	return &FFmpegTranscoder{Executable: executable}
}

// BuildArgs returns the ffmpeg argument list converting src to dst.
func (t *FFmpegTranscoder) BuildArgs(src, dst string, opts Options) []string {
	opts = opts.withDefaults()
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", FFmpegLogLevel,
		"-i", src,
		NoVideoFlag,
		"-ar", strconv.Itoa(opts.SampleRate),
	}

	format := strings.TrimPrefix(filepath.Ext(dst), ".")
	if !losslessFormats[format] {
		args = append(args, "-b:a", opts.Bitrate)
	}

	return append(args, dst)
}

// Transcode implements [Transcoder].
func (t *FFmpegTranscoder) Transcode(ctx context.Context, src, dst string, opts Options) error {
	cmd := exec.CommandContext(ctx, t.Executable, t.BuildArgs(src, dst, opts)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%w: %s", shared.ErrTranscodeFailed, msg)
	}
	return nil
}
