package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptdl/internal/models"
	"github.com/desertthunder/sptdl/internal/shared"
	"github.com/desertthunder/sptdl/internal/spotdl"
)

// DelegateOpts configures a [Delegator].
type DelegateOpts struct {
	Folder  string
	Format  string
	Bitrate string
}

// DelegateResult is the outcome of handing a whole reference to spotDL.
type DelegateResult struct {
	Stats       models.Stats
	Tally       spotdl.Tally
	ExitCode    int
	Interrupted bool // ctx was cancelled and spotDL was killed
}

// Delegator runs spotDL over a whole reference and derives stats from its output and the
// files left in the output folder.
type Delegator struct {
	runner *spotdl.Runner
	opts   DelegateOpts
	logger *log.Logger
}

func NewDelegator(runner *spotdl.Runner, opts DelegateOpts, logger *log.Logger) *Delegator {
	if opts.Format == "" {
		opts.Format = "mp3"
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Delegator{runner: runner, opts: opts, logger: logger}
}

// HealthCheck verifies spotDL is installed.
func (d *Delegator) HealthCheck(ctx context.Context) error {
	return d.runner.HealthCheck(ctx)
}

// Run downloads ref into the output folder, reporting every classified line to progress.
//
// A non-zero exit code is not an error; the error is set only when spotDL could not run.
func (d *Delegator) Run(ctx context.Context, ref string, progress chan<- ProgressUpdate) (*DelegateResult, error) {
	if err := os.MkdirAll(d.opts.Folder, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	step := 0
	onLine := func(line spotdl.Line) {
		step++
		if line.Category == spotdl.CategoryFailed {
			d.logger.Warn(line.Text)
		} else {
			d.logger.Debug(line.Text, "category", line.Category)
		}
		sendProgress(ctx, progress, delegateLineUpdate(step, line))
	}

	tally, code, err := d.runner.Download(ctx, ref, spotdl.Args{
		Output:  d.opts.Folder,
		Format:  d.opts.Format,
		Bitrate: d.opts.Bitrate,
	}, onLine)
	if err != nil {
		return nil, err
	}

	total := countFiles(d.opts.Folder, d.opts.Format)
	stats := DelegateStats(tally, total, code)
	sendProgress(ctx, progress, finishedUpdate(stats))

	return &DelegateResult{Stats: stats, Tally: tally, ExitCode: code, Interrupted: ctx.Err() != nil}, nil
}

// DelegateStats derives run stats from classified output and the number of files present.
//
// On a clean exit succeeded is the larger of the success lines and the files not accounted for
// by skip and failure lines. Otherwise only the file-based estimate is used.
func DelegateStats(tally spotdl.Tally, files, exitCode int) models.Stats {
	estimate := max(files-tally.Skipped-tally.Failed, 0)

	succeeded := estimate
	if exitCode == 0 {
		succeeded = max(tally.Success, estimate)
	}

	return models.Stats{
		Total:     files,
		Succeeded: succeeded,
		Skipped:   tally.Skipped,
		Failed:    tally.Failed,
	}
}

// countFiles counts regular files in dir with extension ext.
func countFiles(dir, ext string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	suffix := "." + strings.ToLower(strings.TrimPrefix(ext, "."))
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.ToLower(filepath.Ext(e.Name())) == suffix {
			n++
		}
	}
	return n
}
