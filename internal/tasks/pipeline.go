package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptdl/internal/matcher"
	"github.com/desertthunder/sptdl/internal/models"
	"github.com/desertthunder/sptdl/internal/services"
	"github.com/desertthunder/sptdl/internal/shared"
	"golang.org/x/time/rate"
)

const DefaultPause = time.Second

// Strategy obtains the audio file for one track at targetPath.
//
// Implementations return the final path, an informational match confidence in [0, 1] and an
// error when no usable file was produced.
type Strategy interface {
	Name() string
	Acquire(ctx context.Context, track models.Track, targetPath string) (string, float64, error)
}

// Fetcher is satisfied by [fetcher.Fetcher].
type Fetcher interface {
	FetchAndNormalize(ctx context.Context, reference, targetBase string) (string, bool)
}

// MetadataWriter is satisfied by [tagger.Tagger].
type MetadataWriter interface {
	Apply(ctx context.Context, path string, track models.Track)
}

// DirectStrategy searches for video candidates, picks one by duration and fetches it.
type DirectStrategy struct {
	Searcher services.Searcher
	Fetcher  Fetcher
	Limit    int // Search results to request
}

func (s *DirectStrategy) Name() string { return "search" }

// Acquire implements [Strategy].
func (s *DirectStrategy) Acquire(ctx context.Context, track models.Track, targetPath string) (string, float64, error) {
	candidates, err := s.Searcher.Search(ctx, track.Query(), s.Limit)
	if err != nil {
		return "", 0, err
	}

	best, ok := matcher.SelectBest(candidates, track.Duration)
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", shared.ErrNoCandidates, track.Query())
	}
	confidence := matcher.Confidence(track, best)

	path, ok := s.Fetcher.FetchAndNormalize(ctx, best.Reference, targetPath)
	if !ok {
		return "", confidence, fmt.Errorf("%w: %s", shared.ErrFetchFailed, best.Reference)
	}
	return path, confidence, nil
}

// DelegateStrategy hands the track's provider URL to a fetcher whose engine searches on its own.
type DelegateStrategy struct {
	Fetcher Fetcher
}

func (s *DelegateStrategy) Name() string { return "delegate" }

// Acquire implements [Strategy].
func (s *DelegateStrategy) Acquire(ctx context.Context, track models.Track, targetPath string) (string, float64, error) {
	if track.URL == "" {
		return "", 0, fmt.Errorf("%w: track %s has no URL", shared.ErrInvalidInput, track.ID)
	}
	path, ok := s.Fetcher.FetchAndNormalize(ctx, track.URL, targetPath)
	if !ok {
		return "", 0, fmt.Errorf("%w: %s", shared.ErrFetchFailed, track.URL)
	}
	return path, 1, nil
}

// PipelineOpts configures a [Pipeline].
type PipelineOpts struct {
	Folder           string
	Format           string
	FilenameTemplate string
	SkipExisting     bool
	Pause            time.Duration // Minimum gap between tracks that reach the network
}

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	Results     []models.DownloadResult
	Stats       models.Stats
	Interrupted bool // The context was cancelled before every track was processed
}

// Pipeline processes resolved tracks one at a time.
type Pipeline struct {
	strategy Strategy
	tagger   MetadataWriter
	opts     PipelineOpts
	limiter  *rate.Limiter
	logger   *log.Logger
}

// NewPipeline creates a pipeline. tagger may be nil to skip tagging.
func NewPipeline(strategy Strategy, tagger MetadataWriter, opts PipelineOpts, logger *log.Logger) *Pipeline {
	if opts.Format == "" {
		opts.Format = "mp3"
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	limit := rate.Inf
	if opts.Pause > 0 {
		limit = rate.Every(opts.Pause)
	}

	return &Pipeline{
		strategy: strategy,
		tagger:   tagger,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

// TargetPath returns where track will be written.
func (p *Pipeline) TargetPath(track models.Track) string {
	return filepath.Join(p.opts.Folder, shared.RenderFilename(p.opts.FilenameTemplate, track, p.opts.Format))
}

// Download resolves ref with provider and runs the pipeline over the result.
//
// Resolution failures are returned as errors; per-track failures are only recorded.
func (p *Pipeline) Download(ctx context.Context, provider services.MetadataProvider, ref services.Reference, progress chan<- ProgressUpdate) (*RunResult, error) {
	sendProgress(ctx, progress, ProgressUpdate{Phase: ResolveTracks, Step: 1, Total: 1, Message: fmt.Sprintf("Resolving %s via %s...", ref, provider.Name())})

	tracks, err := provider.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	p.logger.Info("resolved reference", "ref", ref.String(), "tracks", len(tracks))
	return p.Run(ctx, tracks, progress), nil
}

// Run processes tracks in order. A failing or panicking track never stops the run; cancelling
// ctx stops it between tracks.
func (p *Pipeline) Run(ctx context.Context, tracks []models.Track, progress chan<- ProgressUpdate) *RunResult {
	result := &RunResult{Results: make([]models.DownloadResult, 0, len(tracks))}
	total := len(tracks)

	for i, track := range tracks {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}

		sendProgress(ctx, progress, processTrackUpdate(i+1, total, track))
		res := p.process(ctx, track)
		result.Results = append(result.Results, res)
		sendProgress(ctx, progress, trackDoneUpdate(i+1, total, res))

		if res.Status == models.StatusFailed && ctx.Err() != nil {
			result.Interrupted = true
			break
		}
	}

	result.Stats = models.StatsFrom(result.Results)
	sendProgress(ctx, progress, finishedUpdate(result.Stats))
	return result
}

func (p *Pipeline) process(ctx context.Context, track models.Track) (res models.DownloadResult) {
	logger := p.logger.With("track", track.String())

	defer func() {
		if r := recover(); r != nil {
			logger.Error("track panicked", "panic", r)
			res = failed(track, fmt.Errorf("panic while processing %s: %v", track, r))
		}
	}()

	target := p.TargetPath(track)
	if p.opts.SkipExisting {
		if _, err := os.Stat(target); err == nil {
			logger.Info("skipping existing file", "path", target)
			return models.DownloadResult{Track: track, Status: models.StatusSkipped, Path: target}
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return failed(track, err)
	}

	path, confidence, err := p.strategy.Acquire(ctx, track, target)
	if err != nil {
		logger.Warn("track failed", "strategy", p.strategy.Name(), "err", err)
		return failed(track, err)
	}

	if p.tagger != nil {
		p.tagger.Apply(ctx, path, track)
	}

	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		return failed(track, fmt.Errorf("%w: %s", shared.ErrEmptyOutput, path))
	}

	logger.Info("track completed", "path", path, "confidence", fmt.Sprintf("%.2f", confidence))
	return models.DownloadResult{Track: track, Status: models.StatusCompleted, Path: path, Confidence: confidence}
}

func failed(track models.Track, err error) models.DownloadResult {
	return models.DownloadResult{Track: track, Status: models.StatusFailed, Err: err}
}

// sendProgress delivers update, blocking until the consumer takes it. Once ctx is cancelled it
// stops waiting so an abandoned channel cannot stall the run.
func sendProgress(ctx context.Context, progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		return
	default:
	}
	select {
	case progress <- update:
	case <-ctx.Done():
	}
}
