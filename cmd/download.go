package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/desertthunder/sptdl/internal/models"
	"github.com/desertthunder/sptdl/internal/repositories"
	"github.com/desertthunder/sptdl/internal/services"
	"github.com/desertthunder/sptdl/internal/shared"
	"github.com/desertthunder/sptdl/internal/spotdl"
	"github.com/desertthunder/sptdl/internal/tasks"
	"github.com/desertthunder/sptdl/internal/ui"
	"github.com/urfave/cli/v3"
)

const interruptedExitCode = 130

// Download resolves a reference and runs every track through the pipeline.
//
// The summary is printed even when the run is interrupted.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	if err := r.applyDownloadFlags(cmd); err != nil {
		return err
	}

	input, err := r.referenceArg(cmd)
	if err != nil {
		return err
	}
	ref, err := services.ParseReference(input)
	if err != nil {
		return err
	}

	provider, err := r.metadataProvider(ctx)
	if err != nil {
		return err
	}
	pipeline := r.newPipeline()

	r.writePlain("%s\n%s\n\n", ui.Banner(appName, appVersion), ui.KeyValueTable(r.configRows()))

	history, closeHistory := r.openHistory()
	defer closeHistory()
	run := r.beginRun(history, ref.String(), r.config.Download.Engine)

	r.logger.Info("starting download", "ref", ref.String(), "engine", r.config.Download.Engine)

	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go r.printProgress(progress, done)

	result, err := pipeline.Download(ctx, provider, ref, progress)
	close(progress)
	<-done

	if err != nil {
		r.finishRun(history, run, models.Stats{}, 1, nil)
		return fmt.Errorf("failed to resolve %s: %w", ref, err)
	}

	r.writePlain("\n%s", ui.Summary(result.Stats, result.Results))

	if result.Interrupted {
		r.writePlain("%s\n", ui.Warning("Interrupted: remaining tracks were not processed"))
		r.finishRun(history, run, result.Stats, interruptedExitCode, result.Results)
		return context.Cause(ctx)
	}

	r.finishRun(history, run, result.Stats, 0, result.Results)
	r.reportFolder(cmd, result.Stats.Succeeded+result.Stats.Skipped > 0)
	return nil
}

// Delegate hands the reference to spotDL and exits with its exit code.
func (r *Runner) Delegate(ctx context.Context, cmd *cli.Command) error {
	if err := r.applyDownloadFlags(cmd); err != nil {
		return err
	}
	r.config.Download.Engine = "spotdl"

	input, err := r.referenceArg(cmd)
	if err != nil {
		return err
	}

	delegator := tasks.NewDelegator(spotdl.New(r.config.Tools.SpotDL, r.logger), tasks.DelegateOpts{
		Folder:  r.config.Output.Folder,
		Format:  r.config.Output.Format,
		Bitrate: r.config.Output.Bitrate,
	}, r.logger)

	if err := delegator.HealthCheck(ctx); err != nil {
		r.writePlain("%s\n", ui.Error("spotDL was not found or could not be started."))
		r.writePlain("%s\n", ui.Muted("Install it with: pip install spotdl"))
		return err
	}

	r.writePlain("%s\n%s\n\n", ui.Banner(appName, appVersion), ui.KeyValueTable(r.configRows()))

	history, closeHistory := r.openHistory()
	defer closeHistory()
	run := r.beginRun(history, input, "delegate")

	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go r.printProgress(progress, done)

	result, err := delegator.Run(ctx, input, progress)
	close(progress)
	<-done

	if err != nil {
		r.finishRun(history, run, models.Stats{}, 1, nil)
		return err
	}

	r.writePlain("\n%s", ui.Summary(result.Stats, nil))

	if result.Interrupted {
		r.writePlain("%s\n", ui.Warning("Interrupted: spotDL was stopped"))
		r.finishRun(history, run, result.Stats, interruptedExitCode, nil)
		return context.Cause(ctx)
	}

	r.finishRun(history, run, result.Stats, result.ExitCode, nil)
	if result.ExitCode != 0 {
		r.writePlain("%s\n", ui.Warning(fmt.Sprintf("spotDL exited with status %d", result.ExitCode)))
		return &exitStatusError{code: result.ExitCode}
	}

	r.reportFolder(cmd, result.Stats.Total > 0)
	return nil
}

func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)

	for update := range progress {
		switch update.Phase {
		case tasks.ResolveTracks:
			r.writePlain("%s\n", ui.Muted(update.Message))
		case tasks.TrackDone:
			if res, ok := update.Data.(models.DownloadResult); ok {
				r.writePlain("%s\n", ui.StatusLine(update.Step, update.Total, res))
			}
		case tasks.Delegate:
			r.writePlain("%s\n", delegateLine(update))
		}
	}
}

func delegateLine(update tasks.ProgressUpdate) string {
	line, ok := update.Data.(spotdl.Line)
	if !ok {
		return update.Message
	}

	switch line.Category {
	case spotdl.CategorySuccess:
		return ui.Success("✓ ") + line.Text
	case spotdl.CategorySkipped:
		return ui.Muted("- " + line.Text)
	case spotdl.CategoryFailed:
		return ui.Error("✗ ") + line.Text
	default:
		return ui.Muted(line.Text)
	}
}

// reportFolder prints the absolute output folder and optionally opens it.
func (r *Runner) reportFolder(cmd *cli.Command, hasFiles bool) {
	if !hasFiles {
		return
	}

	folder, err := filepath.Abs(r.config.Output.Folder)
	if err != nil {
		folder = r.config.Output.Folder
	}
	r.writePlain("\n%s %s\n", ui.Success("Files saved to"), folder)

	if cmd.Bool("open") {
		if err := shared.OpenPath(folder); err != nil {
			r.logger.Warn("could not open output folder", "err", err)
		}
	}
}

// beginRun records the start of a run. It returns nil when history is disabled or unwritable.
func (r *Runner) beginRun(history *repositories.RunRepository, reference, engine string) *models.Run {
	if history == nil {
		return nil
	}

	run := &models.Run{
		Reference: reference,
		Engine:    engine,
		Folder:    r.config.Output.Folder,
	}
	if err := history.Create(run); err != nil {
		r.logger.Warn("failed to record run", "err", err)
		return nil
	}
	return run
}

func (r *Runner) finishRun(history *repositories.RunRepository, run *models.Run, stats models.Stats, exitCode int, results []models.DownloadResult) {
	if history == nil || run == nil {
		return
	}

	run.Stats = stats
	run.ExitCode = exitCode
	run.FinishedAt = time.Now()

	if err := history.Update(run); err != nil {
		r.logger.Warn("failed to update run", "id", run.RunID, "err", err)
		return
	}
	if err := history.RecordFailures(run.RunID, results); err != nil {
		r.logger.Warn("failed to record failed tracks", "id", run.RunID, "err", err)
	}
}
