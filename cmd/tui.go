package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sptdl/internal/services"
	"github.com/desertthunder/sptdl/internal/shared"
	"github.com/desertthunder/sptdl/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI: preview the tracks, confirm, then watch the download.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
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

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, logFile, err := shared.NewFileLogger("")
	if err != nil {
		return err
	}
	defer logFile.Close()
	fileLogger.SetLevel(r.logger.GetLevel())
	r.logger = fileLogger

	provider, err := r.metadataProvider(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, provider, r.newPipeline(), ref)
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	result := model.Result()
	if result == nil {
		return nil
	}

	history, closeHistory := r.openHistory()
	defer closeHistory()
	run := r.beginRun(history, ref.String(), r.config.Download.Engine)

	r.writePlain("%s", ui.Summary(result.Stats, result.Results))

	// Ctrl+C reaches the program as a key press in raw mode, so ctx itself may still be live.
	if result.Interrupted {
		r.writePlain("%s\n", ui.Warning("Interrupted: remaining tracks were not processed"))
		r.finishRun(history, run, result.Stats, interruptedExitCode, result.Results)
		return context.Canceled
	}

	r.finishRun(history, run, result.Stats, 0, result.Results)
	r.reportFolder(cmd, result.Stats.Succeeded+result.Stats.Skipped > 0)
	return nil
}
