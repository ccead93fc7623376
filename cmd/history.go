package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/sptdl/internal/models"
	"github.com/desertthunder/sptdl/internal/repositories"
	"github.com/desertthunder/sptdl/internal/shared"
	"github.com/desertthunder/sptdl/internal/ui"
	"github.com/urfave/cli/v3"
)

type runJSON struct {
	ID         string                    `json:"id"`
	Reference  string                    `json:"reference"`
	Engine     string                    `json:"engine"`
	Folder     string                    `json:"folder"`
	StartedAt  time.Time                 `json:"started_at"`
	FinishedAt *time.Time                `json:"finished_at,omitempty"`
	Total      int                       `json:"total"`
	Succeeded  int                       `json:"succeeded"`
	Skipped    int                       `json:"skipped"`
	Failed     int                       `json:"failed"`
	ExitCode   int                       `json:"exit_code"`
	Failures   []repositories.RunFailure `json:"failures,omitempty"`
}

func toRunJSON(run *models.Run) runJSON {
	out := runJSON{
		ID:        run.RunID,
		Reference: run.Reference,
		Engine:    run.Engine,
		Folder:    run.Folder,
		StartedAt: run.StartedAt,
		Total:     run.Stats.Total,
		Succeeded: run.Stats.Succeeded,
		Skipped:   run.Stats.Skipped,
		Failed:    run.Stats.Failed,
		ExitCode:  run.ExitCode,
	}
	if !run.FinishedAt.IsZero() {
		out.FinishedAt = &run.FinishedAt
	}
	return out
}

// History lists recent runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	repo, closeFn, err := r.historyRepository()
	if err != nil {
		return err
	}
	defer closeFn()

	runs, err := repo.List(int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if cmd.Bool("json") {
		out := make([]runJSON, 0, len(runs))
		for _, run := range runs {
			out = append(out, toRunJSON(run))
		}
		return r.writeJSON(out, true)
	}

	if len(runs) == 0 {
		return r.writePlain("No runs recorded yet.\n")
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.RunID),
			run.StartedAt.Local().Format(time.DateTime),
			run.Reference,
			run.Engine,
			fmt.Sprintf("%d/%d/%d", run.Stats.Succeeded, run.Stats.Skipped, run.Stats.Failed),
			fmt.Sprint(run.ExitCode),
		})
	}
	return r.writePlain("%s\n", ui.HeaderTable([]string{"ID", "Started", "Reference", "Engine", "OK/Skip/Fail", "Exit"}, rows))
}

// HistoryShow prints one run with its failed tracks.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: run ID", shared.ErrMissingArgument)
	}

	repo, closeFn, err := r.historyRepository()
	if err != nil {
		return err
	}
	defer closeFn()

	run, err := r.findRun(repo, id)
	if err != nil {
		return err
	}
	failures, err := repo.Failures(run.RunID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := toRunJSON(run)
		out.Failures = failures
		return r.writeJSON(out, true)
	}

	r.writePlainHeader("Run " + run.RunID)
	r.writePlain("%s\n", ui.KeyValueTable([][]string{
		{"Reference", run.Reference},
		{"Engine", run.Engine},
		{"Folder", run.Folder},
		{"Started", run.StartedAt.Local().Format(time.DateTime)},
		{"Duration", run.Duration().Round(time.Second).String()},
		{"Exit Code", fmt.Sprint(run.ExitCode)},
	}))
	r.writePlain("%s", ui.Summary(run.Stats, nil))

	for _, f := range failures {
		r.writePlain("  %d. %s: %s\n", f.Position+1, f.Track, ui.Muted(f.Reason))
	}
	return nil
}

const minPrefixLen = 4

// findRun accepts a full ID or the short prefix printed by [Runner.History].
func (r *Runner) findRun(repo *repositories.RunRepository, id string) (*models.Run, error) {
	if run, err := repo.Get(id); err == nil {
		return run, nil
	}

	if len(id) < minPrefixLen {
		return nil, fmt.Errorf("%w: run ID prefix %q needs at least %d characters", shared.ErrInvalidArgument, id, minPrefixLen)
	}

	runs, err := repo.List(0)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	for _, run := range runs {
		if strings.HasPrefix(run.RunID, id) {
			return run, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", repositories.ErrRunNotFound, id)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
