package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/sptdl/internal/models"
	"github.com/desertthunder/sptdl/internal/shared"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunFailure is one failed track of a recorded run.
type RunFailure struct {
	Position int    // Index of the track in the run
	Track    string // "Artists - Title"
	Reason   string
}

// RunRepository implements models.Repository[*models.Run] for the run history.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run, generating its ID when empty
func (r *RunRepository) Create(run *models.Run) error {
	if run.RunID == "" {
		run.RunID = shared.GenerateID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO runs (id, reference, engine, folder, started_at, finished_at, total, succeeded, failed, skipped, exit_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.RunID,
		run.Reference,
		run.Engine,
		run.Folder,
		run.StartedAt,
		nullTime(run.FinishedAt),
		run.Stats.Total,
		run.Stats.Succeeded,
		run.Stats.Failed,
		run.Stats.Skipped,
		run.ExitCode,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `
		SELECT id, reference, engine, folder, started_at, finished_at, total, succeeded, failed, skipped, exit_code
		FROM runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// Update stores the finish time, stats and exit code of a run
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE runs
		SET finished_at = ?, total = ?, succeeded = ?, failed = ?, skipped = ?, exit_code = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		nullTime(run.FinishedAt),
		run.Stats.Total,
		run.Stats.Succeeded,
		run.Stats.Failed,
		run.Stats.Skipped,
		run.ExitCode,
		run.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.RunID)
	}
	return nil
}

// List returns up to limit runs, newest first. A non-positive limit returns every run.
func (r *RunRepository) List(limit int) ([]*models.Run, error) {
	query := `
		SELECT id, reference, engine, folder, started_at, finished_at, total, succeeded, failed, skipped, exit_code
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// Delete removes a run and its failures
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// RecordFailures stores the failed entries of results for runID in one transaction.
func (r *RunRepository) RecordFailures(runID string, results []models.DownloadResult) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO run_failures (run_id, position, track, reason) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, res := range results {
		if res.Status != models.StatusFailed {
			continue
		}
		reason := ""
		if res.Err != nil {
			reason = res.Err.Error()
		}
		if _, err := stmt.Exec(runID, i, res.Track.String(), reason); err != nil {
			return fmt.Errorf("failed to insert failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit failures: %w", err)
	}
	return nil
}

// Failures returns the recorded failures of runID in processing order.
func (r *RunRepository) Failures(runID string) ([]RunFailure, error) {
	rows, err := r.db.Query(`SELECT position, track, reason FROM run_failures WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var failures []RunFailure
	for rows.Next() {
		var f RunFailure
		if err := rows.Scan(&f.Position, &f.Track, &f.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.Run, error) {
	var (
		run      models.Run
		finished sql.NullTime
	)

	err := row.Scan(
		&run.RunID,
		&run.Reference,
		&run.Engine,
		&run.Folder,
		&run.StartedAt,
		&finished,
		&run.Stats.Total,
		&run.Stats.Succeeded,
		&run.Stats.Failed,
		&run.Stats.Skipped,
		&run.ExitCode,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return &run, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
