package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/sptdl/internal/models"
	"github.com/desertthunder/sptdl/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func newRun(ref string, started time.Time) *models.Run {
	return &models.Run{Reference: ref, Engine: "ytdlp", Folder: "downloads", StartedAt: started}
}

func TestRunRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := newRun("https://open.spotify.com/playlist/abc", time.Now())

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if run.ID() == "" {
			t.Error("run ID should be set after creation")
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := newRun("ref", time.Now())
		if err := repo.Create(run); err != nil {
			t.Fatal(err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Reference != "ref" || got.Engine != "ytdlp" || got.Folder != "downloads" {
			t.Errorf("unexpected run %+v", got)
		}
		if !got.FinishedAt.IsZero() {
			t.Error("unfinished run should have zero finish time")
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := newRun("ref", time.Now().Add(-time.Minute))
		if err := repo.Create(run); err != nil {
			t.Fatal(err)
		}

		run.FinishedAt = time.Now()
		run.Stats = models.Stats{Total: 10, Succeeded: 8, Failed: 1, Skipped: 1}
		run.ExitCode = 1
		if err := repo.Update(run); err != nil {
			t.Fatalf("failed to update run: %v", err)
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatal(err)
		}
		if got.Stats != run.Stats || got.ExitCode != 1 {
			t.Errorf("expected updated stats, got %+v", got)
		}
		if got.Duration() <= 0 {
			t.Errorf("expected positive duration, got %s", got.Duration())
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		base := time.Now().Add(-time.Hour)
		for i, ref := range []string{"first", "second", "third"} {
			if err := repo.Create(newRun(ref, base.Add(time.Duration(i)*time.Minute))); err != nil {
				t.Fatal(err)
			}
		}

		runs, err := repo.List(2)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 2 || runs[0].Reference != "third" || runs[1].Reference != "second" {
			t.Errorf("expected newest two runs, got %d", len(runs))
		}

		all, err := repo.List(0)
		if err != nil || len(all) != 3 {
			t.Errorf("expected all runs with non-positive limit, got %d (%v)", len(all), err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := newRun("ref", time.Now())
		if err := repo.Create(run); err != nil {
			t.Fatal(err)
		}
		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete run: %v", err)
		}
		if _, err := repo.Get(run.ID()); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("Failures", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		run := newRun("ref", time.Now())
		if err := repo.Create(run); err != nil {
			t.Fatal(err)
		}

		results := []models.DownloadResult{
			{Track: models.Track{Title: "One", Artists: []string{"A"}}, Status: models.StatusCompleted},
			{Track: models.Track{Title: "Two", Artists: []string{"B"}}, Status: models.StatusFailed, Err: shared.ErrNoCandidates},
			{Track: models.Track{Title: "Three", Artists: []string{"C"}}, Status: models.StatusSkipped},
			{Track: models.Track{Title: "Four", Artists: []string{"D"}}, Status: models.StatusFailed},
		}
		if err := repo.RecordFailures(run.ID(), results); err != nil {
			t.Fatalf("failed to record failures: %v", err)
		}

		failures, err := repo.Failures(run.ID())
		if err != nil {
			t.Fatal(err)
		}
		if len(failures) != 2 {
			t.Fatalf("expected 2 failures, got %d", len(failures))
		}
		if failures[0].Position != 1 || failures[0].Track != "B - Two" || failures[0].Reason != shared.ErrNoCandidates.Error() {
			t.Errorf("unexpected first failure %+v", failures[0])
		}
		if failures[1].Position != 3 || failures[1].Reason != "" {
			t.Errorf("unexpected second failure %+v", failures[1])
		}

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatal(err)
		}
		if failures, _ := repo.Failures(run.ID()); len(failures) != 0 {
			t.Error("expected failures to cascade on delete")
		}
	})
}

func TestRunRepositoryErrors(t *testing.T) {
	t.Run("ValidationError", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		if err := repo.Create(&models.Run{Engine: "ytdlp"}); err == nil {
			t.Fatal("expected validation error for empty reference")
		}
	})

	t.Run("DuplicateID", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		first := newRun("ref", time.Now())
		if err := repo.Create(first); err != nil {
			t.Fatal(err)
		}
		if err := repo.Create(&models.Run{RunID: first.ID(), Reference: "ref", StartedAt: time.Now()}); err == nil {
			t.Fatal("expected error for duplicate ID")
		}
	})

	t.Run("UpdateNotFound", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		if err := repo.Update(newRunWithID("missing")); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("DeleteNotFound", func(t *testing.T) {
		repo := NewRunRepository(setupTestDB(t))
		if err := repo.Delete("missing"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("ClosedDatabase", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewRunRepository(db)
		db.Close()

		if _, err := repo.List(10); err == nil {
			t.Error("expected error on closed database")
		}
	})
}

func newRunWithID(id string) *models.Run {
	run := newRun("ref", time.Now())
	run.RunID = id
	return run
}
