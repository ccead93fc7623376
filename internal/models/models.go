// package models defines the data model for the playlist downloader
package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
type Repository[T Model] interface {
	Create(model T) error        // Create inserts a new model into the database
	Get(id string) (T, error)    // Get retrieves a model by its ID
	Update(model T) error        // Update modifies an existing model in the database
	List(limit int) ([]T, error) // List retrieves the most recent models, newest first
	Delete(id string) error      // Delete removes a model from the database by its ID
}

// Track describes one song resolved from the metadata provider.
//
// Values are treated as immutable once the resolver returns them.
type Track struct {
	ID          string
	Title       string
	Artists     []string // Ordered, at least one entry
	ArtistIDs   []string // Provider IDs parallel to Artists; may be empty
	Album       string
	Year        string // Four digit year or empty
	Duration    int    // Duration in seconds
	CoverURL    string // Empty when the provider has no artwork
	TrackNumber int    // Zero when absent
	Genres      []string
	URL         string // Provider page for the track
	ISRC        string
}

// PrimaryArtist returns the first credited artist, or an empty string.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// ArtistLine joins all credited artists with ", ".
func (t Track) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// Query builds the free-text search query for the video provider.
func (t Track) Query() string {
	parts := append([]string{t.Title}, t.Artists...)
	return strings.Join(parts, " ")
}

// String implements [fmt.Stringer].
func (t Track) String() string {
	return fmt.Sprintf("%s - %s", t.ArtistLine(), t.Title)
}

// Candidate is one result from the video search provider.
type Candidate struct {
	Reference string // URL or ID usable by a fetch engine
	Title     string
	Duration  *int // Seconds; nil when the provider did not report one
}

// HasDuration reports whether the provider reported a duration.
func (c Candidate) HasDuration() bool {
	return c.Duration != nil
}

// Seconds is a helper for building candidates with a known duration.
func Seconds(n int) *int {
	return &n
}

// Status is the terminal state of one track.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// DownloadResult is the outcome of processing one [Track].
//
// Path is set iff Status is [StatusCompleted] or [StatusSkipped].
type DownloadResult struct {
	Track      Track
	Status     Status
	Path       string
	Err        error
	Confidence float64 // Title similarity of the chosen candidate; informational
}

// Stats aggregates a run. It is always derived from results with [StatsFrom].
type Stats struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
}

// StatsFrom recomputes aggregate counts from a list of results.
func StatsFrom(results []DownloadResult) Stats {
	s := Stats{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusCompleted:
			s.Succeeded++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Run is a persisted record of one CLI invocation.
type Run struct {
	RunID      string
	Reference  string
	Engine     string
	Folder     string
	StartedAt  time.Time
	FinishedAt time.Time
	Stats      Stats
	ExitCode   int
}

func (r *Run) ID() string           { return r.RunID }
func (r *Run) CreatedAt() time.Time { return r.StartedAt }

// Validate checks required fields.
func (r *Run) Validate() error {
	if r.RunID == "" {
		return fmt.Errorf("run ID is required")
	}
	if r.Reference == "" {
		return fmt.Errorf("run reference is required")
	}
	if r.StartedAt.IsZero() {
		return fmt.Errorf("run start time is required")
	}
	return nil
}

// Duration returns how long the run took, or zero if unfinished.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
