package tasks

import (
	"fmt"

	"github.com/desertthunder/sptdl/internal/models"
	"github.com/desertthunder/sptdl/internal/spotdl"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ResolveTracks Phase = iota
	ProcessTrack
	TrackDone
	Delegate
	Finished
)

func (p Phase) String() string {
	switch p {
	case ResolveTracks:
		return "resolve_tracks"
	case ProcessTrack:
		return "process_track"
	case TrackDone:
		return "track_done"
	case Delegate:
		return "delegate"
	case Finished:
		return "finished"
	default:
		return ""
	}
}

func processTrackUpdate(step, total int, tr models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ProcessTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, tr),
	}
}

func trackDoneUpdate(step, total int, res models.DownloadResult) ProgressUpdate {
	var msg string
	switch res.Status {
	case models.StatusCompleted:
		msg = fmt.Sprintf("[%d/%d] ✓ %s", step, total, res.Track)
	case models.StatusSkipped:
		msg = fmt.Sprintf("[%d/%d] - %s (exists)", step, total, res.Track)
	default:
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Track, res.Err)
	}
	return ProgressUpdate{
		Phase:   TrackDone,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}

func finishedUpdate(stats models.Stats) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Finished,
		Step:    stats.Total,
		Total:   stats.Total,
		Message: fmt.Sprintf("%d succeeded, %d skipped, %d failed", stats.Succeeded, stats.Skipped, stats.Failed),
		Data:    stats,
	}
}

func delegateLineUpdate(step int, line spotdl.Line) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Delegate,
		Step:    step,
		Message: line.Text,
		Data:    line,
	}
}
