package tasks

import (
	"fmt"

	"github.com/desertthunder/spx/internal/models"
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
	CollectTracks Phase = iota
	WriteMetadata
	DownloadTracks
	WriteReport
	Done
)

func (p Phase) String() string {
	switch p {
	case CollectTracks:
		return "collect_tracks"
	case WriteMetadata:
		return "write_metadata"
	case DownloadTracks:
		return "download_tracks"
	case WriteReport:
		return "write_report"
	case Done:
		return "done"
	default:
		return ""
	}
}

func collectingUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   CollectTracks,
		Step:    1,
		Total:   1,
		Message: "Collecting playlist tracks...",
	}
}

func collectedUpdate(tracks []models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CollectTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d tracks", len(tracks)),
		Data:    tracks,
	}
}

func metadataUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteMetadata,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Metadata saved to %s", path),
	}
}

func downloadingUpdate(step, total int, query string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Downloading: %s", step, total, query),
	}
}

func downloadedUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, name),
	}
}

func downloadFailedUpdate(step, total int, name, reason string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, name, reason),
	}
}

func skippedUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Skipping: %s (already in library)", step, total, name),
	}
}

func reportUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteReport,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Failed tracks: %s", path),
	}
}

func doneUpdate(success, total int, result *DownloadRunResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Download complete. %d/%d succeeded.", success, total),
		Data:    result,
	}
}
