package ui

import (
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/tasks"
)

// tracksFetchedMsg delivers the playlist metadata and resolved track
// listing, or the error that prevented fetching them.
type tracksFetchedMsg struct {
	playlist *models.Playlist
	tracks   []models.Track
	err      error
}

// progressUpdateMsg wraps one engine progress event for the download view.
type progressUpdateMsg tasks.ProgressUpdate

// downloadCompleteMsg carries the final run result once the engine returns.
type downloadCompleteMsg struct {
	result *tasks.DownloadRunResult
	err    error
}
