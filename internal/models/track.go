package models

import (
	"fmt"
	"time"
)

// Track is the normalized record produced from one raw catalog item.
//
// Artists holds display names joined with ", ". ID is derived from the URI
// and omitted when the URI does not carry a track id. Records have no
// identity beyond their playlist position; duplicates are legal.
type Track struct {
	Name       string `json:"name"`
	Artists    string `json:"artists"`
	Album      string `json:"album"`
	URI        string `json:"uri"`
	ID         string `json:"id,omitempty"`
	DurationMS int    `json:"duration_ms"`
	CoverURL   string `json:"cover_url"`
}

// Empty reports whether every field of the record is zero. Extraction never
// emits an all-empty record.
func (t Track) Empty() bool {
	return t.Name == "" && t.Artists == "" && t.Album == "" &&
		t.URI == "" && t.ID == "" && t.DurationMS == 0 && t.CoverURL == ""
}

// Query returns the downloader search query for the track ("name artists").
func (t Track) Query() string {
	return fmt.Sprintf("%s %s", t.Name, t.Artists)
}

// Failure records one track the acquisition loop could not complete.
type Failure struct {
	Name    string `json:"name"`
	Artists string `json:"artists"`
	Reason  string `json:"reason"`
}

// Playlist is catalog-level playlist metadata.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
	Total       int    `json:"total"`
	CoverURL    string `json:"cover_url,omitempty"`
}

// PersistedDownload is a completed acquisition recorded in the local ledger.
type PersistedDownload struct {
	id         string
	sequence   int
	playlistID string
	track      Track
	filePath   string
	format     string
	createdAt  time.Time
	updatedAt  time.Time
	deletedAt  *time.Time
}

// NewPersistedDownload creates a ledger entry for a finished download.
// The ID and sequence are assigned by the repository on Create.
func NewPersistedDownload(playlistID string, track Track, filePath, format string) *PersistedDownload {
	now := time.Now()
	return &PersistedDownload{
		playlistID: playlistID,
		track:      track,
		filePath:   filePath,
		format:     format,
		createdAt:  now,
		updatedAt:  now,
	}
}

func (d *PersistedDownload) ID() string { return d.id }

func (d *PersistedDownload) Sequence() int { return d.sequence }

func (d *PersistedDownload) PlaylistID() string { return d.playlistID }

func (d *PersistedDownload) Track() Track { return d.track }

func (d *PersistedDownload) FilePath() string { return d.filePath }

func (d *PersistedDownload) Format() string { return d.format }

func (d *PersistedDownload) CreatedAt() time.Time { return d.createdAt }

func (d *PersistedDownload) UpdatedAt() time.Time { return d.updatedAt }

func (d *PersistedDownload) DeletedAt() *time.Time { return d.deletedAt }

func (d *PersistedDownload) SetID(id string) { d.id = id }

func (d *PersistedDownload) SetSequence(n int) { d.sequence = n }

func (d *PersistedDownload) SetUpdatedAt(t time.Time) { d.updatedAt = t }

func (d *PersistedDownload) SetDeletedAt(t *time.Time) { d.deletedAt = t }

func (d *PersistedDownload) SetCreatedAt(t time.Time) { d.createdAt = t }

// Validate checks that the entry identifies a real file on disk.
func (d *PersistedDownload) Validate() error {
	if d.track.Name == "" {
		return fmt.Errorf("download requires a track name")
	}
	if d.filePath == "" {
		return fmt.Errorf("download requires a file path")
	}
	if d.format == "" {
		return fmt.Errorf("download requires an audio format")
	}
	return nil
}
