package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// DownloadRepository implements models.Repository[*models.PersistedDownload]
// for the acquisition ledger.
//
// One row per successfully acquired track. Rows are soft-deleted so library
// listings stay reproducible after cleanup passes.
type DownloadRepository struct {
	db *sql.DB
}

// LedgerStats summarizes the ledger for the library stats command.
type LedgerStats struct {
	Total     int            `json:"total"`
	Playlists int            `json:"playlists"`
	ByFormat  map[string]int `json:"by_format"`
}

// NewDownloadRepository creates a new DownloadRepository with the given database connection
func NewDownloadRepository(db *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Create inserts a new [models.PersistedDownload] with a generated ID and sequence
func (r *DownloadRepository) Create(download *models.PersistedDownload) error {
	sequence, err := NextSequence(r.db, "downloads")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	download.SetID(shared.GenerateID())
	download.SetSequence(sequence)

	if err := download.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	track := download.Track()
	query := `
		INSERT INTO downloads (id, sequence, playlist_id, track_name, artists, album, track_uri, track_id, duration_ms, file_path, format, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		download.ID(),
		sequence,
		download.PlaylistID(),
		track.Name,
		track.Artists,
		track.Album,
		track.URI,
		track.ID,
		track.DurationMS,
		download.FilePath(),
		download.Format(),
		download.CreatedAt(),
		download.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert download: %w", err)
	}

	return nil
}

// Get retrieves a download by ID, excluding soft-deleted rows
func (r *DownloadRepository) Get(id string) (*models.PersistedDownload, error) {
	query := `
		SELECT id, sequence, playlist_id, track_name, artists, album, track_uri, track_id, duration_ms, file_path, format, created_at, updated_at, deleted_at
		FROM downloads
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// Find retrieves the ledger entry for one track of one playlist.
// Used by the download engine's skip check; a not-found is an error like
// every other single-row lookup here.
func (r *DownloadRepository) Find(playlistID, trackID string) (*models.PersistedDownload, error) {
	query := `
		SELECT id, sequence, playlist_id, track_name, artists, album, track_uri, track_id, duration_ms, file_path, format, created_at, updated_at, deleted_at
		FROM downloads
		WHERE playlist_id = ? AND track_id = ? AND track_id != '' AND deleted_at IS NULL
		LIMIT 1
	`

	return r.scanOne(r.db.QueryRow(query, playlistID, trackID))
}

// Update modifies an existing download in the database
func (r *DownloadRepository) Update(download *models.PersistedDownload) error {
	if err := download.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	download.SetUpdatedAt(now)

	track := download.Track()
	query := `
		UPDATE downloads
		SET track_name = ?, artists = ?, album = ?, file_path = ?, format = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		track.Name,
		track.Artists,
		track.Album,
		download.FilePath(),
		download.Format(),
		now,
		download.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update download: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("download not found or already deleted: %s", download.ID())
	}

	return nil
}

// Delete soft-deletes a download by ID
func (r *DownloadRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE downloads
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("download not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all downloads matching the given criteria, excluding soft-deleted rows
func (r *DownloadRepository) List(criteria map[string]any) ([]*models.PersistedDownload, error) {
	query := `
		SELECT id, sequence, playlist_id, track_name, artists, album, track_uri, track_id, duration_ms, file_path, format, created_at, updated_at, deleted_at
		FROM downloads
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}

	if format, ok := criteria["format"].(string); ok && format != "" {
		query += " AND format = ?"
		args = append(args, format)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var downloads []*models.PersistedDownload
	for rows.Next() {
		download, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, download)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return downloads, nil
}

// Stats aggregates the ledger for the library stats command
func (r *DownloadRepository) Stats() (*LedgerStats, error) {
	stats := &LedgerStats{ByFormat: map[string]int{}}

	query := `
		SELECT COUNT(*), COUNT(DISTINCT playlist_id)
		FROM downloads
		WHERE deleted_at IS NULL
	`
	if err := r.db.QueryRow(query).Scan(&stats.Total, &stats.Playlists); err != nil {
		return nil, fmt.Errorf("failed to count downloads: %w", err)
	}

	rows, err := r.db.Query(`
		SELECT format, COUNT(*)
		FROM downloads
		WHERE deleted_at IS NULL
		GROUP BY format
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count formats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var format string
		var count int
		if err := rows.Scan(&format, &count); err != nil {
			return nil, fmt.Errorf("failed to scan format count: %w", err)
		}
		stats.ByFormat[format] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return stats, nil
}

// scanOne scans a single [sql.Row] into a [models.PersistedDownload]
func (r *DownloadRepository) scanOne(row *sql.Row) (*models.PersistedDownload, error) {
	var (
		id         string
		sequence   int
		playlistID string
		name       string
		artists    string
		album      string
		uri        string
		trackID    string
		durationMS int
		filePath   string
		format     string
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &playlistID, &name, &artists, &album, &uri, &trackID, &durationMS, &filePath, &format, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("download not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan download: %w", err)
	}

	track := models.Track{
		Name:       name,
		Artists:    artists,
		Album:      album,
		URI:        uri,
		ID:         trackID,
		DurationMS: durationMS,
	}

	download := models.NewPersistedDownload(playlistID, track, filePath, format)
	download.SetID(id)
	download.SetSequence(sequence)
	download.SetCreatedAt(createdAt)
	download.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		download.SetDeletedAt(&deletedAt.Time)
	}

	return download, nil
}

// scanRow scans a row from [sql.Rows] into a [models.PersistedDownload]
func (r *DownloadRepository) scanRow(rows *sql.Rows) (*models.PersistedDownload, error) {
	var (
		id         string
		sequence   int
		playlistID string
		name       string
		artists    string
		album      string
		uri        string
		trackID    string
		durationMS int
		filePath   string
		format     string
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := rows.Scan(&id, &sequence, &playlistID, &name, &artists, &album, &uri, &trackID, &durationMS, &filePath, &format, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan download: %w", err)
	}

	track := models.Track{
		Name:       name,
		Artists:    artists,
		Album:      album,
		URI:        uri,
		ID:         trackID,
		DurationMS: durationMS,
	}

	download := models.NewPersistedDownload(playlistID, track, filePath, format)
	download.SetID(id)
	download.SetSequence(sequence)
	download.SetCreatedAt(createdAt)
	download.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		download.SetDeletedAt(&deletedAt.Time)
	}

	return download, nil
}
