package repositories

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func testDownload(playlistID, trackID, name, format string) *models.PersistedDownload {
	track := models.Track{
		Name:       name,
		Artists:    "Artist One, Artist Two",
		Album:      "Album One",
		URI:        "spotify:track:" + trackID,
		ID:         trackID,
		DurationMS: 215000,
	}

	return models.NewPersistedDownload(playlistID, track, "/music/"+name+"."+format, format)
}

func TestDownloadRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)

		first := testDownload("playlist1", "track1", "Song One", "mp3")
		if err := repo.Create(first); err != nil {
			t.Fatalf("failed to create download: %v", err)
		}

		if first.ID() == "" {
			t.Error("download ID should be set after creation")
		}
		if first.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", first.Sequence())
		}

		second := testDownload("playlist1", "track2", "Song Two", "mp3")
		if err := repo.Create(second); err != nil {
			t.Fatalf("failed to create second download: %v", err)
		}

		if second.Sequence() != 2 {
			t.Errorf("expected sequence 2, got %d", second.Sequence())
		}
		if second.ID() == first.ID() {
			t.Error("expected distinct IDs for distinct downloads")
		}
	})

	t.Run("Create Validates", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)

		invalid := models.NewPersistedDownload("playlist1", models.Track{}, "/music/x.mp3", "mp3")
		err := repo.Create(invalid)
		if err == nil {
			t.Fatal("expected validation error for empty track name")
		}
		if !strings.Contains(err.Error(), "validation failed") {
			t.Errorf("expected validation error, got: %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)

		created := testDownload("playlist1", "track1", "Song One", "mp3")
		if err := repo.Create(created); err != nil {
			t.Fatalf("failed to create download: %v", err)
		}

		fetched, err := repo.Get(created.ID())
		if err != nil {
			t.Fatalf("failed to get download: %v", err)
		}

		if fetched.ID() != created.ID() {
			t.Errorf("expected ID %s, got %s", created.ID(), fetched.ID())
		}
		if fetched.PlaylistID() != "playlist1" {
			t.Errorf("expected playlist ID playlist1, got %s", fetched.PlaylistID())
		}
		if fetched.Track().Name != "Song One" {
			t.Errorf("expected track name Song One, got %s", fetched.Track().Name)
		}
		if fetched.Track().ID != "track1" {
			t.Errorf("expected track ID track1, got %s", fetched.Track().ID)
		}
		if fetched.FilePath() != created.FilePath() {
			t.Errorf("expected file path %s, got %s", created.FilePath(), fetched.FilePath())
		}
		if fetched.Format() != "mp3" {
			t.Errorf("expected format mp3, got %s", fetched.Format())
		}

		if _, err := repo.Get("nonexistent"); err == nil {
			t.Error("expected error for nonexistent download")
		}
	})

	t.Run("Find", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)

		created := testDownload("playlist1", "track1", "Song One", "mp3")
		if err := repo.Create(created); err != nil {
			t.Fatalf("failed to create download: %v", err)
		}

		found, err := repo.Find("playlist1", "track1")
		if err != nil {
			t.Fatalf("failed to find download: %v", err)
		}
		if found.ID() != created.ID() {
			t.Errorf("expected ID %s, got %s", created.ID(), found.ID())
		}

		if _, err := repo.Find("playlist1", "track2"); err == nil {
			t.Error("expected error for unknown track")
		}
		if _, err := repo.Find("playlist2", "track1"); err == nil {
			t.Error("expected error for unknown playlist")
		}
	})

	t.Run("Find Ignores Empty Track IDs", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)

		// A track whose URI carried no id is stored with an empty
		// track_id and must never satisfy a lookup.
		track := models.Track{Name: "Local File", Artists: "Unknown", DurationMS: 1000}
		anonymous := models.NewPersistedDownload("playlist1", track, "/music/local.mp3", "mp3")
		if err := repo.Create(anonymous); err != nil {
			t.Fatalf("failed to create download: %v", err)
		}

		if _, err := repo.Find("playlist1", ""); err == nil {
			t.Error("expected error when matching on an empty track ID")
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)

		created := testDownload("playlist1", "track1", "Song One", "mp3")
		if err := repo.Create(created); err != nil {
			t.Fatalf("failed to create download: %v", err)
		}

		track := created.Track()
		track.Name = "Song One (Remaster)"
		updated := models.NewPersistedDownload("playlist1", track, "/music/remaster.flac", "flac")
		updated.SetID(created.ID())

		if err := repo.Update(updated); err != nil {
			t.Fatalf("failed to update download: %v", err)
		}

		fetched, err := repo.Get(created.ID())
		if err != nil {
			t.Fatalf("failed to get updated download: %v", err)
		}
		if fetched.Track().Name != "Song One (Remaster)" {
			t.Errorf("expected updated track name, got %s", fetched.Track().Name)
		}
		if fetched.FilePath() != "/music/remaster.flac" {
			t.Errorf("expected updated file path, got %s", fetched.FilePath())
		}
		if fetched.Format() != "flac" {
			t.Errorf("expected updated format, got %s", fetched.Format())
		}

		missing := testDownload("playlist1", "track9", "Song Nine", "mp3")
		missing.SetID("nonexistent")
		err = repo.Update(missing)
		if err == nil {
			t.Fatal("expected error updating nonexistent download")
		}
		if !strings.Contains(err.Error(), "not found or already deleted") {
			t.Errorf("expected not found error, got: %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)

		created := testDownload("playlist1", "track1", "Song One", "mp3")
		if err := repo.Create(created); err != nil {
			t.Fatalf("failed to create download: %v", err)
		}

		if err := repo.Delete(created.ID()); err != nil {
			t.Fatalf("failed to delete download: %v", err)
		}

		if _, err := repo.Get(created.ID()); err == nil {
			t.Error("expected error getting deleted download")
		}

		if err := repo.Delete(created.ID()); err == nil {
			t.Error("expected error deleting download twice")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)

		downloads := []*models.PersistedDownload{
			testDownload("playlist1", "track1", "Song One", "mp3"),
			testDownload("playlist1", "track2", "Song Two", "flac"),
			testDownload("playlist2", "track3", "Song Three", "mp3"),
		}
		for _, download := range downloads {
			if err := repo.Create(download); err != nil {
				t.Fatalf("failed to create download: %v", err)
			}
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list downloads: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 downloads, got %d", len(all))
		}
		for i := 1; i < len(all); i++ {
			if all[i].Sequence() <= all[i-1].Sequence() {
				t.Error("expected downloads ordered by sequence")
			}
		}

		byPlaylist, err := repo.List(map[string]any{"playlist_id": "playlist1"})
		if err != nil {
			t.Fatalf("failed to list by playlist: %v", err)
		}
		if len(byPlaylist) != 2 {
			t.Errorf("expected 2 downloads for playlist1, got %d", len(byPlaylist))
		}

		byFormat, err := repo.List(map[string]any{"format": "mp3"})
		if err != nil {
			t.Fatalf("failed to list by format: %v", err)
		}
		if len(byFormat) != 2 {
			t.Errorf("expected 2 mp3 downloads, got %d", len(byFormat))
		}

		combined, err := repo.List(map[string]any{"playlist_id": "playlist1", "format": "flac"})
		if err != nil {
			t.Fatalf("failed to list with combined criteria: %v", err)
		}
		if len(combined) != 1 {
			t.Fatalf("expected 1 flac download for playlist1, got %d", len(combined))
		}
		if combined[0].Track().Name != "Song Two" {
			t.Errorf("expected Song Two, got %s", combined[0].Track().Name)
		}

		if err := repo.Delete(downloads[0].ID()); err != nil {
			t.Fatalf("failed to delete download: %v", err)
		}

		remaining, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("failed to list after delete: %v", err)
		}
		if len(remaining) != 2 {
			t.Errorf("expected 2 downloads after delete, got %d", len(remaining))
		}
	})

	t.Run("Stats", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewDownloadRepository(db)

		downloads := []*models.PersistedDownload{
			testDownload("playlist1", "track1", "Song One", "mp3"),
			testDownload("playlist1", "track2", "Song Two", "flac"),
			testDownload("playlist2", "track3", "Song Three", "mp3"),
		}
		for _, download := range downloads {
			if err := repo.Create(download); err != nil {
				t.Fatalf("failed to create download: %v", err)
			}
		}

		stats, err := repo.Stats()
		if err != nil {
			t.Fatalf("failed to get stats: %v", err)
		}

		if stats.Total != 3 {
			t.Errorf("expected total 3, got %d", stats.Total)
		}
		if stats.Playlists != 2 {
			t.Errorf("expected 2 playlists, got %d", stats.Playlists)
		}
		if stats.ByFormat["mp3"] != 2 {
			t.Errorf("expected 2 mp3 downloads, got %d", stats.ByFormat["mp3"])
		}
		if stats.ByFormat["flac"] != 1 {
			t.Errorf("expected 1 flac download, got %d", stats.ByFormat["flac"])
		}

		if err := repo.Delete(downloads[2].ID()); err != nil {
			t.Fatalf("failed to delete download: %v", err)
		}

		stats, err = repo.Stats()
		if err != nil {
			t.Fatalf("failed to get stats after delete: %v", err)
		}
		if stats.Total != 2 {
			t.Errorf("expected total 2 after delete, got %d", stats.Total)
		}
		if stats.Playlists != 1 {
			t.Errorf("expected 1 playlist after delete, got %d", stats.Playlists)
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	first, err := NextSequence(db, "downloads")
	if err != nil {
		t.Fatalf("failed to get first sequence: %v", err)
	}
	if first != 1 {
		t.Errorf("expected first sequence to be 1, got %d", first)
	}

	second, err := NextSequence(db, "downloads")
	if err != nil {
		t.Fatalf("failed to get second sequence: %v", err)
	}
	if second != 2 {
		t.Errorf("expected second sequence to be 2, got %d", second)
	}
}
