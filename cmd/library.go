package main

import (
	"context"
	"sort"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/urfave/cli/v3"
)

// downloadRow is the serializable view of a ledger entry.
type downloadRow struct {
	ID         string    `json:"id"`
	Sequence   int       `json:"sequence"`
	PlaylistID string    `json:"playlist_id"`
	Name       string    `json:"name"`
	Artists    string    `json:"artists"`
	Album      string    `json:"album,omitempty"`
	FilePath   string    `json:"file_path"`
	Format     string    `json:"format"`
	CreatedAt  time.Time `json:"created_at"`
}

func newDownloadRow(d *models.PersistedDownload) downloadRow {
	track := d.Track()
	return downloadRow{
		ID:         d.ID(),
		Sequence:   d.Sequence(),
		PlaylistID: d.PlaylistID(),
		Name:       track.Name,
		Artists:    track.Artists,
		Album:      track.Album,
		FilePath:   d.FilePath(),
		Format:     d.Format(),
		CreatedAt:  d.CreatedAt(),
	}
}

// LibraryList lists recorded downloads, optionally filtered by playlist
// and format.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	playlistRef := cmd.String("playlist")
	format := cmd.String("format")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	ledger, err := r.ledgerFor()
	if err != nil {
		return err
	}

	criteria := map[string]any{}
	if playlistRef != "" {
		playlistID, err := services.ParsePlaylistRef(playlistRef)
		if err != nil {
			return err
		}
		criteria["playlist_id"] = playlistID
	}
	if format != "" {
		criteria["format"] = format
	}

	downloads, err := ledger.List(criteria)
	if err != nil {
		return err
	}

	if useJSON {
		rows := make([]downloadRow, 0, len(downloads))
		for _, d := range downloads {
			rows = append(rows, newDownloadRow(d))
		}
		return r.writeJSON(rows, pretty)
	}

	if len(downloads) == 0 {
		r.writePlain("No downloads recorded.\n")
		return nil
	}

	r.writePlain("Found %d downloads:\n\n", len(downloads))
	for i, d := range downloads {
		track := d.Track()
		r.writePlain("%d. %s - %s\n", i+1, track.Artists, track.Name)
		if track.Album != "" {
			r.writePlain("   Album: %s\n", track.Album)
		}
		r.writePlain("   Playlist: %s\n", d.PlaylistID())
		r.writePlain("   File: %s (%s)\n", d.FilePath(), d.Format())
		r.writePlain("   Downloaded: %s\n", d.CreatedAt().Format(time.DateTime))
		r.writePlain("\n")
	}

	return nil
}

// LibraryStats summarizes the download library.
func (r *Runner) LibraryStats(ctx context.Context, cmd *cli.Command) error {
	ledger, err := r.ledgerFor()
	if err != nil {
		return err
	}

	stats, err := ledger.Stats()
	if err != nil {
		return err
	}

	r.writePlainHeader("Download Library")
	r.writePlain("Downloads: %d\n", stats.Total)
	r.writePlain("Playlists: %d\n", stats.Playlists)

	if len(stats.ByFormat) > 0 {
		formats := make([]string, 0, len(stats.ByFormat))
		for format := range stats.ByFormat {
			formats = append(formats, format)
		}
		sort.Strings(formats)

		r.writePlain("\nBy format:\n")
		for _, format := range formats {
			r.writePlain("  %s: %d\n", format, stats.ByFormat[format])
		}
	}

	return nil
}
