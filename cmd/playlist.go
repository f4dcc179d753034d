package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// firstPageSize bounds the track preview printed by playlist show.
const firstPageSize = 25

// PlaylistShow prints playlist metadata and the first page of tracks.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	ref := stringArg(cmd, "ref")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	playlistID, err := services.ParsePlaylistRef(ref)
	if err != nil {
		return err
	}

	catalog, err := r.catalogFor(cmd)
	if err != nil {
		return err
	}

	r.logger.Infof("fetching playlist %v", playlistID)

	playlist, err := catalog.Playlist(ctx, playlistID)
	if err != nil {
		return err
	}

	var tracks []models.Track
	if chunk, err := catalog.PlaylistInfo(ctx, playlistID, firstPageSize, 0); err == nil {
		tracks = services.ExtractChunk(chunk)
	} else {
		r.logger.Warn("failed to fetch first tracks", "playlist", playlistID, "error", err)
	}

	if useJSON {
		payload := struct {
			Playlist *models.Playlist `json:"playlist"`
			Tracks   []models.Track   `json:"tracks"`
		}{playlist, tracks}
		return r.writeJSON(payload, pretty)
	}

	r.writePlain("Playlist: %s\n", playlist.Name)
	if playlist.Description != "" {
		r.writePlain("Description: %s\n", playlist.Description)
	}
	if playlist.Owner != "" {
		r.writePlain("Owner: %s\n", playlist.Owner)
	}
	r.writePlain("Tracks: %d\n\n", playlist.Total)

	for i, track := range tracks {
		r.writePlain("%d. %s - %s\n", i+1, track.Artists, track.Name)
		if track.Album != "" {
			r.writePlain("   Album: %s\n", track.Album)
		}
		if track.ID != "" {
			r.writePlain("   ID: %s\n", track.ID)
		}
	}
	if playlist.Total > len(tracks) {
		r.writePlain("\n... and %d more\n", playlist.Total-len(tracks))
	}

	return nil
}

// PlaylistExport collects the full track list and writes it to a file in
// one of the supported export formats.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	ref := stringArg(cmd, "ref")
	format := strings.ToLower(cmd.String("format"))
	outputFile := cmd.String("output")

	playlistID, err := services.ParsePlaylistRef(ref)
	if err != nil {
		return err
	}

	if !formatter.SupportedFormat(format) {
		return fmt.Errorf("%w: unsupported export format %q (json, csv, md, txt)", shared.ErrInvalidFlag, format)
	}

	catalog, err := r.catalogFor(cmd)
	if err != nil {
		return err
	}

	r.logger.Infof("exporting playlist %v as %v", playlistID, format)

	playlist := models.Playlist{ID: playlistID}
	if meta, err := catalog.Playlist(ctx, playlistID); err == nil {
		playlist = *meta
	} else {
		r.logger.Warn("failed to fetch playlist metadata", "playlist", playlistID, "error", err)
	}

	tracks := services.CollectPlaylistTracks(ctx, catalog, playlistID, r.logger)
	if len(tracks) == 0 {
		return fmt.Errorf("%w: no tracks found or playlist inaccessible", shared.ErrPlaylistNotFound)
	}

	if outputFile == "" {
		outputFile = fmt.Sprintf("playlist_%s.%s", playlistID, format)
	}

	if err := formatter.WriteExport(playlist, tracks, format, outputFile); err != nil {
		return err
	}

	r.writePlain("✓ Playlist exported to %s\n", outputFile)
	if playlist.Name != "" {
		r.writePlain("  Playlist: %s\n", playlist.Name)
	}
	r.writePlain("  Tracks: %d\n", len(tracks))

	return nil
}

// PlaylistDownload downloads every track of a playlist as tagged audio
// files, recording successes in the local ledger.
func (r *Runner) PlaylistDownload(ctx context.Context, cmd *cli.Command) error {
	ref := stringArg(cmd, "ref")
	audioFormat := cmd.String("audio-format")
	outputDir := cmd.String("output-dir")
	skipExisting := cmd.Bool("skip-existing")

	playlistID, err := services.ParsePlaylistRef(ref)
	if err != nil {
		return err
	}

	if audioFormat == "" {
		audioFormat = r.config.Download.Format
	}
	if !tasks.SupportedAudioFormat(audioFormat) {
		return fmt.Errorf("%w: unsupported audio format %q (mp3, m4a, opus, vorbis, flac, wav)", shared.ErrInvalidFlag, audioFormat)
	}
	if outputDir == "" {
		outputDir = r.config.Download.OutputDir
	}

	catalog, err := r.catalogFor(cmd)
	if err != nil {
		return err
	}
	engine := r.engineFor(catalog)

	opts := tasks.DownloadOpts{
		AudioFormat:  audioFormat,
		OutputDir:    outputDir,
		Tool:         r.config.Download.Tool,
		SkipExisting: skipExisting,
	}

	r.logger.Info("starting download", "playlist", playlistID, "format", audioFormat)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.CollectTracks, tasks.WriteMetadata, tasks.DownloadTracks:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	result, err := engine.Run(ctx, progressCh, playlistID, opts)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\nDownload complete. %d/%d succeeded.\n", result.SuccessCount, result.TotalTracks)
	if result.FailuresPath != "" {
		r.writePlain("Failed tracks: %s\n", result.FailuresPath)
	}

	return nil
}

// PlaylistCreate creates a playlist for the authenticated user.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name := stringArg(cmd, "name")
	description := cmd.String("description")
	public := cmd.Bool("public")

	if name == "" {
		return fmt.Errorf("%w: playlist name required", shared.ErrMissingArgument)
	}

	catalog, err := r.catalogFor(cmd)
	if err != nil {
		return err
	}
	mutator, err := r.mutatorFor(ctx, catalog)
	if err != nil {
		return err
	}

	r.logger.Infof("creating playlist %q", name)

	playlist, err := mutator.CreatePlaylist(ctx, name, description, public)
	if err != nil {
		return err
	}

	r.writePlain("✓ Playlist created\n")
	r.writePlain("  Name: %s\n", playlist.Name)
	r.writePlain("  ID: %s\n", playlist.ID)
	if playlist.Description != "" {
		r.writePlain("  Description: %s\n", playlist.Description)
	}

	return nil
}

// PlaylistAdd appends tracks to an existing playlist. Tracks are given as
// IDs, URIs, or share URLs, or resolved from a search query.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args()
	query := cmd.String("query")

	if args.Len() == 0 {
		return fmt.Errorf("%w: playlist reference required", shared.ErrMissingArgument)
	}

	playlistID, err := services.ParsePlaylistRef(args.First())
	if err != nil {
		return err
	}

	trackRefs := args.Tail()
	if len(trackRefs) == 0 && query == "" {
		return fmt.Errorf("%w: provide track references or --query", shared.ErrMissingArgument)
	}
	if len(trackRefs) > 0 && query != "" {
		return fmt.Errorf("%w: cannot combine track references with --query", shared.ErrInvalidArgument)
	}

	catalog, err := r.catalogFor(cmd)
	if err != nil {
		return err
	}

	if query != "" {
		hits, err := catalog.SearchTracks(ctx, query, 1)
		if err != nil {
			return err
		}
		if len(hits) == 0 || hits[0].ID == "" {
			return fmt.Errorf("%w: no results found for %q", shared.ErrTrackNotFound, query)
		}
		r.writePlain("→ Top result: %s - %s\n", hits[0].Artists, hits[0].Name)
		trackRefs = []string{hits[0].ID}
	}

	mutator, err := r.mutatorFor(ctx, catalog)
	if err != nil {
		return err
	}

	r.logger.Infof("adding %v tracks to playlist %v", len(trackRefs), playlistID)

	if err := mutator.AddTracks(ctx, playlistID, trackRefs); err != nil {
		return err
	}

	r.writePlain("✓ Added %d tracks to %s\n", len(trackRefs), playlistID)

	return nil
}
