package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Search queries the catalog and prints ranked track results.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := stringArg(cmd, "query")
	limit := int(cmd.Int("limit"))
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if query == "" {
		return fmt.Errorf("%w: search query required", shared.ErrMissingArgument)
	}

	catalog, err := r.catalogFor(cmd)
	if err != nil {
		return err
	}

	r.logger.Infof("searching catalog for %q", query)

	tracks, err := catalog.SearchTracks(ctx, query, limit)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(tracks, pretty)
	}

	if len(tracks) == 0 {
		r.writePlain("No results found for %q.\n", query)
		return nil
	}

	r.writePlain("Found %d tracks:\n\n", len(tracks))
	for i, track := range tracks {
		r.writePlain("%d. %s - %s\n", i+1, track.Artists, track.Name)
		if track.Album != "" {
			r.writePlain("   Album: %s\n", track.Album)
		}
		if track.ID != "" {
			r.writePlain("   ID: %s\n", track.ID)
		}
		if track.DurationMS > 0 {
			r.writePlain("   Duration: %s\n", shared.FormatDuration(track.DurationMS))
		}
		r.writePlain("\n")
	}

	return nil
}
