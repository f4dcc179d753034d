package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tags"
	"github.com/urfave/cli/v3"
)

// TagsShow reads the metadata embedded in an audio file back out.
func (r *Runner) TagsShow(ctx context.Context, cmd *cli.Command) error {
	path := stringArg(cmd, "file")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if path == "" {
		return fmt.Errorf("%w: audio file path required", shared.ErrMissingArgument)
	}

	r.logger.Infof("reading tags from %v", path)

	info, err := tags.Read(path)
	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(info, pretty)
	}

	r.writePlain("File: %s\n", path)
	r.writePlain("Format: %s (%s)\n", info.FileType, info.Format)
	r.writePlain("Title: %s\n", info.Title)
	r.writePlain("Artist: %s\n", info.Artist)
	r.writePlain("Album: %s\n", info.Album)
	if info.HasArt {
		r.writePlain("Cover art: embedded\n")
	} else {
		r.writePlain("Cover art: none\n")
	}

	return nil
}
