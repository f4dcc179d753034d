// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// searchCommand searches the catalog for tracks.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search the catalog for tracks",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
				Max:  1,
			},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of results",
				Value:   10,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Search,
	}
}

// playlistCommand handles playlist operations
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show playlist metadata and its first tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "ref",
						Max:  1,
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.PlaylistShow,
			},
			{
				Name:  "export",
				Usage: "Export the full track list to a file",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "ref",
						Max:  1,
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (json, csv, md, txt)",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.PlaylistExport,
			},
			{
				Name:  "download",
				Usage: "Download playlist tracks as tagged audio files",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "ref",
						Max:  1,
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "audio-format",
						Usage: "Audio format (mp3, m4a, opus, vorbis, flac, wav)",
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Aliases: []string{"o"},
						Usage:   "Output directory for audio files and metadata",
					},
					&cli.StringFlag{
						Name:  "cookies",
						Usage: "Path to a browser cookie export",
					},
					&cli.BoolFlag{
						Name:  "skip-existing",
						Usage: "Skip tracks already recorded for this playlist",
					},
				},
				Action: r.PlaylistDownload,
			},
			{
				Name:  "create",
				Usage: "Create a playlist for the current user",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "name",
						Max:  1,
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "public",
						Usage: "Make the playlist public",
					},
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Playlist description",
					},
					&cli.StringFlag{
						Name:  "cookies",
						Usage: "Path to a browser cookie export",
					},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:      "add",
				Usage:     "Add tracks to an existing playlist",
				UsageText: "spx playlist add <ref> <track>... [--query TEXT]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Add the top search hit instead of explicit tracks",
					},
					&cli.StringFlag{
						Name:  "cookies",
						Usage: "Path to a browser cookie export",
					},
				},
				Action: r.PlaylistAdd,
			},
		},
	}
}

// tagsCommand inspects embedded audio metadata.
func tagsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "Audio file tag operations",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the metadata embedded in an audio file",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "file",
						Max:  1,
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.TagsShow,
			},
		},
	}
}

// libraryCommand reads the local download ledger.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Local download library operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded downloads",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "playlist",
						Usage: "Filter by playlist reference",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Filter by audio format",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.LibraryList,
			},
			{
				Name:   "stats",
				Usage:  "Summarize the download library",
				Action: r.LibraryStats,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a starter config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:    "db",
				Aliases: []string{"database"},
				Usage:   "Initialize the database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive downloads.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for playlist downloads",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "cookies",
				Usage: "Path to a browser cookie export",
			},
		},
		Action: r.TUI,
	}
}
