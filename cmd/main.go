package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/urfave/cli/v3"
)

// usageErrors are the precondition failures that exit 2 instead of 1.
var usageErrors = []error{
	shared.ErrUsage,
	shared.ErrMissingArgument,
	shared.ErrInvalidArgument,
	shared.ErrInvalidFlag,
	shared.ErrMissingConfig,
	shared.ErrMissingCookies,
	shared.ErrInvalidCookies,
	shared.ErrToolMissing,
	shared.ErrPlaylistNotFound,
	shared.ErrTrackNotFound,
}

// exitCode maps an error from the command tree to a process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	for _, sentinel := range usageErrors {
		if errors.Is(err, sentinel) {
			return 2
		}
	}
	return 1
}

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var catalog services.Catalog
	if session, err := shared.LoadSession(config.Session.CookiesPath); err == nil {
		catalog = services.NewSpotifyService(services.SpotifyOpts{
			Session: session,
			Limiter: catalogLimiter(config),
			Logger:  logger,
		})
	}

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Catalog: catalog,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "spx",
		Usage:    "Export, download, and tag Spotify playlists",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if exitCode(err) == 2 {
			logger.Error(err.Error())
			os.Exit(2)
		}
		logger.Fatalf("application error: %v", err)
	}
}
