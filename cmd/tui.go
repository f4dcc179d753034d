package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/desertthunder/spx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive playlist browser and downloader.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.catalogFor(cmd)
	if err != nil {
		return err
	}

	opts := tasks.DownloadOpts{
		AudioFormat: r.config.Download.Format,
		OutputDir:   r.config.Download.OutputDir,
		Tool:        r.config.Download.Tool,
	}
	if opts.AudioFormat != "" && !tasks.SupportedAudioFormat(opts.AudioFormat) {
		return fmt.Errorf("%w: unsupported audio format %q in config", shared.ErrInvalidFlag, opts.AudioFormat)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	if err := os.MkdirAll("./tmp", 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	fileLogger, logFile, err := shared.NewFileLogger("./tmp/spx-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()
	r.SetLogger(fileLogger)

	engine := r.engineFor(catalog)
	model := ui.NewModel(ctx, catalog, engine, opts, fileLogger)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
