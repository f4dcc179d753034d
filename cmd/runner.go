package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/repositories"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	catalog    services.Catalog
	ledger     *repositories.DownloadRepository
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Catalog    services.Catalog
	Ledger     *repositories.DownloadRepository
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		catalog:    opts.Catalog,
		ledger:     opts.Ledger,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger swaps the runner's logger. The TUI uses this to redirect log
// output to a file so it does not tear the alternate screen.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// catalogLimiter builds the catalog request limiter from config. An
// unusable rate falls back to the client default.
func catalogLimiter(config *shared.Config) *rate.Limiter {
	if config.Catalog.RateLimit <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(config.Catalog.RateLimit), 1)
}

// catalogFor returns the catalog client for one invocation. A --cookies
// override builds a fresh client around that session; otherwise the client
// constructed at startup is reused, loading the configured cookie path
// when startup found none.
func (r *Runner) catalogFor(cmd *cli.Command) (services.Catalog, error) {
	path := cmd.String("cookies")
	if path == "" {
		if r.catalog != nil {
			return r.catalog, nil
		}
		path = r.config.Session.CookiesPath
	}

	session, err := shared.LoadSession(path)
	if err != nil {
		return nil, err
	}

	return services.NewSpotifyService(services.SpotifyOpts{
		Session:    session,
		HTTPClient: r.httpClient,
		Limiter:    catalogLimiter(r.config),
		Logger:     r.logger,
	}), nil
}

// mutatorFor returns the account client for playlist writes, deriving its
// bearer token from the catalog session.
func (r *Runner) mutatorFor(ctx context.Context, catalog services.Catalog) (services.Mutator, error) {
	spotify, ok := catalog.(*services.SpotifyService)
	if !ok {
		return nil, fmt.Errorf("%w: catalog backend %q cannot mint account tokens", shared.ErrServiceUnavailable, catalog.Name())
	}

	token, err := spotify.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	return services.NewAccountService(ctx, token, r.logger)
}

// ledgerFor returns the download ledger, opening and migrating the
// configured database on first use. The handle stays open for the life of
// the process.
func (r *Runner) ledgerFor() (*repositories.DownloadRepository, error) {
	if r.ledger != nil {
		return r.ledger, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.ledger = repositories.NewDownloadRepository(db)
	return r.ledger, nil
}

// engineFor builds a download engine around a resolved catalog client. An
// unavailable ledger downgrades the run to unrecorded instead of aborting.
func (r *Runner) engineFor(catalog services.Catalog) *tasks.DownloadEngine {
	ledger, err := r.ledgerFor()
	if err != nil {
		r.logger.Warn("download ledger unavailable", "error", err)
		return tasks.NewDownloadEngine(catalog, nil, r.logger)
	}
	return tasks.NewDownloadEngine(catalog, ledger, r.logger)
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		searchCommand, playlistCommand, tagsCommand, libraryCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// stringArg returns the value of the named single-valued string argument,
// or its default when the argument was not supplied. cli v3.0.0-beta1 (the
// newest release buildable with Go 1.21) lacks Command.StringArg; this
// mirrors that accessor's semantics.
func stringArg(cmd *cli.Command, name string) string {
	for _, a := range cmd.Arguments {
		sa, ok := a.(*cli.StringArg)
		if !ok || sa.Name != name {
			continue
		}
		if sa.Values != nil && len(*sa.Values) > 0 {
			return (*sa.Values)[0]
		}
		return sa.Value
	}
	return ""
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
