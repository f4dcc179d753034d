package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/formatter"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tags"
)

// maxFilenameLength bounds the stem of generated output filenames.
const maxFilenameLength = 100

// illegalFilenameChars are the path characters stripped from output filenames.
var illegalFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// AudioFormats are the encodings the acquisition tool can be asked to
// produce. Vorbis output carries the .ogg extension.
var AudioFormats = []string{"mp3", "m4a", "opus", "vorbis", "flac", "wav"}

// SupportedAudioFormat reports whether format names a known encoding.
func SupportedAudioFormat(format string) bool {
	for _, f := range AudioFormats {
		if f == format {
			return true
		}
	}
	return false
}

// DownloadOpts contains configuration for a playlist acquisition run.
type DownloadOpts struct {
	AudioFormat  string        // Target audio format (default: mp3)
	OutputDir    string        // Output directory (default: downloads_{playlistID})
	Tool         string        // External downloader binary (default: yt-dlp)
	Timeout      time.Duration // Per-track tool timeout (default: 60s)
	SkipExisting bool          // Skip tracks already recorded in the ledger
}

// Ledger answers skip lookups and records completed acquisitions.
// Implemented by [repositories.DownloadRepository]; nil disables recording.
type Ledger interface {
	Create(download *models.PersistedDownload) error
	Find(playlistID, trackID string) (*models.PersistedDownload, error)
}

// TrackDownloadResult represents the outcome of acquiring a single track.
type TrackDownloadResult struct {
	Track    models.Track // Source track record
	FilePath string       // Located audio file, empty on failure
	Reason   string       // Failure reason, empty on success
	Skipped  bool         // Ledger already had the track
}

// Failed reports whether the track ended in failure.
func (r TrackDownloadResult) Failed() bool {
	return r.Reason != ""
}

// DownloadRunResult contains all data from a playlist acquisition run.
type DownloadRunResult struct {
	PlaylistID   string                // Source playlist
	Tracks       []models.Track        // Collected track listing
	Results      []TrackDownloadResult // Per-track outcomes in playlist order
	SuccessCount int                   // Tracks downloaded and located
	FailedCount  int                   // Tracks that ended in failure
	SkippedCount int                   // Tracks skipped via the ledger
	TotalTracks  int                   // Total tracks processed
	OutputDir    string                // Directory holding the artifacts
	MetadataPath string                // metadata.json path
	FailuresPath string                // failed.json path, empty when nothing failed
}

// Failures converts the failed results into records for failed.json.
func (r *DownloadRunResult) Failures() []models.Failure {
	var failures []models.Failure
	for _, res := range r.Results {
		if !res.Failed() {
			continue
		}
		failures = append(failures, models.Failure{
			Name:    res.Track.Name,
			Artists: res.Track.Artists,
			Reason:  res.Reason,
		})
	}
	return failures
}

// DownloadEngine orchestrates playlist acquisition: collect the track
// listing, invoke the external downloader per track, tag the results, and
// record successes in the ledger.
type DownloadEngine struct {
	source services.PlaylistSource
	ledger Ledger
	logger *log.Logger
}

// NewDownloadEngine creates a DownloadEngine. The ledger may be nil, in
// which case downloads are neither skipped nor recorded.
func NewDownloadEngine(source services.PlaylistSource, ledger Ledger, logger *log.Logger) *DownloadEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &DownloadEngine{
		source: source,
		ledger: ledger,
		logger: logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *DownloadEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Run acquires every track of a playlist through the external tool.
//
// The track listing is written to metadata.json before the first download
// so the export survives a partial run. Per-track failures never stop the
// loop; they accumulate as result records and are written to failed.json
// once the loop finishes.
func (e *DownloadEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, opts DownloadOpts) (*DownloadRunResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: catalog service not initialized", shared.ErrServiceUnavailable)
	}

	if opts.AudioFormat == "" {
		opts.AudioFormat = "mp3"
	}
	if opts.Tool == "" {
		opts.Tool = "yt-dlp"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("downloads_%s", playlistID)
	}

	toolPath, err := exec.LookPath(opts.Tool)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrToolMissing, opts.Tool)
	}

	e.sendProgress(progress, collectingUpdate())
	tracks := services.CollectPlaylistTracks(ctx, e.source, playlistID, e.logger)
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: no tracks found or playlist inaccessible", shared.ErrPlaylistNotFound)
	}
	e.sendProgress(progress, collectedUpdate(tracks))

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &DownloadRunResult{
		PlaylistID:  playlistID,
		Tracks:      tracks,
		Results:     make([]TrackDownloadResult, 0, len(tracks)),
		TotalTracks: len(tracks),
		OutputDir:   opts.OutputDir,
	}

	metadataPath, err := formatter.WriteMetadataJSON(opts.OutputDir, tracks)
	if err != nil {
		return result, err
	}
	result.MetadataPath = metadataPath
	e.sendProgress(progress, metadataUpdate(metadataPath))

	total := len(tracks)
	for i, track := range tracks {
		if opts.SkipExisting && e.ledger != nil && track.ID != "" {
			if existing, err := e.ledger.Find(playlistID, track.ID); err == nil && existing != nil {
				result.Results = append(result.Results, TrackDownloadResult{
					Track:    track,
					FilePath: existing.FilePath(),
					Skipped:  true,
				})
				result.SkippedCount++
				e.sendProgress(progress, skippedUpdate(i+1, total, track.Name))
				continue
			}
		}

		e.sendProgress(progress, downloadingUpdate(i+1, total, strings.TrimSpace(track.Query())))

		res := e.downloadTrack(ctx, toolPath, track, i+1, opts)
		result.Results = append(result.Results, res)

		if res.Failed() {
			result.FailedCount++
			e.sendProgress(progress, downloadFailedUpdate(i+1, total, track.Name, res.Reason))
			continue
		}

		result.SuccessCount++
		e.sendProgress(progress, downloadedUpdate(i+1, total, track.Name))

		if e.ledger != nil {
			entry := models.NewPersistedDownload(playlistID, track, res.FilePath, opts.AudioFormat)
			if err := e.ledger.Create(entry); err != nil {
				e.logger.Warn("failed to record download", "track", track.Name, "error", err)
			}
		}
	}

	e.sendProgress(progress, doneUpdate(result.SuccessCount, result.TotalTracks, result))

	if failures := result.Failures(); len(failures) > 0 {
		failuresPath, err := formatter.WriteFailureReport(opts.OutputDir, failures)
		if err != nil {
			return result, err
		}
		result.FailuresPath = failuresPath
		e.sendProgress(progress, reportUpdate(failuresPath))
	}

	return result, nil
}

// downloadTrack runs the external tool for one track, locates the produced
// file, and embeds tags into it. A tagging error is logged and does not
// fail the track.
func (e *DownloadEngine) downloadTrack(ctx context.Context, toolPath string, track models.Track, index int, opts DownloadOpts) TrackDownloadResult {
	result := TrackDownloadResult{Track: track}

	cover := formatter.FetchCover(track.CoverURL)
	template := filepath.Join(opts.OutputDir, safeFilename(track.Name, index)+".%(ext)s")

	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, toolPath,
		"-f", "bestaudio/best",
		"--extract-audio",
		"--audio-format", opts.AudioFormat,
		"--audio-quality", "192",
		"-o", template,
		"ytsearch:"+strings.TrimSpace(track.Query()),
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// Children of the tool inherit its pipes; without a wait delay a
	// straggler like ffmpeg would hold Run open past the kill.
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Run(); err != nil {
		// A process killed at the deadline surfaces as an ExitError, so
		// the timeout check cannot rely on the error type alone.
		var exitErr *exec.ExitError
		switch {
		case runCtx.Err() == context.DeadlineExceeded, errors.As(err, &exitErr):
			result.Reason = "tool error"
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				e.logger.Warn("downloader failed", "track", track.Name, "stderr", msg)
			}
		default:
			result.Reason = err.Error()
		}
		return result
	}

	matches, err := filepath.Glob(strings.Replace(template, "%(ext)s", "*", 1))
	if err != nil || len(matches) == 0 {
		result.Reason = "file not found after download"
		return result
	}
	result.FilePath = matches[0]

	if err := tags.Embed(result.FilePath, track, cover); err != nil {
		e.logger.Warn("failed to tag file", "file", result.FilePath, "error", err)
	}

	return result
}

// safeFilename builds the output filename stem for a track: the 1-based,
// zero-padded playlist position prefixed to the name, illegal path
// characters removed, the whole truncated to 100 characters.
func safeFilename(name string, index int) string {
	stem := illegalFilenameChars.ReplaceAllString(fmt.Sprintf("%03d_%s", index, name), "")
	if runes := []rune(stem); len(runes) > maxFilenameLength {
		stem = string(runes[:maxFilenameLength])
	}
	return stem
}
