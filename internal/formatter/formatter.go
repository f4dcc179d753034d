// package formatter serializes track lists to export formats (JSON, CSV, Markdown, plain text) and writes acquisition artifacts
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

// Export formats accepted by [WriteExport].
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "md"
	FormatText     = "txt"
)

// csvColumns is the fixed export header. Optional record fields leave
// cells empty rather than changing the shape.
var csvColumns = []string{"name", "artists", "album", "uri", "id", "duration_ms"}

const coverTimeout = 10 * time.Second

// coverClient is swapped by tests to shorten the timeout.
var coverClient = &http.Client{Timeout: coverTimeout}

// ExportToJSON renders tracks as an indented JSON array.
func ExportToJSON(tracks []models.Track) ([]byte, error) {
	return shared.MarshalJSON(tracks, true)
}

// ExportToCSV renders tracks with the fixed six column header.
func ExportToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvColumns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, track := range tracks {
		duration := ""
		if track.DurationMS > 0 {
			duration = strconv.Itoa(track.DurationMS)
		}
		record := []string{track.Name, track.Artists, track.Album, track.URI, track.ID, duration}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a playlist with its tracks as a Markdown
// document, optionally referencing a saved cover image.
func ExportToMarkdown(playlist models.Playlist, tracks []models.Track, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	title := playlist.Name
	if title == "" {
		title = "Playlist"
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", imageFilename))
	}

	if playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", playlist.Description))
	}
	if playlist.Owner != "" {
		buf.WriteString(fmt.Sprintf("**Owner**: %s\n\n", playlist.Owner))
	}

	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(tracks)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, track.Artists, track.Name, albumPart, shared.FormatDuration(track.DurationMS)))
	}

	return buf.Bytes(), nil
}

// ExportToText renders a playlist as plain text.
func ExportToText(playlist models.Playlist, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	name := playlist.Name
	if name == "" {
		name = playlist.ID
	}
	buf.WriteString(fmt.Sprintf("Playlist: %s\n", name))
	if playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", playlist.Description))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(tracks)))

	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artists, track.Name))
	}

	return buf.Bytes(), nil
}

// SupportedFormat reports whether format names a known export format.
func SupportedFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatJSON, FormatCSV, FormatMarkdown, FormatText:
		return true
	}
	return false
}

// WriteExport serializes tracks in the named format and writes the result
// to path. Unknown formats return [shared.ErrInvalidArgument] so commands
// can exit with a usage status.
func WriteExport(playlist models.Playlist, tracks []models.Track, format, path string) error {
	var (
		data []byte
		err  error
	)

	switch strings.ToLower(format) {
	case FormatJSON:
		data, err = ExportToJSON(tracks)
	case FormatCSV:
		data, err = ExportToCSV(tracks)
	case FormatMarkdown:
		data, err = ExportToMarkdown(playlist, tracks, "")
	case FormatText:
		data, err = ExportToText(playlist, tracks)
	default:
		return fmt.Errorf("%w: unsupported export format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	return nil
}

// FetchCover retrieves cover art bytes with a single bounded request. Any
// network failure, timeout, or non-200 status yields nil so a missing
// cover never blocks a download.
func FetchCover(url string) []byte {
	if url == "" {
		return nil
	}

	resp, err := coverClient.Get(url)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	return data
}

// WriteMetadataJSON writes the full track list to metadata.json inside dir
// and returns the file path.
func WriteMetadataJSON(dir string, tracks []models.Track) (string, error) {
	data, err := ExportToJSON(tracks)
	if err != nil {
		return "", fmt.Errorf("failed to generate metadata: %w", err)
	}

	path := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write metadata file: %w", err)
	}

	return path, nil
}

// WriteFailureReport writes failures to failed.json inside dir and returns
// the file path.
func WriteFailureReport(dir string, failures []models.Failure) (string, error) {
	data, err := shared.MarshalJSON(failures, true)
	if err != nil {
		return "", fmt.Errorf("failed to generate failure report: %w", err)
	}

	path := filepath.Join(dir, "failed.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write failure report: %w", err)
	}

	return path, nil
}
