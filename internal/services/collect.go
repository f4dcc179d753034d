package services

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/shared"
)

const fallbackBatchSize = 100

// CollectPlaylistTracks returns the ordered track list for a playlist.
//
// The paginated chunk stream is authoritative whenever it yields at least
// one record, even a partial one; the offset scan runs only when the
// stream errors or yields nothing. Neither path returns an error: upstream
// failures degrade the result, and an empty slice means the playlist was
// inaccessible or empty.
func CollectPlaylistTracks(ctx context.Context, src PlaylistSource, playlistID string, logger *log.Logger) []models.Track {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	var tracks []models.Track

	chunks, err := src.PlaylistChunks(ctx, playlistID)
	if err == nil {
		for _, chunk := range chunks {
			tracks = append(tracks, ExtractChunk(chunk)...)
		}
		if len(tracks) > 0 {
			return tracks
		}
	} else {
		logger.Warn("playlist pagination failed, scanning by offset", "playlist", playlistID, "error", err)
	}

	for offset := 0; ; offset += fallbackBatchSize {
		chunk, err := src.PlaylistInfo(ctx, playlistID, fallbackBatchSize, offset)
		if err != nil {
			logger.Warn("offset scan stopped", "playlist", playlistID, "offset", offset, "error", err)
			break
		}
		if len(chunk.Items) == 0 {
			break
		}

		tracks = append(tracks, ExtractChunk(chunk)...)

		// Raw item count decides the end of the scan, not the extracted
		// count, so droppable rows do not end it early.
		if len(chunk.Items) < fallbackBatchSize {
			break
		}
	}

	return tracks
}

// ExtractChunk extracts every usable track record from one page of
// playlist contents, dropping rows with no track payload.
func ExtractChunk(chunk PlaylistChunk) []models.Track {
	tracks := make([]models.Track, 0, len(chunk.Items))
	for _, item := range chunk.Items {
		track := ExtractTrack(item.ItemV2.Data)
		if track.Empty() {
			continue
		}
		tracks = append(tracks, track)
	}
	return tracks
}
