// package tags writes title, artist, and album metadata into audio files, dispatching on file extension
package tags

import (
	"path/filepath"
	"strings"

	"github.com/desertthunder/spx/internal/models"
)

// Embed stamps the track's title, artist, and album into the file at
// path, replacing any existing values. Cover bytes, when present, become
// the single embedded front cover on container formats that carry
// artwork. Extensions with no handler, including .wav, are skipped
// without error and the file is left untouched.
func Embed(path string, track models.Track, cover []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return applyID3(path, track, cover)
	case ".m4a", ".mp4", ".aac":
		return applyMP4(path, track, cover)
	case ".opus", ".ogg":
		return applyOggComments(path, track)
	case ".flac":
		return applyFLAC(path, track, cover)
	default:
		return nil
	}
}

// sniffImageMime detects PNG or JPEG from magic bytes. Cover art from the
// catalog CDN is JPEG, so that is the default.
func sniffImageMime(data []byte) string {
	if len(data) >= 4 && data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	return "image/jpeg"
}
