package tags

import (
	"fmt"

	"github.com/desertthunder/spx/internal/models"
	mp4tag "github.com/zhaarey/go-mp4tag"
)

// applyMP4 writes the metadata atoms of an MP4 family container. Writing
// the Pictures slice replaces any existing covr atom.
func applyMP4(path string, track models.Track, cover []byte) error {
	mp4, err := mp4tag.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open mp4 container: %w", err)
	}
	defer mp4.Close()

	meta := &mp4tag.MP4Tags{
		Title:  track.Name,
		Artist: track.Artists,
		Album:  track.Album,
	}
	if len(cover) > 0 {
		format := mp4tag.ImageTypeJPEG
		if sniffImageMime(cover) == "image/png" {
			format = mp4tag.ImageTypePNG
		}
		meta.Pictures = []*mp4tag.MP4Picture{{Format: format, Data: cover}}
	}

	if err := mp4.Write(meta, []string{}); err != nil {
		return fmt.Errorf("failed to write mp4 atoms: %w", err)
	}

	return nil
}
