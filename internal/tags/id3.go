package tags

import (
	"fmt"

	"github.com/bogem/id3v2/v2"
	"github.com/desertthunder/spx/internal/models"
)

// applyID3 writes the text frames and cover of an MP3 file. Opening with
// Parse creates an empty tag when the file has none yet.
func applyID3(path string, track models.Track, cover []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open id3 tag: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(track.Name)
	tag.SetArtist(track.Artists)
	tag.SetAlbum(track.Album)

	if len(cover) > 0 {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    sniffImageMime(cover),
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     cover,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save id3 tag: %w", err)
	}

	return nil
}
