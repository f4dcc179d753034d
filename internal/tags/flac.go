package tags

import (
	"fmt"

	"github.com/desertthunder/spx/internal/models"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
)

// applyFLAC rebuilds the metadata blocks of a FLAC file. Existing vorbis
// comment and picture blocks are dropped so the stamped values are the
// only ones left.
func applyFLAC(path string, track models.Track, cover []byte) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse flac file: %w", err)
	}

	var kept []*flac.MetaDataBlock
	for _, block := range f.Meta {
		if block.Type == flac.VorbisComment || block.Type == flac.Picture {
			continue
		}
		kept = append(kept, block)
	}
	f.Meta = kept

	comment := flacvorbis.New()
	if err := comment.Add(flacvorbis.FIELD_TITLE, track.Name); err != nil {
		return fmt.Errorf("failed to build vorbis comment: %w", err)
	}
	if err := comment.Add(flacvorbis.FIELD_ARTIST, track.Artists); err != nil {
		return fmt.Errorf("failed to build vorbis comment: %w", err)
	}
	if err := comment.Add(flacvorbis.FIELD_ALBUM, track.Album); err != nil {
		return fmt.Errorf("failed to build vorbis comment: %w", err)
	}

	commentBlock := comment.Marshal()
	f.Meta = append(f.Meta, &commentBlock)

	if len(cover) > 0 {
		picture, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front Cover", cover, sniffImageMime(cover))
		if err != nil {
			return fmt.Errorf("failed to build picture block: %w", err)
		}
		pictureBlock := picture.Marshal()
		f.Meta = append(f.Meta, &pictureBlock)
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save flac file: %w", err)
	}

	return nil
}
