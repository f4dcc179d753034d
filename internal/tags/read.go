package tags

import (
	"fmt"
	"os"

	"github.com/dhowden/tag"
)

// Info is the metadata read back out of an audio file.
type Info struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	FileType string `json:"file_type"`
	Format   string `json:"format"`
	HasArt   bool   `json:"has_art"`
}

// Read opens the file at path and reports its embedded metadata.
func Read(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return Info{}, fmt.Errorf("failed to read audio metadata: %w", err)
	}

	return Info{
		Title:    meta.Title(),
		Artist:   meta.Artist(),
		Album:    meta.Album(),
		FileType: string(meta.FileType()),
		Format:   string(meta.Format()),
		HasArt:   meta.Picture() != nil,
	}, nil
}
