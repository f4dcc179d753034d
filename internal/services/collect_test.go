package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// fakeSource scripts both collection paths and counts calls to each.
type fakeSource struct {
	chunks    []PlaylistChunk
	chunksErr error
	batches   []PlaylistChunk
	batchErr  error

	chunkCalls int
	infoCalls  int
}

func (f *fakeSource) PlaylistChunks(ctx context.Context, playlistID string) ([]PlaylistChunk, error) {
	f.chunkCalls++
	if f.chunksErr != nil {
		return nil, f.chunksErr
	}
	return f.chunks, nil
}

func (f *fakeSource) PlaylistInfo(ctx context.Context, playlistID string, limit, offset int) (PlaylistChunk, error) {
	f.infoCalls++
	idx := offset / limit
	if idx < len(f.batches) {
		return f.batches[idx], nil
	}
	if f.batchErr != nil {
		return PlaylistChunk{}, f.batchErr
	}
	return PlaylistChunk{}, nil
}

// testChunk builds a page of n rows named prefix-000 through prefix-(n-1).
func testChunk(prefix string, n int) PlaylistChunk {
	chunk := PlaylistChunk{TotalCount: n}
	for i := 0; i < n; i++ {
		chunk.Items = append(chunk.Items, newPlaylistItem(TrackData{
			Name: fmt.Sprintf("%s-%03d", prefix, i),
			URI:  fmt.Sprintf("spotify:track:%s%03d", prefix, i),
		}))
	}
	return chunk
}

func TestCollectPlaylistTracks(t *testing.T) {
	ctx := context.Background()

	t.Run("Primary Path Wins", func(t *testing.T) {
		src := &fakeSource{
			chunks:  []PlaylistChunk{testChunk("a", 3), testChunk("b", 2)},
			batches: []PlaylistChunk{testChunk("x", 100)},
		}

		tracks := CollectPlaylistTracks(ctx, src, "pl", nil)

		if len(tracks) != 5 {
			t.Fatalf("expected 5 tracks, got %d", len(tracks))
		}
		if src.infoCalls != 0 {
			t.Errorf("expected fallback never invoked, got %d info calls", src.infoCalls)
		}
		if tracks[0].Name != "a-000" || tracks[4].Name != "b-001" {
			t.Errorf("expected chunk order preserved, got %q ... %q", tracks[0].Name, tracks[4].Name)
		}
	})

	t.Run("Single Track Primary Still Wins", func(t *testing.T) {
		src := &fakeSource{
			chunks:  []PlaylistChunk{testChunk("solo", 1)},
			batches: []PlaylistChunk{testChunk("x", 100), testChunk("y", 40)},
		}

		if tracks := CollectPlaylistTracks(ctx, src, "pl", nil); len(tracks) != 1 {
			t.Fatalf("expected 1 track, got %d", len(tracks))
		}
		if src.infoCalls != 0 {
			t.Errorf("expected fallback never invoked, got %d info calls", src.infoCalls)
		}
	})

	t.Run("Fallback After Primary Error", func(t *testing.T) {
		src := &fakeSource{
			chunksErr: errors.New("pagination broke"),
			batches: []PlaylistChunk{
				testChunk("b0", 100),
				testChunk("b1", 100),
				testChunk("b2", 100),
				testChunk("b3", 40),
			},
		}

		tracks := CollectPlaylistTracks(ctx, src, "pl", nil)

		if len(tracks) != 340 {
			t.Fatalf("expected 340 tracks, got %d", len(tracks))
		}
		if src.infoCalls != 4 {
			t.Errorf("expected 4 info calls, got %d", src.infoCalls)
		}
		if tracks[0].Name != "b0-000" {
			t.Errorf("expected first track b0-000, got %q", tracks[0].Name)
		}
		if tracks[339].Name != "b3-039" {
			t.Errorf("expected last track b3-039, got %q", tracks[339].Name)
		}
	})

	t.Run("Fallback After Empty Primary", func(t *testing.T) {
		src := &fakeSource{batches: []PlaylistChunk{testChunk("only", 7)}}

		tracks := CollectPlaylistTracks(ctx, src, "pl", nil)

		if len(tracks) != 7 {
			t.Fatalf("expected 7 tracks, got %d", len(tracks))
		}
		if src.chunkCalls != 1 {
			t.Errorf("expected primary attempted once, got %d", src.chunkCalls)
		}
	})

	t.Run("Fallback Error Treated As End", func(t *testing.T) {
		src := &fakeSource{
			chunksErr: errors.New("pagination broke"),
			batches:   []PlaylistChunk{testChunk("kept", 100)},
			batchErr:  errors.New("scan broke"),
		}

		tracks := CollectPlaylistTracks(ctx, src, "pl", nil)

		if len(tracks) != 100 {
			t.Fatalf("expected 100 tracks kept before the fault, got %d", len(tracks))
		}
	})

	t.Run("Empty Everywhere", func(t *testing.T) {
		src := &fakeSource{}

		if tracks := CollectPlaylistTracks(ctx, src, "pl", nil); len(tracks) != 0 {
			t.Fatalf("expected no tracks, got %d", len(tracks))
		}
	})

	t.Run("Raw Count Ends The Scan", func(t *testing.T) {
		// A full batch of rows with no track payload must not stop the
		// offset scan; only a short raw batch may.
		empty := PlaylistChunk{TotalCount: 105}
		for i := 0; i < 100; i++ {
			empty.Items = append(empty.Items, newPlaylistItem(TrackData{}))
		}

		src := &fakeSource{
			chunksErr: errors.New("pagination broke"),
			batches:   []PlaylistChunk{empty, testChunk("tail", 5)},
		}

		tracks := CollectPlaylistTracks(ctx, src, "pl", nil)

		if len(tracks) != 5 {
			t.Fatalf("expected the 5 tail tracks, got %d", len(tracks))
		}
		if src.infoCalls != 2 {
			t.Errorf("expected 2 info calls, got %d", src.infoCalls)
		}
	})
}
