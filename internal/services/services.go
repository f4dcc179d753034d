// package services talks to the upstream music catalog
//
// Spotify web player (pathfinder), Spotify Web API (account operations)
package services

import (
	"context"

	"github.com/desertthunder/spx/internal/models"
)

// Catalog is the read side of the upstream music service: playlist
// metadata, playlist contents, and track search.
type Catalog interface {
	PlaylistSource

	// Playlist retrieves playlist-level metadata without resolving tracks.
	Playlist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// SearchTracks searches the catalog and returns up to limit canonical
	// track records ranked by upstream relevance.
	SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error)

	// Name returns the display name of the catalog backend.
	Name() string
}

// PlaylistSource supplies the raw paginated contents of a playlist. The
// collector in this package consumes it through both entry points: the
// chunk stream first, the offset scan only when the stream produces
// nothing.
type PlaylistSource interface {
	// PlaylistChunks returns every page of the playlist in order. A partial
	// result with a nil error is legal when pagination dies mid-stream.
	PlaylistChunks(ctx context.Context, playlistID string) ([]PlaylistChunk, error)

	// PlaylistInfo fetches a single page of at most limit items starting at
	// offset.
	PlaylistInfo(ctx context.Context, playlistID string, limit, offset int) (PlaylistChunk, error)
}

// Mutator is the write side of the upstream service: playlist creation and
// track addition against the authenticated user's library.
type Mutator interface {
	// CurrentUserID resolves the authenticated user's ID.
	CurrentUserID(ctx context.Context) (string, error)

	// CreatePlaylist creates an empty playlist owned by the authenticated
	// user and returns its metadata.
	CreatePlaylist(ctx context.Context, name, description string, public bool) (*models.Playlist, error)

	// AddTracks appends tracks (by ID or URI) to an existing playlist.
	AddTracks(ctx context.Context, playlistID string, trackRefs []string) error
}

// PlaylistChunk is one page of playlist contents as returned by the
// upstream query endpoint.
type PlaylistChunk struct {
	Items      []PlaylistItem `json:"items"`
	TotalCount int            `json:"totalCount"`
}

// PlaylistItem wraps the track payload of a single playlist row.
type PlaylistItem struct {
	ItemV2 playlistItemV2 `json:"itemV2"`
}

type playlistItemV2 struct {
	Data TrackData `json:"data"`
}

// TrackData is the raw track payload shared by playlist rows and search
// hits. Every field is optional upstream; pointers mark the ones whose
// absence changes extraction behavior.
type TrackData struct {
	Typename      string      `json:"__typename"`
	Name          string      `json:"name"`
	URI           string      `json:"uri"`
	TrackDuration *durationMS `json:"trackDuration"`
	Duration      *durationMS `json:"duration"`
	Artists       artistList  `json:"artists"`
	AlbumOfTrack  *AlbumData  `json:"albumOfTrack"`
}

type durationMS struct {
	TotalMilliseconds int `json:"totalMilliseconds"`
}

type artistList struct {
	Items []ArtistItem `json:"items"`
}

// ArtistItem is one artist credit. Profile is nil for credits that no
// longer resolve to an account; those are dropped during extraction.
type ArtistItem struct {
	Profile *artistProfile `json:"profile"`
}

type artistProfile struct {
	Name string `json:"name"`
}

// AlbumData is the album payload attached to a track. When the display
// name is missing the extractor degrades to the Typename discriminator.
type AlbumData struct {
	Typename string   `json:"__typename"`
	Name     string   `json:"name"`
	URI      string   `json:"uri"`
	CoverArt coverArt `json:"coverArt"`
}

type coverArt struct {
	Sources []imageSource `json:"sources"`
}

type imageSource struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// newPlaylistItem builds a playlist row around a bare track payload. Used
// when adapting search hits and by test fixtures.
func newPlaylistItem(data TrackData) PlaylistItem {
	return PlaylistItem{ItemV2: playlistItemV2{Data: data}}
}
