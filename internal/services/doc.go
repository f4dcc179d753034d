// Package services implements the [Catalog] interface against the Spotify
// web player's private API and the [Mutator] interface against the public
// Web API.
//
// # Session Tokens
//
// [SpotifyService] authenticates the way the web player does at startup:
// cookies exported from a logged-in browser session are exchanged, together
// with a generated one-time code, for a bearer token and a client token.
// Both are refreshed transparently when they expire.
//
// # Pathfinder Queries
//
// Playlist contents and search results come from persisted GraphQL queries
// against the pathfinder endpoint. Responses decode into [TrackData] and
// collapse into [models.Track] via [ExtractTrack]; every upstream field is
// optional and absence is never an error.
//
// # Collection Strategy
//
// [CollectPlaylistTracks] prefers the paginated chunk stream and falls back
// to an offset scan only when the stream yields nothing. Transient upstream
// failures degrade the result instead of propagating; an empty slice is the
// caller's cue that the playlist was inaccessible or empty.
//
// # Account Operations
//
// [AccountService] wraps the zmb3 Web API client for playlist creation and
// track addition. It takes a developer access token rather than browser
// cookies, so the read and write sides authenticate independently.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : no session loaded
//   - [shared.ErrTokenExchange] : token or client-token exchange failed
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrPlaylistNotFound] : playlist ID not found
package services
