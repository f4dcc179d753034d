// Package tasks orchestrates playlist acquisition with real-time progress reporting.
//
// # Core Operation
//
// [DownloadEngine.Run] performs a full playlist acquisition:
//   - Collects the playlist's track listing from the catalog
//   - Writes metadata.json before the first download starts
//   - Invokes the external downloader tool per track, sequentially
//   - Embeds tags and cover art into each produced file
//   - Records successes in the ledger, failures in failed.json
//
// Per-track failures never abort the run; each track's outcome is a
// [TrackDownloadResult] value appended to the run result.
//
// # Progress Reporting
//
// Operations emit [ProgressUpdate] values on a caller-supplied channel.
// Updates use select with default so a slow or absent consumer never
// blocks the run.
//
// # Implementation
//
// [DownloadEngine] depends on:
//   - [services.PlaylistSource] : the catalog read client
//   - [Ledger] : optional persistence (repositories.DownloadRepository)
package tasks
