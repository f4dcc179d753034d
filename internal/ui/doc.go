// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for playlist acquisition:
//  1. [InputView] : Enter a playlist URL, URI, or bare ID
//  2. [TrackListView] : Preview tracks before downloading
//  3. [ConfirmView] : Confirm the download operation
//  4. [DownloadView] : Monitor real-time progress updates
//  5. [ResultView] : Display download counts and failed tracks
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving typed messages from commands.
// Progress updates flow through a channel from the DownloadEngine, providing non-blocking status reporting during downloads.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
