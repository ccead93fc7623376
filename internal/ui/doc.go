// Package ui renders terminal output and the interactive download interface.
//
// Console helpers ([Banner], [KeyValueTable], [StatusLine], [Summary]) are built on lipgloss and
// its table package. [PromptReference] asks for a URL with a bubbles text input when none was
// given on the command line.
//
// The TUI follows bubbletea's Elm architecture and moves through these views:
//  1. [LoadingView] : Resolve the reference
//  2. [TrackListView] : Preview (and filter) the resolved tracks
//  3. [ConfirmView] : Confirm the download
//  4. [DownloadView] : Monitor real-time progress updates
//  5. [ResultView] : Display the summary and failed tracks
//
// Progress updates flow through a channel from the pipeline, which never blocks on a slow UI.
package ui
