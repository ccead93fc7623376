// Package tasks orchestrates downloads of resolved tracks with real-time progress reporting.
//
// # Pipeline
//
// [Pipeline] walks the tracks of a resolved reference strictly in order:
//
//  1. Render the target path from the filename template
//  2. Skip the track when the file already exists (no search or fetch is attempted)
//  3. Acquire the audio with the configured [Strategy]
//  4. Write tags (best effort) and verify the file is non-empty
//
// A track that errors or panics is recorded as failed and the run continues. A rate limiter
// keeps a courtesy pause between tracks that reach the network.
//
// Two strategies are provided:
//   - [DirectStrategy] : search for video candidates, pick one by duration, fetch it
//   - [DelegateStrategy] : pass the track URL to an engine that searches by itself (spotDL)
//
// # Delegation
//
// [Delegator] hands a whole reference to spotDL, classifies its output and estimates stats from
// the files left in the output folder. The child's exit code is returned unchanged.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for
// advanced UI rendering. Updates use select with default to prevent blocking.
package tasks
