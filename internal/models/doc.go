// Package models defines the domain entities shared by the sptdl download pipeline.
//
// The package contains two categories of types:
//
// 1. Pipeline values: immutable descriptors passed between stages
//   - [Track] : Resolved metadata for one song, the unit of work
//   - [Candidate] : One search hit from the video provider
//   - [DownloadResult] : Terminal outcome of one track
//   - [Stats] : Aggregate counts derived from a list of results
//
// 2. Persistent entities: rows written to the local history database
//   - [Run] : One CLI invocation with its reference, engine and final counts
//
// [Run] implements the [Model] interface and is stored through a [Repository].
package models
