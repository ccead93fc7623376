// Package repositories implements SQLite persistence for the run history.
//
// [RunRepository] implements models.Repository[*models.Run] and stores one row per download
// command plus the failed tracks of that run. The history is informational: skip decisions are
// made from the filesystem alone and never consult it.
package repositories
