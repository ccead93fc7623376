// Package services implements the two remote collaborators of the download pipeline: the
// [MetadataProvider] that turns a Spotify reference into tracks and the [Searcher] that finds
// candidate videos for a track.
//
// # Spotify Metadata
//
// [SpotifyResolver] authenticates with the client credentials grant (no user login) and resolves
// playlists, albums, single tracks and an artist's top tracks. Paging follows the API's next
// links. Artist genres are looked up once per primary artist; a failed genre lookup leaves the
// track without genres instead of failing the run.
//
// # Video Search
//
// [YTDLPSearcher] runs "ytsearchN:" through yt-dlp and reads the flat playlist JSON with gjson.
// Candidates keep provider order so the matcher can break duration ties by first occurrence.
//
// # Timeouts and Retries
//
// Every remote call goes through [WithRetry]: one attempt with a deadline, then a single retry
// after a short delay. Errors wrapped with [Permanent] (e.g. HTTP 404) are not retried.
//
// # Error Handling
//
// Services return typed errors from the shared package:
//   - [shared.ErrInvalidReference] : the input is not a Spotify URL or URI
//   - [shared.ErrMissingCredentials] : client ID or secret not configured
//   - [shared.ErrAuthFailed] : the token request was rejected
//   - [shared.ErrPlaylistNotFound] : the playlist, album or track does not exist
//   - [shared.ErrTimeout] : both attempts ran past their deadline
package services
