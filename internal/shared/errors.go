package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrAuthFailed         = fmt.Errorf("authentication failed")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Metadata and search errors
	ErrInvalidReference = fmt.Errorf("unrecognized spotify reference")
	ErrAPIRequest       = fmt.Errorf("API request failed")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrTrackNotFound    = fmt.Errorf("track not found")
	ErrNoCandidates     = fmt.Errorf("no search candidates")

	// Fetch and tag errors
	ErrFetchFailed     = fmt.Errorf("fetch failed")
	ErrTranscodeFailed = fmt.Errorf("transcode failed")
	ErrEmptyOutput     = fmt.Errorf("output file is empty")
	ErrToolUnavailable = fmt.Errorf("external tool unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
