package shared

import (
	"strconv"
	"strings"

	"github.com/desertthunder/sptdl/internal/models"
)

// DefaultFilenameTemplate renders "Artist A, Artist B - Title".
const DefaultFilenameTemplate = "{artists} - {title}"

var illegalFilenameChars = strings.NewReplacer(
	`\`, "", "/", "", ":", "", "*", "", "?", "",
	`"`, "", "<", "", ">", "", "|", "",
)

// Sanitize strips characters that are illegal in filenames on common filesystems,
// collapses whitespace runs to one space and trims the ends.
func Sanitize(s string) string {
	s = illegalFilenameChars.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// RenderFilename expands a filename template for track and appends ext.
//
// Supported placeholders: {artist} (primary), {artists}, {title}, {album}, {year}, {track}.
// The expanded name is sanitized as a whole.
func RenderFilename(template string, track models.Track, ext string) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultFilenameTemplate
	}

	number := ""
	if track.TrackNumber > 0 {
		number = strconv.Itoa(track.TrackNumber)
	}

	r := strings.NewReplacer(
		"{artists}", track.ArtistLine(),
		"{artist}", track.PrimaryArtist(),
		"{title}", track.Title,
		"{album}", track.Album,
		"{year}", track.Year,
		"{track}", number,
	)

	name := Sanitize(r.Replace(template))
	if name == "" {
		name = Sanitize(track.ID)
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}

// TargetFilename is [RenderFilename] with the default template.
func TargetFilename(track models.Track, ext string) string {
	return RenderFilename(DefaultFilenameTemplate, track, ext)
}
