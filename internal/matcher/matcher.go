// Package matcher picks the search candidate whose duration best matches a resolved track.
//
// Selection is purely duration based. A candidate without a reported duration is scored with
// [SentinelDistance] so it can only win when no candidate reports one. Ties go to the earliest
// candidate, which preserves the search provider's relevance order.
//
// [Confidence] scores title similarity for logging; it never influences [SelectBest].
package matcher

import (
	"math"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/desertthunder/sptdl/internal/models"
)

// SentinelDistance is the score of a candidate with no reported duration.
const SentinelDistance = math.MaxInt32

// Distance scores c against a target duration in seconds. Lower is better.
func Distance(c models.Candidate, target int) int {
	if !c.HasDuration() {
		return SentinelDistance
	}
	d := *c.Duration - target
	if d < 0 {
		d = -d
	}
	return d
}

// SelectBest returns the candidate with the smallest [Distance] to target.
//
// The boolean is false only when candidates is empty.
func SelectBest(candidates []models.Candidate, target int) (models.Candidate, bool) {
	if len(candidates) == 0 {
		return models.Candidate{}, false
	}

	best, bestDist := 0, Distance(candidates[0], target)
	for i := 1; i < len(candidates); i++ {
		if d := Distance(candidates[i], target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return candidates[best], true
}

var noise = strings.NewReplacer(
	"(official video)", "", "(official audio)", "", "(official music video)", "",
	"(lyrics)", "", "(lyric video)", "", "(audio)", "", "[official video]", "",
	"[official audio]", "", "official", "", "-", " ",
)

func normalize(s string) string {
	s = noise.Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

// Confidence returns the Jaro-Winkler similarity in [0, 1] between the track's
// "artists title" line and the candidate title.
func Confidence(track models.Track, c models.Candidate) float64 {
	want := normalize(track.ArtistLine() + " " + track.Title)
	got := normalize(c.Title)
	if want == "" || got == "" {
		return 0
	}
	return strutil.Similarity(want, got, metrics.NewJaroWinkler())
}
