// YouTube search implementation of [Searcher] backed by yt-dlp
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptdl/internal/models"
	"github.com/desertthunder/sptdl/internal/shared"
	"github.com/lrstanley/go-ytdlp"
	"github.com/tidwall/gjson"
)

const (
	defaultSearchResults = 5
	youtubeWatchURL      = "https://www.youtube.com/watch?v="
)

// SearchRunner executes yt-dlp with the given arguments and returns its stdout.
type SearchRunner func(ctx context.Context, args ...string) (string, error)

// YTDLPSearcher searches YouTube through "ytsearchN:" queries.
type YTDLPSearcher struct {
	run     SearchRunner
	timeout time.Duration
	logger  *log.Logger
}

// NewYTDLPSearcher creates a searcher that runs the yt-dlp binary at executable.
func NewYTDLPSearcher(executable string, timeout time.Duration, logger *log.Logger) *YTDLPSearcher {
	run := func(ctx context.Context, args ...string) (string, error) {
		cmd := ytdlp.New().
			DumpJSON().
			FlatPlaylist().
			SkipDownload().
			NoWarnings().
			IgnoreConfig()
		if executable != "" {
			cmd.SetExecutable(executable)
		}

		result, err := cmd.Run(ctx, args...)
		if err != nil {
			return "", err
		}
		return result.Stdout, nil
	}
	return NewSearcherWithRunner(run, timeout, logger)
}

// NewSearcherWithRunner creates a searcher around an arbitrary runner.
func NewSearcherWithRunner(run SearchRunner, timeout time.Duration, logger *log.Logger) *YTDLPSearcher {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &YTDLPSearcher{run: run, timeout: timeout, logger: logger}
}

// Search implements [Searcher].
func (s *YTDLPSearcher) Search(ctx context.Context, query string, limit int) ([]models.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultSearchResults
	}

	term := fmt.Sprintf("ytsearch%d:%s", limit, query)
	out, err := WithRetry(ctx, s.logger, "search", s.timeout, func(ctx context.Context) (string, error) {
		return s.run(ctx, term)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search %q: %w", shared.ErrAPIRequest, query, err)
	}

	candidates := parseSearchOutput(out)
	s.logger.Debug("search finished", "query", query, "candidates", len(candidates))
	return candidates, nil
}

// parseSearchOutput reads one JSON object per line. A missing or null duration yields a nil
// [models.Candidate.Duration]; lines that are not objects are ignored.
func parseSearchOutput(out string) []models.Candidate {
	var candidates []models.Candidate
	gjson.ForEachLine(out, func(line gjson.Result) bool {
		if !line.IsObject() {
			return true
		}

		ref := line.Get("webpage_url").String()
		if ref == "" {
			ref = line.Get("url").String()
		}
		if ref == "" {
			if id := line.Get("id").String(); id != "" {
				ref = youtubeWatchURL + id
			}
		}
		if ref == "" {
			return true
		}

		c := models.Candidate{Reference: ref, Title: line.Get("title").String()}
		if d := line.Get("duration"); d.Exists() && d.Type == gjson.Number {
			c.Duration = models.Seconds(int(d.Float() + 0.5))
		}
		candidates = append(candidates, c)
		return true
	})
	return candidates
}
