// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/sptdl/internal/fetcher"
	"github.com/desertthunder/sptdl/internal/models"
	"github.com/desertthunder/sptdl/internal/services"
)

// MockProvider is a test double for [services.MetadataProvider]
type MockProvider struct {
	Tracks []models.Track
	Err    error
	Calls  int
}

func (m *MockProvider) Resolve(ctx context.Context, ref services.Reference) ([]models.Track, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Tracks, nil
}

func (m *MockProvider) Name() string { return "mock" }

// MockSearcher is a test double for [services.Searcher].
//
// Results are keyed by query; Default is returned for unknown queries.
type MockSearcher struct {
	Results map[string][]models.Candidate
	Default []models.Candidate
	Err     error

	mu      sync.Mutex
	Queries []string
}

func (m *MockSearcher) Search(ctx context.Context, query string, limit int) ([]models.Candidate, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if res, ok := m.Results[query]; ok {
		return res, nil
	}
	return m.Default, nil
}

// Calls returns how many searches were made.
func (m *MockSearcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

// MockFetcher writes Content to targetBase for every reference not listed in Fail.
type MockFetcher struct {
	Content string
	Fail    map[string]bool
	Panic   map[string]bool

	mu         sync.Mutex
	References []string
}

func (m *MockFetcher) FetchAndNormalize(ctx context.Context, reference, targetBase string) (string, bool) {
	m.mu.Lock()
	m.References = append(m.References, reference)
	m.mu.Unlock()

	if m.Panic[reference] {
		panic("fetch exploded: " + reference)
	}
	if m.Fail[reference] {
		return "", false
	}
	if err := os.MkdirAll(filepath.Dir(targetBase), 0o755); err != nil {
		return "", false
	}
	if err := os.WriteFile(targetBase, []byte(m.Content), 0o644); err != nil {
		return "", false
	}
	return targetBase, true
}

// Calls returns how many fetches were attempted.
func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.References)
}

// MockEngine is a test double for [fetcher.Engine]. It writes Content to "<stem>.<Ext>",
// using the requested format when Ext is empty.
type MockEngine struct {
	Ext     string
	Content string
	Err     error

	mu         sync.Mutex
	References []string
}

func (m *MockEngine) Name() string { return "mock" }

func (m *MockEngine) Download(ctx context.Context, reference, stem string, opts fetcher.Options) error {
	m.mu.Lock()
	m.References = append(m.References, reference)
	m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	ext := m.Ext
	if ext == "" {
		ext = opts.Format
	}
	return os.WriteFile(stem+"."+ext, []byte(m.Content), 0o644)
}

// Calls returns how many downloads were attempted.
func (m *MockEngine) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.References)
}

// MockTagger records the paths it was asked to tag.
type MockTagger struct {
	mu    sync.Mutex
	Paths []string
}

func (m *MockTagger) Apply(ctx context.Context, path string, track models.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Paths = append(m.Paths, path)
}

// MockImages is a test double for cover art sources.
type MockImages struct {
	Data []byte
	Err  error
}

func (m *MockImages) Fetch(ctx context.Context, url string) ([]byte, error) {
	return m.Data, m.Err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// Tracks builds n numbered tracks with durations of 200 seconds and Spotify URLs.
func Tracks(n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range tracks {
		id := "track" + string(rune('a'+i))
		tracks[i] = models.Track{
			ID:          id,
			Title:       "Song " + strings.ToUpper(string(rune('a'+i))),
			Artists:     []string{"Artist"},
			Album:       "Album",
			Duration:    200,
			TrackNumber: i + 1,
			URL:         "https://open.spotify.com/track/" + id,
		}
	}
	return tracks
}

// WriteExecutable writes a shell script named name into dir and returns its path.
func WriteExecutable(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("Failed to write script %s: %v", name, err)
	}
	return path
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
