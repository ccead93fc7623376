package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Engines lists the accepted values of download.engine.
var Engines = []string{"ytdlp", "native", "spotdl"}

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Output      OutputConfig      `toml:"output"`
	Download    DownloadConfig    `toml:"download"`
	Tools       ToolsConfig       `toml:"tools"`
	History     HistoryConfig     `toml:"history"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify Web API client credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Market       string `toml:"market"`
}

// OutputConfig controls where and how files are written.
type OutputConfig struct {
	Folder           string `toml:"folder"`
	Format           string `toml:"format"`
	Bitrate          string `toml:"bitrate"`
	SampleRate       int    `toml:"sample_rate"`
	FilenameTemplate string `toml:"filename_template"`
	SkipExisting     bool   `toml:"skip_existing"`
}

// DownloadConfig controls the per-track pipeline.
type DownloadConfig struct {
	Engine         string        `toml:"engine"`
	SearchResults  int           `toml:"search_results"`
	Pause          time.Duration `toml:"pause"`
	Timeout        time.Duration `toml:"timeout"`
	CoverTimeout   time.Duration `toml:"cover_timeout"`
	CleanupPartial bool          `toml:"cleanup_partial"`
	Lyrics         bool          `toml:"lyrics"`
	Threads        int           `toml:"threads"` // accepted for compatibility; tracks are processed sequentially
}

// ToolsConfig names the external executables.
type ToolsConfig struct {
	YTDLP  string `toml:"ytdlp"`
	FFmpeg string `toml:"ffmpeg"`
	SpotDL string `toml:"spotdl"`
}

// HistoryConfig contains run history database settings.
type HistoryConfig struct {
	Enabled      bool   `toml:"enabled"`
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads a TOML configuration file on top of the embedded defaults.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv loads envFile (if present) and overrides credentials from the environment.
//
// SPOTIFY_ID/SPOTIFY_SECRET take precedence over the SPOTIPY_CLIENT_* names.
func (c *Config) ApplyEnv(envFile string) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	if v := firstEnv("SPOTIFY_ID", "SPOTIPY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := firstEnv("SPOTIFY_SECRET", "SPOTIPY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
}

// Validate checks option values that would otherwise fail deep inside the pipeline.
func (c *Config) Validate() error {
	if !slices.Contains(Engines, c.Download.Engine) {
		return fmt.Errorf("%w: unknown engine %q (want one of %s)", ErrInvalidConfig, c.Download.Engine, strings.Join(Engines, ", "))
	}
	if strings.TrimSpace(c.Output.Format) == "" {
		return fmt.Errorf("%w: output format is empty", ErrInvalidConfig)
	}
	if c.Output.Folder == "" {
		return fmt.Errorf("%w: output folder is empty", ErrInvalidConfig)
	}
	if c.Download.Pause < 0 || c.Download.Timeout < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	return nil
}

// HasCredentials reports whether both Spotify client credentials are set.
func (c *Config) HasCredentials() bool {
	return c.Credentials.Spotify.ClientID != "" && c.Credentials.Spotify.ClientSecret != ""
}

// HistoryPath resolves the history database path, defaulting to the XDG data directory.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	path, err := xdg.DataFile(filepath.Join("sptdl", "history.db"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve history path: %w", err)
	}
	return path, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}
