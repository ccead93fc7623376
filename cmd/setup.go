package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/sptdl/internal/shared"
	"github.com/desertthunder/sptdl/internal/spotdl"
	"github.com/desertthunder/sptdl/internal/ui"
	"github.com/urfave/cli/v3"
)

const toolProbeTimeout = 5 * time.Second

// ConfigShow prints the effective configuration as TOML with the client secret masked.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	config := *r.config
	config.Credentials.Spotify.ClientSecret = mask(config.Credentials.Spotify.ClientSecret)

	r.writePlain("# %s\n", r.configSource())
	if err := toml.NewEncoder(r.output).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ConfigInit writes the default configuration to the --config path.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("%s %s\n", ui.Success("✓ Wrote"), path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Add your Spotify client_id and client_secret, or set SPOTIFY_ID and SPOTIFY_SECRET\n")
	r.writePlain("2. Run '%s doctor' to check the external tools\n", appName)
	return nil
}

type check struct {
	name     string
	ok       bool
	detail   string
	required bool
}

// Doctor probes the external tools and credentials the configured engine needs.
//
// It fails when a check required by the engine fails.
func (r *Runner) Doctor(ctx context.Context, cmd *cli.Command) error {
	tools := r.config.Tools
	engine := r.config.Download.Engine

	checks := []check{
		probeTool(ctx, "yt-dlp", tools.YTDLP, "--version", engine == "ytdlp"),
		probeTool(ctx, "ffmpeg", tools.FFmpeg, "-version", engine != "spotdl"),
	}

	spotdlCheck := check{name: "spotdl", ok: true, detail: "available", required: engine == "spotdl"}
	if err := spotdl.New(tools.SpotDL, r.logger).HealthCheck(ctx); err != nil {
		spotdlCheck.ok, spotdlCheck.detail = false, err.Error()
	}
	checks = append(checks, spotdlCheck)

	credentials := check{name: "spotify credentials", ok: r.config.HasCredentials(), required: true}
	if credentials.ok {
		credentials.detail = "client_id " + mask(r.config.Credentials.Spotify.ClientID)
	} else {
		credentials.detail = "set credentials.spotify or SPOTIFY_ID/SPOTIFY_SECRET"
	}
	checks = append(checks, credentials)

	if path, err := r.config.HistoryPath(); r.config.History.Enabled && err == nil {
		checks = append(checks, check{name: "history", ok: true, detail: path})
	}

	rows := make([][]string, 0, len(checks))
	var missing []string
	for _, c := range checks {
		status := ui.Success("ok")
		if !c.ok {
			status = ui.Warning("missing")
			if c.required {
				status = ui.Error("missing")
				missing = append(missing, c.name)
			}
		}
		rows = append(rows, []string{c.name, status, c.detail})
	}

	r.writePlain("%s\n", ui.HeaderTable([]string{"Check", "Status", "Detail"}, rows))
	r.writePlain("Engine: %s\n", engine)

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", shared.ErrToolUnavailable, strings.Join(missing, ", "))
	}
	return nil
}

// probeTool runs "executable flag" and reports the first line of its output.
func probeTool(ctx context.Context, name, executable, flag string, required bool) check {
	if executable == "" {
		executable = name
	}
	c := check{name: name, required: required}

	path, err := exec.LookPath(executable)
	if err != nil {
		c.detail = fmt.Sprintf("%s not found in PATH", executable)
		return c
	}

	ctx, cancel := context.WithTimeout(ctx, toolProbeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, flag).CombinedOutput()
	if err != nil {
		c.detail = fmt.Sprintf("%s: %v", path, err)
		return c
	}

	c.ok = true
	c.detail, _, _ = strings.Cut(strings.TrimSpace(string(out)), "\n")
	return c
}

func (r *Runner) configSource() string {
	if _, err := os.Stat(r.configPath); r.configPath != "" && err == nil {
		return "config: " + r.configPath
	}
	return "config: built-in defaults"
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return s[:4] + strings.Repeat("*", len(s)-4)
	}
}
