// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/sptdl/internal/formatter"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
)

const referenceUsage = "<spotify-url>"

// globalFlags are accepted by every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Dotenv file with SPOTIFY_ID and SPOTIFY_SECRET",
			Value: ".env",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
		&cli.BoolFlag{
			Name:    "quiet",
			Aliases: []string{"q"},
			Usage:   "Only log warnings and errors",
		},
	}
}

// outputFlags override the [output] section for one run.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output folder",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Audio format (mp3, flac, m4a, opus, ...)",
		},
		&cli.StringFlag{
			Name:    "bitrate",
			Aliases: []string{"b"},
			Usage:   "Target bitrate, e.g. 192k",
		},
		&cli.BoolFlag{
			Name:  "open",
			Usage: "Open the output folder when done",
		},
	}
}

// pipelineFlags are accepted by commands that run the per-track pipeline.
func pipelineFlags() []cli.Flag {
	return append(outputFlags(),
		&cli.StringFlag{
			Name:    "engine",
			Aliases: []string{"e"},
			Usage:   "Fetch engine (ytdlp, native or spotdl)",
		},
		&cli.BoolFlag{
			Name:  "no-skip",
			Usage: "Download tracks even when the target file exists",
		},
	)
}

// downloadCommand runs the per-track pipeline over a playlist, album, track or artist.
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "download",
		Aliases:   []string{"dl"},
		Usage:     "Download every track behind a Spotify link",
		ArgsUsage: referenceUsage,
		Flags:     pipelineFlags(),
		Action:    r.Download,
	}
}

// delegateCommand hands the whole reference to spotDL.
func delegateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "delegate",
		Usage:     "Download a Spotify link with spotDL and summarize its output",
		ArgsUsage: referenceUsage,
		Flags:     outputFlags(),
		Action:    r.Delegate,
	}
}

// tracksCommand resolves a reference without downloading it.
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tracks",
		Aliases:   []string{"ls"},
		Usage:     "List or export the tracks behind a Spotify link",
		ArgsUsage: referenceUsage,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format (" + joinFormats() + ")",
				Value: string(formatter.FormatText),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the export to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Write the export to a generated file name in the working directory",
			},
		},
		Action: r.Tracks,
	}
}

// historyCommand lists recorded runs.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent download runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show one run and its failed tracks",
				ArgsUsage: "<run-id>",
				Action:    r.HistoryShow,
			},
		},
	}
}

// configCommand inspects and creates configuration files.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration",
				Action: r.ConfigShow,
			},
			{
				Name:   "init",
				Usage:  "Write the default configuration file",
				Action: r.ConfigInit,
			},
		},
	}
}

// doctorCommand checks external tools and credentials.
func doctorCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "doctor",
		Usage:  "Check external tools and credentials",
		Action: r.Doctor,
	}
}

// tuiCommand returns the top-level TUI command for interactive downloads.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tui",
		Aliases:   []string{"interactive", "ui"},
		Usage:     "Preview and download a Spotify link interactively",
		ArgsUsage: referenceUsage,
		Flags:     pipelineFlags(),
		Action:    r.TUI,
	}
}

func joinFormats() string {
	return strings.Join(lo.Map(formatter.Formats, func(f formatter.Format, _ int) string { return string(f) }), ", ")
}
