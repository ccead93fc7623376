package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptdl/internal/shared"
	"github.com/urfave/cli/v3"
)

const (
	appName    = "sptdl"
	appVersion = "0.1.0"
)

// exitStatusError carries a child process exit code out of a command action.
type exitStatusError struct {
	code int
}

func (e *exitStatusError) Error() string {
	return fmt.Sprintf("child process exited with status %d", e.code)
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     appName,
		Usage:    "Download Spotify playlists, albums and tracks as tagged audio files",
		Version:  appVersion,
		Flags:    globalFlags(),
		Before:   r.configure,
		Commands: r.register(),
		// Exit codes are decided in main so deferred cleanup still runs.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp(runner).Run(ctx, os.Args)
	stop()

	os.Exit(exitCode(err, logger))
}

func exitCode(err error, logger *log.Logger) int {
	if err == nil {
		return 0
	}

	if errors.Is(err, context.Canceled) {
		logger.Warn("interrupted")
		return 130
	}
	var status *exitStatusError
	if errors.As(err, &status) {
		return status.code
	}

	logger.Error("application error", "err", err)
	return 1
}
