// Package spotdl drives the external spotDL command line tool.
//
// Output is merged from stdout and stderr, streamed line by line and classified with an ordered
// rule table ([DefaultRules]). The tool is used two ways: once per track by the fetch engine, and
// once per reference by the delegating download command.
package spotdl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptdl/internal/shared"
)

const (
	DefaultExecutable  = "spotdl"
	HealthCheckTimeout = 5 * time.Second
	maxLineSize        = 1024 * 1024
)

// Line is one non-empty line of tool output with its category.
type Line struct {
	Text     string
	Category Category
}

// Args are the per-invocation options passed to "spotdl download".
type Args struct {
	Output  string // Folder or output template
	Format  string
	Bitrate string
}

// Runner runs spotDL commands.
type Runner struct {
	command    []string
	classifier *Classifier
	logger     *log.Logger
}

// New creates a runner. executable may contain arguments, e.g. "python3 -m spotdl".
func New(executable string, logger *log.Logger) *Runner {
	command := strings.Fields(executable)
	if len(command) == 0 {
		command = []string{DefaultExecutable}
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Runner{command: command, classifier: NewClassifier(), logger: logger}
}

// HealthCheck verifies the tool can be started and exits cleanly within [HealthCheckTimeout].
func (r *Runner) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	out, err := r.cmd(ctx, "--version").CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s did not answer within %s", shared.ErrToolUnavailable, r.command[0], HealthCheckTimeout)
		}
		return fmt.Errorf("%w: %s: %w", shared.ErrToolUnavailable, strings.Join(r.command, " "), err)
	}

	r.logger.Debug("spotdl available", "version", strings.TrimSpace(string(out)))
	return nil
}

// Download runs "spotdl download ref" and streams classified lines to onLine as they arrive.
//
// A non-zero exit is reported through the exit code, not the error. The error is set only when
// the process could not be run.
func (r *Runner) Download(ctx context.Context, ref string, args Args, onLine func(Line)) (Tally, int, error) {
	cmd := r.cmd(ctx, buildArgs(ref, args)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Tally{}, -1, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	r.logger.Debug("starting spotdl", "args", cmd.Args)
	if err := cmd.Start(); err != nil {
		return Tally{}, -1, fmt.Errorf("%w: failed to start %s: %w", shared.ErrToolUnavailable, r.command[0], err)
	}

	var tally Tally
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		line := Line{Text: text, Category: r.classifier.Classify(text)}
		tally.Add(line.Category)
		if onLine != nil {
			onLine(line)
		}
	}
	if err := scanner.Err(); err != nil {
		r.logger.Warn("reading spotdl output", "err", err)
		// The child blocks on a full pipe until the rest is read.
		io.Copy(io.Discard, stdout)
	}

	err = cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return tally, 0, nil
	case errors.As(err, &exitErr):
		return tally, exitErr.ExitCode(), nil
	default:
		return tally, -1, fmt.Errorf("spotdl: %w", err)
	}
}

func (r *Runner) cmd(ctx context.Context, args ...string) *exec.Cmd {
	full := append(append([]string{}, r.command[1:]...), args...)
	return exec.CommandContext(ctx, r.command[0], full...)
}

func buildArgs(ref string, args Args) []string {
	out := []string{"download", ref}
	if args.Output != "" {
		out = append(out, "--output", args.Output)
	}
	if args.Format != "" {
		out = append(out, "--format", args.Format)
	}
	if args.Bitrate != "" {
		out = append(out, "--bitrate", args.Bitrate)
	}
	return out
}
