package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptdl/internal/fetcher"
	"github.com/desertthunder/sptdl/internal/repositories"
	"github.com/desertthunder/sptdl/internal/services"
	"github.com/desertthunder/sptdl/internal/shared"
	"github.com/desertthunder/sptdl/internal/spotdl"
	"github.com/desertthunder/sptdl/internal/tagger"
	"github.com/desertthunder/sptdl/internal/tasks"
	"github.com/desertthunder/sptdl/internal/ui"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Collaborators left nil in [RunnerOpts] are built from the configuration when a command first needs them.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	provider   services.MetadataProvider
	searcher   services.Searcher
	engine     fetcher.Engine
	transcoder fetcher.Transcoder
	images     tagger.ImageSource
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	Provider   services.MetadataProvider
	Searcher   services.Searcher
	Engine     fetcher.Engine
	Transcoder fetcher.Transcoder
	Images     tagger.ImageSource
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		provider:   opts.Provider,
		searcher:   opts.Searcher,
		engine:     opts.Engine,
		transcoder: opts.Transcoder,
		images:     opts.Images,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		downloadCommand, delegateCommand, tracksCommand, historyCommand, configCommand, doctorCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure runs before every command. It loads the config file when present, applies environment
// overrides and sets the log level.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.logger.Debug("loaded config", "path", path)
	} else if cmd.IsSet("config") {
		return ctx, fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
	}
	r.configPath = path

	r.config.ApplyEnv(cmd.String("env-file"))

	switch {
	case cmd.Bool("verbose"):
		shared.SetLogLevel(r.logger, log.DebugLevel)
	case cmd.Bool("quiet"):
		shared.SetLogLevel(r.logger, log.WarnLevel)
	}
	return ctx, nil
}

// applyDownloadFlags copies per-run flag overrides into the loaded config.
func (r *Runner) applyDownloadFlags(cmd *cli.Command) error {
	if cmd.IsSet("output") {
		r.config.Output.Folder = cmd.String("output")
	}
	if cmd.IsSet("format") {
		r.config.Output.Format = strings.ToLower(cmd.String("format"))
	}
	if cmd.IsSet("bitrate") {
		r.config.Output.Bitrate = cmd.String("bitrate")
	}
	if cmd.IsSet("engine") {
		r.config.Download.Engine = cmd.String("engine")
	}
	if cmd.Bool("no-skip") {
		r.config.Output.SkipExisting = false
	}
	return r.config.Validate()
}

// referenceArg returns the first positional argument, prompting for it on an interactive terminal.
func (r *Runner) referenceArg(cmd *cli.Command) (string, error) {
	input := strings.TrimSpace(cmd.Args().First())
	if input == "" && r.interactive() {
		value, err := ui.PromptReference(r.input, r.output)
		if err != nil {
			return "", err
		}
		input = value
	}

	if input == "" {
		return "", fmt.Errorf("%w: spotify URL or URI", shared.ErrMissingArgument)
	}
	if !services.LooksLikeSpotify(input) {
		r.logger.Warn("input does not look like a Spotify link, trying anyway", "input", input)
	}
	return input, nil
}

func (r *Runner) interactive() bool {
	f, ok := r.input.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// metadataProvider returns the injected provider or authenticates against the Spotify Web API.
func (r *Runner) metadataProvider(ctx context.Context) (services.MetadataProvider, error) {
	if r.provider != nil {
		return r.provider, nil
	}

	client, err := services.NewSpotifyClient(ctx, r.config.Credentials.Spotify)
	if err != nil {
		return nil, err
	}
	r.provider = services.NewSpotifyResolver(client, r.config.Credentials.Spotify.Market, r.config.Download.Timeout, r.logger)
	return r.provider, nil
}

func (r *Runner) newEngine() fetcher.Engine {
	if r.engine != nil {
		return r.engine
	}

	tools := r.config.Tools
	switch r.config.Download.Engine {
	case "native":
		return fetcher.NewNativeEngine()
	case "spotdl":
		return &fetcher.SpotDLEngine{Runner: spotdl.New(tools.SpotDL, r.logger)}
	default:
		return &fetcher.YTDLPEngine{Executable: tools.YTDLP, FFmpeg: tools.FFmpeg}
	}
}

func (r *Runner) newFetcher() *fetcher.Fetcher {
	transcoder := r.transcoder
	if transcoder == nil {
		transcoder = fetcher.NewFFmpegTranscoder(r.config.Tools.FFmpeg)
	}

	opts := fetcher.Options{
		Format:     r.config.Output.Format,
		Bitrate:    r.config.Output.Bitrate,
		SampleRate: r.config.Output.SampleRate,
	}
	return fetcher.New(r.newEngine(), transcoder, opts, r.logger).WithCleanupPartial(r.config.Download.CleanupPartial)
}

// newPipeline wires the fetch strategy for the configured engine. spotDL searches on its own, so
// it receives track URLs instead of video candidates.
func (r *Runner) newPipeline() *tasks.Pipeline {
	f := r.newFetcher()

	var strategy tasks.Strategy
	if f.Engine().Name() == "spotdl" {
		strategy = &tasks.DelegateStrategy{Fetcher: f}
	} else {
		searcher := r.searcher
		if searcher == nil {
			searcher = services.NewYTDLPSearcher(r.config.Tools.YTDLP, r.config.Download.Timeout, r.logger)
		}
		strategy = &tasks.DirectStrategy{Searcher: searcher, Fetcher: f, Limit: r.config.Download.SearchResults}
	}

	images := r.images
	if images == nil {
		images = shared.NewImageFetcher(r.config.Download.CoverTimeout)
	}

	opts := tasks.PipelineOpts{
		Folder:           r.config.Output.Folder,
		Format:           f.Format(),
		FilenameTemplate: r.config.Output.FilenameTemplate,
		SkipExisting:     r.config.Output.SkipExisting,
		Pause:            r.config.Download.Pause,
	}
	return tasks.NewPipeline(strategy, tagger.New(images, r.logger), opts, r.logger)
}

// historyRepository opens the run history database.
func (r *Runner) historyRepository() (*repositories.RunRepository, func(), error) {
	if !r.config.History.Enabled {
		return nil, nil, fmt.Errorf("%w: run history is disabled", shared.ErrInvalidConfig)
	}

	db, err := shared.OpenHistory(r.config)
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewRunRepository(db), func() { db.Close() }, nil
}

// openHistory is [Runner.historyRepository] for downloads, where history is optional. It returns
// nil when history is disabled or cannot be opened.
func (r *Runner) openHistory() (*repositories.RunRepository, func()) {
	if !r.config.History.Enabled {
		return nil, func() {}
	}

	repo, closeFn, err := r.historyRepository()
	if err != nil {
		r.logger.Warn("run history unavailable", "err", err)
		return nil, func() {}
	}
	return repo, closeFn
}

func (r *Runner) configRows() [][]string {
	c := r.config
	return [][]string{
		{"Output Folder", c.Output.Folder},
		{"Audio Format", strings.ToUpper(c.Output.Format)},
		{"Bitrate", c.Output.Bitrate},
		{"Engine", c.Download.Engine},
		{"Download Lyrics", checkmark(c.Download.Lyrics)},
		{"Skip Existing", checkmark(c.Output.SkipExisting)},
	}
}

func checkmark(b bool) string {
	if b {
		return "✓"
	}
	return "✗"
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
