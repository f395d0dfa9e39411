package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spondex/internal/server"
	"github.com/desertthunder/spondex/internal/services"
	"github.com/desertthunder/spondex/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	logger  *log.Logger
	output  io.Writer
	client  *server.Client
	spotify services.Library
	yandex  services.Library
}

// RunnerOpts contains configuration options for creating a Runner.
// Spotify and Yandex override the services the daemon builds from the
// config file; tests inject doubles through them.
type RunnerOpts struct {
	Logger  *log.Logger
	Output  io.Writer
	Client  *server.Client
	Spotify services.Library
	Yandex  services.Library
}

// NewRunner creates a new Runner with the provided options.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Client == nil {
		opts.Client = server.NewClient("")
	}

	return &Runner{
		logger:  opts.Logger,
		output:  opts.Output,
		client:  opts.Client,
		spotify: opts.Spotify,
		yandex:  opts.Yandex,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, daemonCommand, syncCommand, pauseCommand, resumeCommand,
		statusCommand, shutdownCommand, configCommand, dbCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the --config flag, falling back to the default
// path under ~/.spondex.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	path := cmd.String("config")
	if path == "" {
		path = shared.ConfigPath()
	}
	return shared.LoadOrDefault(path)
}

// buildServices constructs the two library clients from config, unless
// test doubles were injected.
func (r *Runner) buildServices(ctx context.Context, config *shared.Config) (services.Library, services.Library, error) {
	spotify := r.spotify
	if spotify == nil {
		svc, err := services.NewSpotifyService(ctx, config.Spotify)
		if err != nil {
			return nil, nil, fmt.Errorf("spotify: %w", err)
		}
		spotify = svc
	}

	yandex := r.yandex
	if yandex == nil {
		svc, err := services.NewYandexService(config.Yandex)
		if err != nil {
			return nil, nil, fmt.Errorf("yandex: %w", err)
		}
		yandex = svc
	}

	return spotify, yandex, nil
}

func (r *Runner) writeJSON(data any) error {
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
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

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
	}
}
