package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/spondex/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "spondex",
		Usage:    "Keep Spotify and Yandex Music liked tracks in sync",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrDaemonNotRunning) {
			logger.Fatal("daemon is not running; start it with `spondex daemon start`")
		}
		logger.Fatalf("application error: %v", err)
	}
}
