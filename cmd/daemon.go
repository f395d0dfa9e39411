package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spondex/internal/daemon"
	"github.com/desertthunder/spondex/internal/server"
	"github.com/desertthunder/spondex/internal/shared"
	"github.com/desertthunder/spondex/internal/tasks"
	"github.com/urfave/cli/v3"
)

const defaultGracePeriod = 10 * time.Second

// Setup initializes the runtime directory, creates a config file from
// the embedded template when absent, and migrates the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if err := shared.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create runtime directories: %w", err)
	}

	configPath := cmd.String("config")
	if configPath == "" {
		configPath = shared.ConfigPath()
	}
	if err := shared.CreateConfigFile(configPath); err == nil {
		r.logger.Info("config file created", "path", configPath)
	} else {
		r.logger.Info("config file already present", "path", configPath)
	}

	config := shared.LoadOrDefault(configPath)
	r.logger.Info("initializing database", "path", config.DatabaseFile())

	db, err := shared.NewDatabase(config.DatabaseFile())
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Info("setup complete", "database", config.DatabaseFile())
	if !config.IsSpotifyConfigured() || !config.IsYandexConfigured() {
		r.writePlain("Add your Spotify and Yandex credentials to %s before starting the daemon.\n", configPath)
	}
	return nil
}

// DaemonStart spawns a detached daemon process.
func (r *Runner) DaemonStart(ctx context.Context, cmd *cli.Command) error {
	if err := shared.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create runtime directories: %w", err)
	}

	pid, err := daemon.Spawn(shared.PidPath(), shared.DaemonLogPath())
	if err != nil {
		if errors.Is(err, shared.ErrDaemonAlreadyRunning) {
			return r.writePlain("Daemon already running (pid %d)\n", pid)
		}
		return err
	}
	return r.writePlain("Daemon started (pid %d)\n", pid)
}

// DaemonStop terminates the running daemon.
func (r *Runner) DaemonStop(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	if err := daemon.Terminate(shared.PidPath(), gracePeriod(config)); err != nil {
		return err
	}
	return r.writePlain("Daemon stopped\n")
}

// DaemonRestart stops the daemon if it is running, then starts it.
func (r *Runner) DaemonRestart(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	if err := daemon.Terminate(shared.PidPath(), gracePeriod(config)); err != nil && !errors.Is(err, shared.ErrDaemonNotRunning) {
		return err
	}
	return r.DaemonStart(ctx, cmd)
}

// DaemonRun runs the daemon in the foreground: database, sync engine,
// scheduler, and control socket, wired to one shutdown lifecycle.
func (r *Runner) DaemonRun(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	if level, err := log.ParseLevel(config.Daemon.LogLevel); err == nil {
		shared.SetLogLevel(r.logger, level)
	}

	if err := shared.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create runtime directories: %w", err)
	}

	db, err := shared.NewDatabase(config.DatabaseFile())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	spotify, yandex, err := r.buildServices(ctx, config)
	if err != nil {
		return err
	}

	lifecycle := daemon.NewLifecycle(ctx, gracePeriod(config))
	defer lifecycle.Close()

	if err := daemon.WritePidFile(shared.PidPath()); err != nil {
		return err
	}
	defer daemon.RemovePidFile(shared.PidPath())

	engine := tasks.NewSyncEngine(r.logger, db, spotify, yandex, config.Sync)
	scheduler := daemon.NewScheduler(r.logger, engine, config.Sync, lifecycle.GracePeriod())

	control := &server.Control{
		Scheduler: scheduler,
		Lifecycle: lifecycle,
		DB:        db,
		StartedAt: time.Now(),
	}
	srv := server.NewServer(r.logger, control, shared.SocketPath())

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(lifecycle.Context()) }()
	go scheduler.Start(lifecycle.Context())

	r.logger.Info("daemon running", "interval_minutes", config.Sync.IntervalMinutes)

	var srvErr error
	select {
	case srvErr = <-serveErr:
		if srvErr != nil {
			lifecycle.RequestShutdown("control socket failure")
		} else {
			lifecycle.RequestShutdown("control socket closed")
		}
	case <-lifecycle.Context().Done():
		<-serveErr
	}

	reason := lifecycle.Wait()
	r.logger.Info("daemon shutting down", "reason", reason)
	if !scheduler.Drain(lifecycle.GracePeriod()) {
		r.logger.Warn("grace period elapsed with a sync run still in flight")
	}
	return srvErr
}

func gracePeriod(config *shared.Config) time.Duration {
	if config.Daemon.GracePeriodSeconds > 0 {
		return time.Duration(config.Daemon.GracePeriodSeconds) * time.Second
	}
	return defaultGracePeriod
}
