package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spondex/internal/models"
	"github.com/urfave/cli/v3"
)

// Sync asks the daemon to start a run immediately.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	mode := models.SyncMode(cmd.String("mode"))
	if cmd.String("mode") != "" && !mode.Valid() {
		return fmt.Errorf("unknown sync mode %q (expected full or incremental)", cmd.String("mode"))
	}

	if err := r.client.Sync(ctx, mode); err != nil {
		return err
	}
	return r.writePlain("Sync started\n")
}

// Pause suspends scheduled runs.
func (r *Runner) Pause(ctx context.Context, cmd *cli.Command) error {
	if err := r.client.Pause(ctx); err != nil {
		return err
	}
	return r.writePlain("Scheduled syncs paused\n")
}

// Resume re-enables scheduled runs.
func (r *Runner) Resume(ctx context.Context, cmd *cli.Command) error {
	if err := r.client.Resume(ctx); err != nil {
		return err
	}
	return r.writePlain("Scheduled syncs resumed\n")
}

// Status prints the daemon's status report.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	report, err := r.client.Status(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(report)
	}

	r.writePlain("Daemon:    running (pid %d, up %s)\n", report.PID, formatUptime(report.UptimeSec))
	state := "active"
	if report.Scheduler.Paused {
		state = "paused"
	}
	if report.Scheduler.Running {
		state += ", sync in progress"
	}
	r.writePlain("Scheduler: %s, %d runs\n", state, report.Scheduler.TotalRuns)
	if report.Scheduler.NextRunIn != nil {
		r.writePlain("Next run:  in %s\n", formatUptime(*report.Scheduler.NextRunIn))
	}
	if report.LastRun != nil {
		r.writePlain("Last run:  %s %s/%s at %s\n",
			report.LastRun.Status, report.LastRun.Mode, report.LastRun.Direction,
			report.LastRun.StartedAt.Format(time.RFC3339))
		if report.LastRun.ErrorMessage != "" {
			r.writePlain("           error: %s\n", report.LastRun.ErrorMessage)
		}
	}
	r.writePlain("Store:     %d mappings, %d unmatched\n", report.Mappings, report.Unmatched)
	return nil
}

// Shutdown asks the daemon to exit gracefully.
func (r *Runner) Shutdown(ctx context.Context, cmd *cli.Command) error {
	if err := r.client.Shutdown(ctx); err != nil {
		return err
	}
	return r.writePlain("Daemon shutting down\n")
}

func formatUptime(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}
