// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand initializes the runtime directory, config, and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize runtime directory, config file, and database",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// daemonCommand handles daemon process control.
func daemonCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "Manage the background sync daemon",
		Commands: []*cli.Command{
			{
				Name:   "start",
				Usage:  "Start the daemon in the background",
				Flags:  []cli.Flag{configFlag()},
				Action: r.DaemonStart,
			},
			{
				Name:   "stop",
				Usage:  "Stop the running daemon",
				Flags:  []cli.Flag{configFlag()},
				Action: r.DaemonStop,
			},
			{
				Name:   "restart",
				Usage:  "Stop and start the daemon",
				Flags:  []cli.Flag{configFlag()},
				Action: r.DaemonRestart,
			},
			{
				Name:   "run",
				Usage:  "Run the daemon in the foreground",
				Flags:  []cli.Flag{configFlag()},
				Action: r.DaemonRun,
			},
		},
	}
}

// syncCommand triggers an immediate reconciliation run.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Trigger a sync run now",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Sync mode: full or incremental (defaults to configured mode)",
			},
		},
		Action: r.Sync,
	}
}

func pauseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "pause",
		Usage:  "Suspend scheduled sync runs",
		Action: r.Pause,
	}
}

func resumeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "resume",
		Usage:  "Resume scheduled sync runs",
		Action: r.Resume,
	}
}

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show daemon and scheduler status",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

func shutdownCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "shutdown",
		Usage:  "Ask the daemon to shut down gracefully",
		Action: r.Shutdown,
	}
}

// configCommand inspects and edits the TOML configuration.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect and edit configuration",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration with secrets redacted",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigShow,
			},
			{
				Name:  "set",
				Usage: "Set a configuration value (e.g. sync.interval_minutes 15)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "key"},
					&cli.StringArg{Name: "value"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigSet,
			},
		},
	}
}

// dbCommand inspects the mapping store.
func dbCommand(r *Runner) *cli.Command {
	listFlags := []cli.Flag{
		configFlag(),
		&cli.StringFlag{
			Name:    "search",
			Aliases: []string{"s"},
			Usage:   "Filter by artist or title substring",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of rows to return",
			Value: 50,
		},
		&cli.IntFlag{
			Name:  "offset",
			Usage: "Number of rows to skip",
		},
	}

	return &cli.Command{
		Name:  "db",
		Usage: "Inspect the local mapping store",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show row counts and the last successful run",
				Flags:  []cli.Flag{configFlag()},
				Action: r.DBStatus,
			},
			{
				Name:   "mappings",
				Usage:  "List track mappings",
				Flags:  listFlags,
				Action: r.DBMappings,
			},
			{
				Name:   "unmatched",
				Usage:  "List unmatched tracks",
				Flags:  listFlags,
				Action: r.DBUnmatched,
			},
			{
				Name:  "runs",
				Usage: "List recent sync runs",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to return",
						Value: 20,
					},
				},
				Action: r.DBRuns,
			},
			{
				Name:  "export",
				Usage: "Export mappings, unmatched tracks, or runs to a file",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "type",
						Usage: "What to export: mappings, unmatched, or runs",
						Value: "mappings",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: csv, markdown, or json",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (defaults to <type>.<ext>)",
					},
				},
				Action: r.DBExport,
			},
		},
	}
}
