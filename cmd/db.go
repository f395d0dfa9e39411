package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spondex/internal/formatter"
	"github.com/desertthunder/spondex/internal/models"
	"github.com/desertthunder/spondex/internal/repositories"
	"github.com/desertthunder/spondex/internal/shared"
	"github.com/urfave/cli/v3"
)

// openDB opens the configured database read-mostly for inspection
// commands. Callers close it.
func (r *Runner) openDB(cmd *cli.Command) (*sql.DB, error) {
	config := r.loadConfig(cmd)
	db, err := shared.NewDatabase(config.DatabaseFile())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func listParams(cmd *cli.Command) repositories.ListParams {
	return repositories.ListParams{
		Limit:  cmd.Int("limit"),
		Offset: cmd.Int("offset"),
		Search: cmd.String("search"),
	}
}

// DBStatus prints row counts and the most recent successful run.
func (r *Runner) DBStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	mappings, err := repositories.NewMappingRepository(db).Count()
	if err != nil {
		return err
	}
	unmatched, err := repositories.NewUnmatchedRepository(db).Count()
	if err != nil {
		return err
	}

	r.writePlain("Mappings:  %d\n", mappings)
	r.writePlain("Unmatched: %d\n", unmatched)

	last, err := repositories.NewSyncRunRepository(db).LastSuccessful()
	if err != nil {
		return err
	}
	if last == nil {
		return r.writePlain("Last successful run: never\n")
	}
	return r.writePlain("Last successful run: %s (%s/%s)\n",
		last.StartedAt.Format(time.RFC3339), last.Mode, last.Direction)
}

// DBMappings lists track mappings.
func (r *Runner) DBMappings(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	mappings, err := repositories.NewMappingRepository(db).List(listParams(cmd))
	if err != nil {
		return err
	}

	for _, m := range mappings {
		sp, ym := m.SpotifyID, m.YandexID
		if sp == "" {
			sp = "-"
		}
		if ym == "" {
			ym = "-"
		}
		r.writePlain("%-6d %.2f  %s - %s  [%s / %s]\n", m.ID, m.Confidence, m.Artist, m.Title, sp, ym)
	}
	return r.writePlain("%d mappings\n", len(mappings))
}

// DBUnmatched lists tracks that could not be matched yet.
func (r *Runner) DBUnmatched(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	tracks, err := repositories.NewUnmatchedRepository(db).List(listParams(cmd))
	if err != nil {
		return err
	}

	for _, u := range tracks {
		r.writePlain("%-8s %s - %s  (%d attempts, last %s)\n",
			u.SourceService, u.Artist, u.Title, u.Attempts, u.LastAttemptAt.Format(time.RFC3339))
	}
	return r.writePlain("%d unmatched tracks\n", len(tracks))
}

// DBRuns lists recent sync runs, newest first.
func (r *Runner) DBRuns(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := repositories.NewSyncRunRepository(db).List(cmd.Int("limit"))
	if err != nil {
		return err
	}

	for _, run := range runs {
		line := fmt.Sprintf("%s  %s/%s  %s", run.StartedAt.Format(time.RFC3339), run.Mode, run.Direction, run.Status)
		if run.ErrorMessage != "" {
			line += "  " + run.ErrorMessage
		}
		r.writePlain("%s\n", line)
	}
	return r.writePlain("%d runs\n", len(runs))
}

// DBExport writes a listing to a file in the chosen format.
func (r *Runner) DBExport(ctx context.Context, cmd *cli.Command) error {
	format := formatter.Format(cmd.String("format"))
	if !format.Valid() {
		return fmt.Errorf("unknown export format %q (expected csv, markdown, or json)", cmd.String("format"))
	}
	kind := cmd.String("type")

	db, err := r.openDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	var data []byte
	switch kind {
	case "mappings":
		rows, err := repositories.NewMappingRepository(db).List(repositories.ListParams{Limit: 10000})
		if err != nil {
			return err
		}
		data, err = renderMappings(rows, format)
		if err != nil {
			return err
		}
	case "unmatched":
		rows, err := repositories.NewUnmatchedRepository(db).List(repositories.ListParams{Limit: 10000})
		if err != nil {
			return err
		}
		data, err = renderUnmatched(rows, format)
		if err != nil {
			return err
		}
	case "runs":
		rows, err := repositories.NewSyncRunRepository(db).List(1000)
		if err != nil {
			return err
		}
		data, err = renderRuns(rows, format)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown export type %q (expected mappings, unmatched, or runs)", kind)
	}

	output := cmd.String("output")
	if output == "" {
		output = fmt.Sprintf("%s.%s", kind, format.Extension())
	}
	if err := formatter.WriteExport(output, data); err != nil {
		return err
	}
	return r.writePlain("Exported %s to %s\n", kind, output)
}

func renderMappings(rows []*models.TrackMapping, format formatter.Format) ([]byte, error) {
	switch format {
	case formatter.FormatCSV:
		return formatter.MappingsCSV(rows)
	case formatter.FormatMarkdown:
		return formatter.MappingsMarkdown(rows), nil
	default:
		return formatter.ToJSON(rows)
	}
}

func renderUnmatched(rows []*models.UnmatchedTrack, format formatter.Format) ([]byte, error) {
	switch format {
	case formatter.FormatCSV:
		return formatter.UnmatchedCSV(rows)
	case formatter.FormatMarkdown:
		return formatter.UnmatchedMarkdown(rows), nil
	default:
		return formatter.ToJSON(rows)
	}
}

func renderRuns(rows []*models.SyncRun, format formatter.Format) ([]byte, error) {
	switch format {
	case formatter.FormatCSV:
		return formatter.RunsCSV(rows)
	case formatter.FormatMarkdown:
		return formatter.RunsMarkdown(rows), nil
	default:
		return formatter.ToJSON(rows)
	}
}
