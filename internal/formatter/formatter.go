// package formatter renders mapping, unmatched-track, and sync-run
// listings to CSV, Markdown, and JSON for the db export command.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/spondex/internal/models"
)

// Format names an export output format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Valid reports whether f is a supported export format.
func (f Format) Valid() bool {
	return f == FormatCSV || f == FormatMarkdown || f == FormatJSON
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

const timeLayout = time.RFC3339

// MappingsCSV renders mappings with columns: ID, SpotifyID, YandexID,
// Artist, Title, Confidence, UpdatedAt.
func MappingsCSV(mappings []*models.TrackMapping) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "SpotifyID", "YandexID", "Artist", "Title", "Confidence", "UpdatedAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, m := range mappings {
		record := []string{
			strconv.FormatInt(m.ID, 10),
			m.SpotifyID,
			m.YandexID,
			m.Artist,
			m.Title,
			strconv.FormatFloat(m.Confidence, 'f', 2, 64),
			m.UpdatedAt.Format(timeLayout),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmatchedCSV renders unmatched tracks with columns: Service, SourceID,
// Artist, Title, Attempts, LastAttemptAt.
func UnmatchedCSV(tracks []*models.UnmatchedTrack) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Service", "SourceID", "Artist", "Title", "Attempts", "LastAttemptAt"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, u := range tracks {
		record := []string{
			string(u.SourceService),
			u.SourceID,
			u.Artist,
			u.Title,
			strconv.Itoa(u.Attempts),
			u.LastAttemptAt.Format(timeLayout),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// RunsCSV renders sync runs with columns: ID, StartedAt, FinishedAt,
// Mode, Direction, Status, Stats, Error.
func RunsCSV(runs []*models.SyncRun) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "StartedAt", "FinishedAt", "Mode", "Direction", "Status", "Stats", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range runs {
		finished := ""
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Format(timeLayout)
		}
		record := []string{
			r.ID,
			r.StartedAt.Format(timeLayout),
			finished,
			string(r.Mode),
			string(r.Direction),
			string(r.Status),
			r.StatsJSON,
			r.ErrorMessage,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// MappingsMarkdown renders mappings as a Markdown table.
func MappingsMarkdown(mappings []*models.TrackMapping) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Track Mappings\n\n")
	buf.WriteString(fmt.Sprintf("**Total**: %d\n\n", len(mappings)))
	buf.WriteString("| Artist | Title | Spotify | Yandex | Confidence |\n")
	buf.WriteString("|--------|-------|---------|--------|------------|\n")

	for _, m := range mappings {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.2f |\n",
			m.Artist, m.Title, orDash(m.SpotifyID), orDash(m.YandexID), m.Confidence))
	}
	return buf.Bytes()
}

// UnmatchedMarkdown renders unmatched tracks as a Markdown table.
func UnmatchedMarkdown(tracks []*models.UnmatchedTrack) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Unmatched Tracks\n\n")
	buf.WriteString(fmt.Sprintf("**Total**: %d\n\n", len(tracks)))
	buf.WriteString("| Service | Artist | Title | Attempts | Last Attempt |\n")
	buf.WriteString("|---------|--------|-------|----------|--------------|\n")

	for _, u := range tracks {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %s |\n",
			u.SourceService, u.Artist, u.Title, u.Attempts, u.LastAttemptAt.Format(timeLayout)))
	}
	return buf.Bytes()
}

// RunsMarkdown renders sync runs as a Markdown list with per-run stat
// summaries.
func RunsMarkdown(runs []*models.SyncRun) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Sync Runs\n\n")
	buf.WriteString(fmt.Sprintf("**Total**: %d\n\n", len(runs)))

	for i, r := range runs {
		buf.WriteString(fmt.Sprintf("%d. `%s` %s/%s %s, started %s",
			i+1, r.ID, r.Mode, r.Direction, r.Status, r.StartedAt.Format(timeLayout)))
		if stats, err := models.ParseSyncStats(r.StatsJSON); err == nil && r.StatsJSON != "" {
			buf.WriteString(fmt.Sprintf(" (matched %d, +%d/+%d, -%d/-%d)",
				stats.CrossMatched, stats.SpotifyAdded, stats.YandexAdded,
				stats.SpotifyRemoved, stats.YandexRemoved))
		}
		if r.ErrorMessage != "" {
			buf.WriteString(fmt.Sprintf(" (error: %s)", r.ErrorMessage))
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// ToJSON renders any listing as indented JSON.
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

// WriteExport writes rendered export data to path.
func WriteExport(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
