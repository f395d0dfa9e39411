package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/spondex/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigShow prints the effective configuration with secrets redacted.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	redacted := *config
	redacted.Spotify.ClientSecret = redact(config.Spotify.ClientSecret)
	redacted.Spotify.RefreshToken = redact(config.Spotify.RefreshToken)
	redacted.Yandex.Token = redact(config.Yandex.Token)

	return r.writeJSON(redacted)
}

// ConfigSet updates one configuration value and saves the file.
func (r *Runner) ConfigSet(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	value := cmd.StringArg("value")
	if key == "" {
		return fmt.Errorf("usage: config set <key> <value>")
	}

	path := cmd.String("config")
	if path == "" {
		path = shared.ConfigPath()
	}
	config := shared.LoadOrDefault(path)

	if err := applyConfigValue(config, key, value); err != nil {
		return err
	}
	if err := shared.SaveConfig(path, config); err != nil {
		return err
	}
	return r.writePlain("Set %s = %s\n", key, value)
}

// applyConfigValue maps dotted keys onto config fields. Only settings a
// user plausibly edits from the CLI are exposed.
func applyConfigValue(config *shared.Config, key, value string) error {
	switch key {
	case "daemon.log_level":
		config.Daemon.LogLevel = value
	case "daemon.grace_period_seconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("expected a number for %s: %w", key, err)
		}
		config.Daemon.GracePeriodSeconds = n
	case "sync.interval_minutes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("expected a number for %s: %w", key, err)
		}
		if n <= 0 {
			return fmt.Errorf("sync.interval_minutes must be positive")
		}
		config.Sync.IntervalMinutes = n
	case "sync.mode":
		if value != "full" && value != "incremental" {
			return fmt.Errorf("sync.mode must be full or incremental")
		}
		config.Sync.Mode = value
	case "sync.direction":
		switch value {
		case "bidirectional", "spotify_to_yandex", "yandex_to_spotify":
			config.Sync.Direction = value
		default:
			return fmt.Errorf("sync.direction must be bidirectional, spotify_to_yandex, or yandex_to_spotify")
		}
	case "sync.propagate_deletions":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("expected true or false for %s: %w", key, err)
		}
		config.Sync.PropagateDeletions = b
	case "database.path":
		config.Database.Path = value
	case "spotify.client_id":
		config.Spotify.ClientID = value
	case "spotify.client_secret":
		config.Spotify.ClientSecret = value
	case "spotify.refresh_token":
		config.Spotify.RefreshToken = value
	case "spotify.redirect_uri":
		config.Spotify.RedirectURI = value
	case "yandex.token":
		config.Yandex.Token = value
	case "yandex.user_id":
		config.Yandex.UserID = value
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
	return nil
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "[redacted]"
}
