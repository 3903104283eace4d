// Package config loads the service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting of the webhook service.
// Variables are read without a prefix, e.g. OBSIDIAN_VAULT_PATH, PORT.
type Config struct {
	// Vault layout
	VaultPath         string `envconfig:"OBSIDIAN_VAULT_PATH" default:"/path/to/your/vault"`
	NotesFolder       string `envconfig:"NOTES_FOLDER" default:"Meeting Notes"`
	TranscriptsFolder string `envconfig:"TRANSCRIPTS_FOLDER" default:"Meeting Transcripts"`
	AttachmentsFolder string `envconfig:"ATTACHMENTS_FOLDER" default:"attachments/spellar"`
	DailyNotesFolder  string `envconfig:"DAILY_NOTES_FOLDER" default:"Daily Notes"`

	// HTTP
	Port          int    `envconfig:"PORT" default:"8765"`
	LogRequests   bool   `envconfig:"LOG_REQUESTS" default:"true"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET" default:""`
	MaxBodyBytes  int64  `envconfig:"MAX_BODY_BYTES" default:"268435456"`
	MetricsPort   int    `envconfig:"METRICS_PORT" default:"0"`

	// Background processing
	Workers   int `envconfig:"WORKERS" default:"4"`
	QueueSize int `envconfig:"QUEUE_SIZE" default:"64"`

	// Zero means no timeout.
	AudioTimeout     time.Duration `envconfig:"AUDIO_TIMEOUT" default:"0"`
	DailyLogAttempts int           `envconfig:"DAILY_LOG_ATTEMPTS" default:"3"`
	DailyLogDelay    time.Duration `envconfig:"DAILY_LOG_DELAY" default:"1s"`
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.VaultPath) == "" {
		errs = append(errs, errors.New("OBSIDIAN_VAULT_PATH is empty"))
	}
	for _, f := range []struct{ name, value string }{
		{"NOTES_FOLDER", c.NotesFolder},
		{"TRANSCRIPTS_FOLDER", c.TranscriptsFolder},
		{"ATTACHMENTS_FOLDER", c.AttachmentsFolder},
		{"DAILY_NOTES_FOLDER", c.DailyNotesFolder},
	} {
		if err := validFolder(f.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
		}
	}

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("METRICS_PORT out of range: %d", c.MetricsPort))
	}
	if c.MetricsPort != 0 && c.MetricsPort == c.Port {
		errs = append(errs, fmt.Errorf("METRICS_PORT must differ from PORT (%d)", c.Port))
	}
	if c.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES is negative: %d", c.MaxBodyBytes))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("WORKERS must be at least 1: %d", c.Workers))
	}
	if c.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("QUEUE_SIZE is negative: %d", c.QueueSize))
	}
	if c.AudioTimeout < 0 {
		errs = append(errs, fmt.Errorf("AUDIO_TIMEOUT is negative: %s", c.AudioTimeout))
	}
	if c.DailyLogAttempts < 1 {
		errs = append(errs, fmt.Errorf("DAILY_LOG_ATTEMPTS must be at least 1: %d", c.DailyLogAttempts))
	}
	if c.DailyLogDelay < 0 {
		errs = append(errs, fmt.Errorf("DAILY_LOG_DELAY is negative: %s", c.DailyLogDelay))
	}

	return errors.Join(errs...)
}

// validFolder accepts vault-relative paths that stay inside the vault.
func validFolder(folder string) error {
	if strings.TrimSpace(folder) == "" {
		return errors.New("empty folder")
	}
	if filepath.IsAbs(folder) {
		return fmt.Errorf("folder must be relative to the vault: %q", folder)
	}
	clean := filepath.ToSlash(filepath.Clean(folder))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("folder escapes the vault: %q", folder)
	}
	return nil
}
