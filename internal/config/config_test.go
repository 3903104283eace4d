package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"OBSIDIAN_VAULT_PATH", "NOTES_FOLDER", "TRANSCRIPTS_FOLDER", "ATTACHMENTS_FOLDER",
	"DAILY_NOTES_FOLDER", "PORT", "LOG_REQUESTS", "WEBHOOK_SECRET", "MAX_BODY_BYTES",
	"METRICS_PORT", "WORKERS", "QUEUE_SIZE", "AUDIO_TIMEOUT", "DAILY_LOG_ATTEMPTS",
	"DAILY_LOG_DELAY",
}

// clearEnv unsets every variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Config{
		VaultPath:         "/path/to/your/vault",
		NotesFolder:       "Meeting Notes",
		TranscriptsFolder: "Meeting Transcripts",
		AttachmentsFolder: "attachments/spellar",
		DailyNotesFolder:  "Daily Notes",
		Port:              8765,
		LogRequests:       true,
		WebhookSecret:     "",
		MaxBodyBytes:      256 << 20,
		MetricsPort:       0,
		Workers:           4,
		QueueSize:         64,
		AudioTimeout:      0,
		DailyLogAttempts:  3,
		DailyLogDelay:     time.Second,
	}, cfg)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OBSIDIAN_VAULT_PATH", "/srv/vault")
	t.Setenv("NOTES_FOLDER", "Notes")
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_REQUESTS", "false")
	t.Setenv("WEBHOOK_SECRET", "s3cret")
	t.Setenv("METRICS_PORT", "9100")
	t.Setenv("AUDIO_TIMEOUT", "2m")
	t.Setenv("DAILY_LOG_DELAY", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/vault", cfg.VaultPath)
	assert.Equal(t, "Notes", cfg.NotesFolder)
	assert.Equal(t, 9000, cfg.Port)
	assert.False(t, cfg.LogRequests)
	assert.Equal(t, "s3cret", cfg.WebhookSecret)
	assert.Equal(t, 9100, cfg.MetricsPort)
	assert.Equal(t, 2*time.Minute, cfg.AudioTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.DailyLogDelay)
}

func TestLoad_UnparsableValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "eighty")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	valid, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty vault", func(c *Config) { c.VaultPath = " " }, "OBSIDIAN_VAULT_PATH"},
		{"absolute folder", func(c *Config) { c.NotesFolder = "/etc" }, "NOTES_FOLDER"},
		{"escaping folder", func(c *Config) { c.DailyNotesFolder = "../outside" }, "DAILY_NOTES_FOLDER"},
		{"empty folder", func(c *Config) { c.AttachmentsFolder = "" }, "ATTACHMENTS_FOLDER"},
		{"port", func(c *Config) { c.Port = 0 }, "PORT"},
		{"metrics clash", func(c *Config) { c.MetricsPort = c.Port }, "METRICS_PORT"},
		{"workers", func(c *Config) { c.Workers = 0 }, "WORKERS"},
		{"queue", func(c *Config) { c.QueueSize = -1 }, "QUEUE_SIZE"},
		{"attempts", func(c *Config) { c.DailyLogAttempts = 0 }, "DAILY_LOG_ATTEMPTS"},
		{"delay", func(c *Config) { c.DailyLogDelay = -time.Second }, "DAILY_LOG_DELAY"},
		{"audio timeout", func(c *Config) { c.AudioTimeout = -time.Second }, "AUDIO_TIMEOUT"},
		{"body cap", func(c *Config) { c.MaxBodyBytes = -1 }, "MAX_BODY_BYTES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("nested folder is fine", func(t *testing.T) {
		cfg := valid
		cfg.AttachmentsFolder = "attachments/spellar/audio"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("errors are joined", func(t *testing.T) {
		cfg := valid
		cfg.Port = -1
		cfg.Workers = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PORT")
		assert.Contains(t, err.Error(), "WORKERS")
	})
}
