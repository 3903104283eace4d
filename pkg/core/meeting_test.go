package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/boydwold/spellar-vault/pkg/core"
)

func TestStem(t *testing.T) {
	at := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)

	cases := map[string]string{
		"Weekly Sync":             "2024-03-01 Weekly Sync",
		"  Q3: Plan / Review?! ":  "2024-03-01 Q3 Plan  Review",
		"café_planning-2":         "2024-03-01 café_planning-2",
		"../../etc/passwd":        "2024-03-01 etcpasswd",
		"":                        "2024-03-01 ",
		"Retro (team #4) [draft]": "2024-03-01 Retro team 4 draft",
	}

	for title, want := range cases {
		assert.Equal(t, want, core.Stem(at, title), "title %q", title)
	}
}

func TestStem_Deterministic(t *testing.T) {
	m := core.MeetingPayload{
		Title:      "Design Review: v2",
		OccurredAt: time.Date(2024, 5, 6, 9, 0, 0, 0, time.Local),
	}
	first := m.Stem()
	second := m.Stem()
	assert.Equal(t, first, second)
	assert.Equal(t, "2024-05-06 Design Review v2", first)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "", core.FormatDuration(0))
	assert.Equal(t, "0m", core.FormatDuration(59))
	assert.Equal(t, "45m", core.FormatDuration(45*60))
	assert.Equal(t, "1h 0m", core.FormatDuration(3600))
	assert.Equal(t, "2h 15m", core.FormatDuration(2*3600+15*60+30))
}

func TestAudioExtension(t *testing.T) {
	cases := map[string]string{
		"https://cdn.example.com/rec.mp4":             ".mp4",
		"https://cdn.example.com/REC.M4A":             ".m4a",
		"https://cdn.example.com/rec.mp3?sig=abc.mp4": ".mp3",
		"https://cdn.example.com/rec.m4a.mp3":         ".m4a",
		"https://cdn.example.com/stream?id=1":         ".mp4",
		"https://cdn.example.com/audio.wav":           ".mp4",
	}
	for url, want := range cases {
		assert.Equal(t, want, core.AudioExtension(url), url)
	}
}

func TestUploadExtension(t *testing.T) {
	assert.Equal(t, ".wav", core.UploadExtension("take.WAV"))
	assert.Equal(t, ".mp4", core.UploadExtension("noext"))
	assert.Equal(t, ".mp4", core.UploadExtension(""))
}

func TestMeetingPayload_AudioFilename(t *testing.T) {
	m := core.MeetingPayload{
		Title:      "Sync",
		OccurredAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		AudioURL:   "https://x/y.m4a?token=1",
	}
	assert.Equal(t, "2024-03-01 Sync.m4a", m.AudioFilename())

	m.AudioURL = ""
	assert.Equal(t, "", m.AudioFilename())
}
