// Package core holds the meeting domain: the canonical payload, the loosely
// typed fields it is built from and the rules that derive names from it.
package core

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Reserved field names written by the extractor for uploaded audio.
const (
	AudioField         = "_audio_data"
	AudioFilenameField = "_audio_filename"
)

// DefaultTitle is used when a payload carries no usable title.
const DefaultTitle = "Untitled Meeting"

// Fields is the loosely typed output of payload extraction.
// Values are strings, decoded JSON structures, []any for repeated
// multipart names, or an Attachment under AudioField.
type Fields map[string]any

// Attachment is a binary upload promoted out of a multipart body.
type Attachment struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// TranscriptSegment is one speaker turn, in conversation order.
type TranscriptSegment struct {
	Speaker string
	Text    string
}

// Topic is a discussed subject from the AI summary.
type Topic struct {
	Title     string
	Context   string
	KeyPoints []string
}

// Task is an action item from the AI summary.
type Task struct {
	Title   string
	Context string
}

// SummaryBlock is the AI-generated summary of a meeting.
type SummaryBlock struct {
	Brief     string
	Decisions []string
	Topics    []Topic
	Tasks     []Task
}

// IsEmpty reports whether the block has nothing to render.
func (s SummaryBlock) IsEmpty() bool {
	return s.Brief == "" && len(s.Decisions) == 0 && len(s.Topics) == 0 && len(s.Tasks) == 0
}

// MeetingPayload is the canonical description of one recorded meeting.
// It is built once by the Normalizer and never mutated afterwards.
type MeetingPayload struct {
	Title      string
	Transcript []TranscriptSegment
	// TranscriptText holds the transcript verbatim when it did not arrive as a
	// list of segments.
	TranscriptText  string
	Summary         SummaryBlock
	AudioURL        string
	AudioUpload     *Attachment
	OccurredAt      time.Time
	DurationSeconds int
	Tags            []string
}

// Date returns the calendar date of the meeting (YYYY-MM-DD).
func (m MeetingPayload) Date() string {
	return m.OccurredAt.Format("2006-01-02")
}

// Stem returns the base name shared by the summary, transcript and audio
// artifacts of the meeting.
func (m MeetingPayload) Stem() string {
	return Stem(m.OccurredAt, m.Title)
}

// FormattedDuration renders the duration as "1h 5m", "45m" or "" when unknown.
func (m MeetingPayload) FormattedDuration() string {
	return FormatDuration(m.DurationSeconds)
}

// TranscriptBody renders the transcript as Markdown paragraphs.
func (m MeetingPayload) TranscriptBody() string {
	if len(m.Transcript) == 0 {
		return m.TranscriptText
	}
	lines := make([]string, 0, len(m.Transcript))
	for _, seg := range m.Transcript {
		if seg.Text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("**%s:** %s", seg.Speaker, seg.Text))
	}
	return strings.Join(lines, "\n\n")
}

// HasAudio reports whether the meeting references a recording.
func (m MeetingPayload) HasAudio() bool {
	return m.AudioURL != "" || m.AudioUpload != nil
}

// AudioFilename returns the attachment filename for the recording, or "" when
// the meeting has none.
func (m MeetingPayload) AudioFilename() string {
	switch {
	case m.AudioURL != "":
		return m.Stem() + AudioExtension(m.AudioURL)
	case m.AudioUpload != nil:
		return m.Stem() + UploadExtension(m.AudioUpload.Filename)
	}
	return ""
}

// Stem derives "<date> <sanitized title>".
func Stem(at time.Time, title string) string {
	return at.Format("2006-01-02") + " " + SanitizeTitle(title)
}

// SanitizeTitle keeps letters, digits, spaces, hyphens and underscores.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// FormatDuration renders seconds as "<h>h <m>m", "<m>m" or "".
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// AudioExtension infers the recording extension from its URL.
// The query string is ignored; ".mp4" wins over ".m4a" over ".mp3".
func AudioExtension(rawURL string) string {
	lower := strings.SplitN(strings.ToLower(rawURL), "?", 2)[0]
	for _, ext := range []string{".mp4", ".m4a", ".mp3"} {
		if strings.Contains(lower, ext) {
			return ext
		}
	}
	return ".mp4"
}

// UploadExtension returns the lower-cased extension of an uploaded filename,
// defaulting to ".mp4".
func UploadExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || ext == "." {
		return ".mp4"
	}
	return ext
}
