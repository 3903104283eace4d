// Package render turns a meeting into the Markdown artifacts stored in the
// vault. Rendering is pure: no I/O happens here.
package render

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/boydwold/spellar-vault/pkg/core"
)

const (
	// Source is recorded in every note's front matter.
	Source = "spellar"

	// DigestLimit caps the daily log digest, in runes.
	DigestLimit = 150

	longDateLayout  = "January 02, 2006 at 03:04 PM"
	entryTimeLayout = "3:04 PM"
	dayLayout       = "Monday, January 02, 2006"
	clockLayout     = "15:04"
)

// DefaultTags are written when a meeting carries no tags of its own.
var DefaultTags = []string{"meeting", "spellar"}

// Layout names the vault folders, relative to the vault root and separated by
// forward slashes. Wiki links use the same names.
type Layout struct {
	NotesFolder       string
	TranscriptsFolder string
	AttachmentsFolder string
	DailyFolder       string
}

// NoteArtifact is a complete note and its vault-relative path.
type NoteArtifact struct {
	Path    string
	Content []byte
}

// AudioRef locates the recording attached to a meeting.
type AudioRef struct {
	// Path is vault-relative.
	Path   string
	URL    string
	Upload *core.Attachment
}

// Rendered holds everything produced for one meeting.
type Rendered struct {
	Stem       string
	Summary    NoteArtifact
	Transcript NoteArtifact
	Digest     string
	DailyEntry string
	// Audio is nil when the meeting has no recording.
	Audio *AudioRef
}

// Renderer builds notes for a fixed vault layout.
type Renderer struct {
	Layout Layout
}

// Render produces both notes, the digest and the daily log entry.
func (r Renderer) Render(m core.MeetingPayload) (Rendered, error) {
	stem := m.Stem()
	out := Rendered{
		Stem:   stem,
		Digest: Digest(m),
	}

	if m.HasAudio() {
		out.Audio = &AudioRef{
			Path:   path.Join(r.Layout.AttachmentsFolder, m.AudioFilename()),
			URL:    m.AudioURL,
			Upload: m.AudioUpload,
		}
	}

	summary, err := r.summaryNote(m, stem, out.Audio)
	if err != nil {
		return Rendered{}, fmt.Errorf("render summary note: %w", err)
	}
	transcript, err := r.transcriptNote(m, stem, out.Audio)
	if err != nil {
		return Rendered{}, fmt.Errorf("render transcript note: %w", err)
	}

	out.Summary = NoteArtifact{Path: path.Join(r.Layout.NotesFolder, stem+".md"), Content: summary}
	out.Transcript = NoteArtifact{Path: path.Join(r.Layout.TranscriptsFolder, stem+".md"), Content: transcript}
	out.DailyEntry = r.dailyEntry(m, stem, out.Digest)
	return out, nil
}

func (r Renderer) summaryNote(m core.MeetingPayload, stem string, audio *AudioRef) ([]byte, error) {
	var buf bytes.Buffer
	fm := newFrontmatter().plain("processed", "false")
	if err := noteFrontmatter(fm, m, "meeting-note").encode(&buf); err != nil {
		return nil, err
	}

	fmt.Fprintf(&buf, "\n# %s\n\n", m.Title)
	fmt.Fprintf(&buf, "**Date:** %s\n", m.OccurredAt.Format(longDateLayout))
	fmt.Fprintf(&buf, "**Duration:** %s\n", m.FormattedDuration())
	if audio != nil {
		fmt.Fprintf(&buf, "**Recording:** %s\n", embed(audio.Path))
	}
	fmt.Fprintf(&buf, "**Transcript:** %s\n\n", link(r.Layout.TranscriptsFolder, stem, "Full Transcript"))

	s := m.Summary
	if s.Brief != "" {
		fmt.Fprintf(&buf, "## Summary\n\n%s\n\n", s.Brief)
	}

	if len(s.Decisions) > 0 {
		buf.WriteString("## Decisions\n\n")
		for _, d := range s.Decisions {
			fmt.Fprintf(&buf, "- %s\n", d)
		}
		buf.WriteString("\n")
	}

	if len(s.Topics) > 0 {
		buf.WriteString("## Topics\n\n")
		for _, t := range s.Topics {
			fmt.Fprintf(&buf, "### %s\n\n", t.Title)
			if t.Context != "" {
				fmt.Fprintf(&buf, "%s\n\n", t.Context)
			}
			if len(t.KeyPoints) > 0 {
				for _, p := range t.KeyPoints {
					fmt.Fprintf(&buf, "- %s\n", p)
				}
				buf.WriteString("\n")
			}
		}
	}

	if len(s.Tasks) > 0 {
		buf.WriteString("## Action Items\n\n")
		for _, t := range s.Tasks {
			fmt.Fprintf(&buf, "- [ ] **%s**", t.Title)
			if t.Context != "" {
				fmt.Fprintf(&buf, ": %s", t.Context)
			}
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

func (r Renderer) transcriptNote(m core.MeetingPayload, stem string, audio *AudioRef) ([]byte, error) {
	var buf bytes.Buffer
	if err := noteFrontmatter(newFrontmatter(), m, "meeting-transcript").encode(&buf); err != nil {
		return nil, err
	}

	fmt.Fprintf(&buf, "\n# %s - Transcript\n\n", m.Title)
	fmt.Fprintf(&buf, "**Date:** %s\n", m.OccurredAt.Format(longDateLayout))
	fmt.Fprintf(&buf, "**Duration:** %s\n", m.FormattedDuration())
	fmt.Fprintf(&buf, "**Summary:** %s\n\n", link(r.Layout.NotesFolder, stem, "View Summary"))

	if audio != nil {
		fmt.Fprintf(&buf, "## Recording\n\n%s\n\n", embed(audio.Path))
	}

	fmt.Fprintf(&buf, "## Full Transcript\n\n%s\n", m.TranscriptBody())
	return buf.Bytes(), nil
}

func noteFrontmatter(fm *frontmatter, m core.MeetingPayload, kind string) *frontmatter {
	fm.quoted("title", m.Title).
		plain("date", m.Date()).
		quoted("time", m.OccurredAt.Format(clockLayout)).
		plain("type", kind).
		plain("source", Source).
		quoted("duration", m.FormattedDuration())
	if len(m.Tags) == 0 {
		return fm.list("tags", DefaultTags, 0)
	}
	return fm.list("tags", m.Tags, yaml.DoubleQuotedStyle)
}

func (r Renderer) dailyEntry(m core.MeetingPayload, stem, digest string) string {
	heading := fmt.Sprintf("### 🎙️ %s — %s", m.OccurredAt.Format(entryTimeLayout), m.Title)
	if d := m.FormattedDuration(); d != "" {
		heading += " (" + d + ")"
	}
	links := link(r.Layout.NotesFolder, stem, "Summary") + " | " + link(r.Layout.TranscriptsFolder, stem, "Transcript")
	return "\n" + heading + "\n\n" + digest + "\n\n→ " + links + "\n\n"
}

// DailyHeader opens a new per-day note. The first entry follows it directly.
func DailyHeader(date time.Time) string {
	var buf bytes.Buffer
	fm := newFrontmatter().plain("date", date.Format("2006-01-02")).plain("type", "daily-note")
	// Plain scalars only; encoding cannot fail.
	_ = fm.encode(&buf)
	fmt.Fprintf(&buf, "\n# %s\n\n## Meetings\n", date.Format(dayLayout))
	return buf.String()
}

// Digest is the one line shown for a meeting in the daily log: the brief up
// to its first period, else the first tags, else a fixed text.
func Digest(m core.MeetingPayload) string {
	first, _, _ := strings.Cut(m.Summary.Brief, ".")
	if line := strings.TrimSpace(first); line != "" {
		return truncate(line, DigestLimit)
	}
	if len(m.Tags) > 0 {
		tags := m.Tags[:min(3, len(m.Tags))]
		return "Meeting with topics: " + strings.Join(tags, ", ")
	}
	return "Meeting recorded"
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-3]) + "..."
}

func link(folder, stem, label string) string {
	return "[[" + path.Join(folder, stem) + "|" + label + "]]"
}

func embed(target string) string {
	return "![[" + target + "]]"
}
