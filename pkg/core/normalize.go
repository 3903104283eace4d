package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// EnvelopeKey is the provider key some webhooks nest the meeting under.
const EnvelopeKey = "Spellar-meeting-key"

// timestampLayouts carry an explicit zone; naiveLayouts are read in the local zone.
var (
	timestampLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z0700",
		"2006-01-02 15:04:05Z07:00",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02",
	}
)

// Normalizer converts extracted fields into a MeetingPayload.
// It never fails: missing or malformed fields resolve to defaults.
type Normalizer struct {
	// Now supplies the fallback timestamp. Defaults to time.Now.
	Now func() time.Time
	// Location is the zone notes are dated in. Defaults to time.Local.
	Location *time.Location
}

// Normalize builds the canonical payload from loosely typed fields.
func (n Normalizer) Normalize(fields Fields) MeetingPayload {
	data := meetingData(fields)

	title := firstString(data, "title")
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}

	m := MeetingPayload{
		Title:           title,
		Summary:         summaryBlock(data["summary"]),
		AudioURL:        strings.TrimSpace(firstString(data, "audio_link", "audioUrl")),
		AudioUpload:     attachment(fields[AudioField]),
		OccurredAt:      n.timestamp(firstString(data, "time", "timestamp")),
		DurationSeconds: seconds(data["duration"]),
		Tags:            stringList(data["tags"], true),
	}
	m.Transcript, m.TranscriptText = transcript(data["transcript"])
	return m
}

func (n Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now().In(n.location())
	}
	return time.Now().In(n.location())
}

func (n Normalizer) location() *time.Location {
	if n.Location != nil {
		return n.Location
	}
	return time.Local
}

// timestamp parses an ISO-8601 value into the local zone, falling back to now.
func (n Normalizer) timestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return n.now()
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.In(n.location())
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, n.location()); err == nil {
			return t
		}
	}
	return n.now()
}

// meetingData unwraps the provider envelope when present.
func meetingData(fields Fields) map[string]any {
	env, ok := fields[EnvelopeKey]
	if !ok {
		return fields
	}
	switch v := first(env).(type) {
	case map[string]any:
		return v
	case Fields:
		return v
	case string:
		var decoded map[string]any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil && decoded != nil {
			return decoded
		}
	}
	return fields
}

func transcript(v any) ([]TranscriptSegment, string) {
	switch t := v.(type) {
	case nil:
		return nil, ""
	case string:
		return nil, t
	case []any:
		segments := make([]TranscriptSegment, 0, len(t))
		for _, item := range t {
			var seg TranscriptSegment
			switch s := item.(type) {
			case map[string]any:
				seg.Speaker = strings.TrimSpace(firstString(s, "speaker"))
				seg.Text = strings.TrimSpace(firstString(s, "transcript", "text"))
			case string:
				seg.Text = strings.TrimSpace(s)
			default:
				continue
			}
			if seg.Text == "" {
				continue
			}
			if seg.Speaker == "" {
				seg.Speaker = "Unknown"
			}
			segments = append(segments, seg)
		}
		return segments, ""
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Sprint(t)
		}
		return nil, string(raw)
	}
}

func summaryBlock(v any) SummaryBlock {
	// A repeated summary field keeps its first value, decoded or not.
	if l, ok := v.([]any); ok && len(l) > 0 {
		if _, isMap := l[0].(map[string]any); isMap {
			v = l[0]
		} else {
			v = first(v)
		}
	}

	m, ok := v.(map[string]any)
	if !ok {
		brief, _ := scalarString(v)
		return SummaryBlock{Brief: strings.TrimSpace(brief)}
	}

	block := SummaryBlock{
		Brief: strings.TrimSpace(firstString(m, "brief", "summary")),
	}

	for _, d := range list(m["decisions"]) {
		var text string
		if dm, ok := d.(map[string]any); ok {
			text = firstString(dm, "decision", "text", "title")
		} else {
			text, _ = scalarString(d)
		}
		if text = strings.TrimSpace(text); text != "" {
			block.Decisions = append(block.Decisions, text)
		}
	}

	for _, t := range list(m["topics"]) {
		tm, ok := t.(map[string]any)
		if !ok {
			continue
		}
		topic := Topic{
			Title:     strings.TrimSpace(firstString(tm, "title")),
			Context:   strings.TrimSpace(firstString(tm, "context")),
			KeyPoints: stringList(tm["key_points"], false),
		}
		if topic.Title == "" && topic.Context == "" && len(topic.KeyPoints) == 0 {
			continue
		}
		block.Topics = append(block.Topics, topic)
	}

	for _, t := range list(m["tasks"]) {
		var task Task
		switch tv := t.(type) {
		case map[string]any:
			task.Title = strings.TrimSpace(firstString(tv, "title"))
			task.Context = strings.TrimSpace(firstString(tv, "context"))
		case string:
			task.Title = strings.TrimSpace(tv)
		}
		if task.Title == "" {
			continue
		}
		block.Tasks = append(block.Tasks, task)
	}

	return block
}

func attachment(v any) *Attachment {
	switch a := v.(type) {
	case Attachment:
		return &a
	case *Attachment:
		return a
	}
	return nil
}

// firstString returns the first key holding a non-blank scalar.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := scalarString(first(m[k])); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// first collapses a repeated multipart field to its first value.
func first(v any) any {
	if l, ok := v.([]any); ok && len(l) > 0 {
		if _, nested := l[0].([]any); !nested {
			if _, isMap := l[0].(map[string]any); !isMap {
				return l[0]
			}
		}
	}
	return v
}

func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int, int64, bool:
		return fmt.Sprint(s), true
	}
	return "", false
}

func list(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out
	}
	return nil
}

// stringList flattens a list of scalars. splitCSV also accepts "a, b" strings.
func stringList(v any, splitCSV bool) []string {
	var raw []any
	if s, ok := v.(string); ok {
		if !splitCSV {
			raw = []any{s}
		} else {
			for _, part := range strings.Split(s, ",") {
				raw = append(raw, part)
			}
		}
	} else {
		raw = list(v)
	}

	var out []string
	for _, item := range raw {
		s, ok := scalarString(item)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func seconds(v any) int {
	var f float64
	switch d := first(v).(type) {
	case float64:
		f = d
	case int:
		f = float64(d)
	case int64:
		f = float64(d)
	case json.Number:
		f, _ = d.Float64()
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(d), 64)
	}
	if !(f > 0) || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}
