package ingest_test

import (
	"bytes"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boydwold/spellar-vault/pkg/core"
	"github.com/boydwold/spellar-vault/pkg/ingest"
)

type formPart struct {
	name, filename, contentType, data string
}

func multipartBody(t *testing.T, parts ...formPart) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		disposition := `form-data; name="` + p.name + `"`
		if p.filename != "" {
			disposition += `; filename="` + p.filename + `"`
		}
		h.Set("Content-Disposition", disposition)
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		pw, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write([]byte(p.data))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes(), w.FormDataContentType()
}

func TestExtract_JSON(t *testing.T) {
	fields, err := ingest.Extract([]byte(`{"title":"Weekly Sync","duration":1800}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "Weekly Sync", fields["title"])
	assert.Equal(t, 1800.0, fields["duration"])
}

func TestExtract_EmptyBody(t *testing.T) {
	for _, body := range []string{"", "   \n", "null"} {
		fields, err := ingest.Extract([]byte(body), "")
		require.NoError(t, err, "body %q", body)
		assert.Empty(t, fields)
	}
}

func TestExtract_InvalidJSON(t *testing.T) {
	for _, body := range []string{`{"title":`, `[1,2]`, `"just a string"`} {
		_, err := ingest.Extract([]byte(body), "application/json")
		assert.ErrorIs(t, err, core.ErrInvalidJSON, "body %q", body)
	}
}

func TestExtract_MultipartScalarAndAudio(t *testing.T) {
	envelope := `{"title":"Weekly Sync","time":"2024-03-01T15:00:00Z"}`
	body, contentType := multipartBody(t,
		formPart{name: core.EnvelopeKey, data: envelope},
		formPart{name: "audio", filename: "rec.m4a", contentType: "application/octet-stream", data: "\x00\x01binary"},
	)

	fields, err := ingest.Extract(body, contentType)
	require.NoError(t, err)

	meeting, ok := fields[core.EnvelopeKey].(map[string]any)
	require.True(t, ok, "JSON scalar should be decoded, got %T", fields[core.EnvelopeKey])
	assert.Equal(t, "Weekly Sync", meeting["title"])

	att, ok := fields[core.AudioField].(core.Attachment)
	require.True(t, ok)
	assert.Equal(t, "audio", att.Field)
	assert.Equal(t, "rec.m4a", att.Filename)
	assert.Equal(t, []byte("\x00\x01binary"), att.Data)
	assert.Equal(t, "rec.m4a", fields[core.AudioFilenameField])
}

func TestExtract_MultipartAudioByMediaType(t *testing.T) {
	body, contentType := multipartBody(t,
		formPart{name: "file", filename: "take.mp3", contentType: "audio/mpeg", data: "mp3"},
	)
	fields, err := ingest.Extract(body, contentType)
	require.NoError(t, err)
	att, ok := fields[core.AudioField].(core.Attachment)
	require.True(t, ok)
	assert.Equal(t, "audio/mpeg", att.ContentType)
}

func TestExtract_MultipartSkipsOtherFiles(t *testing.T) {
	body, contentType := multipartBody(t,
		formPart{name: "attachment", filename: "notes.pdf", contentType: "application/pdf", data: "%PDF"},
		formPart{name: "audio_link", data: "https://cdn.example.com/rec.mp4"},
	)
	fields, err := ingest.Extract(body, contentType)
	require.NoError(t, err)

	assert.NotContains(t, fields, "attachment")
	assert.NotContains(t, fields, core.AudioField)
	assert.Equal(t, "https://cdn.example.com/rec.mp4", fields["audio_link"])
}

func TestExtract_MultipartRepeatedNames(t *testing.T) {
	body, contentType := multipartBody(t,
		formPart{name: "tags", data: "a"},
		formPart{name: "tags", data: "b"},
		formPart{name: "tags", data: "c"},
	)
	fields, err := ingest.Extract(body, contentType)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, fields["tags"])
}

func TestExtract_MultipartBrokenJSONScalarKeptVerbatim(t *testing.T) {
	body, contentType := multipartBody(t, formPart{name: "summary", data: "{not json"})
	fields, err := ingest.Extract(body, contentType)
	require.NoError(t, err)
	assert.Equal(t, "{not json", fields["summary"])
}

func TestExtract_MultipartMissingBoundary(t *testing.T) {
	_, err := ingest.Extract([]byte("--x--"), "multipart/form-data")
	assert.ErrorIs(t, err, core.ErrInvalidMultipart)
}
