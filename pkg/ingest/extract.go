package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/boydwold/spellar-vault/pkg/core"
)

// Extract decodes a webhook body into fields.
// Multipart form data is recognised by content type; everything else is JSON.
func Extract(body []byte, contentType string) (core.Fields, error) {
	if strings.Contains(strings.ToLower(contentType), "multipart/form-data") {
		return extractMultipart(body, contentType)
	}
	return extractJSON(body)
}

func extractJSON(body []byte) (core.Fields, error) {
	fields := core.Fields{}
	if len(bytes.TrimSpace(body)) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidJSON, err)
	}
	if fields == nil {
		// A literal `null` body.
		fields = core.Fields{}
	}
	return fields, nil
}

func extractMultipart(body []byte, contentType string) (core.Fields, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidMultipart, err)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("%w: missing boundary", core.ErrInvalidMultipart)
	}

	fields := core.Fields{}
	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidMultipart, err)
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidMultipart, err)
		}

		name := part.FormName()
		filename := part.FileName()
		mediaType := part.Header.Get("Content-Type")

		switch {
		case isAudioPart(name, filename, mediaType):
			fields[core.AudioField] = core.Attachment{
				Field:       name,
				Filename:    filename,
				ContentType: mediaType,
				Data:        data,
			}
			fields[core.AudioFilenameField] = filename
		case filename != "":
			// Only recordings are kept out of uploaded files.
			continue
		case name == "":
			continue
		default:
			addField(fields, name, scalarValue(string(data)))
		}
	}
	return fields, nil
}

// isAudioPart classifies a part as a recording: an uploaded file named like
// one, or any part declaring an audio media type.
func isAudioPart(name, filename, mediaType string) bool {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "audio/") {
		return true
	}
	if filename == "" {
		return false
	}
	lower := strings.ToLower(name)
	return strings.Contains(lower, "audio") || strings.Contains(lower, "recording")
}

// scalarValue resolves a form value once: strings opening with "{" are
// decoded as JSON when they parse, otherwise kept verbatim.
func scalarValue(raw string) any {
	if !strings.HasPrefix(raw, "{") {
		return raw
	}
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return raw
	}
	return parsed
}

// addField keeps repeated names as an ordered list instead of overwriting.
func addField(fields core.Fields, name string, value any) {
	existing, ok := fields[name]
	if !ok {
		fields[name] = value
		return
	}
	// Scalars never decode to a list, so a list here was built by a repeat.
	if dup, ok := existing.([]any); ok {
		fields[name] = append(dup, value)
		return
	}
	fields[name] = []any{existing, value}
}
