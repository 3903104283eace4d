// Package ingest turns raw webhook requests into loosely typed fields.
package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/boydwold/spellar-vault/pkg/core"
)

// RawRequest is what the transport hands to the decoder.
type RawRequest struct {
	Header http.Header
	Body   io.Reader
	Path   string
	// Unframed marks bodies whose transfer coding was already removed by the
	// transport (net/http does this for chunked requests).
	Unframed bool
}

// Decoder reads complete request bodies.
type Decoder struct {
	// MaxBytes caps the decoded body size. Zero disables the cap.
	MaxBytes int64
}

// Decode returns the full message body of req.
func (d Decoder) Decode(req RawRequest) ([]byte, error) {
	if req.Body == nil {
		return nil, nil
	}

	if req.Unframed {
		return d.readAll(req.Body)
	}

	if isChunked(req.Header.Get("Transfer-Encoding")) {
		return d.readChunked(bufio.NewReader(req.Body))
	}

	length, err := contentLength(req.Header.Get("Content-Length"))
	if err != nil {
		return nil, err
	}
	if d.MaxBytes > 0 && length > d.MaxBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", core.ErrBodyTooLarge, length, d.MaxBytes)
	}

	var buf bytes.Buffer
	n, err := io.CopyN(&buf, req.Body, length)
	if err != nil {
		return nil, fmt.Errorf("%w: got %d of %d bytes: %v", core.ErrTruncatedBody, n, length, err)
	}
	return buf.Bytes(), nil
}

func (d Decoder) readAll(r io.Reader) ([]byte, error) {
	if d.MaxBytes <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, d.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > d.MaxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", core.ErrBodyTooLarge, d.MaxBytes)
	}
	return body, nil
}

// readChunked decodes a chunked transfer-encoded stream.
// A blank line or EOF where a size line is expected ends the body.
func (d Decoder) readChunked(r *bufio.Reader) ([]byte, error) {
	var buf bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %v", core.ErrMalformedChunkedBody, err)
		}
		sizeField := strings.TrimSpace(strings.SplitN(line, ";", 2)[0])
		if sizeField == "" {
			return buf.Bytes(), nil
		}

		size, perr := strconv.ParseInt(sizeField, 16, 64)
		if perr != nil || size < 0 {
			return nil, fmt.Errorf("%w: bad chunk size %q", core.ErrMalformedChunkedBody, sizeField)
		}
		if size == 0 {
			// Trailer terminator; a missing one is tolerated.
			_, _ = r.ReadString('\n')
			return buf.Bytes(), nil
		}
		if d.MaxBytes > 0 && int64(buf.Len())+size > d.MaxBytes {
			return nil, fmt.Errorf("%w: more than %d bytes", core.ErrBodyTooLarge, d.MaxBytes)
		}

		if _, err := io.CopyN(&buf, r, size); err != nil {
			return nil, fmt.Errorf("%w: short chunk: %v", core.ErrMalformedChunkedBody, err)
		}
		if _, err := r.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %v", core.ErrMalformedChunkedBody, err)
		}
	}
}

func isChunked(te string) bool {
	for _, coding := range strings.Split(te, ",") {
		if strings.EqualFold(strings.TrimSpace(coding), "chunked") {
			return true
		}
	}
	return false
}

func contentLength(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", core.ErrMalformedContentLength, raw)
	}
	return n, nil
}
