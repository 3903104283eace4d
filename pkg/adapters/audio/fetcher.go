// Package audio stores meeting recordings next to the notes that embed them.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/boydwold/spellar-vault/pkg/adapters/fs"
	"github.com/boydwold/spellar-vault/pkg/core"
)

// Outcome reports what happened to a recording.
type Outcome string

const (
	OutcomeNone       Outcome = "none"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeDownloaded Outcome = "downloaded"
	OutcomeSaved      Outcome = "saved"
	OutcomeFailed     Outcome = "failed"
)

// Fetcher downloads or saves recordings. A target that already exists is
// never touched again, and a failure is logged rather than returned.
type Fetcher struct {
	client *resty.Client
	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithTimeout bounds a whole download. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.client.SetTimeout(d)
	}
}

// NewFetcher creates a Fetcher. Requests are never retried.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: resty.New().SetRetryCount(0),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.client.SetLogger(restyLogger{f.logger})
	return f
}

// Ensure downloads url to target unless target already exists.
// Exactly one request is made when it does not.
func (f *Fetcher) Ensure(ctx context.Context, url, target string) Outcome {
	if fs.Exists(target) {
		f.logger.Info("audio already exists", "path", target)
		return OutcomeSkipped
	}

	f.logger.Info("downloading audio", "url", url, "path", target)
	if err := f.download(ctx, url, target); err != nil {
		f.logger.Warn("failed to download audio", "url", url, "error", err)
		return OutcomeFailed
	}
	f.logger.Info("audio saved", "path", target)
	return OutcomeDownloaded
}

func (f *Fetcher) download(ctx context.Context, url, target string) error {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrAudioFetch, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return fmt.Errorf("%w: status %d", core.ErrAudioFetch, resp.StatusCode())
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: %w", core.ErrAudioFetch, err)
	}
	if err := fs.WriteStream(target, body); err != nil {
		return fmt.Errorf("%w: %w", core.ErrAudioFetch, err)
	}
	return nil
}

// Save writes an uploaded recording to target unless target already exists.
func (f *Fetcher) Save(target string, data []byte) Outcome {
	if fs.Exists(target) {
		f.logger.Info("audio already exists", "path", target)
		return OutcomeSkipped
	}

	err := os.MkdirAll(filepath.Dir(target), 0o755)
	if err == nil {
		err = fs.WriteStream(target, bytes.NewReader(data))
	}
	if err != nil {
		f.logger.Warn("failed to save uploaded audio", "path", target, "error", err)
		return OutcomeFailed
	}
	f.logger.Info("audio saved", "path", target, "bytes", len(data))
	return OutcomeSaved
}

// restyLogger routes resty's own messages to slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...), "component", "resty")
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...), "component", "resty")
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "resty")
}
