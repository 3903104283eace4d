// Package pipeline turns extracted webhook fields into vault artifacts and
// runs that work on a bounded pool of background workers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/boydwold/spellar-vault/pkg/adapters/audio"
	"github.com/boydwold/spellar-vault/pkg/adapters/fs"
	"github.com/boydwold/spellar-vault/pkg/core"
	"github.com/boydwold/spellar-vault/pkg/metrics"
	"github.com/boydwold/spellar-vault/pkg/render"
)

// NoteStore persists rendered notes.
type NoteStore interface {
	Initialize(ctx context.Context) error
	WriteNote(ctx context.Context, note render.NoteArtifact) (string, error)
	Abs(rel string) string
}

// DailyMerger appends entries to the per-day log.
type DailyMerger interface {
	Merge(ctx context.Context, date time.Time, entry string) (fs.MergeOutcome, error)
}

// AudioStore places recordings in the vault.
type AudioStore interface {
	Ensure(ctx context.Context, url, target string) audio.Outcome
	Save(target string, data []byte) audio.Outcome
}

// Result records what one meeting produced.
type Result struct {
	TaskID   string
	Stem     string
	Paths    []string
	DailyLog fs.MergeOutcome
	Audio    audio.Outcome
	Err      error
	Duration time.Duration
}

// Processor runs a single meeting through normalize, render, note writes,
// the daily log merge and finally the recording.
type Processor struct {
	normalizer core.Normalizer
	renderer   render.Renderer
	notes      NoteStore
	daily      DailyMerger
	audio      AudioStore
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics enables metric collection.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// WithNormalizer replaces the default normalizer (local zone, wall clock).
func WithNormalizer(n core.Normalizer) Option {
	return func(p *Processor) {
		p.normalizer = n
	}
}

// WithAudio sets where recordings go. Without it recordings are ignored.
func WithAudio(a AudioStore) Option {
	return func(p *Processor) {
		p.audio = a
	}
}

// NewProcessor wires a processor over the given stores.
func NewProcessor(renderer render.Renderer, notes NoteStore, daily DailyMerger, opts ...Option) *Processor {
	p := &Processor{
		normalizer: core.Normalizer{Now: time.Now, Location: time.Local},
		renderer:   renderer,
		notes:      notes,
		daily:      daily,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process handles one meeting. Only a failed note write is an error: the
// daily log and the recording are best effort once the notes exist.
func (p *Processor) Process(ctx context.Context, fields core.Fields) (Result, error) {
	m := p.normalizer.Normalize(fields)
	res := Result{Stem: m.Stem(), DailyLog: fs.MergeDropped, Audio: audio.OutcomeNone}
	logger := p.logger.With("stem", res.Stem)

	rendered, err := p.renderer.Render(m)
	if err != nil {
		return res, err
	}

	if err := p.notes.Initialize(ctx); err != nil {
		return res, fmt.Errorf("%w: %w", core.ErrArtifactWrite, err)
	}

	for _, note := range []render.NoteArtifact{rendered.Summary, rendered.Transcript} {
		path, err := p.notes.WriteNote(ctx, note)
		if err != nil {
			return res, err
		}
		p.metrics.NoteWritten()
		res.Paths = append(res.Paths, path)
		logger.Info("saved note", "path", path)
	}

	outcome, err := p.daily.Merge(ctx, m.OccurredAt, rendered.DailyEntry)
	res.DailyLog = outcome
	p.metrics.DailyLog(string(outcome))
	switch {
	case errors.Is(err, core.ErrDailyLogLocked):
		// Already logged by the merger.
	case err != nil:
		logger.Warn("daily log not updated", "error", err)
	default:
		logger.Info("updated daily log", "outcome", outcome)
	}

	if rendered.Audio != nil && p.audio != nil {
		res.Audio = p.storeAudio(ctx, rendered.Audio)
		p.metrics.Audio(string(res.Audio))
	}

	return res, nil
}

// storeAudio prefers the remote recording, whose URL named the file, and
// falls back to an uploaded one.
func (p *Processor) storeAudio(ctx context.Context, ref *render.AudioRef) audio.Outcome {
	target := p.notes.Abs(ref.Path)
	if ref.URL != "" {
		return p.audio.Ensure(ctx, ref.URL, target)
	}
	if ref.Upload != nil {
		return p.audio.Save(target, ref.Upload.Data)
	}
	return audio.OutcomeNone
}
