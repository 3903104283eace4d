package fs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// EventType classifies a change seen in the vault.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// NoteEvent is a change to a file inside one of the vault folders.
type NoteEvent struct {
	Type EventType
	// Path is vault-relative with forward slashes.
	Path string
	Time time.Time
}

func (e NoteEvent) String() string {
	return fmt.Sprintf("%s %s", e.Type, e.Path)
}

// Watch reports changes to files in the vault folders whose relative path
// matches pattern (doublestar syntax, empty for all). The channel is closed
// when ctx is done or the watcher fails.
func (v *Vault) Watch(ctx context.Context, pattern string) (<-chan NoteEvent, error) {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	if err := v.Initialize(ctx); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	for _, folder := range v.folders() {
		if err := watcher.Add(v.Abs(folder)); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", folder, err)
		}
	}

	events := make(chan NoteEvent)
	v.setWatcherActive(true)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(events)
		defer v.setWatcherActive(false)
		defer watcher.Close()
		return v.watchLoop(ctx, watcher, pattern, events)
	}, lifecycle.WithErrorHandler(func(err error) {
		v.logger.Error("watcher stopped", "error", err)
	}))

	return events, nil
}

func (v *Vault) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, pattern string, events chan<- NoteEvent) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			// Stacks are logged at debug level only.
			if v.logger.Enabled(ctx, slog.LevelDebug) {
				v.logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			e, keep := v.noteEvent(event, pattern)
			if !keep {
				continue
			}
			select {
			case events <- e:
			case <-ctx.Done():
				return nil
			}

		case wErr, ok := <-watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			v.logger.Error("fsnotify error", "error", wErr)
		}
	}
}

// noteEvent maps an fsnotify event to a NoteEvent, dropping temp files,
// chmod-only changes and paths outside pattern.
func (v *Vault) noteEvent(event fsnotify.Event, pattern string) (NoteEvent, bool) {
	if isTemp(event.Name) {
		return NoteEvent{}, false
	}

	var t EventType
	switch {
	case event.Has(fsnotify.Create):
		t = EventCreate
	case event.Has(fsnotify.Write):
		t = EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		t = EventDelete
	default:
		return NoteEvent{}, false
	}

	rel, err := filepath.Rel(v.Root, event.Name)
	if err != nil {
		v.logger.Debug("event outside vault", "path", event.Name, "error", err)
		return NoteEvent{}, false
	}
	rel = filepath.ToSlash(rel)

	if pattern != "" {
		if ok, _ := doublestar.Match(pattern, rel); !ok {
			return NoteEvent{}, false
		}
	}
	return NoteEvent{Type: t, Path: rel, Time: time.Now()}, true
}
