// Package fs stores rendered meetings in an Obsidian style vault on disk.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/boydwold/spellar-vault/pkg/core"
	"github.com/boydwold/spellar-vault/pkg/render"
)

// Vault is the directory tree holding notes, transcripts, recordings and
// daily logs.
type Vault struct {
	Root string

	layout render.Layout
	logger *slog.Logger
	retry  RetryPolicy
	index  *noteIndex

	mu            sync.RWMutex
	notesWritten  int
	lastWrite     *time.Time
	watcherActive bool
}

// Option configures a Vault.
type Option func(*Vault)

// WithLogger sets the logger. Nil keeps the discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Vault) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithRetryPolicy sets the policy used for note writes.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(v *Vault) {
		v.retry = p
	}
}

// NewVault creates a vault rooted at root. Nothing touches the disk until
// Initialize or a write.
func NewVault(root string, layout render.Layout, opts ...Option) *Vault {
	v := &Vault{
		Root:   root,
		layout: layout,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		retry:  DefaultRetryPolicy(),
		index:  newNoteIndex(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Layout returns the folder names the vault was built with.
func (v *Vault) Layout() render.Layout {
	return v.layout
}

// Abs maps a vault-relative, slash separated path to the local filesystem.
func (v *Vault) Abs(rel string) string {
	return filepath.Join(v.Root, filepath.FromSlash(rel))
}

// Initialize creates every vault folder that is missing.
func (v *Vault) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, folder := range v.folders() {
		if err := os.MkdirAll(v.Abs(folder), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", folder, err)
		}
	}
	return nil
}

func (v *Vault) folders() []string {
	return []string{
		v.layout.NotesFolder,
		v.layout.TranscriptsFolder,
		v.layout.AttachmentsFolder,
		v.layout.DailyFolder,
	}
}

// WriteNote replaces the note at its path atomically, retrying while the file
// is locked. It returns the absolute path written.
func (v *Vault) WriteNote(ctx context.Context, note render.NoteArtifact) (string, error) {
	target := v.Abs(note.Path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("%w: %s: %v", core.ErrArtifactWrite, note.Path, err)
	}

	err := v.retry.Do(ctx, func() error {
		return writeFileAtomic(target, note.Content, 0o644)
	}, func(err error, wait time.Duration) {
		v.logger.Warn("note locked, retrying", "path", note.Path, "wait", wait, "error", err)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", core.ErrArtifactWrite, note.Path, err)
	}

	now := time.Now()
	v.mu.Lock()
	v.notesWritten++
	v.lastWrite = &now
	v.mu.Unlock()

	v.logger.Debug("note written", "path", note.Path)
	return target, nil
}

// Entry describes one Markdown file found in the vault.
type Entry struct {
	// Path is vault-relative with forward slashes.
	Path    string    `json:"path"`
	Title   string    `json:"title,omitempty"`
	Type    string    `json:"type,omitempty"`
	Date    string    `json:"date,omitempty"`
	ModTime time.Time `json:"mod_time"`
}

// List returns the Markdown files matching a doublestar pattern, sorted by
// path. Front matter fields are filled in when present and parseable.
func (v *Vault) List(ctx context.Context, pattern string) ([]Entry, error) {
	if pattern == "" {
		pattern = "**/*.md"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	if !Exists(v.Root) {
		return nil, nil
	}

	fsys := os.DirFS(v.Root)
	var entries []Entry
	seen := make(map[string]bool)
	err := doublestar.GlobWalk(fsys, pattern, func(p string, d iofs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(path.Ext(p), ".md") || isTemp(p) {
			return nil
		}

		seen[p] = true
		entry := Entry{Path: p}
		if info, err := d.Info(); err == nil {
			entry.ModTime = info.ModTime()
			if cached, ok := v.index.Get(p, entry.ModTime); ok {
				entries = append(entries, cached)
				return nil
			}
		}

		data, err := iofs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		meta, _, err := render.ParseFrontmatter(data)
		if err != nil {
			v.logger.Debug("skipping front matter", "path", p, "error", err)
		} else {
			entry.Title = metaString(meta, "title")
			entry.Type = metaString(meta, "type")
			entry.Date = metaString(meta, "date")
		}
		v.index.Set(entry)
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	if pattern == "**/*.md" {
		v.index.Prune(seen)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func metaString(meta map[string]any, key string) string {
	switch v := meta[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprint(v)
	}
}

func isTemp(p string) bool {
	return strings.HasPrefix(path.Base(filepath.ToSlash(p)), TempFilePrefix)
}
