package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boydwold/spellar-vault/pkg/adapters/fs"
	"github.com/boydwold/spellar-vault/pkg/core"
	"github.com/boydwold/spellar-vault/pkg/render"
)

var layout = render.Layout{
	NotesFolder:       "Meeting Notes",
	TranscriptsFolder: "Meeting Transcripts",
	AttachmentsFolder: "attachments/spellar",
	DailyFolder:       "Daily Notes",
}

func weeklySync() core.MeetingPayload {
	return core.MeetingPayload{
		Title:           "Weekly Sync",
		OccurredAt:      time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
		DurationSeconds: 1800,
		Summary:         core.SummaryBlock{Brief: "Team agreed to ship."},
	}
}

// setupVault creates a vault in a fresh temp dir without initializing it.
func setupVault(t *testing.T, opts ...fs.Option) (*fs.Vault, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "vault")
	return fs.NewVault(root, layout, opts...), root
}

func TestVault_Initialize(t *testing.T) {
	v, root := setupVault(t)
	require.NoError(t, v.Initialize(context.Background()))

	for _, dir := range []string{"Meeting Notes", "Meeting Transcripts", "attachments/spellar", "Daily Notes"} {
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(dir)))
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}

	// Idempotent.
	require.NoError(t, v.Initialize(context.Background()))
}

func TestVault_WriteNote(t *testing.T) {
	v, root := setupVault(t)
	ctx := context.Background()

	abs, err := v.WriteNote(ctx, render.NoteArtifact{Path: "Meeting Notes/2024-03-01 Sync.md", Content: []byte("first")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Meeting Notes", "2024-03-01 Sync.md"), abs)

	// Same stem: last write wins.
	_, err = v.WriteNote(ctx, render.NoteArtifact{Path: "Meeting Notes/2024-03-01 Sync.md", Content: []byte("second")})
	require.NoError(t, err)

	got, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	state := v.State().(fs.VaultState)
	assert.Equal(t, 2, state.NotesWritten)
	assert.NotNil(t, state.LastWrite)
	assert.Equal(t, "vault", v.ComponentType())
}

func TestVault_List(t *testing.T) {
	v, root := setupVault(t)
	ctx := context.Background()
	require.NoError(t, v.Initialize(ctx))

	m := weeklySync()
	out, err := render.Renderer{Layout: layout}.Render(m)
	require.NoError(t, err)
	_, err = v.WriteNote(ctx, out.Summary)
	require.NoError(t, err)
	_, err = v.WriteNote(ctx, out.Transcript)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "Daily Notes", "scratch.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Daily Notes", "broken.md"), []byte("---\nunclosed"), 0o644))

	entries, err := v.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "Daily Notes/broken.md", entries[0].Path)
	assert.Empty(t, entries[0].Title)

	assert.Equal(t, "Meeting Notes/2024-03-01 Weekly Sync.md", entries[1].Path)
	assert.Equal(t, "Weekly Sync", entries[1].Title)
	assert.Equal(t, "meeting-note", entries[1].Type)
	assert.Equal(t, "2024-03-01", entries[1].Date)

	assert.Equal(t, "meeting-transcript", entries[2].Type)

	notes, err := v.List(ctx, "Meeting Notes/*.md")
	require.NoError(t, err)
	require.Len(t, notes, 1)

	_, err = v.List(ctx, "[")
	assert.Error(t, err)
}

func TestVault_ListMissingRoot(t *testing.T) {
	v, _ := setupVault(t)
	entries, err := v.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestVault_Watch(t *testing.T) {
	v, root := setupVault(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := v.Watch(ctx, "Meeting Notes/*.md")
	require.NoError(t, err)

	_, err = v.WriteNote(ctx, render.NoteArtifact{Path: "Daily Notes/ignored.md", Content: []byte("x")})
	require.NoError(t, err)
	_, err = v.WriteNote(ctx, render.NoteArtifact{Path: "Meeting Notes/2024-03-01 Sync.md", Content: []byte("x")})
	require.NoError(t, err)

	select {
	case e := <-events:
		assert.Equal(t, "Meeting Notes/2024-03-01 Sync.md", e.Path)
		assert.Equal(t, fs.EventCreate, e.Type)
	case <-time.After(5 * time.Second):
		t.Fatalf("no event for note written under %s", root)
	}

	cancel()
	for range events {
		// Drain until the watcher closes the channel.
	}
	assert.False(t, v.State().(fs.VaultState).WatcherActive)
}
