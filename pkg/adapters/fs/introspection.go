package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// VaultState exposes internal state for observability.
type VaultState struct {
	Root          string     `json:"root"`
	Folders       []string   `json:"folders"`
	NotesWritten  int        `json:"notes_written"`
	LastWrite     *time.Time `json:"last_write,omitempty"`
	WatcherActive bool       `json:"watcher_active"`
	IndexedNotes  int        `json:"indexed_notes"`
}

// State implements introspection.Introspectable.
func (v *Vault) State() any {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return VaultState{
		Root:          v.Root,
		Folders:       v.folders(),
		NotesWritten:  v.notesWritten,
		LastWrite:     v.lastWrite,
		WatcherActive: v.watcherActive,
		IndexedNotes:  v.index.Len(),
	}
}

// ComponentType implements introspection.Component.
func (v *Vault) ComponentType() string {
	return "vault"
}

var _ introspection.Introspectable = (*Vault)(nil)
var _ introspection.Component = (*Vault)(nil)

func (v *Vault) setWatcherActive(active bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.watcherActive = active
}
