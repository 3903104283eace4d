package fs

import (
	"sync"
	"time"
)

// noteIndex remembers the front matter of listed notes so repeated List
// calls only re-read files whose modification time changed.
type noteIndex struct {
	mu      sync.RWMutex
	entries map[string]Entry // Key is the vault-relative path
}

func newNoteIndex() *noteIndex {
	return &noteIndex{entries: make(map[string]Entry)}
}

// Get retrieves an entry if it exists and is fresh.
func (c *noteIndex) Get(relPath string, mtime time.Time) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[relPath]
	if !ok || !entry.ModTime.Equal(mtime) {
		return Entry{}, false
	}
	return entry, true
}

// Set records an entry under its path.
func (c *noteIndex) Set(entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Path] = entry
}

// Prune removes entries that are not in the 'keep' set.
func (c *noteIndex) Prune(keep map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for p := range c.entries {
		if !keep[p] {
			delete(c.entries, p)
		}
	}
}

// Len returns the number of indexed notes.
func (c *noteIndex) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
