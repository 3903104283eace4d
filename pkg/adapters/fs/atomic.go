package fs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	// TempFilePrefix marks in-flight writes. Watchers and listings skip them.
	TempFilePrefix = ".spellar-tmp-"
)

// writeFileAtomic writes data to a file atomically by writing to a temp file
// and then renaming it to the target filename.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return writeStreamAtomic(filename, bytes.NewReader(data), perm)
}

// writeStreamAtomic is writeFileAtomic for content that is not in memory yet.
func writeStreamAtomic(filename string, r io.Reader, perm os.FileMode) error {
	dir := filepath.Dir(filename)

	// Same directory, so the rename never crosses devices.
	tmpFile, err := os.CreateTemp(dir, TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name()) // Clean up if we fail before rename

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}

	return nil
}

// WriteStream atomically stores r at filename. Audio downloads use it so a
// partial transfer never appears under the final name.
func WriteStream(filename string, r io.Reader) error {
	return writeStreamAtomic(filename, r, 0o644)
}

// Exists reports whether a file or directory is present at name.
func Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}
