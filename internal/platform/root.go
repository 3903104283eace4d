package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindVault looks upwards from startDir for an Obsidian vault, i.e. a
// directory holding `.obsidian`, and returns its absolute path.
func FindVault(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if isDir(filepath.Join(dir, ".obsidian")) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("no obsidian vault above %s", abs)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
