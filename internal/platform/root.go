package platform

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/aretw0/notenest/pkg/adapters/fs"
)

// ErrRootNotFound is returned by FindRoot when no store marker exists above
// the start directory.
var ErrRootNotFound = errors.New("store root not found")

// rootMarkers identify a store directory: the fs system directory, the
// SQLite database file or a CLI config file.
var rootMarkers = []string{fs.DefaultSystemDir, SQLiteFile, "notenest.yaml"}

// FindRoot walks upwards from startDir and returns the absolute path of the
// first directory holding a store marker.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		for _, marker := range rootMarkers {
			if hasFile(dir, marker) {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrRootNotFound
		}
		dir = parent
	}
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
