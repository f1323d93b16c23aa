package storage

import (
	"fmt"
	"os"

	"ema-tidy/models"
)

// DirLister lists regular files directly inside a directory.
type DirLister struct{}

// List returns the names of the non-directory entries in dir, in the order
// the filesystem reports them.
func (DirLister) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w: %w", dir, models.ErrIO, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
