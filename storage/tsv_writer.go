package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"ema-tidy/models"
)

// OutputSuffix is appended to the participant ID to form the output filename.
const OutputSuffix = "_ema.tsv"

// TSVWriter writes one tab-separated file per participant into a directory.
// Each file is written to a temporary name and renamed into place, so
// concurrent writers for different participants never observe partial files.
type TSVWriter struct {
	dir string
}

// NewTSVWriter creates the output directory if needed.
func NewTSVWriter(dir string) (*TSVWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("tsv: create output dir: %w: %w", models.ErrIO, err)
	}
	return &TSVWriter{dir: dir}, nil
}

// OutputPath returns where the table for personID is written.
func (w *TSVWriter) OutputPath(personID string) string {
	return filepath.Join(w.dir, personID+OutputSuffix)
}

// Write stores the table with a header row and no index column, returning
// the final path.
func (w *TSVWriter) Write(_ context.Context, table *models.FullDayTable) (string, error) {
	dst := w.OutputPath(table.PersonID)

	tmp, err := os.CreateTemp(w.dir, ".tmp_"+table.PersonID+"_*")
	if err != nil {
		return "", fmt.Errorf("tsv: create temp file: %w: %w", models.ErrIO, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	cw := csv.NewWriter(tmp)
	cw.Comma = '\t'

	if err := cw.Write(table.Columns); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("tsv: write header: %w: %w", models.ErrIO, err)
	}
	if err := cw.WriteAll(table.Rows); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("tsv: write rows: %w: %w", models.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("tsv: close %q: %w: %w", tmpName, models.ErrIO, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("tsv: chmod %q: %w: %w", tmpName, models.ErrIO, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return "", fmt.Errorf("tsv: rename to %q: %w: %w", dst, models.ErrIO, err)
	}
	return dst, nil
}

// Close is a no-op; every Write closes its own file.
func (w *TSVWriter) Close() error {
	return nil
}
