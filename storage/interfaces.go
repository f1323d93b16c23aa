package storage

import (
	"context"

	"ema-tidy/models"
)

// TableWriter is the interface any output backend must satisfy.
type TableWriter interface {
	Write(ctx context.Context, table *models.FullDayTable) (string, error)
	Close() error
}

// RawReader loads a raw export, skipping headerRows leading lines.
type RawReader interface {
	Read(path string, headerRows int) (*models.RawExportTable, error)
}

// FileLister enumerates candidate input files in a directory.
type FileLister interface {
	List(dir string) ([]string, error)
}
