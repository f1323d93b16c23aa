package models

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCounterpart means the evening file implied by a daily filename does not exist.
	ErrMissingCounterpart = errors.New("missing counterpart file")
	// ErrSchemaMismatch means a raw file does not decompose into the expected column and row-group structure.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrIO covers read and write failures.
	ErrIO = errors.New("io error")
	// ErrInvalidFilename means no participant ID can be derived from a filename.
	ErrInvalidFilename = errors.New("invalid filename")
	// ErrDuplicateParticipant means two daily files map to the same participant ID.
	ErrDuplicateParticipant = errors.New("duplicate participant")
)

// ParticipantError records which participant and pipeline stage failed.
type ParticipantError struct {
	PersonID string
	File     string
	Stage    string
	Err      error
}

func (e *ParticipantError) Error() string {
	return fmt.Sprintf("participant %s (%s): %s: %v", e.PersonID, e.File, e.Stage, e.Err)
}

func (e *ParticipantError) Unwrap() error {
	return e.Err
}

// Kind names the sentinel category of err, for reports.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCounterpart):
		return "missing_counterpart"
	case errors.Is(err, ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, ErrInvalidFilename):
		return "invalid_filename"
	case errors.Is(err, ErrDuplicateParticipant):
		return "duplicate_participant"
	case errors.Is(err, ErrIO):
		return "io"
	default:
		return "other"
	}
}
