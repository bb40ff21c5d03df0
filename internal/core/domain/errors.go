package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrEmptyPointSet is returned when geometry is requested for zero points.
	ErrEmptyPointSet = errors.New("empty point set")

	// ErrInvalidProjectCode aborts an import whose rows name another project.
	ErrInvalidProjectCode = errors.New("invalid project code")

	// ErrMissingOrMalformedField aborts an import with a missing or unparsable field.
	ErrMissingOrMalformedField = errors.New("missing or malformed field")

	// ErrImportFailed means the store rejected the bulk write.
	ErrImportFailed = errors.New("import failed")

	// ErrEmptyBatch is returned when a batch with no rows is submitted.
	ErrEmptyBatch = errors.New("empty import batch")

	// ErrImportInProgress is returned when a project already has a batch in flight.
	ErrImportInProgress = errors.New("import already in progress")

	// ErrDuplicateProject is returned when a project code is already taken.
	ErrDuplicateProject = errors.New("project code already exists")

	// ErrNotFound is returned by repositories for missing rows.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedFormat is returned for file types other than csv and xlsx.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// ImportError describes the row that aborted a batch.
type ImportError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *ImportError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s %q: %v", e.Row, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// MarshalJSON renders the failing row for preview responses.
func (e *ImportError) MarshalJSON() ([]byte, error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(struct {
		Row     int    `json:"row,omitempty"`
		Field   string `json:"field"`
		Value   string `json:"value"`
		Message string `json:"message"`
	}{e.Row, e.Field, e.Value, msg})
}
