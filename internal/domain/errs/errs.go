package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for the media core. Callers match with errors.Is.
var (
	// ErrInvalidInput covers missing or corrupt videos and out-of-range
	// parameters rejected at acceptance time.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when the source file is absent.
	ErrNotFound = errors.New("file not found")

	// ErrUnparseableMetadata is returned when no duration line can be
	// located in the media tool's diagnostic output.
	ErrUnparseableMetadata = errors.New("unparseable media metadata")
)

// ExternalToolError reports a non-zero exit or missing expected output from
// an invoked external process. Output holds the tail of the tool's
// diagnostic stream.
type ExternalToolError struct {
	Tool   string
	Path   string
	Output string
	Err    error
}

func (e *ExternalToolError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s failed for %s: %v: %s", e.Tool, e.Path, e.Err, e.Output)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Tool, e.Path, e.Err)
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// CollaboratorError propagates a failure from the extraction, selection or
// compression collaborator without retrying or masking it.
type CollaboratorError struct {
	Collaborator string
	Path         string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s collaborator failed for %s: %v", e.Collaborator, e.Path, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
