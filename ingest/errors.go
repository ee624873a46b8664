package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned when no reader is registered for
	// the file's extension.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyInput is returned when the extracted text is blank after
	// stripping whitespace.
	ErrEmptyInput = errors.New("uploaded file is empty")

	// ErrModelUnavailable is returned when no embedding backend is
	// provisioned.
	ErrModelUnavailable = errors.New("embedding model is not available")
)

// UpstreamError wraps a failure of the external vector store. Op is
// either "search" or "insert".
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("vector store %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
