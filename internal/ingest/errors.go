package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingVideoID is returned when the request carries no video id
	ErrMissingVideoID = errors.New("missing video id")

	// ErrMissingFile is returned when the request carries no file
	ErrMissingFile = errors.New("missing file")

	// ErrVideoNotFound is returned when the video does not exist or does
	// not belong to the caller. The two cases are indistinguishable on
	// purpose.
	ErrVideoNotFound = errors.New("video not found")
)

// StorageError wraps a failure to persist the uploaded file. It is the only
// fatal error past validation: the video record is left retryable and the
// caller gets a server error.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure: %v", e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
