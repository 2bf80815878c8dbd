package core

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned by Align when a table has no content after trimming.
	ErrEmptyInput = errors.New("empty file: one or both tables have no content")

	// ErrEmptyResult is returned by WriteCSV when there are no records to serialize.
	ErrEmptyResult = errors.New("empty result: no data rows could be matched")
)

// WorkerError reports that an alignment goroutine terminated without
// delivering an outcome. It signals an unexpected fault rather than bad input.
type WorkerError struct {
	JobID string
	Cause any
}

func (e *WorkerError) Error() string {
	if e.JobID == "" {
		return fmt.Sprintf("worker failure: %v", e.Cause)
	}
	return fmt.Sprintf("worker failure (job %s): %v", e.JobID, e.Cause)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *WorkerError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

// IsWorkerFailure reports whether err is or wraps a *WorkerError.
func IsWorkerFailure(err error) bool {
	var we *WorkerError
	return errors.As(err, &we)
}

// IsBadInput reports whether err describes unusable input rather than a fault.
func IsBadInput(err error) bool {
	return errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrEmptyResult)
}
