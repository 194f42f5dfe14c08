package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrRawDataLayout is returned when the raw data directory does not hold exactly one source file.
	ErrRawDataLayout = errors.New("raw data directory must contain exactly one file")
	// ErrMissingColumn is returned when the stratification source column is absent.
	ErrMissingColumn = errors.New("stratification source column missing")
)

// Error is the single error kind returned by every DataIngestion step.
// Op names the step that failed; Cause is the underlying failure.
type Error struct {
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("data ingestion %s failed: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("data ingestion %s failed: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Step names used in Error.Op.
const (
	OpConfigure = "configure"
	OpDownload  = "download"
	OpExtract   = "extract"
	OpSplit     = "split"
)

func wrap(op, message string, cause error) error {
	var ingErr *Error
	if errors.As(cause, &ingErr) && ingErr.Op == op {
		return cause
	}
	return &Error{Op: op, Message: message, Cause: cause}
}
