// Package archive extracts tar and gzip-compressed tar archives into a directory.
package archive

import "fmt"

// FormatError represents an archive that cannot be opened or is corrupt.
type FormatError struct {
	Path    string
	Message string
	Cause   error
}

func (e *FormatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("archive format error in %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("archive format error in %s: %s", e.Path, e.Message)
}

func (e *FormatError) Unwrap() error {
	return e.Cause
}

// UnsafePathError is returned when a member would be written outside the destination.
type UnsafePathError struct {
	Member string
}

func (e *UnsafePathError) Error() string {
	return fmt.Sprintf("archive member %q escapes the destination directory", e.Member)
}
