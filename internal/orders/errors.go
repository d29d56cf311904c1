package orders

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("order not found")

// ValidationError marks a malformed request payload. The transition is never
// attempted.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// UploadError marks a failed delivered-file upload. The deliver transition is
// aborted before persistence.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return "file upload error: " + e.Err.Error()
	}
	return "file upload error"
}

func (e *UploadError) Unwrap() error { return e.Err }
