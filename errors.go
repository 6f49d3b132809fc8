package sstfs

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// DriverError is the error type returned by every layer of the file system.
// Callers should compare against the sentinel values below with [errors.Is];
// messages and wrapped causes are added along the way but never hide the
// sentinel.
type DriverError interface {
	error
	WithMessage(message string) DriverError
	Wrap(err error) DriverError
}

type baseSSTError string

const rootError = baseSSTError("")

// ErrStorageFailure means the flash device failed a read, write, or erase. The
// operation in progress was abandoned; nothing is retried.
var ErrStorageFailure = rootError.WithMessage("Storage failure")
var ErrUIDNotFound = rootError.WithMessage("UID not found")
var ErrInvalidArgument = rootError.WithMessage("Invalid argument")
var ErrInsufficientSpace = rootError.WithMessage("Insufficient space")
var ErrOffsetInvalid = rootError.WithMessage("Offset invalid")
var ErrIncorrectSize = rootError.WithMessage("Incorrect size")

// ErrDataCorrupt is returned when metadata or an object read back from flash
// holds values that can't have been written by this implementation.
var ErrDataCorrupt = rootError.WithMessage("Data corrupt")
var ErrOperationFailed = rootError.WithMessage("Operation failed")
var ErrNotPermitted = rootError.WithMessage("Operation not permitted")

func (e baseSSTError) Error() string {
	return string(e)
}

func (e baseSSTError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       message,
		originalError: e,
	}
}

func (e baseSSTError) Wrap(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// -----------------------------------------------------------------------------

type customDriverError struct {
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e customDriverError) Error() string {
	return e.message
}

func (e customDriverError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e,
	}
}

func (e customDriverError) Wrap(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

func (e customDriverError) Unwrap() error {
	return e.originalError
}
