// Package status maps the errors returned by the storage layers to PSA status
// codes, the values a secure storage service reports to its clients.
package status

import (
	"errors"
	"fmt"

	"github.com/dargueta/sstfs"
)

// Status is a PSA status code. Zero means success; failures are negative.
type Status int32

const (
	Success             = Status(0)
	GenericError        = Status(-132)
	NotPermitted        = Status(-133)
	NotSupported        = Status(-134)
	InvalidArgument     = Status(-135)
	DoesNotExist        = Status(-140)
	InsufficientStorage = Status(-142)
	StorageFailure      = Status(-146)
	DataCorrupt         = Status(-152)
)

var namesByStatus = map[Status]string{
	Success:             "PSA_SUCCESS",
	GenericError:        "PSA_ERROR_GENERIC_ERROR",
	NotPermitted:        "PSA_ERROR_NOT_PERMITTED",
	NotSupported:        "PSA_ERROR_NOT_SUPPORTED",
	InvalidArgument:     "PSA_ERROR_INVALID_ARGUMENT",
	DoesNotExist:        "PSA_ERROR_DOES_NOT_EXIST",
	InsufficientStorage: "PSA_ERROR_INSUFFICIENT_STORAGE",
	StorageFailure:      "PSA_ERROR_STORAGE_FAILURE",
	DataCorrupt:         "PSA_ERROR_DATA_CORRUPT",
}

func (s Status) String() string {
	name, ok := namesByStatus[s]
	if ok {
		return name
	}
	return fmt.Sprintf("status %d not recognized", int32(s))
}

// The order matters: a storage failure that's reported while handling corrupt
// data is still a storage failure.
var statusesByError = []struct {
	err    error
	status Status
}{
	{sstfs.ErrStorageFailure, StorageFailure},
	{sstfs.ErrDataCorrupt, DataCorrupt},
	{sstfs.ErrUIDNotFound, DoesNotExist},
	{sstfs.ErrInsufficientSpace, InsufficientStorage},
	{sstfs.ErrNotPermitted, NotPermitted},
	{sstfs.ErrInvalidArgument, InvalidArgument},
	{sstfs.ErrOffsetInvalid, InvalidArgument},
	{sstfs.ErrIncorrectSize, InvalidArgument},
}

// FromError returns the status code a service would report for `err`. Errors
// that don't come from the storage layers map to [GenericError].
func FromError(err error) Status {
	if err == nil {
		return Success
	}
	for _, entry := range statusesByError {
		if errors.Is(err, entry.err) {
			return entry.status
		}
	}
	return GenericError
}
