package status

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dargueta/sstfs"
	"github.com/stretchr/testify/assert"
)

func TestFromError(t *testing.T) {
	testCases := []struct {
		err      error
		expected Status
	}{
		{nil, Success},
		{sstfs.ErrUIDNotFound, DoesNotExist},
		{sstfs.ErrUIDNotFound.WithMessage("file 3"), DoesNotExist},
		{fmt.Errorf("wrapped: %w", sstfs.ErrInsufficientSpace), InsufficientStorage},
		{sstfs.ErrOffsetInvalid, InvalidArgument},
		{sstfs.ErrIncorrectSize, InvalidArgument},
		{sstfs.ErrNotPermitted, NotPermitted},
		{sstfs.ErrOperationFailed, GenericError},
		{errors.New("something else"), GenericError},
		{sstfs.ErrDataCorrupt.Wrap(sstfs.ErrStorageFailure), StorageFailure},
	}

	for _, testCase := range testCases {
		assert.Equalf(
			t, testCase.expected, FromError(testCase.err), "wrong status for %v", testCase.err)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "PSA_ERROR_DATA_CORRUPT", DataCorrupt.String())
	assert.Equal(t, "PSA_SUCCESS", Success.String())
	assert.Equal(t, "status -1 not recognized", Status(-1).String())
}
