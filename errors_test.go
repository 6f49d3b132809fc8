package sstfs_test

import (
	"errors"
	"testing"

	"github.com/dargueta/sstfs"
	"github.com/stretchr/testify/assert"
)

func TestSSTErrorWithMessage(t *testing.T) {
	newErr := sstfs.ErrInvalidArgument.WithMessage("asdfqwerty")
	assert.Equal(
		t, "Invalid argument: asdfqwerty", newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, sstfs.ErrInvalidArgument)
	assert.NotErrorIs(t, newErr, sstfs.ErrDataCorrupt)
}

func TestSSTErrorWrap(t *testing.T) {
	originalErr := errors.New("bus fault")
	newErr := sstfs.ErrStorageFailure.Wrap(originalErr)
	expectedMessage := "Storage failure: bus fault"

	assert.EqualValues(t, expectedMessage, newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, originalErr, "original error not set as parent")
	assert.ErrorIs(t, newErr, sstfs.ErrStorageFailure, "sentinel not set as parent")
}

func TestSSTErrorChainedMessages(t *testing.T) {
	newErr := sstfs.ErrUIDNotFound.WithMessage("file 7").WithMessage("while reading")
	assert.Equal(t, "UID not found: file 7: while reading", newErr.Error())
	assert.ErrorIs(t, newErr, sstfs.ErrUIDNotFound)
}
