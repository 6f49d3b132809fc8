package objects

import (
	"bytes"
	"testing"

	"github.com/dargueta/sstfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRootKey = []byte("0123456789abcdef0123456789abcdef")

func newTestSealer(t *testing.T) *AEADSealer {
	sealer, err := NewAEADSealer(testRootKey)
	require.NoError(t, err)
	return sealer
}

func TestAEADSealerRoundTrip(t *testing.T) {
	sealer := newTestSealer(t)
	plaintext := []byte("attestation key material")
	aad := []byte{1, 0, 0, 0}

	record, err := sealer.Seal(aad, plaintext)
	require.NoError(t, err)
	assert.Len(t, record, len(plaintext)+sealer.Overhead())
	assert.False(t, bytes.Contains(record, plaintext), "plaintext leaked into the record")

	// Trailing padding is ignored.
	padded := append(append([]byte(nil), record...), 0, 0, 0)
	opened, err := sealer.Open(aad, padded)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestAEADSealerKeyIsDeterministic(t *testing.T) {
	record, err := newTestSealer(t).Seal(nil, []byte("data"))
	require.NoError(t, err)

	opened, err := newTestSealer(t).Open(nil, record)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), opened)

	otherKey := append([]byte(nil), testRootKey...)
	otherKey[0] ^= 1
	other, err := NewAEADSealer(otherKey)
	require.NoError(t, err)
	_, err = other.Open(nil, record)
	assert.ErrorIs(t, err, sstfs.ErrDataCorrupt)
}

func TestAEADSealerNoncesDiffer(t *testing.T) {
	sealer := newTestSealer(t)
	first, err := sealer.Seal(nil, []byte("same"))
	require.NoError(t, err)
	second, err := sealer.Seal(nil, []byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestAEADSealerDetectsTampering(t *testing.T) {
	sealer := newTestSealer(t)
	aad := []byte{7, 0, 0, 0}
	record, err := sealer.Seal(aad, []byte("secret value"))
	require.NoError(t, err)

	for _, position := range []int{0, RecordHeaderSize, len(record) - 1} {
		tampered := append([]byte(nil), record...)
		tampered[position] ^= 0x80
		_, err = sealer.Open(aad, tampered)
		assert.ErrorIsf(t, err, sstfs.ErrDataCorrupt, "flipped byte %d", position)
	}

	_, err = sealer.Open([]byte{8, 0, 0, 0}, record)
	assert.ErrorIs(t, err, sstfs.ErrDataCorrupt, "record moved to another object")

	_, err = sealer.Open(aad, record[:len(record)-1])
	assert.ErrorIs(t, err, sstfs.ErrDataCorrupt, "truncated record")

	_, err = sealer.Open(aad, record[:RecordHeaderSize-1])
	assert.ErrorIs(t, err, sstfs.ErrDataCorrupt, "truncated header")
}

func TestNewAEADSealerShortKey(t *testing.T) {
	_, err := NewAEADSealer(make([]byte, MinRootKeySize-1))
	assert.ErrorIs(t, err, sstfs.ErrInvalidArgument)
}

func TestPlainSealer(t *testing.T) {
	sealer := PlainSealer{}
	record, err := sealer.Seal(nil, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, RecordHeaderSize+5, len(record))
	assert.Equal(t, []byte{5, 0, 0, 0}, record[12:16])

	opened, err := sealer.Open(nil, record)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), opened)

	record[3] = 1
	_, err = sealer.Open(nil, record)
	assert.ErrorIs(t, err, sstfs.ErrDataCorrupt)
}
