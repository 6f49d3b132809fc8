package objects

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dargueta/sstfs"
	"golang.org/x/crypto/hkdf"
)

const (
	nonceSize = 12
	// RecordHeaderSize is the size of the framing in front of the sealed bytes
	// of every record: the nonce followed by the length of the sealed data.
	RecordHeaderSize = nonceSize + 4
	// MinRootKeySize is the smallest root key NewAEADSealer accepts.
	MinRootKeySize = 16
)

var objectKeyLabel = []byte("sstfs object key")

// Sealer turns object contents into records that can be stored in a file, and
// back again. `associatedData` is bound to the record without being stored in
// it; opening a record with different associated data fails.
//
// Records may be followed by padding; Open ignores anything past the end of the
// sealed data.
type Sealer interface {
	// Overhead gives the number of bytes a record adds to its plaintext.
	Overhead() int
	Seal(associatedData, plaintext []byte) ([]byte, error)
	Open(associatedData, record []byte) ([]byte, error)
}

// splitRecord breaks a record into its nonce and sealed data.
func splitRecord(record []byte) ([]byte, []byte, error) {
	if len(record) < RecordHeaderSize {
		return nil, nil, sstfs.ErrDataCorrupt.WithMessage(
			fmt.Sprintf("record is %d bytes, too short for its header", len(record)))
	}

	nonce := record[:nonceSize]
	sealedSize := binary.LittleEndian.Uint32(record[nonceSize:RecordHeaderSize])
	body := record[RecordHeaderSize:]
	if uint64(sealedSize) > uint64(len(body)) {
		return nil, nil, sstfs.ErrDataCorrupt.WithMessage(
			fmt.Sprintf(
				"record claims %d sealed bytes, only %d are present",
				sealedSize,
				len(body)))
	}
	return nonce, body[:sealedSize], nil
}

func buildRecord(nonce, sealed []byte) []byte {
	record := make([]byte, RecordHeaderSize, RecordHeaderSize+len(sealed))
	copy(record, nonce)
	binary.LittleEndian.PutUint32(record[nonceSize:], uint32(len(sealed)))
	return append(record, sealed...)
}

////////////////////////////////////////////////////////////////////////////////

// PlainSealer stores data as-is, using the same record framing as the AEAD
// sealer but with an all-zero nonce.
type PlainSealer struct{}

func (PlainSealer) Overhead() int {
	return RecordHeaderSize
}

func (PlainSealer) Seal(associatedData, plaintext []byte) ([]byte, error) {
	return buildRecord(make([]byte, nonceSize), plaintext), nil
}

func (PlainSealer) Open(associatedData, record []byte) ([]byte, error) {
	nonce, sealed, err := splitRecord(record)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(nonce, make([]byte, nonceSize)) {
		return nil, sstfs.ErrDataCorrupt.WithMessage("unencrypted record has a nonce")
	}
	return append([]byte(nil), sealed...), nil
}

////////////////////////////////////////////////////////////////////////////////

// AEADSealer encrypts and authenticates records with AES-256-GCM. Every record
// gets a fresh random nonce.
type AEADSealer struct {
	aead cipher.AEAD
	// Random is the source of nonces. It defaults to [crypto/rand.Reader].
	Random io.Reader
}

// NewAEADSealer derives the object encryption key from `rootKey` with
// HKDF-SHA256. The same root key always gives the same object key, so records
// sealed by one instance can be opened by another.
func NewAEADSealer(rootKey []byte) (*AEADSealer, error) {
	if len(rootKey) < MinRootKeySize {
		return nil, sstfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"root key must be at least %d bytes, got %d",
				MinRootKeySize,
				len(rootKey)))
	}

	key := make([]byte, 32)
	_, err := io.ReadFull(hkdf.New(sha256.New, rootKey, nil, objectKeyLabel), key)
	if err != nil {
		return nil, sstfs.ErrOperationFailed.Wrap(err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, sstfs.ErrOperationFailed.Wrap(err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, sstfs.ErrOperationFailed.Wrap(err)
	}
	return &AEADSealer{aead: aead, Random: rand.Reader}, nil
}

func (sealer *AEADSealer) Overhead() int {
	return RecordHeaderSize + sealer.aead.Overhead()
}

func (sealer *AEADSealer) Seal(associatedData, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	_, err := io.ReadFull(sealer.Random, nonce)
	if err != nil {
		return nil, sstfs.ErrOperationFailed.Wrap(err)
	}

	sealed := sealer.aead.Seal(nil, nonce, plaintext, associatedData)
	return buildRecord(nonce, sealed), nil
}

func (sealer *AEADSealer) Open(associatedData, record []byte) ([]byte, error) {
	nonce, sealed, err := splitRecord(record)
	if err != nil {
		return nil, err
	}

	plaintext, err := sealer.aead.Open(nil, nonce, sealed, associatedData)
	if err != nil {
		return nil, sstfs.ErrDataCorrupt.Wrap(err)
	}
	return plaintext, nil
}
