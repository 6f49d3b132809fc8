package sst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geometryWithProgramUnit(t *testing.T, programUnit uint32) Geometry {
	g, err := NewGeometry(
		Config{
			BlockSize:     1024,
			TotalBlocks:   4,
			ProgramUnit:   programUnit,
			MaxObjectSize: 128,
			MaxNumObjects: 4,
		},
	)
	require.NoError(t, err)
	return g
}

func TestEncodeHeaderLayout(t *testing.T) {
	g := geometryWithProgramUnit(t, 4)
	encoded := g.encodeHeader(
		metadataHeader{ScratchDataBlock: 0x04030201, FSVersion: 1, SwapCount: 7})
	assert.Equal(t, []byte{1, 2, 3, 4, 1, 7, 0, 0}, encoded)

	g = geometryWithProgramUnit(t, 1)
	encoded = g.encodeHeader(metadataHeader{ScratchDataBlock: 2, FSVersion: 1, SwapCount: 0xfe})
	assert.Equal(t, []byte{2, 0, 0, 0, 1, 0xfe}, encoded)
}

func TestEncodeBlockMetaLayout(t *testing.T) {
	g := geometryWithProgramUnit(t, 8)
	encoded := g.encodeBlockMeta(blockMeta{PhysicalID: 3, DataStart: 0x100, FreeSize: 0x20})
	assert.Equal(
		t,
		[]byte{3, 0, 0, 0, 0, 1, 0, 0, 0x20, 0, 0, 0, 0, 0, 0, 0},
		encoded)
}

func TestEncodeFileMetaLayout(t *testing.T) {
	g := geometryWithProgramUnit(t, 16)
	meta := fileMeta{
		LogicalBlock: 1,
		DataOffset:   0x40,
		CurrentSize:  0x10,
		MaxSize:      0x30,
		ID:           0xdeadbeef,
	}
	encoded := g.encodeFileMeta(meta)
	require.Len(t, encoded, 32)
	assert.Equal(
		t,
		[]byte{
			1, 0, 0, 0,
			0x40, 0, 0, 0,
			0x10, 0, 0, 0,
			0x30, 0, 0, 0,
			0xef, 0xbe, 0xad, 0xde,
		},
		encoded[:20])
	assert.Equal(t, make([]byte, 12), encoded[20:], "padding must be zeroed")

	decoded, err := decodeFileMeta(encoded)
	require.NoError(t, err)
	assert.Equal(t, meta, decoded)
}

func TestDecodeErasedHeader(t *testing.T) {
	header, err := decodeHeader([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	require.NoError(t, err)
	assert.False(t, header.isValid())
	assert.EqualValues(t, 0xffffffff, header.ScratchDataBlock)
}

func TestDecodeTruncated(t *testing.T) {
	_, err := decodeBlockMeta([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestEncodePaddedPanicsWhenTooSmall(t *testing.T) {
	assert.Panics(t, func() { encodePadded(fileMeta{ID: 1}, 4) })
}
