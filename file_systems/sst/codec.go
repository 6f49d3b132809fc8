package sst

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dargueta/sstfs"
	c "github.com/dargueta/sstfs/file_systems/common"
	"github.com/noxer/bytewriter"
)

// metadataHeader is stored at the beginning of each metadata block. SwapCount
// must stay the last field so that it's programmed last.
type metadataHeader struct {
	ScratchDataBlock c.PhysicalBlock
	FSVersion        uint8
	SwapCount        uint8
}

// blockMeta describes one logical data block.
type blockMeta struct {
	PhysicalID c.PhysicalBlock
	DataStart  uint32
	FreeSize   uint32
}

// fileMeta is one entry in the file table. An ID of 0 marks a free entry.
type fileMeta struct {
	LogicalBlock c.LogicalBlock
	DataOffset   uint32
	CurrentSize  uint32
	MaxSize      uint32
	ID           sstfs.FileID
}

func (meta fileMeta) inUse() bool {
	return meta.ID != sstfs.InvalidFileID
}

func (meta fileMeta) info() sstfs.FileInfo {
	return sstfs.FileInfo{
		ID:           meta.ID,
		CurrentSize:  meta.CurrentSize,
		MaxSize:      meta.MaxSize,
		LogicalBlock: meta.LogicalBlock,
	}
}

// encodePadded serializes `value` in little-endian byte order into a buffer of
// `size` bytes. Bytes past the end of the structure are left zeroed.
func encodePadded(value any, size uint32) []byte {
	buffer := make([]byte, size)
	writer := bytewriter.New(buffer)
	err := binary.Write(writer, binary.LittleEndian, value)
	if err != nil {
		panic(fmt.Errorf("can't encode %T into %d bytes: %w", value, size, err))
	}
	return buffer
}

func decodeInto(data []byte, value any) error {
	return binary.Read(bytes.NewReader(data), binary.LittleEndian, value)
}

func (g *Geometry) encodeHeader(header metadataHeader) []byte {
	return encodePadded(&header, g.HeaderSize)
}

func (g *Geometry) encodeBlockMeta(meta blockMeta) []byte {
	return encodePadded(&meta, g.BlockMetaSize)
}

func (g *Geometry) encodeFileMeta(meta fileMeta) []byte {
	return encodePadded(&meta, g.FileMetaSize)
}

func decodeHeader(data []byte) (metadataHeader, error) {
	var header metadataHeader
	err := decodeInto(data, &header)
	return header, err
}

func decodeBlockMeta(data []byte) (blockMeta, error) {
	var meta blockMeta
	err := decodeInto(data, &meta)
	return meta, err
}

func decodeFileMeta(data []byte) (fileMeta, error) {
	var meta fileMeta
	err := decodeInto(data, &meta)
	return meta, err
}
