package flash

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dargueta/sstfs"
	c "github.com/dargueta/sstfs/file_systems/common"
)

var _ sstfs.FlashDevice = (*StreamDevice)(nil)

// StreamDevice keeps a flash image in a seekable stream, e.g. an image file on
// the host.
//
// Unlike [MemoryDevice] it doesn't emulate NOR programming; a write simply
// replaces the bytes in the stream.
type StreamDevice struct {
	// BytesPerBlock gives the size of an erasable block, in bytes.
	BytesPerBlock uint32
	// TotalBlocks is the total number of blocks in this stream.
	TotalBlocks uint32
	// StartOffset is an offset from the beginning of the stream, in bytes, that
	// will be considered the beginning of block 0 for the device. This is useful
	// when the flash area is embedded in a larger firmware image.
	StartOffset int64
	stream      io.ReadWriteSeeker
	blankBlock  []byte
}

func NewStreamDevice(
	stream io.ReadWriteSeeker, bytesPerBlock, totalBlocks uint32, startOffset int64,
) *StreamDevice {
	return &StreamDevice{
		BytesPerBlock: bytesPerBlock,
		TotalBlocks:   totalBlocks,
		StartOffset:   startOffset,
		stream:        stream,
		blankBlock:    bytes.Repeat([]byte{c.FlashErasedValue}, int(bytesPerBlock)),
	}
}

// FormatStream writes `totalBlocks` erased blocks to the stream, starting at
// its current position. Use it to create a new image file.
func FormatStream(stream io.Writer, bytesPerBlock, totalBlocks uint32) error {
	blankBlock := bytes.Repeat([]byte{c.FlashErasedValue}, int(bytesPerBlock))
	for i := uint32(0); i < totalBlocks; i++ {
		_, err := stream.Write(blankBlock)
		if err != nil {
			return fmt.Errorf("failed to write erased block %d: %w", i, err)
		}
	}
	return nil
}

// seekTo positions the stream pointer at `offset` bytes into `block`, after
// checking that `length` bytes from there stay inside the block.
func (device *StreamDevice) seekTo(block c.PhysicalBlock, offset uint32, length int) error {
	if uint32(block) >= device.TotalBlocks {
		return fmt.Errorf(
			"invalid block ID %d: not in range [0, %d)", block, device.TotalBlocks)
	}
	if uint64(offset)+uint64(length) > uint64(device.BytesPerBlock) {
		return fmt.Errorf(
			"%d bytes at offset %d extends past the end of a %d-byte block",
			length,
			offset,
			device.BytesPerBlock)
	}

	position := device.StartOffset +
		int64(block)*int64(device.BytesPerBlock) +
		int64(offset)
	_, err := device.stream.Seek(position, io.SeekStart)
	return err
}

func (device *StreamDevice) Init() error {
	end, err := device.stream.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}

	required := device.StartOffset + int64(device.TotalBlocks)*int64(device.BytesPerBlock)
	if end < required {
		return fmt.Errorf(
			"stream is too small: need %d bytes for %d blocks of %d B, got %d",
			required,
			device.TotalBlocks,
			device.BytesPerBlock,
			end)
	}
	return nil
}

func (device *StreamDevice) Read(block c.PhysicalBlock, offset uint32, buffer []byte) error {
	err := device.seekTo(block, offset, len(buffer))
	if err != nil {
		return err
	}
	_, err = io.ReadFull(device.stream, buffer)
	return err
}

func (device *StreamDevice) Write(block c.PhysicalBlock, offset uint32, data []byte) error {
	err := device.seekTo(block, offset, len(data))
	if err != nil {
		return err
	}
	_, err = device.stream.Write(data)
	return err
}

func (device *StreamDevice) Erase(block c.PhysicalBlock) error {
	err := device.seekTo(block, 0, len(device.blankBlock))
	if err != nil {
		return err
	}
	_, err = device.stream.Write(device.blankBlock)
	return err
}
