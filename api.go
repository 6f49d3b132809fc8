package sstfs

import (
	c "github.com/dargueta/sstfs/file_systems/common"
)

// FlashDevice is the contract between the file system and the physical flash
// part. Block IDs are relative to the start of the area reserved for the file
// system; the device adds whatever base address it needs.
//
// The file system only ever writes at offsets and with lengths that are
// multiples of the configured program unit, and never writes to a region it
// hasn't erased since the last time it was written. Devices do not need to
// retry failed operations; any error returned aborts the operation in
// progress.
type FlashDevice interface {
	// Init prepares the device for use. It's called every time the file system
	// is prepared, so it must be safe to call more than once.
	Init() error
	// Read fills `buffer` with the bytes starting at `offset` inside `block`.
	Read(block c.PhysicalBlock, offset uint32, buffer []byte) error
	// Write programs `data` into `block` starting at `offset`.
	Write(block c.PhysicalBlock, offset uint32, data []byte) error
	// Erase resets every byte of `block` to [c.FlashErasedValue].
	Erase(block c.PhysicalBlock) error
}

// FileID identifies a file in the file system. The caller picks the IDs; the
// file system only guarantees they're unique.
type FileID uint32

// InvalidFileID marks a free entry in the file table. It can't be used to
// create a file.
const InvalidFileID = FileID(0)

// FileInfo describes a file as recorded in the file table.
type FileInfo struct {
	ID FileID `csv:"id"`
	// CurrentSize is the number of bytes written to the file so far, i.e. one
	// past the highest offset ever written.
	CurrentSize uint32 `csv:"size_current"`
	// MaxSize is the amount of space reserved for the file when it was created.
	// It never changes.
	MaxSize uint32 `csv:"size_max"`
	// LogicalBlock is the logical data block the file's contents live in.
	LogicalBlock c.LogicalBlock `csv:"logical_block"`
}
