package sst

import (
	"fmt"

	"github.com/dargueta/sstfs"
	c "github.com/dargueta/sstfs/file_systems/common"
)

// Physical IDs of the two metadata blocks.
const (
	MetadataBlock0 = c.PhysicalBlock(0)
	MetadataBlock1 = c.PhysicalBlock(1)
)

// LogicalBlock0 is the logical data block that shares its physical block with
// the active metadata.
const LogicalBlock0 = c.LogicalBlock(0)

// SupportedVersion is the only file system version this package reads and
// writes.
const SupportedVersion = uint8(1)

// Config describes the flash area the file system lives in and the limits
// imposed on the files in it.
type Config struct {
	// BlockSize is the size of an erasable flash block, in bytes.
	BlockSize uint32 `csv:"block_size"`
	// TotalBlocks is the number of blocks in the flash area. It must be either
	// 2 or at least 4.
	TotalBlocks uint32 `csv:"total_blocks"`
	// ProgramUnit is the smallest number of bytes that can be written to the
	// flash at once. Every write starts and ends on a multiple of this.
	ProgramUnit uint32 `csv:"program_unit"`
	// MaxObjectSize is the largest a single file can be. It's rounded up to
	// the program unit.
	MaxObjectSize uint32 `csv:"max_object_size"`
	// MaxNumObjects is the number of entries in the file table.
	MaxNumObjects uint32 `csv:"max_num_objects"`
	// ValidateMetadata enables sanity checks of all metadata read from flash.
	ValidateMetadata bool `csv:"validate_metadata"`
}

// Variant tells how the flash area is divided between metadata and data.
type Variant int

const (
	// VariantTwoBlock keeps all file data in the metadata blocks. There are no
	// dedicated data blocks.
	VariantTwoBlock Variant = iota
	// VariantDedicated has one or more blocks holding only file data, plus a
	// scratch block for rewriting them.
	VariantDedicated
)

func (v Variant) String() string {
	switch v {
	case VariantTwoBlock:
		return "two-block"
	case VariantDedicated:
		return "dedicated"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Sizes of the metadata structures before padding.
const (
	rawHeaderSize    = 6
	rawBlockMetaSize = 12
	rawFileMetaSize  = 20
)

// Geometry is everything derived from a [Config]: where each metadata table
// lives, how many data blocks there are, and so on.
type Geometry struct {
	Config
	Variant Variant

	// InitialScratchDataBlock is the scratch data block ID written by a wipe.
	InitialScratchDataBlock c.PhysicalBlock
	// DataBlockStart is the physical ID of the first dedicated data block.
	DataBlockStart c.PhysicalBlock
	// DedicatedDataBlocks is the number of blocks containing only file data.
	DedicatedDataBlocks uint32
	// ActiveDataBlocks is the number of logical data blocks, including logical
	// block 0.
	ActiveDataBlocks uint32

	HeaderSize    uint32
	BlockMetaSize uint32
	FileMetaSize  uint32
	// MetadataSize is the size of the header plus both tables. File data in
	// logical block 0 starts here.
	MetadataSize uint32
	// MaxFileSize is MaxObjectSize rounded up to the program unit.
	MaxFileSize uint32
}

// Validate checks that the configuration describes a usable file system.
func (cfg Config) Validate() error {
	_, err := NewGeometry(cfg)
	return err
}

// NewGeometry validates `cfg` and computes the layout of the file system.
func NewGeometry(cfg Config) (Geometry, error) {
	g := Geometry{Config: cfg}

	switch cfg.ProgramUnit {
	case 1, 2, 4, 8, 16:
	default:
		return g, sstfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("program unit must be 1, 2, 4, 8, or 16, got %d", cfg.ProgramUnit))
	}

	if cfg.BlockSize == 0 || !c.IsAligned(cfg.BlockSize, cfg.ProgramUnit) {
		return g, sstfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"block size %d must be a nonzero multiple of the program unit (%d)",
				cfg.BlockSize,
				cfg.ProgramUnit))
	}

	switch {
	case cfg.TotalBlocks == 2:
		g.Variant = VariantTwoBlock
		g.InitialScratchDataBlock = 1
		g.DataBlockStart = 0
		g.DedicatedDataBlocks = 0
	case cfg.TotalBlocks >= 4:
		g.Variant = VariantDedicated
		g.InitialScratchDataBlock = 2
		g.DataBlockStart = 3
		g.DedicatedDataBlocks = cfg.TotalBlocks - 3
	default:
		return g, sstfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("total blocks must be 2 or at least 4, got %d", cfg.TotalBlocks))
	}
	g.ActiveDataBlocks = g.DedicatedDataBlocks + 1

	if cfg.MaxNumObjects == 0 {
		return g, sstfs.ErrInvalidArgument.WithMessage("file table can't be empty")
	}

	g.HeaderSize = c.AlignUp(rawHeaderSize, cfg.ProgramUnit)
	g.BlockMetaSize = c.AlignUp(rawBlockMetaSize, cfg.ProgramUnit)
	g.FileMetaSize = c.AlignUp(rawFileMetaSize, cfg.ProgramUnit)

	metadataSize := uint64(g.HeaderSize) +
		uint64(g.ActiveDataBlocks)*uint64(g.BlockMetaSize) +
		uint64(cfg.MaxNumObjects)*uint64(g.FileMetaSize)
	if metadataSize > uint64(cfg.BlockSize) {
		return g, sstfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"metadata needs %d bytes but blocks are only %d bytes",
				metadataSize,
				cfg.BlockSize))
	}
	g.MetadataSize = uint32(metadataSize)

	if cfg.MaxObjectSize == 0 {
		return g, sstfs.ErrInvalidArgument.WithMessage("max object size can't be 0")
	}
	g.MaxFileSize = c.AlignUp(cfg.MaxObjectSize, cfg.ProgramUnit)
	if g.MaxFileSize > cfg.BlockSize {
		return g, sstfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"largest file (%d B) doesn't fit in a %d-byte block",
				g.MaxFileSize,
				cfg.BlockSize))
	}
	if g.Variant == VariantTwoBlock && g.MaxFileSize > cfg.BlockSize-g.MetadataSize {
		return g, sstfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"largest file (%d B) doesn't fit in the %d bytes left after the metadata",
				g.MaxFileSize,
				cfg.BlockSize-g.MetadataSize))
	}
	return g, nil
}

// BlockMetaOffset gives the position of a logical block's entry in the block
// table, relative to the start of the metadata block.
func (g *Geometry) BlockMetaOffset(lblock c.LogicalBlock) uint32 {
	return g.HeaderSize + uint32(lblock)*g.BlockMetaSize
}

// FileMetaOffset gives the position of an entry in the file table, relative to
// the start of the metadata block.
func (g *Geometry) FileMetaOffset(index uint32) uint32 {
	return g.HeaderSize + g.ActiveDataBlocks*g.BlockMetaSize + index*g.FileMetaSize
}

// OtherMetadataBlock returns the metadata block that isn't `block`.
func OtherMetadataBlock(block c.PhysicalBlock) c.PhysicalBlock {
	if block == MetadataBlock0 {
		return MetadataBlock1
	}
	return MetadataBlock0
}
