package sst

import (
	"fmt"

	"github.com/dargueta/sstfs"
)

// CheckContainedIn verifies that the range of `size` bytes starting at
// `offset` lies entirely inside a range of `superSize` bytes starting at 0.
//
// It fails with [sstfs.ErrOffsetInvalid] if `offset` is past the end of the
// range, or [sstfs.ErrIncorrectSize] if the range starting at `offset` is
// too small to hold `size` bytes.
func CheckContainedIn(superSize, offset, size uint32) error {
	if offset > superSize {
		return sstfs.ErrOffsetInvalid.WithMessage(
			fmt.Sprintf("offset %d is past the end (%d)", offset, superSize))
	}
	if size > superSize-offset {
		return sstfs.ErrIncorrectSize.WithMessage(
			fmt.Sprintf(
				"%d bytes at offset %d runs past the end (%d)",
				size,
				offset,
				superSize))
	}
	return nil
}

func (g *Geometry) validateFileMeta(meta fileMeta) error {
	if uint32(meta.LogicalBlock) >= g.ActiveDataBlocks {
		return sstfs.ErrDataCorrupt.WithMessage(
			fmt.Sprintf(
				"file %d is in nonexistent logical block %d",
				meta.ID,
				meta.LogicalBlock))
	}

	if !meta.inUse() {
		return nil
	}

	if meta.MaxSize > g.MaxFileSize {
		return sstfs.ErrDataCorrupt.WithMessage(
			fmt.Sprintf(
				"file %d has max size %d, limit is %d",
				meta.ID,
				meta.MaxSize,
				g.MaxFileSize))
	}
	if meta.CurrentSize > meta.MaxSize {
		return sstfs.ErrDataCorrupt.WithMessage(
			fmt.Sprintf(
				"file %d is %d bytes but its max size is %d",
				meta.ID,
				meta.CurrentSize,
				meta.MaxSize))
	}
	if meta.LogicalBlock == LogicalBlock0 && meta.DataOffset < g.MetadataSize {
		return sstfs.ErrDataCorrupt.WithMessage(
			fmt.Sprintf(
				"file %d data at %d overlaps the metadata (%d bytes)",
				meta.ID,
				meta.DataOffset,
				g.MetadataSize))
	}
	if CheckContainedIn(g.BlockSize, meta.DataOffset, meta.MaxSize) != nil {
		return sstfs.ErrDataCorrupt.WithMessage(
			fmt.Sprintf(
				"file %d (%d bytes at %d) runs past the end of the block",
				meta.ID,
				meta.MaxSize,
				meta.DataOffset))
	}
	return nil
}

func (g *Geometry) validateBlockMeta(meta blockMeta) error {
	if uint32(meta.PhysicalID) >= g.TotalBlocks {
		return sstfs.ErrDataCorrupt.WithMessage(
			fmt.Sprintf("nonexistent physical block %d", meta.PhysicalID))
	}

	if CheckContainedIn(g.BlockSize, meta.DataStart, meta.FreeSize) != nil {
		return sstfs.ErrDataCorrupt.WithMessage(
			fmt.Sprintf(
				"block %d: %d free bytes at %d runs past the end of the block",
				meta.PhysicalID,
				meta.FreeSize,
				meta.DataStart))
	}

	// Data in a metadata block starts right after the metadata; dedicated data
	// blocks use the whole block.
	expectedDataStart := uint32(0)
	if meta.PhysicalID == MetadataBlock0 || meta.PhysicalID == MetadataBlock1 {
		expectedDataStart = g.MetadataSize
	}
	if meta.DataStart != expectedDataStart {
		return sstfs.ErrDataCorrupt.WithMessage(
			fmt.Sprintf(
				"block %d: data should start at %d, not %d",
				meta.PhysicalID,
				expectedDataStart,
				meta.DataStart))
	}
	return nil
}

func (g *Geometry) validateHeader(header metadataHeader) error {
	if g.Variant != VariantDedicated {
		return nil
	}

	scratch := header.ScratchDataBlock
	if scratch < g.InitialScratchDataBlock || uint32(scratch) >= g.TotalBlocks {
		return sstfs.ErrDataCorrupt.WithMessage(
			fmt.Sprintf(
				"scratch data block %d not in range [%d, %d)",
				scratch,
				g.InitialScratchDataBlock,
				g.TotalBlocks))
	}
	return nil
}
