package sst

import (
	"fmt"

	"github.com/dargueta/sstfs"
	c "github.com/dargueta/sstfs/file_systems/common"
	"github.com/dargueta/sstfs/flash"
)

// blockMetaOf returns the committed metadata of the logical block a file lives
// in.
func (fs *FileSystem) blockMetaOf(lblock c.LogicalBlock) (blockMeta, error) {
	if uint32(lblock) >= uint32(len(fs.blocks)) {
		return blockMeta{}, sstfs.ErrOperationFailed.WithMessage(
			fmt.Sprintf("logical block %d doesn't exist", lblock))
	}
	return fs.blocks[lblock], nil
}

// readFile reads `len(buffer)` bytes of the file's contents starting at
// `offset`. The range must already have been checked against the file size.
func (fs *FileSystem) readFile(file fileMeta, offset uint32, buffer []byte) error {
	block, err := fs.blockMetaOf(file.LogicalBlock)
	if err != nil {
		return err
	}
	return storageFailure(fs.device.Read(block.PhysicalID, file.DataOffset+offset, buffer))
}

// moveData copies `size` bytes from offset `srcOffset` of the committed
// physical block of a logical block into its scratch block.
func (tx *transaction) moveData(
	lblock c.LogicalBlock, src c.PhysicalBlock, dstOffset, srcOffset, size uint32,
) error {
	if size == 0 {
		return nil
	}
	err := flash.MoveRange(
		tx.fs.device, tx.scratchDataBlock(lblock), dstOffset, src, srcOffset, size)
	return storageFailure(err)
}

// writeToScratch writes `data` at `offset` in the scratch block of `lblock`.
func (tx *transaction) writeToScratch(lblock c.LogicalBlock, offset uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return tx.write(tx.scratchDataBlock(lblock), offset, data)
}

// copyRemainingData copies the data of every other file in the logical block,
// i.e. everything before and after the file's reserved region, into the
// scratch block. `block` must already reflect the space taken by `file`.
func (tx *transaction) copyRemainingData(block blockMeta, file fileMeta) error {
	if file.DataOffset > block.DataStart {
		err := tx.moveData(
			file.LogicalBlock,
			block.PhysicalID,
			block.DataStart,
			block.DataStart,
			file.DataOffset-block.DataStart)
		if err != nil {
			return err
		}
	}

	afterFile := file.DataOffset + file.MaxSize
	usedEnd := tx.fs.geometry.BlockSize - block.FreeSize
	if usedEnd <= afterFile {
		return nil
	}
	return tx.moveData(
		file.LogicalBlock, block.PhysicalID, afterFile, afterFile, usedEnd-afterFile)
}

// copyFileRemainder copies the parts of the file's current contents that a
// write of `size` bytes at `offset` doesn't replace.
func (tx *transaction) copyFileRemainder(
	block blockMeta, file fileMeta, offset, size uint32,
) error {
	head := offset
	if head > file.CurrentSize {
		head = file.CurrentSize
	}
	err := tx.moveData(
		file.LogicalBlock, block.PhysicalID, file.DataOffset, file.DataOffset, head)
	if err != nil {
		return err
	}

	tailStart := offset + size
	if tailStart >= file.CurrentSize {
		return nil
	}
	return tx.moveData(
		file.LogicalBlock,
		block.PhysicalID,
		file.DataOffset+tailStart,
		file.DataOffset+tailStart,
		file.CurrentSize-tailStart)
}

// swapDataBlock makes the scratch block of `block` its new backing block, and
// the block it replaces the scratch block.
func (tx *transaction) swapDataBlock(lblock c.LogicalBlock, block blockMeta) blockMeta {
	current := block.PhysicalID
	block.PhysicalID = tx.scratchDataBlock(lblock)
	tx.setDataScratch(current, lblock)
	return block
}

// compactBlock releases `freedSize` bytes in `lblock` by moving the `size`
// bytes at `srcOffset` down to `dstOffset`, copying everything before
// `dstOffset` unchanged, and swapping in the scratch block.
//
// The swap happens even if there's nothing to move, so that the removed data
// ends up in the scratch block and is erased when the transaction commits.
func (tx *transaction) compactBlock(
	lblock c.LogicalBlock, freedSize, srcOffset, dstOffset, size uint32,
) error {
	block, err := tx.fs.blockMetaOf(lblock)
	if err != nil {
		return err
	}
	block.FreeSize += freedSize

	err = tx.moveData(lblock, block.PhysicalID, dstOffset, srcOffset, size)
	if err != nil {
		return err
	}

	if dstOffset > block.DataStart {
		err = tx.moveData(
			lblock, block.PhysicalID, block.DataStart, block.DataStart, dstOffset-block.DataStart)
		if err != nil {
			return err
		}
	}

	block = tx.swapDataBlock(lblock, block)
	return tx.updateScratchBlockMeta(lblock, block)
}
