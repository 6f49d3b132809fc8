package sst

import (
	"fmt"

	"github.com/dargueta/sstfs"
	c "github.com/dargueta/sstfs/file_systems/common"
	"github.com/dargueta/sstfs/flash"
)

func storageFailure(err error) error {
	if err == nil {
		return nil
	}
	return sstfs.ErrStorageFailure.Wrap(err)
}

// readHeader reads the header of a metadata block without validating it.
func (fs *FileSystem) readHeader(block c.PhysicalBlock) (metadataHeader, error) {
	buffer := make([]byte, fs.geometry.HeaderSize)
	err := fs.device.Read(block, 0, buffer)
	if err != nil {
		return metadataHeader{}, storageFailure(err)
	}
	return decodeHeader(buffer)
}

// findActiveMetadataBlock reads both headers and returns the most recent
// valid one along with the block it was found in. If neither is valid this
// fails with [sstfs.ErrOperationFailed].
func (fs *FileSystem) findActiveMetadataBlock() (c.PhysicalBlock, metadataHeader, error) {
	header0, err := fs.readHeader(MetadataBlock0)
	if err != nil {
		return c.InvalidPhysicalBlock, metadataHeader{}, err
	}
	header1, err := fs.readHeader(MetadataBlock1)
	if err != nil {
		return c.InvalidPhysicalBlock, metadataHeader{}, err
	}

	valid0 := header0.isValid()
	valid1 := header1.isValid()

	switch {
	case valid0 && valid1:
		// An update was interrupted after the header was committed but before
		// the old metadata block was erased.
		active := latestMetadataBlock(header0, header1)
		if active == MetadataBlock0 {
			return active, header0, nil
		}
		return active, header1, nil
	case valid0:
		return MetadataBlock0, header0, nil
	case valid1:
		return MetadataBlock1, header1, nil
	default:
		return c.InvalidPhysicalBlock,
			metadataHeader{},
			sstfs.ErrOperationFailed.WithMessage("no valid metadata block found")
	}
}

// loadTables reads the block and file tables from the active metadata block,
// validating every entry if the configuration asks for it.
func (fs *FileSystem) loadTables(
	active c.PhysicalBlock,
) ([]blockMeta, []fileMeta, error) {
	g := &fs.geometry

	rawTables := make([]byte, g.MetadataSize-g.HeaderSize)
	err := fs.device.Read(active, g.HeaderSize, rawTables)
	if err != nil {
		return nil, nil, storageFailure(err)
	}

	blocks := make([]blockMeta, g.ActiveDataBlocks)
	for i := range blocks {
		start := g.BlockMetaOffset(c.LogicalBlock(i)) - g.HeaderSize
		blocks[i], err = decodeBlockMeta(rawTables[start : start+g.BlockMetaSize])
		if err != nil {
			return nil, nil, err
		}
		if g.ValidateMetadata {
			err = g.validateBlockMeta(blocks[i])
			if err != nil {
				return nil, nil, sstfs.ErrDataCorrupt.Wrap(
					fmt.Errorf("logical block %d: %w", i, err))
			}
		}
	}

	files := make([]fileMeta, g.MaxNumObjects)
	for i := range files {
		start := g.FileMetaOffset(uint32(i)) - g.HeaderSize
		files[i], err = decodeFileMeta(rawTables[start : start+g.FileMetaSize])
		if err != nil {
			return nil, nil, err
		}
		if g.ValidateMetadata {
			err = g.validateFileMeta(files[i])
			if err != nil {
				return nil, nil, sstfs.ErrDataCorrupt.Wrap(
					fmt.Errorf("file table entry %d: %w", i, err))
			}
		}
	}
	return blocks, files, nil
}

// scratchDataBlock returns the physical block that new data for `lblock` is
// written to. For logical block 0 that's the scratch metadata block.
func (fs *FileSystem) scratchDataBlock(header metadataHeader, lblock c.LogicalBlock) c.PhysicalBlock {
	if lblock == LogicalBlock0 {
		return fs.scratch
	}
	return header.ScratchDataBlock
}

// eraseScratchBlocks erases the scratch metadata block and then, if there are
// dedicated data blocks, the scratch data block. The metadata block must go
// first so that an interrupted erase can never leave a valid header pointing
// at erased data.
func (fs *FileSystem) eraseScratchBlocks() error {
	err := fs.device.Erase(fs.scratch)
	if err != nil {
		return storageFailure(err)
	}

	if fs.geometry.Variant == VariantDedicated {
		err = fs.device.Erase(fs.header.ScratchDataBlock)
		if err != nil {
			return storageFailure(err)
		}
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// Transactions

// transaction accumulates the changes of a single update. Everything is staged
// in the scratch blocks and in the copies of the header and tables held here;
// the file system's own state is only replaced by commit.
type transaction struct {
	fs     *FileSystem
	header metadataHeader
	blocks []blockMeta
	files  []fileMeta
}

// begin starts a new transaction. If a previous one failed partway through,
// the scratch blocks are erased first.
func (fs *FileSystem) begin() (*transaction, error) {
	if !fs.prepared {
		return nil, sstfs.ErrOperationFailed.WithMessage("file system isn't prepared")
	}

	if fs.scratchDirty {
		err := fs.eraseScratchBlocks()
		if err != nil {
			return nil, err
		}
		fs.scratchDirty = false
	}

	tx := &transaction{
		fs:     fs,
		header: fs.header,
		blocks: make([]blockMeta, len(fs.blocks)),
		files:  make([]fileMeta, len(fs.files)),
	}
	copy(tx.blocks, fs.blocks)
	copy(tx.files, fs.files)
	return tx, nil
}

// abort discards the transaction. Whatever was written to the scratch blocks
// is erased before the next transaction starts.
func (tx *transaction) abort() {
	tx.fs.scratchDirty = true
}

func (tx *transaction) scratchDataBlock(lblock c.LogicalBlock) c.PhysicalBlock {
	return tx.fs.scratchDataBlock(tx.header, lblock)
}

// setDataScratch makes `block` the scratch data block after this transaction
// commits. Logical block 0 has no separate scratch block, so nothing changes
// for it.
func (tx *transaction) setDataScratch(block c.PhysicalBlock, lblock c.LogicalBlock) {
	if lblock != LogicalBlock0 {
		tx.header.ScratchDataBlock = block
	}
}

func (tx *transaction) write(block c.PhysicalBlock, offset uint32, data []byte) error {
	return storageFailure(tx.fs.device.Write(block, offset, data))
}

// moveMetadata copies a range at the same offset from the active metadata block to the
// scratch metadata block.
func (tx *transaction) moveMetadata(offset, size uint32) error {
	if size == 0 {
		return nil
	}
	err := flash.MoveRange(tx.fs.device, tx.fs.scratch, offset, tx.fs.active, offset, size)
	return storageFailure(err)
}

func (tx *transaction) writeBlockMeta(lblock c.LogicalBlock, meta blockMeta) error {
	g := &tx.fs.geometry
	err := tx.write(tx.fs.scratch, g.BlockMetaOffset(lblock), g.encodeBlockMeta(meta))
	if err != nil {
		return err
	}
	tx.blocks[lblock] = meta
	return nil
}

// updateScratchBlockMeta stages the new metadata for `lblock` and copies every
// other entry of the block table into the scratch metadata block.
func (tx *transaction) updateScratchBlockMeta(lblock c.LogicalBlock, meta blockMeta) error {
	// Logical block 0 lives in whichever metadata block is active, which after
	// this transaction is the current scratch block.
	if lblock == LogicalBlock0 {
		meta.PhysicalID = tx.fs.scratch
	}

	err := tx.writeBlockMeta(lblock, meta)
	if err != nil {
		return err
	}
	return tx.copyRemainingBlockMeta(lblock)
}

// copyRemainingBlockMeta copies every block table entry except the one for
// `lblock` into the scratch metadata block.
func (tx *transaction) copyRemainingBlockMeta(lblock c.LogicalBlock) error {
	g := &tx.fs.geometry

	if lblock != LogicalBlock0 {
		// The metadata is moving to the scratch block, and logical block 0 has
		// to move along with it.
		lb0 := tx.fs.blocks[LogicalBlock0]
		lb0.PhysicalID = tx.fs.scratch
		err := tx.writeBlockMeta(LogicalBlock0, lb0)
		if err != nil {
			return err
		}

		start := g.BlockMetaOffset(LogicalBlock0 + 1)
		err = tx.moveMetadata(start, g.BlockMetaOffset(lblock)-start)
		if err != nil {
			return err
		}
	}

	start := g.BlockMetaOffset(lblock + 1)
	return tx.moveMetadata(start, g.FileMetaOffset(0)-start)
}

// updateScratchFileMeta stages a single entry of the file table.
func (tx *transaction) updateScratchFileMeta(index uint32, meta fileMeta) error {
	g := &tx.fs.geometry
	err := tx.write(tx.fs.scratch, g.FileMetaOffset(index), g.encodeFileMeta(meta))
	if err != nil {
		return err
	}
	tx.files[index] = meta
	return nil
}

// copyRemainingFileMeta copies every entry of the file table except `index`
// into the scratch metadata block.
func (tx *transaction) copyRemainingFileMeta(index uint32) error {
	g := &tx.fs.geometry

	start := g.FileMetaOffset(0)
	err := tx.moveMetadata(start, g.FileMetaOffset(index)-start)
	if err != nil {
		return err
	}

	start = g.FileMetaOffset(index + 1)
	return tx.moveMetadata(start, g.FileMetaOffset(g.MaxNumObjects)-start)
}

// migrateLB0DataToScratch copies the file data stored in the active metadata
// block to the scratch metadata block. Needed whenever the transaction didn't
// already rewrite logical block 0.
func (tx *transaction) migrateLB0DataToScratch() error {
	lb0 := tx.fs.blocks[LogicalBlock0]
	used := tx.fs.geometry.BlockSize - lb0.DataStart - lb0.FreeSize
	return tx.moveMetadata(lb0.DataStart, used)
}

// commit writes the header with the next swap count to the scratch metadata
// block, which is the point where the transaction becomes durable. The scratch
// block then becomes active and the old blocks are erased.
//
// Once the header is written the transaction can no longer fail. If erasing
// the old blocks fails they're erased before the next transaction instead.
func (tx *transaction) commit() error {
	fs := tx.fs

	tx.header.SwapCount = nextSwapCount(tx.header.SwapCount)
	err := tx.write(fs.scratch, 0, fs.geometry.encodeHeader(tx.header))
	if err != nil {
		tx.abort()
		return err
	}

	fs.header = tx.header
	fs.blocks = tx.blocks
	fs.files = tx.files
	fs.active, fs.scratch = fs.scratch, fs.active

	err = fs.eraseScratchBlocks()
	if err != nil {
		fs.scratchDirty = true
	}
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// Lookups

// getFileIndex returns the index of the table entry for file `id`.
func (fs *FileSystem) getFileIndex(id sstfs.FileID) (uint32, error) {
	if id == sstfs.InvalidFileID {
		return 0, sstfs.ErrUIDNotFound.WithMessage("file ID 0 is reserved")
	}
	for i, meta := range fs.files {
		if meta.ID == id {
			return uint32(i), nil
		}
	}
	return 0, sstfs.ErrUIDNotFound.WithMessage(fmt.Sprintf("file %d", id))
}

// getFreeFileIndex returns the index of the first unused table entry.
func getFreeFileIndex(files []fileMeta) (uint32, bool) {
	for i, meta := range files {
		if !meta.inUse() {
			return uint32(i), true
		}
	}
	return 0, false
}

// reserveFile finds room for a new file of `size` bytes in the first logical
// block with enough free space, and a free entry in the file table. It
// returns the index of that entry plus the new metadata for the file and the
// logical block; nothing is staged.
func (tx *transaction) reserveFile(
	id sstfs.FileID, size uint32,
) (uint32, fileMeta, blockMeta, error) {
	g := &tx.fs.geometry

	lblock := c.InvalidLogicalBlock
	for i, meta := range tx.blocks {
		if meta.FreeSize >= size {
			lblock = c.LogicalBlock(i)
			break
		}
	}

	index, foundIndex := getFreeFileIndex(tx.files)
	if lblock == c.InvalidLogicalBlock || !foundIndex {
		return 0, fileMeta{}, blockMeta{}, sstfs.ErrInsufficientSpace.WithMessage(
			fmt.Sprintf("can't reserve %d bytes for file %d", size, id))
	}

	block := tx.blocks[lblock]
	file := fileMeta{
		LogicalBlock: lblock,
		DataOffset:   g.BlockSize - block.FreeSize,
		CurrentSize:  0,
		MaxSize:      size,
		ID:           id,
	}
	block.FreeSize -= size
	return index, file, block, nil
}
