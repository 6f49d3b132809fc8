package sst

import (
	"fmt"
	"math"

	"github.com/dargueta/sstfs"
	c "github.com/dargueta/sstfs/file_systems/common"
	"github.com/hashicorp/go-multierror"
)

// FileSystem is a handle to a file system on a flash device. It caches the
// active metadata in memory, so no other handle may modify the same device
// while it's in use.
//
// A FileSystem is not safe for concurrent use.
type FileSystem struct {
	device   sstfs.FlashDevice
	geometry Geometry

	active  c.PhysicalBlock
	scratch c.PhysicalBlock
	header  metadataHeader
	blocks  []blockMeta
	files   []fileMeta

	prepared     bool
	scratchDirty bool
}

// New creates a handle for a file system on `device` without touching the
// device. Call [FileSystem.Prepare] or [FileSystem.WipeAll] before using it.
func New(device sstfs.FlashDevice, cfg Config) (*FileSystem, error) {
	geometry, err := NewGeometry(cfg)
	if err != nil {
		return nil, err
	}
	return &FileSystem{
		device:   device,
		geometry: geometry,
		active:   c.InvalidPhysicalBlock,
		scratch:  c.InvalidPhysicalBlock,
	}, nil
}

// Prepare loads an existing file system from `device`.
func Prepare(device sstfs.FlashDevice, cfg Config) (*FileSystem, error) {
	fs, err := New(device, cfg)
	if err != nil {
		return nil, err
	}
	return fs, fs.Prepare()
}

// WipeAll creates an empty file system on `device`, destroying anything that
// was there.
func WipeAll(device sstfs.FlashDevice, cfg Config) (*FileSystem, error) {
	fs, err := New(device, cfg)
	if err != nil {
		return nil, err
	}
	return fs, fs.WipeAll()
}

// Geometry returns the layout of the file system.
func (fs *FileSystem) Geometry() Geometry {
	return fs.geometry
}

// Prepare finds the active metadata block, loads the metadata and erases the
// scratch blocks, which may contain the remains of an interrupted update.
//
// It fails with [sstfs.ErrOperationFailed] if there's no valid file system on
// the device. If metadata validation is enabled and the metadata contains
// impossible values, it fails with [sstfs.ErrDataCorrupt].
func (fs *FileSystem) Prepare() error {
	fs.prepared = false

	err := fs.device.Init()
	if err != nil {
		return storageFailure(err)
	}

	active, header, err := fs.findActiveMetadataBlock()
	if err != nil {
		return err
	}

	if fs.geometry.ValidateMetadata {
		err = fs.geometry.validateHeader(header)
		if err != nil {
			return err
		}
	}

	blocks, files, err := fs.loadTables(active)
	if err != nil {
		return err
	}

	fs.active = active
	fs.scratch = OtherMetadataBlock(active)
	fs.header = header
	fs.blocks = blocks
	fs.files = files

	err = fs.eraseScratchBlocks()
	if err != nil {
		return err
	}
	fs.scratchDirty = false
	fs.prepared = true
	return nil
}

// WipeAll erases the entire flash area and writes an empty file system to it.
//
// If there's a valid metadata block already, it's erased last so that a power
// failure partway through doesn't roll back to an older state.
func (fs *FileSystem) WipeAll() error {
	g := &fs.geometry
	fs.prepared = false

	err := fs.device.Init()
	if err != nil {
		return storageFailure(err)
	}

	eraseFirst := MetadataBlock0
	active, _, err := fs.findActiveMetadataBlock()
	if err == nil {
		eraseFirst = OtherMetadataBlock(active)
	}

	err = fs.device.Erase(eraseFirst)
	if err != nil {
		return storageFailure(err)
	}
	err = fs.device.Erase(OtherMetadataBlock(eraseFirst))
	if err != nil {
		return storageFailure(err)
	}

	// Keep erasing even if one of the data blocks fails so that no data
	// survives that doesn't have to.
	var eraseErrors *multierror.Error
	if g.Variant == VariantDedicated {
		for block := g.InitialScratchDataBlock; uint32(block) < g.TotalBlocks; block++ {
			err = fs.device.Erase(block)
			if err != nil {
				eraseErrors = multierror.Append(
					eraseErrors, fmt.Errorf("block %d: %w", block, err))
			}
		}
	}
	if eraseErrors != nil {
		return sstfs.ErrStorageFailure.Wrap(eraseErrors)
	}

	fs.active = MetadataBlock0
	fs.scratch = MetadataBlock1
	fs.scratchDirty = false
	fs.header = metadataHeader{
		ScratchDataBlock: g.InitialScratchDataBlock,
		FSVersion:        SupportedVersion,
		SwapCount:        0,
	}
	fs.blocks = make([]blockMeta, g.ActiveDataBlocks)
	fs.files = make([]fileMeta, g.MaxNumObjects)
	fs.blocks[LogicalBlock0] = blockMeta{
		PhysicalID: fs.scratch,
		DataStart:  g.MetadataSize,
		FreeSize:   g.BlockSize - g.MetadataSize,
	}
	for i := uint32(1); i < g.ActiveDataBlocks; i++ {
		fs.blocks[i] = blockMeta{
			PhysicalID: g.DataBlockStart + c.PhysicalBlock(i-1),
			DataStart:  0,
			FreeSize:   g.BlockSize,
		}
	}

	// The transaction stages every entry itself, so nothing is copied from the
	// metadata block that was just erased.
	tx := &transaction{
		fs:     fs,
		header: fs.header,
		blocks: make([]blockMeta, len(fs.blocks)),
		files:  make([]fileMeta, len(fs.files)),
	}
	for i, meta := range fs.blocks {
		err = tx.writeBlockMeta(c.LogicalBlock(i), meta)
		if err != nil {
			return err
		}
	}
	for i := range fs.files {
		err = tx.updateScratchFileMeta(uint32(i), fileMeta{})
		if err != nil {
			return err
		}
	}

	// Both metadata blocks are freshly erased, so if the commit fails to erase
	// the old one there's nothing left over to clean up.
	err = tx.commit()
	if err != nil {
		return err
	}
	fs.prepared = true
	return nil
}

func (fs *FileSystem) checkPrepared() error {
	if !fs.prepared {
		return sstfs.ErrOperationFailed.WithMessage("file system isn't prepared")
	}
	return nil
}

func (fs *FileSystem) checkAligned(what string, value uint32) error {
	if !c.IsAligned(value, fs.geometry.ProgramUnit) {
		return sstfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"%s (%d) isn't a multiple of the program unit (%d)",
				what,
				value,
				fs.geometry.ProgramUnit))
	}
	return nil
}

// Exists returns true if a file with the given ID exists.
func (fs *FileSystem) Exists(id sstfs.FileID) (bool, error) {
	err := fs.checkPrepared()
	if err != nil {
		return false, err
	}
	if id == sstfs.InvalidFileID {
		return false, sstfs.ErrInvalidArgument.WithMessage("file ID 0 is reserved")
	}

	_, err = fs.getFileIndex(id)
	return err == nil, nil
}

// Create creates a new file and reserves `maxSize` bytes for it. If `data`
// isn't empty, it's written to the beginning of the file.
//
// `maxSize` and the length of `data` must be multiples of the program unit.
// If there's no free entry in the file table or no logical block has enough
// free space, this fails with [sstfs.ErrInsufficientSpace].
func (fs *FileSystem) Create(id sstfs.FileID, maxSize uint32, data []byte) error {
	err := fs.checkPrepared()
	if err != nil {
		return err
	}

	if id == sstfs.InvalidFileID {
		return sstfs.ErrInvalidArgument.WithMessage("file ID 0 is reserved")
	}
	if _, err = fs.getFileIndex(id); err == nil {
		return sstfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("file %d already exists", id))
	}
	if err = fs.checkAligned("max size", maxSize); err != nil {
		return err
	}
	if maxSize > fs.geometry.MaxFileSize {
		return sstfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"max size %d is larger than the limit (%d)", maxSize, fs.geometry.MaxFileSize))
	}
	if uint64(len(data)) > uint64(maxSize) {
		return sstfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("%d bytes of data won't fit in %d bytes", len(data), maxSize))
	}
	if err = fs.checkAligned("data size", uint32(len(data))); err != nil {
		return err
	}

	tx, err := fs.begin()
	if err != nil {
		return err
	}

	err = tx.createFile(id, maxSize, data)
	if err != nil {
		tx.abort()
		return err
	}
	return tx.commit()
}

func (tx *transaction) createFile(id sstfs.FileID, maxSize uint32, data []byte) error {
	index, file, block, err := tx.reserveFile(id, maxSize)
	if err != nil {
		return err
	}

	if len(data) != 0 {
		err = tx.writeToScratch(file.LogicalBlock, file.DataOffset, data)
		if err != nil {
			return err
		}
		file.CurrentSize = uint32(len(data))

		err = tx.copyRemainingData(block, file)
		if err != nil {
			return err
		}
		block = tx.swapDataBlock(file.LogicalBlock, block)
	}

	err = tx.updateScratchBlockMeta(file.LogicalBlock, block)
	if err != nil {
		return err
	}
	err = tx.updateScratchFileMeta(index, file)
	if err != nil {
		return err
	}
	err = tx.copyRemainingFileMeta(index)
	if err != nil {
		return err
	}

	// If the data for logical block 0 wasn't rewritten above, it has to be
	// carried over to the new metadata block.
	if file.LogicalBlock != LogicalBlock0 || len(data) == 0 {
		return tx.migrateLB0DataToScratch()
	}
	return nil
}

// GetInfo returns the size information of a file.
func (fs *FileSystem) GetInfo(id sstfs.FileID) (sstfs.FileInfo, error) {
	err := fs.checkPrepared()
	if err != nil {
		return sstfs.FileInfo{}, err
	}

	index, err := fs.getFileIndex(id)
	if err != nil {
		return sstfs.FileInfo{}, err
	}
	return fs.files[index].info(), nil
}

// Write writes `data` into the file starting at `offset` bytes from the
// beginning. The file's contents outside that range aren't changed. Writing
// past the current size extends the file; any gap between the old end and
// `offset` reads back as erased flash.
//
// The offset and size of the write must be multiples of the program unit, and
// the write can't extend past the file's max size.
func (fs *FileSystem) Write(id sstfs.FileID, offset uint32, data []byte) error {
	err := fs.checkPrepared()
	if err != nil {
		return err
	}

	index, err := fs.getFileIndex(id)
	if err != nil {
		return err
	}
	if err = fs.checkAligned("offset", offset); err != nil {
		return err
	}
	if err = fs.checkAligned("write size", uint32(len(data))); err != nil {
		return err
	}

	file := fs.files[index]
	if uint64(offset)+uint64(len(data)) > uint64(file.MaxSize) {
		return sstfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"writing %d bytes at offset %d overflows file %d (max size %d)",
				len(data),
				offset,
				id,
				file.MaxSize))
	}
	if len(data) == 0 {
		return nil
	}

	tx, err := fs.begin()
	if err != nil {
		return err
	}

	err = tx.writeFile(index, offset, data)
	if err != nil {
		tx.abort()
		return err
	}
	return tx.commit()
}

func (tx *transaction) writeFile(index, offset uint32, data []byte) error {
	file := tx.files[index]
	block, err := tx.fs.blockMetaOf(file.LogicalBlock)
	if err != nil {
		return err
	}

	size := uint32(len(data))
	err = tx.writeToScratch(file.LogicalBlock, file.DataOffset+offset, data)
	if err != nil {
		return err
	}
	err = tx.copyFileRemainder(block, file, offset, size)
	if err != nil {
		return err
	}

	if offset+size > file.CurrentSize {
		file.CurrentSize = offset + size
	}

	err = tx.copyRemainingData(block, file)
	if err != nil {
		return err
	}
	block = tx.swapDataBlock(file.LogicalBlock, block)

	err = tx.updateScratchBlockMeta(file.LogicalBlock, block)
	if err != nil {
		return err
	}
	err = tx.updateScratchFileMeta(index, file)
	if err != nil {
		return err
	}
	err = tx.copyRemainingFileMeta(index)
	if err != nil {
		return err
	}

	if file.LogicalBlock != LogicalBlock0 {
		return tx.migrateLB0DataToScratch()
	}
	return nil
}

// Read fills `buffer` with the contents of the file starting at `offset`.
//
// It fails with [sstfs.ErrOffsetInvalid] if `offset` is past the current size
// of the file, and [sstfs.ErrIncorrectSize] if there are fewer than
// `len(buffer)` bytes left from there.
func (fs *FileSystem) Read(id sstfs.FileID, offset uint32, buffer []byte) error {
	err := fs.checkPrepared()
	if err != nil {
		return err
	}

	index, err := fs.getFileIndex(id)
	if err != nil {
		return err
	}

	file := fs.files[index]
	size := uint32(math.MaxUint32)
	if uint64(len(buffer)) < math.MaxUint32 {
		size = uint32(len(buffer))
	}
	err = CheckContainedIn(file.CurrentSize, offset, size)
	if err != nil {
		return err
	}
	if len(buffer) == 0 {
		return nil
	}
	return fs.readFile(file, offset, buffer)
}

// Delete removes a file and compacts the logical block it was in, moving the
// files after it down to reclaim the space.
func (fs *FileSystem) Delete(id sstfs.FileID) error {
	err := fs.checkPrepared()
	if err != nil {
		return err
	}

	index, err := fs.getFileIndex(id)
	if err != nil {
		return err
	}

	tx, err := fs.begin()
	if err != nil {
		return err
	}

	err = tx.deleteFile(index)
	if err != nil {
		tx.abort()
		return err
	}
	return tx.commit()
}

func (tx *transaction) deleteFile(deletedIndex uint32) error {
	deleted := tx.files[deletedIndex]

	err := tx.updateScratchFileMeta(deletedIndex, fileMeta{})
	if err != nil {
		return err
	}

	srcOffset := tx.fs.geometry.BlockSize
	bytesToMove := uint32(0)

	for i, file := range tx.files {
		index := uint32(i)
		if index == deletedIndex {
			continue
		}

		// Every file after the deleted one in the same block moves down by the
		// space it took up. A zero-size file shares its offset with the file
		// that follows it, so compare against the end of the deleted file.
		if file.inUse() &&
			file.LogicalBlock == deleted.LogicalBlock &&
			file.DataOffset >= deleted.DataOffset+deleted.MaxSize {
			if file.DataOffset < srcOffset {
				srcOffset = file.DataOffset
			}
			file.DataOffset -= deleted.MaxSize
			bytesToMove += file.MaxSize
		}

		err = tx.updateScratchFileMeta(index, file)
		if err != nil {
			return err
		}
	}

	err = tx.compactBlock(
		deleted.LogicalBlock, deleted.MaxSize, srcOffset, deleted.DataOffset, bytesToMove)
	if err != nil {
		return err
	}

	if deleted.LogicalBlock != LogicalBlock0 {
		return tx.migrateLB0DataToScratch()
	}
	return nil
}

// List returns the metadata of every file, in file table order.
func (fs *FileSystem) List() []sstfs.FileInfo {
	files := make([]sstfs.FileInfo, 0, len(fs.files))
	for _, meta := range fs.files {
		if meta.inUse() {
			files = append(files, meta.info())
		}
	}
	return files
}

// Stats gives a summary of the state of the file system.
type Stats struct {
	ActiveMetadataBlock  c.PhysicalBlock
	ScratchMetadataBlock c.PhysicalBlock
	// ScratchDataBlock is only meaningful if there are dedicated data blocks.
	ScratchDataBlock c.PhysicalBlock
	SwapCount        uint8
	Files            uint32
	MaxFiles         uint32
	// FreeBytes is the free space in each logical block.
	FreeBytes      []uint32
	TotalFreeBytes uint64
	// LargestFree is the size of the largest file that could be created right
	// now, ignoring the max object size.
	LargestFree uint32
}

// Stat returns a summary of the state of the file system.
func (fs *FileSystem) Stat() Stats {
	stats := Stats{
		ActiveMetadataBlock:  fs.active,
		ScratchMetadataBlock: fs.scratch,
		ScratchDataBlock:     fs.header.ScratchDataBlock,
		SwapCount:            fs.header.SwapCount,
		MaxFiles:             fs.geometry.MaxNumObjects,
		FreeBytes:            make([]uint32, len(fs.blocks)),
	}

	for i, block := range fs.blocks {
		stats.FreeBytes[i] = block.FreeSize
		stats.TotalFreeBytes += uint64(block.FreeSize)
		if block.FreeSize > stats.LargestFree {
			stats.LargestFree = block.FreeSize
		}
	}
	for _, file := range fs.files {
		if file.inUse() {
			stats.Files++
		}
	}
	return stats
}
