package sst

import (
	"fmt"
	"sort"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/sstfs"
	c "github.com/dargueta/sstfs/file_systems/common"
	"github.com/hashicorp/go-multierror"
)

// Check verifies the consistency of the file system's metadata: every
// physical block has exactly one role, every file lies inside the used part
// of its logical block, no two files overlap, and the scratch blocks are
// erased.
//
// All problems found are reported together, wrapped in [sstfs.ErrDataCorrupt].
func (fs *FileSystem) Check() error {
	err := fs.checkPrepared()
	if err != nil {
		return err
	}

	var problems *multierror.Error
	report := func(format string, args ...any) {
		problems = multierror.Append(problems, fmt.Errorf(format, args...))
	}

	fs.checkBlockOwnership(report)
	fs.checkFiles(report)

	err = fs.checkScratchErased(report)
	if err != nil {
		return err
	}
	if problems != nil {
		return sstfs.ErrDataCorrupt.Wrap(problems)
	}
	return nil
}

type problemReporter func(format string, args ...any)

// checkBlockOwnership makes sure that each physical block is used for exactly
// one thing.
func (fs *FileSystem) checkBlockOwnership(report problemReporter) {
	g := &fs.geometry
	owned := bitmap.New(int(g.TotalBlocks))

	claim := func(block c.PhysicalBlock, owner string) {
		if uint32(block) >= g.TotalBlocks {
			report("%s: physical block %d doesn't exist", owner, block)
			return
		}
		if owned.Get(int(block)) {
			report("%s: physical block %d is already in use", owner, block)
			return
		}
		owned.Set(int(block), true)
	}

	claim(fs.active, "active metadata block")
	claim(fs.scratch, "scratch metadata block")
	if g.Variant == VariantDedicated {
		err := g.validateHeader(fs.header)
		if err != nil {
			report("header: %v", err)
		} else {
			claim(fs.header.ScratchDataBlock, "scratch data block")
		}
	}

	for i, block := range fs.blocks {
		err := g.validateBlockMeta(block)
		if err != nil {
			report("logical block %d: %v", i, err)
		}

		if i == int(LogicalBlock0) {
			if block.PhysicalID != fs.active {
				report(
					"logical block 0 is in physical block %d, not the active metadata block %d",
					block.PhysicalID,
					fs.active)
			}
			continue
		}
		claim(block.PhysicalID, fmt.Sprintf("logical block %d", i))
	}

	for i := 0; i < int(g.TotalBlocks); i++ {
		if !owned.Get(i) {
			report("physical block %d isn't used for anything", i)
		}
	}
}

// checkFiles checks the file table against the block table.
func (fs *FileSystem) checkFiles(report problemReporter) {
	g := &fs.geometry
	seenIDs := make(map[sstfs.FileID]int)
	filesInBlock := make([][]fileMeta, len(fs.blocks))

	for i, file := range fs.files {
		err := g.validateFileMeta(file)
		if err != nil {
			report("file table entry %d: %v", i, err)
			continue
		}
		if !file.inUse() {
			continue
		}

		previous, duplicate := seenIDs[file.ID]
		if duplicate {
			report("file %d is in table entries %d and %d", file.ID, previous, i)
		}
		seenIDs[file.ID] = i
		filesInBlock[file.LogicalBlock] = append(filesInBlock[file.LogicalBlock], file)
	}

	for lblock, files := range filesInBlock {
		block := fs.blocks[lblock]
		usedEnd := g.BlockSize - block.FreeSize

		// Zero-size files share an offset with their successor and must sort
		// first.
		sort.Slice(files, func(i, j int) bool {
			if files[i].DataOffset != files[j].DataOffset {
				return files[i].DataOffset < files[j].DataOffset
			}
			return files[i].MaxSize < files[j].MaxSize
		})

		// Files are packed from the start of the data area with no gaps, so the
		// reserved sizes must add up exactly to the space in use.
		expectedOffset := block.DataStart
		for _, file := range files {
			if file.DataOffset != expectedOffset {
				report(
					"logical block %d: file %d starts at %d, expected %d",
					lblock,
					file.ID,
					file.DataOffset,
					expectedOffset)
			}
			end := file.DataOffset + file.MaxSize
			if end > usedEnd {
				report(
					"logical block %d: file %d ends at %d, past the used area (%d)",
					lblock,
					file.ID,
					end,
					usedEnd)
			}
			if end > expectedOffset {
				expectedOffset = end
			}
		}
		if expectedOffset != usedEnd && block.DataStart <= usedEnd {
			report(
				"logical block %d: files use %d bytes, block metadata says %d",
				lblock,
				expectedOffset-block.DataStart,
				usedEnd-block.DataStart)
		}
	}
}

// checkScratchErased reports scratch blocks that contain anything. It's a
// no-op after a failed update, since the scratch blocks are only cleaned up
// when the next update starts.
func (fs *FileSystem) checkScratchErased(report problemReporter) error {
	if fs.scratchDirty {
		return nil
	}

	toCheck := []c.PhysicalBlock{fs.scratch}
	if fs.geometry.Variant == VariantDedicated {
		toCheck = append(toCheck, fs.header.ScratchDataBlock)
	}

	buffer := make([]byte, fs.geometry.BlockSize)
	for _, block := range toCheck {
		if uint32(block) >= fs.geometry.TotalBlocks {
			continue
		}
		err := fs.device.Read(block, 0, buffer)
		if err != nil {
			return storageFailure(err)
		}
		for offset, value := range buffer {
			if value != c.FlashErasedValue {
				report("scratch block %d isn't erased at offset %d", block, offset)
				break
			}
		}
	}
	return nil
}
