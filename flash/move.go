package flash

import (
	"github.com/dargueta/sstfs"
	c "github.com/dargueta/sstfs/file_systems/common"
)

// MaxBlockDataCopy is the size of the staging buffer [MoveRange] copies
// through. It's a multiple of every supported program unit.
const MaxBlockDataCopy = 256

// MoveRange copies `size` bytes from `srcOffset` in block `src` to `dstOffset`
// in block `dst`, at most [MaxBlockDataCopy] bytes at a time. The destination
// range must be erased.
func MoveRange(
	device sstfs.FlashDevice,
	dst c.PhysicalBlock,
	dstOffset uint32,
	src c.PhysicalBlock,
	srcOffset uint32,
	size uint32,
) error {
	var staging [MaxBlockDataCopy]byte

	for moved := uint32(0); moved < size; {
		chunkSize := size - moved
		if chunkSize > MaxBlockDataCopy {
			chunkSize = MaxBlockDataCopy
		}

		chunk := staging[:chunkSize]
		err := device.Read(src, srcOffset+moved, chunk)
		if err != nil {
			return err
		}

		err = device.Write(dst, dstOffset+moved, chunk)
		if err != nil {
			return err
		}
		moved += chunkSize
	}
	return nil
}
