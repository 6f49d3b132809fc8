package flash

import (
	"bytes"
	"fmt"

	"github.com/dargueta/sstfs"
	c "github.com/dargueta/sstfs/file_systems/common"
)

var _ sstfs.FlashDevice = (*MemoryDevice)(nil)

// MemoryDevice is flash emulated in RAM.
//
// Programming follows NOR semantics: a write can only clear bits, so the byte
// stored is the AND of the old and new values. Writing twice to the same
// location without an erase in between therefore corrupts the data, exactly
// like it would on real hardware. Writes must also start and end on a
// program unit boundary.
type MemoryDevice struct {
	bytesPerBlock uint32
	totalBlocks   uint32
	programUnit   uint32
	data          []byte
	eraseCounts   []uint
}

// NewMemoryDevice creates a device with every block erased.
func NewMemoryDevice(bytesPerBlock, totalBlocks, programUnit uint32) *MemoryDevice {
	device := &MemoryDevice{
		bytesPerBlock: bytesPerBlock,
		totalBlocks:   totalBlocks,
		programUnit:   programUnit,
		data: bytes.Repeat(
			[]byte{c.FlashErasedValue}, int(bytesPerBlock*totalBlocks)),
		eraseCounts: make([]uint, totalBlocks),
	}
	return device
}

// NewMemoryDeviceFromImage creates a device whose contents are a copy of
// `image`. The length of the image must be a whole number of blocks.
func NewMemoryDeviceFromImage(
	image []byte, bytesPerBlock, programUnit uint32,
) (*MemoryDevice, error) {
	if bytesPerBlock == 0 || uint32(len(image))%bytesPerBlock != 0 {
		return nil, fmt.Errorf(
			"image size must be a multiple of the block size (%d B), got %d",
			bytesPerBlock,
			len(image))
	}

	totalBlocks := uint32(len(image)) / bytesPerBlock
	device := &MemoryDevice{
		bytesPerBlock: bytesPerBlock,
		totalBlocks:   totalBlocks,
		programUnit:   programUnit,
		data:          make([]byte, len(image)),
		eraseCounts:   make([]uint, totalBlocks),
	}
	copy(device.data, image)
	return device, nil
}

func (device *MemoryDevice) Init() error {
	return nil
}

// checkIOBounds makes sure `length` bytes starting at `offset` fit inside a
// single existing block.
func (device *MemoryDevice) checkIOBounds(
	block c.PhysicalBlock, offset uint32, length int,
) error {
	if uint32(block) >= device.totalBlocks {
		return fmt.Errorf(
			"invalid block ID %d: not in range [0, %d)", block, device.totalBlocks)
	}
	if uint64(offset)+uint64(length) > uint64(device.bytesPerBlock) {
		return fmt.Errorf(
			"%d bytes at offset %d extends past the end of a %d-byte block",
			length,
			offset,
			device.bytesPerBlock)
	}
	return nil
}

func (device *MemoryDevice) blockStart(block c.PhysicalBlock) uint32 {
	return uint32(block) * device.bytesPerBlock
}

func (device *MemoryDevice) Read(block c.PhysicalBlock, offset uint32, buffer []byte) error {
	err := device.checkIOBounds(block, offset, len(buffer))
	if err != nil {
		return err
	}

	start := device.blockStart(block) + offset
	copy(buffer, device.data[start:start+uint32(len(buffer))])
	return nil
}

func (device *MemoryDevice) Write(block c.PhysicalBlock, offset uint32, data []byte) error {
	err := device.checkIOBounds(block, offset, len(data))
	if err != nil {
		return err
	}

	if !c.IsAligned(offset, device.programUnit) ||
		!c.IsAligned(uint32(len(data)), device.programUnit) {
		return fmt.Errorf(
			"unaligned write of %d bytes at offset %d: program unit is %d bytes",
			len(data),
			offset,
			device.programUnit)
	}

	start := device.blockStart(block) + offset
	for i, value := range data {
		device.data[start+uint32(i)] &= value
	}
	return nil
}

func (device *MemoryDevice) Erase(block c.PhysicalBlock) error {
	err := device.checkIOBounds(block, 0, 0)
	if err != nil {
		return err
	}

	start := device.blockStart(block)
	blockData := device.data[start : start+device.bytesPerBlock]
	for i := range blockData {
		blockData[i] = c.FlashErasedValue
	}
	device.eraseCounts[block]++
	return nil
}

// BytesPerBlock returns the size of a single block, in bytes.
func (device *MemoryDevice) BytesPerBlock() uint32 {
	return device.bytesPerBlock
}

// TotalBlocks returns the number of blocks in the device.
func (device *MemoryDevice) TotalBlocks() uint32 {
	return device.totalBlocks
}

// ProgramUnit returns the write granularity of the device, in bytes.
func (device *MemoryDevice) ProgramUnit() uint32 {
	return device.programUnit
}

// EraseCount returns how many times `block` has been erased since the device
// was created.
func (device *MemoryDevice) EraseCount(block c.PhysicalBlock) uint {
	return device.eraseCounts[block]
}

// Image returns a copy of the entire contents of the device.
func (device *MemoryDevice) Image() []byte {
	image := make([]byte, len(device.data))
	copy(image, device.data)
	return image
}
