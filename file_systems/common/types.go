// Package common contains definitions of fundamental types and functions used
// across the flash file system's layers.
package common

import "math"

// LogicalBlock is a stable identifier for a region of file data. The physical
// block backing it changes every time the region is rewritten.
type LogicalBlock uint32

// PhysicalBlock is the index of an erasable unit of flash.
type PhysicalBlock uint32

const InvalidLogicalBlock = LogicalBlock(math.MaxUint32)
const InvalidPhysicalBlock = PhysicalBlock(math.MaxUint32)

// FlashErasedValue is the value every byte of a flash block holds after an
// erase.
const FlashErasedValue = 0xff

// AlignUp rounds `size` up to the nearest multiple of `unit`, which must be a
// power of two.
func AlignUp(size, unit uint32) uint32 {
	return (size + unit - 1) &^ (unit - 1)
}

// IsAligned returns true if `value` is a multiple of `unit`, which must be a
// power of two.
func IsAligned(value, unit uint32) bool {
	return value&(unit-1) == 0
}

// IsPowerOfTwo returns true for 1, 2, 4, 8, ...
func IsPowerOfTwo(value uint32) bool {
	return value != 0 && value&(value-1) == 0
}
