package sst

import c "github.com/dargueta/sstfs/file_systems/common"

// nextSwapCount gives the swap count following `count`. The erased value is
// never valid, so the count wraps around to 0 right before reaching it.
func nextSwapCount(count uint8) uint8 {
	next := count + 1
	if next == c.FlashErasedValue {
		return 0
	}
	return next
}

// compareSwapCount returns a positive number if a metadata block with swap
// count `a` is more recent than one with swap count `b`, a negative number if
// it's older, and 0 if they're equal.
//
// A count of 0 means the counter has wrapped around, so it's the newer one
// unless the other count is 1. In that case the wrap happened on the previous
// update.
func compareSwapCount(a, b uint8) int {
	switch {
	case a == b:
		return 0
	case a == 0 && b != 1:
		return 1
	case b == 0 && a != 1:
		return -1
	case a > b:
		return 1
	default:
		return -1
	}
}

// isValid checks whether the header belongs to a completely written metadata
// block of a version we understand. A swap count in the erased state means the
// header was never committed.
func (header metadataHeader) isValid() bool {
	return header.FSVersion == SupportedVersion &&
		header.SwapCount != c.FlashErasedValue
}

// latestMetadataBlock picks the more recent of two valid metadata blocks.
func latestMetadataBlock(header0, header1 metadataHeader) c.PhysicalBlock {
	if compareSwapCount(header1.SwapCount, header0.SwapCount) > 0 {
		return MetadataBlock1
	}
	return MetadataBlock0
}
