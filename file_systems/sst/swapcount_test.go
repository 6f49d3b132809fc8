package sst

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextSwapCount(t *testing.T) {
	assert.EqualValues(t, 1, nextSwapCount(0))
	assert.EqualValues(t, 0xfe, nextSwapCount(0xfd))
	assert.EqualValues(t, 0, nextSwapCount(0xfe), "must skip the erased value")
}

func TestCompareSwapCount(t *testing.T) {
	testCases := []struct {
		a, b     uint8
		expected int
	}{
		{3, 3, 0},
		{5, 4, 1},
		{4, 5, -1},
		{0, 0xfe, 1},
		{0xfe, 0, -1},
		{0, 5, 1},
		{1, 0, 1},
		{0, 1, -1},
		{2, 1, 1},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d_vs_%d", tc.a, tc.b), func(t *testing.T) {
			assert.Equal(t, tc.expected, compareSwapCount(tc.a, tc.b))
		})
	}
}

func TestCompareSwapCountFollowsIncrement(t *testing.T) {
	// Every count must compare newer than the one before it, all the way around
	// the wrap.
	count := uint8(0)
	for i := 0; i < 600; i++ {
		next := nextSwapCount(count)
		assert.Equalf(t, 1, compareSwapCount(next, count), "%d should be newer than %d", next, count)
		assert.Equalf(t, -1, compareSwapCount(count, next), "%d should be older than %d", count, next)
		count = next
	}
}

func TestHeaderValidity(t *testing.T) {
	assert.True(t, metadataHeader{FSVersion: 1, SwapCount: 0}.isValid())
	assert.True(t, metadataHeader{FSVersion: 1, SwapCount: 0xfe}.isValid())
	assert.False(t, metadataHeader{FSVersion: 1, SwapCount: 0xff}.isValid())
	assert.False(t, metadataHeader{FSVersion: 2, SwapCount: 3}.isValid())
}

func TestLatestMetadataBlock(t *testing.T) {
	assert.Equal(
		t,
		MetadataBlock1,
		latestMetadataBlock(metadataHeader{SwapCount: 4}, metadataHeader{SwapCount: 5}))
	assert.Equal(
		t,
		MetadataBlock0,
		latestMetadataBlock(metadataHeader{SwapCount: 0}, metadataHeader{SwapCount: 0xfe}))
	assert.Equal(
		t,
		MetadataBlock1,
		latestMetadataBlock(metadataHeader{SwapCount: 0xfe}, metadataHeader{SwapCount: 0}))
}
