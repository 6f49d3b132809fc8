package sst

import (
	"testing"

	"github.com/dargueta/sstfs"
	"github.com/dargueta/sstfs/flash"
	sstest "github.com/dargueta/sstfs/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// All file data fits in the metadata blocks. The metadata takes 180 bytes,
// leaving 844 for data.
var twoBlockConfig = Config{
	BlockSize:        1024,
	TotalBlocks:      2,
	ProgramUnit:      4,
	MaxObjectSize:    256,
	MaxNumObjects:    8,
	ValidateMetadata: true,
}

// Three logical blocks: block 0 has 348 bytes available for data, the other two
// have 512 each.
var dedicatedConfig = Config{
	BlockSize:        512,
	TotalBlocks:      5,
	ProgramUnit:      4,
	MaxObjectSize:    256,
	MaxNumObjects:    6,
	ValidateMetadata: true,
}

var testConfigs = map[string]Config{
	"two-block": twoBlockConfig,
	"dedicated": dedicatedConfig,
}

func newDevice(cfg Config) *flash.MemoryDevice {
	return sstest.NewErasedDevice(cfg.BlockSize, cfg.TotalBlocks, cfg.ProgramUnit)
}

// newTestFS creates an empty file system on a new RAM device.
func newTestFS(t *testing.T, cfg Config) (*FileSystem, *flash.MemoryDevice) {
	device := newDevice(cfg)
	fs, err := WipeAll(device, cfg)
	require.NoError(t, err, "wiping the device failed")
	return fs, device
}

// readAll returns the current contents of a file.
func readAll(t *testing.T, fs *FileSystem, id sstfs.FileID) []byte {
	info, err := fs.GetInfo(id)
	require.NoErrorf(t, err, "can't get info for file %d", id)

	buffer := make([]byte, info.CurrentSize)
	err = fs.Read(id, 0, buffer)
	require.NoErrorf(t, err, "failed to read file %d", id)
	return buffer
}

type fileState struct {
	Info sstfs.FileInfo
	Data []byte
}

// snapshot captures the metadata and contents of every file.
func snapshot(t *testing.T, fs *FileSystem) map[sstfs.FileID]fileState {
	state := make(map[sstfs.FileID]fileState)
	for _, info := range fs.List() {
		state[info.ID] = fileState{Info: info, Data: readAll(t, fs, info.ID)}
	}
	return state
}

// assertConsistent runs the consistency checker and verifies that no space
// has been lost or double-counted.
func assertConsistent(t *testing.T, fs *FileSystem) {
	require.NoError(t, fs.Check(), "consistency check failed")

	g := fs.Geometry()
	stats := fs.Stat()

	total := stats.TotalFreeBytes + uint64(g.MetadataSize)
	for _, info := range fs.List() {
		total += uint64(info.MaxSize)
	}

	scratchBlocks := uint64(1)
	if g.Variant == VariantDedicated {
		scratchBlocks = 2
	}
	assert.Equal(
		t,
		(uint64(g.TotalBlocks)-scratchBlocks)*uint64(g.BlockSize),
		total,
		"free space + reserved space + metadata doesn't add up")
}
