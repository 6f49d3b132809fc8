package flash

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveRangeSpansChunks(t *testing.T) {
	device := NewMemoryDevice(1024, 2, 4)

	payload := make([]byte, 600)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	require.NoError(t, device.Write(0, 100, payload))

	require.NoError(t, MoveRange(device, 1, 4, 0, 100, 600))

	moved := make([]byte, 600)
	require.NoError(t, device.Read(1, 4, moved))
	assert.Equal(t, payload, moved)

	head := make([]byte, 4)
	require.NoError(t, device.Read(1, 0, head))
	assert.Equal(t, bytes.Repeat([]byte{0xff}, 4), head, "bytes before destination modified")
}

func TestMoveRangeZeroSize(t *testing.T) {
	device := NewMemoryDevice(64, 2, 1)
	require.NoError(t, MoveRange(device, 1, 0, 0, 0, 0))
	assert.Equal(t, bytes.Repeat([]byte{0xff}, 128), device.Image())
}

func TestMoveRangePropagatesErrors(t *testing.T) {
	device := NewMemoryDevice(64, 2, 1)
	err := MoveRange(device, 1, 0, 0, 32, 64)
	assert.Error(t, err, "reading past the end of the block should fail")
}

func TestTracingDeviceLogs(t *testing.T) {
	var output strings.Builder
	logger := log.New(&output, "", 0)
	device := NewTracingDevice(NewMemoryDevice(16, 2, 1), logger)

	require.NoError(t, device.Init())
	require.NoError(t, device.Write(1, 2, []byte{0, 1}))
	require.NoError(t, device.Read(1, 0, make([]byte, 4)))
	require.NoError(t, device.Erase(0))
	err := device.Erase(7)
	require.Error(t, err)

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "flash: Init() -> <nil>", lines[0])
	assert.Equal(t, "flash: Write(1, 2, 2) -> <nil>", lines[1])
	assert.Equal(t, "flash: Read(1, 0, 4) -> <nil>", lines[2])
	assert.Equal(t, "flash: Erase(0) -> <nil>", lines[3])
	assert.True(t, strings.HasPrefix(lines[4], "flash: Erase(7) -> invalid block ID 7"))
}
