package flash

import (
	"bytes"
	"testing"

	"github.com/noxer/bytewriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

func TestFormatStream(t *testing.T) {
	image := make([]byte, 96)
	err := FormatStream(bytewriter.New(image), 32, 3)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xff}, 96), image)
}

func TestStreamDeviceReadWriteErase(t *testing.T) {
	image := make([]byte, 8+32*3)
	device := NewStreamDevice(bytesextra.NewReadWriteSeeker(image), 32, 3, 8)
	require.NoError(t, device.Init())

	require.NoError(t, device.Write(2, 4, []byte("flash")))
	assert.Equal(t, []byte("flash"), image[8+64+4:8+64+9], "start offset not honored")

	buffer := make([]byte, 5)
	require.NoError(t, device.Read(2, 4, buffer))
	assert.Equal(t, []byte("flash"), buffer)

	require.NoError(t, device.Erase(2))
	assert.Equal(t, bytes.Repeat([]byte{0xff}, 32), image[8+64:])
	assert.Equal(t, make([]byte, 8+64), image[:8+64], "erase touched other blocks")
}

func TestStreamDeviceInitTooSmall(t *testing.T) {
	device := NewStreamDevice(bytesextra.NewReadWriteSeeker(make([]byte, 63)), 32, 2, 0)
	assert.Error(t, device.Init())
}

func TestStreamDeviceBounds(t *testing.T) {
	device := NewStreamDevice(bytesextra.NewReadWriteSeeker(make([]byte, 64)), 32, 2, 0)
	assert.Error(t, device.Read(2, 0, make([]byte, 1)))
	assert.Error(t, device.Write(0, 31, []byte{1, 2}))
}
