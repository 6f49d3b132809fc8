package testing

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/dargueta/sstfs/flash"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// NewErasedDevice creates a RAM-backed flash device with every block erased.
func NewErasedDevice(bytesPerBlock, totalBlocks, programUnit uint32) *flash.MemoryDevice {
	return flash.NewMemoryDevice(bytesPerBlock, totalBlocks, programUnit)
}

// CloneDevice creates a new RAM-backed device with the same contents as
// `device`, as if the flash had been moved to a new board. It's used to
// "reboot" after a simulated power failure.
func CloneDevice(t *testing.T, device *flash.MemoryDevice) *flash.MemoryDevice {
	clone, err := flash.NewMemoryDeviceFromImage(
		device.Image(), device.BytesPerBlock(), device.ProgramUnit())
	require.NoError(t, err, "failed to clone flash device")
	return clone
}

// NewErasedStream returns a fixed-size in-memory stream holding an erased
// flash image, along with the slice backing it.
//
// Writes to the stream are visible in the slice. The stream can't grow;
// writing past the end of the image is an error.
func NewErasedStream(
	t *testing.T, bytesPerBlock, totalBlocks uint32,
) (io.ReadWriteSeeker, []byte) {
	image := bytes.Repeat([]byte{0xff}, int(bytesPerBlock*totalBlocks))
	require.NotEmpty(t, image, "image has no blocks")
	return bytesextra.NewReadWriteSeeker(image), image
}

// RandomData returns `size` random bytes. It's guaranteed to either return a
// valid slice or fail the test and abort.
func RandomData(t *testing.T, size uint32) []byte {
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoErrorf(t, err, "failed to generate %d random bytes", size)
	return data
}

// FillData returns `size` bytes all set to `value`.
func FillData(value byte, size uint32) []byte {
	return bytes.Repeat([]byte{value}, int(size))
}
