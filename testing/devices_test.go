package testing

import (
	"testing"

	"github.com/dargueta/sstfs/flash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPowerCutDeviceBudget(t *testing.T) {
	memory := flash.NewMemoryDevice(16, 2, 1)
	device := NewPowerCutDevice(memory, 2)

	require.NoError(t, device.Write(0, 0, []byte{1}))
	require.NoError(t, device.Erase(1))
	assert.False(t, device.PowerLost())

	assert.ErrorIs(t, device.Write(0, 1, []byte{2}), ErrPowerCut)
	assert.True(t, device.PowerLost())
	assert.ErrorIs(t, device.Read(0, 0, make([]byte, 1)), ErrPowerCut)
	assert.ErrorIs(t, device.Erase(0), ErrPowerCut)
	assert.Equal(t, 3, device.Operations())

	buffer := make([]byte, 2)
	require.NoError(t, memory.Read(0, 0, buffer))
	assert.Equal(t, []byte{1, 0xff}, buffer, "interrupted write reached the flash")
}

func TestPowerCutDevicePartialWrite(t *testing.T) {
	memory := flash.NewMemoryDevice(16, 1, 4)
	device := NewPowerCutDevice(memory, 0)
	device.ProgramUnit = 4
	device.PartialWriteBytes = 6

	err := device.Write(0, 0, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	assert.ErrorIs(t, err, ErrPowerCut)

	buffer := make([]byte, 8)
	require.NoError(t, memory.Read(0, 0, buffer))
	assert.Equal(t, []byte{1, 2, 3, 4, 0xff, 0xff, 0xff, 0xff}, buffer)
}

func TestPowerCutDeviceUnlimited(t *testing.T) {
	device := NewPowerCutDevice(flash.NewMemoryDevice(16, 1, 1), -1)
	for i := 0; i < 100; i++ {
		require.NoError(t, device.Erase(0))
	}
	assert.False(t, device.PowerLost())
}

func TestFailingDeviceFailsOnlyNthCall(t *testing.T) {
	device := NewFailingDevice(flash.NewMemoryDevice(16, 2, 1), OpErase, 2)

	assert.NoError(t, device.Erase(0))
	assert.ErrorIs(t, device.Erase(1), ErrInjected)
	assert.NoError(t, device.Erase(1))
	assert.NoError(t, device.Write(0, 0, []byte{0}))
	assert.Equal(t, 3, device.Calls(OpErase))
	assert.Equal(t, 1, device.Calls(OpWrite))
}

func TestFailingDeviceFailAlways(t *testing.T) {
	device := NewFailingDevice(flash.NewMemoryDevice(16, 2, 1), OpRead, 1)
	device.FailAlways = true

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, device.Read(0, 0, make([]byte, 1)), ErrInjected)
	}
	assert.NoError(t, device.Init())
}
