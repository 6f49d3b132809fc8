package flash

import (
	"log"

	"github.com/dargueta/sstfs"
	c "github.com/dargueta/sstfs/file_systems/common"
)

var _ sstfs.FlashDevice = (*TracingDevice)(nil)

// TracingDevice logs every call made to the device it wraps, along with the
// result.
type TracingDevice struct {
	Device sstfs.FlashDevice
	Logger *log.Logger
}

func NewTracingDevice(device sstfs.FlashDevice, logger *log.Logger) *TracingDevice {
	return &TracingDevice{Device: device, Logger: logger}
}

func (device *TracingDevice) Init() error {
	err := device.Device.Init()
	device.Logger.Printf("flash: Init() -> %v", err)
	return err
}

func (device *TracingDevice) Read(block c.PhysicalBlock, offset uint32, buffer []byte) error {
	err := device.Device.Read(block, offset, buffer)
	device.Logger.Printf("flash: Read(%d, %d, %d) -> %v", block, offset, len(buffer), err)
	return err
}

func (device *TracingDevice) Write(block c.PhysicalBlock, offset uint32, data []byte) error {
	err := device.Device.Write(block, offset, data)
	device.Logger.Printf("flash: Write(%d, %d, %d) -> %v", block, offset, len(data), err)
	return err
}

func (device *TracingDevice) Erase(block c.PhysicalBlock) error {
	err := device.Device.Erase(block)
	device.Logger.Printf("flash: Erase(%d) -> %v", block, err)
	return err
}
