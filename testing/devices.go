package testing

import (
	"errors"
	"fmt"

	"github.com/dargueta/sstfs"
	c "github.com/dargueta/sstfs/file_systems/common"
)

// ErrPowerCut is returned by [PowerCutDevice] for the operation that was
// interrupted and everything after it.
var ErrPowerCut = errors.New("simulated power failure")

// ErrInjected is the default error returned by [FailingDevice].
var ErrInjected = errors.New("injected flash failure")

// PowerCutDevice passes operations through to another device until a fixed
// number of writes and erases have been made, then "loses power": the
// interrupted operation and every one after it fails with [ErrPowerCut].
//
// An interrupted write may still partly reach the flash. The first
// `PartialWriteBytes` bytes of it are written to the underlying device before
// it fails, mimicking a write that was cut off midway. An interrupted erase
// doesn't modify the block.
type PowerCutDevice struct {
	Device sstfs.FlashDevice
	// OperationBudget is the number of writes and erases that succeed before
	// the power is cut. A negative value means the power is never cut.
	OperationBudget int
	// PartialWriteBytes is how many bytes of the interrupted write make it to
	// the device. Rounded down to `ProgramUnit`.
	PartialWriteBytes int
	ProgramUnit       int

	operations int
	powerLost  bool
}

var _ sstfs.FlashDevice = (*PowerCutDevice)(nil)

// NewPowerCutDevice wraps `device` so that power is lost after `budget`
// writes and erases.
func NewPowerCutDevice(device sstfs.FlashDevice, budget int) *PowerCutDevice {
	return &PowerCutDevice{Device: device, OperationBudget: budget, ProgramUnit: 1}
}

// Operations returns the number of writes and erases attempted so far,
// including the interrupted one.
func (device *PowerCutDevice) Operations() int {
	return device.operations
}

// PowerLost returns true once the budget has been exhausted.
func (device *PowerCutDevice) PowerLost() bool {
	return device.powerLost
}

// consume accounts for one write or erase, returning false if the power fails
// during it.
func (device *PowerCutDevice) consume() bool {
	if device.powerLost {
		return false
	}
	device.operations++
	if device.OperationBudget >= 0 && device.operations > device.OperationBudget {
		device.powerLost = true
		return false
	}
	return true
}

func (device *PowerCutDevice) Init() error {
	if device.powerLost {
		return ErrPowerCut
	}
	return device.Device.Init()
}

func (device *PowerCutDevice) Read(block c.PhysicalBlock, offset uint32, buffer []byte) error {
	if device.powerLost {
		return ErrPowerCut
	}
	return device.Device.Read(block, offset, buffer)
}

func (device *PowerCutDevice) Write(block c.PhysicalBlock, offset uint32, data []byte) error {
	if device.consume() {
		return device.Device.Write(block, offset, data)
	}

	partial := device.PartialWriteBytes
	if partial > len(data) {
		partial = len(data)
	}
	if device.ProgramUnit > 1 {
		partial -= partial % device.ProgramUnit
	}
	if partial > 0 {
		// Errors don't matter here; the caller sees a power failure either way.
		_ = device.Device.Write(block, offset, data[:partial])
	}
	return ErrPowerCut
}

func (device *PowerCutDevice) Erase(block c.PhysicalBlock) error {
	if !device.consume() {
		return ErrPowerCut
	}
	return device.Device.Erase(block)
}

// Operation identifies a kind of call made to a [sstfs.FlashDevice].
type Operation int

const (
	OpInit Operation = iota
	OpRead
	OpWrite
	OpErase
)

func (op Operation) String() string {
	switch op {
	case OpInit:
		return "init"
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpErase:
		return "erase"
	default:
		return fmt.Sprintf("Operation(%d)", int(op))
	}
}

// FailingDevice passes operations through to another device, but fails the
// n-th call of a given kind. Unlike [PowerCutDevice] the device keeps working
// afterwards.
type FailingDevice struct {
	Device sstfs.FlashDevice
	// FailOn is the kind of operation to fail.
	FailOn Operation
	// FailAt is the 1-based number of the call to fail. 0 disables failures.
	FailAt int
	// FailAlways makes every call from the FailAt-th onwards fail, not just
	// that one.
	FailAlways bool
	// Err is the error returned. Defaults to [ErrInjected].
	Err error

	calls map[Operation]int
}

var _ sstfs.FlashDevice = (*FailingDevice)(nil)

// NewFailingDevice wraps `device` so that the `n`-th call of type `op` fails.
func NewFailingDevice(device sstfs.FlashDevice, op Operation, n int) *FailingDevice {
	return &FailingDevice{Device: device, FailOn: op, FailAt: n}
}

// Calls returns how many calls of type `op` have been made.
func (device *FailingDevice) Calls(op Operation) int {
	return device.calls[op]
}

func (device *FailingDevice) shouldFail(op Operation) error {
	if device.calls == nil {
		device.calls = make(map[Operation]int)
	}
	device.calls[op]++

	if op != device.FailOn || device.FailAt == 0 {
		return nil
	}

	n := device.calls[op]
	if n == device.FailAt || (device.FailAlways && n > device.FailAt) {
		if device.Err != nil {
			return device.Err
		}
		return fmt.Errorf("%w: %s #%d", ErrInjected, op, n)
	}
	return nil
}

func (device *FailingDevice) Init() error {
	if err := device.shouldFail(OpInit); err != nil {
		return err
	}
	return device.Device.Init()
}

func (device *FailingDevice) Read(block c.PhysicalBlock, offset uint32, buffer []byte) error {
	if err := device.shouldFail(OpRead); err != nil {
		return err
	}
	return device.Device.Read(block, offset, buffer)
}

func (device *FailingDevice) Write(block c.PhysicalBlock, offset uint32, data []byte) error {
	if err := device.shouldFail(OpWrite); err != nil {
		return err
	}
	return device.Device.Write(block, offset, data)
}

func (device *FailingDevice) Erase(block c.PhysicalBlock) error {
	if err := device.shouldFail(OpErase); err != nil {
		return err
	}
	return device.Device.Erase(block)
}
