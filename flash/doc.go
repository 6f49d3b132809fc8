// Package flash provides implementations of [sstfs.FlashDevice] and the
// block-to-block copy primitive the file system builds on.
//
// Two devices are provided: [MemoryDevice] emulates NOR flash in RAM and is
// what the tests run on, and [StreamDevice] keeps the flash image in any
// seekable stream, usually a file on the host. [TracingDevice] wraps either
// one and logs every operation.
package flash
