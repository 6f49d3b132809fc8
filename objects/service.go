package objects

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/dargueta/sstfs"
	c "github.com/dargueta/sstfs/file_systems/common"
	"github.com/dargueta/sstfs/file_systems/sst"
)

// ObjectHeaderSize is the size of the header stored in front of every object.
const ObjectHeaderSize = 8

// objectHeader is stored unencrypted at the start of an object's file. It's
// bound to the sealed contents as associated data.
type objectHeader struct {
	Flags sstfs.ObjectFlags
	Size  uint32
}

func (header objectHeader) encode() []byte {
	buffer := make([]byte, ObjectHeaderSize)
	binary.LittleEndian.PutUint32(buffer[0:4], uint32(header.Flags))
	binary.LittleEndian.PutUint32(buffer[4:8], header.Size)
	return buffer
}

func decodeObjectHeader(data []byte) (objectHeader, error) {
	if len(data) < ObjectHeaderSize {
		return objectHeader{}, sstfs.ErrDataCorrupt.WithMessage(
			fmt.Sprintf("object is %d bytes, too short for its header", len(data)))
	}

	header := objectHeader{
		Flags: sstfs.ObjectFlags(binary.LittleEndian.Uint32(data[0:4])),
		Size:  binary.LittleEndian.Uint32(data[4:8]),
	}
	if header.Flags&^sstfs.SupportedFlags != 0 {
		return objectHeader{}, sstfs.ErrDataCorrupt.WithMessage(
			fmt.Sprintf("object has unknown flags %#x", uint32(header.Flags)))
	}
	return header, nil
}

// associatedData binds a record to the object it belongs to.
func associatedData(uid sstfs.FileID, header objectHeader) []byte {
	data := make([]byte, 4, 4+ObjectHeaderSize)
	binary.LittleEndian.PutUint32(data, uint32(uid))
	return append(data, header.encode()...)
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	UID   sstfs.FileID      `csv:"uid"`
	Size  uint32            `csv:"size"`
	Flags sstfs.ObjectFlags `csv:"flags"`
}

// Service stores objects identified by a UID. It's safe for concurrent use.
type Service struct {
	mutex  sync.Mutex
	device sstfs.FlashDevice
	config sst.Config
	fs     *sst.FileSystem
	sealer Sealer
}

// NewService creates a storage service on `device`. Confidential objects are
// sealed with `sealer`; if it's nil, all objects are stored unencrypted.
//
// [Service.Init] must be called before anything else.
func NewService(device sstfs.FlashDevice, cfg sst.Config, sealer Sealer) *Service {
	return &Service{
		device: device,
		config: cfg,
		sealer: sealer,
	}
}

// Init mounts the file system. If that fails and `createLayout` is true, the
// device is wiped and a new empty file system is created on it.
func (service *Service) Init(createLayout bool) error {
	service.mutex.Lock()
	defer service.mutex.Unlock()

	fs, err := sst.Prepare(service.device, service.config)
	if err != nil {
		if !createLayout || errors.Is(err, sstfs.ErrInvalidArgument) {
			return err
		}
		fs, err = sst.WipeAll(service.device, service.config)
		if err != nil {
			return err
		}
	}
	service.fs = fs
	return nil
}

// FileSystem returns the underlying file system, or nil if the service hasn't
// been initialized.
func (service *Service) FileSystem() *sst.FileSystem {
	service.mutex.Lock()
	defer service.mutex.Unlock()
	return service.fs
}

func (service *Service) checkReady(uid sstfs.FileID) error {
	if service.fs == nil {
		return sstfs.ErrOperationFailed.WithMessage("storage service isn't initialized")
	}
	if uid == sstfs.InvalidFileID {
		return sstfs.ErrInvalidArgument.WithMessage("UID 0 is reserved")
	}
	return nil
}

func (service *Service) sealerFor(flags sstfs.ObjectFlags) Sealer {
	if service.sealer == nil || !flags.Confidential() {
		return PlainSealer{}
	}
	return service.sealer
}

// readHeader reads only the header of an object.
func (service *Service) readHeader(uid sstfs.FileID) (objectHeader, error) {
	buffer := make([]byte, ObjectHeaderSize)
	err := service.fs.Read(uid, 0, buffer)
	if err != nil {
		if errors.Is(err, sstfs.ErrUIDNotFound) {
			return objectHeader{}, err
		}
		return objectHeader{}, sstfs.ErrDataCorrupt.Wrap(err)
	}
	return decodeObjectHeader(buffer)
}

// load reads and unseals an entire object.
func (service *Service) load(uid sstfs.FileID) (objectHeader, []byte, error) {
	info, err := service.fs.GetInfo(uid)
	if err != nil {
		return objectHeader{}, nil, err
	}

	stored := make([]byte, info.CurrentSize)
	err = service.fs.Read(uid, 0, stored)
	if err != nil {
		return objectHeader{}, nil, err
	}

	header, err := decodeObjectHeader(stored)
	if err != nil {
		return objectHeader{}, nil, err
	}

	data, err := service.sealerFor(header.Flags).Open(
		associatedData(uid, header), stored[ObjectHeaderSize:])
	if err != nil {
		return objectHeader{}, nil, err
	}
	if uint64(len(data)) != uint64(header.Size) {
		return objectHeader{}, nil, sstfs.ErrDataCorrupt.WithMessage(
			fmt.Sprintf(
				"object %d should be %d bytes, found %d", uid, header.Size, len(data)))
	}
	return header, data, nil
}

// Set stores `data` under `uid`, replacing the existing object if there is
// one. Write-once objects can't be replaced.
func (service *Service) Set(uid sstfs.FileID, data []byte, flags sstfs.ObjectFlags) error {
	service.mutex.Lock()
	defer service.mutex.Unlock()

	err := service.checkReady(uid)
	if err != nil {
		return err
	}
	if flags&^sstfs.SupportedFlags != 0 {
		return sstfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf("unsupported flags %#x", uint32(flags&^sstfs.SupportedFlags)))
	}

	header := objectHeader{Flags: flags, Size: uint32(len(data))}
	record, err := service.sealerFor(flags).Seal(associatedData(uid, header), data)
	if err != nil {
		return err
	}

	programUnit := service.config.ProgramUnit
	stored := make([]byte, c.AlignUp(uint32(ObjectHeaderSize+len(record)), programUnit))
	copy(stored, header.encode())
	copy(stored[ObjectHeaderSize:], record)

	// Reject an oversized object before the old version is deleted below.
	maxFileSize := service.fs.Geometry().MaxFileSize
	if uint32(len(stored)) > maxFileSize {
		return sstfs.ErrInvalidArgument.WithMessage(
			fmt.Sprintf(
				"object %d needs %d bytes of storage, limit is %d",
				uid,
				len(stored),
				maxFileSize))
	}

	existing, err := service.readHeader(uid)
	if errors.Is(err, sstfs.ErrUIDNotFound) {
		return service.fs.Create(uid, uint32(len(stored)), stored)
	}
	if err != nil {
		return err
	}
	if existing.Flags.WriteOnce() {
		return sstfs.ErrNotPermitted.WithMessage(
			fmt.Sprintf("object %d is write-once", uid))
	}

	// Overwriting in place is atomic. If the new version doesn't fit, the old
	// one has to go first.
	info, err := service.fs.GetInfo(uid)
	if err != nil {
		return err
	}
	if uint32(len(stored)) <= info.MaxSize {
		return service.fs.Write(uid, 0, stored)
	}

	err = service.fs.Delete(uid)
	if err != nil {
		return err
	}
	return service.fs.Create(uid, uint32(len(stored)), stored)
}

// Get copies the object's data starting at `offset` into `buffer`, and returns
// the number of bytes copied. That's less than the size of the buffer if the
// object ends first.
func (service *Service) Get(uid sstfs.FileID, offset uint32, buffer []byte) (int, error) {
	service.mutex.Lock()
	defer service.mutex.Unlock()

	err := service.checkReady(uid)
	if err != nil {
		return 0, err
	}

	_, data, err := service.load(uid)
	if err != nil {
		return 0, err
	}
	if uint64(offset) > uint64(len(data)) {
		return 0, sstfs.ErrOffsetInvalid.WithMessage(
			fmt.Sprintf("offset %d is past the end of object %d (%d B)", offset, uid, len(data)))
	}
	return copy(buffer, data[offset:]), nil
}

// GetInfo returns the size and flags of an object.
func (service *Service) GetInfo(uid sstfs.FileID) (ObjectInfo, error) {
	service.mutex.Lock()
	defer service.mutex.Unlock()

	err := service.checkReady(uid)
	if err != nil {
		return ObjectInfo{}, err
	}

	header, err := service.readHeader(uid)
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{UID: uid, Size: header.Size, Flags: header.Flags}, nil
}

// Remove deletes an object. Write-once objects can't be removed.
func (service *Service) Remove(uid sstfs.FileID) error {
	service.mutex.Lock()
	defer service.mutex.Unlock()

	err := service.checkReady(uid)
	if err != nil {
		return err
	}

	header, err := service.readHeader(uid)
	if err != nil {
		return err
	}
	if header.Flags.WriteOnce() {
		return sstfs.ErrNotPermitted.WithMessage(
			fmt.Sprintf("object %d is write-once", uid))
	}
	return service.fs.Delete(uid)
}

// List returns information about every stored object.
func (service *Service) List() ([]ObjectInfo, error) {
	service.mutex.Lock()
	defer service.mutex.Unlock()

	if service.fs == nil {
		return nil, sstfs.ErrOperationFailed.WithMessage("storage service isn't initialized")
	}

	files := service.fs.List()
	result := make([]ObjectInfo, 0, len(files))
	for _, file := range files {
		header, err := service.readHeader(file.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, ObjectInfo{UID: file.ID, Size: header.Size, Flags: header.Flags})
	}
	return result, nil
}
