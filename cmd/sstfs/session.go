package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dargueta/sstfs"
	"github.com/dargueta/sstfs/file_systems/sst"
	"github.com/dargueta/sstfs/flash"
	"github.com/dargueta/sstfs/layouts"
	"github.com/dargueta/sstfs/objects"
	"github.com/dargueta/sstfs/utilities/imagefile"
	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"
)

// session is an open flash image. Compressed images are loaded into memory and
// written back when the session is closed; uncompressed ones are modified in
// place.
type session struct {
	path    string
	config  sst.Config
	device  sstfs.FlashDevice
	memory  *flash.MemoryDevice
	file    *os.File
	service *objects.Service
}

func configFromFlags(context *cli.Context) (sst.Config, error) {
	cfg, err := layouts.GetConfig(context.String("layout"))
	if err != nil {
		return cfg, err
	}

	overrides := []struct {
		flag  string
		value *uint32
	}{
		{"block-size", &cfg.BlockSize},
		{"total-blocks", &cfg.TotalBlocks},
		{"program-unit", &cfg.ProgramUnit},
		{"max-object-size", &cfg.MaxObjectSize},
		{"max-objects", &cfg.MaxNumObjects},
	}
	for _, override := range overrides {
		if context.IsSet(override.flag) {
			*override.value = uint32(context.Uint(override.flag))
		}
	}
	cfg.ValidateMetadata = !context.Bool("no-validate")
	return cfg, cfg.Validate()
}

func sealerFromFlags(context *cli.Context) (objects.Sealer, error) {
	keyFile := context.String("key-file")
	if keyFile == "" {
		return nil, nil
	}

	rootKey, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("can't read the root key: %w", err)
	}
	return objects.NewAEADSealer(rootKey)
}

func (s *session) wrapDevice(context *cli.Context, device sstfs.FlashDevice) {
	if context.Bool("trace") {
		device = flash.NewTracingDevice(
			device, log.New(context.App.ErrWriter, "", log.Lmicroseconds))
	}
	s.device = device
}

// openSession opens an existing image and mounts the file system on it.
func openSession(context *cli.Context) (*session, error) {
	cfg, err := configFromFlags(context)
	if err != nil {
		return nil, err
	}
	sealer, err := sealerFromFlags(context)
	if err != nil {
		return nil, err
	}

	s := &session{path: context.String("image"), config: cfg}
	if imagefile.IsCompressed(s.path) {
		image, err := imagefile.Load(s.path)
		if err != nil {
			return nil, err
		}
		s.memory, err = flash.NewMemoryDeviceFromImage(image, cfg.BlockSize, cfg.ProgramUnit)
		if err != nil {
			return nil, err
		}
		if s.memory.TotalBlocks() != cfg.TotalBlocks {
			return nil, fmt.Errorf(
				"image has %d blocks, layout needs %d", s.memory.TotalBlocks(), cfg.TotalBlocks)
		}
		s.wrapDevice(context, s.memory)
	} else {
		s.file, err = os.OpenFile(s.path, os.O_RDWR, 0)
		if err != nil {
			return nil, err
		}
		s.wrapDevice(
			context,
			flash.NewStreamDevice(
				s.file, cfg.BlockSize, cfg.TotalBlocks, context.Int64("offset")))
	}

	s.service = objects.NewService(s.device, cfg, sealer)
	err = s.service.Init(false)
	if err != nil {
		s.close(false)
		return nil, err
	}
	return s, nil
}

func (s *session) fileSystem() *sst.FileSystem {
	return s.service.FileSystem()
}

// close releases the image, saving compressed images if `save` is true.
func (s *session) close(save bool) error {
	var result *multierror.Error
	if s.memory != nil && save {
		err := imagefile.Save(s.path, s.memory.Image())
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	if s.file != nil {
		err := s.file.Close()
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// run opens the image, calls `action`, and closes the image again. Changes to
// compressed images are only saved if `action` succeeds.
func run(context *cli.Context, modifies bool, action func(s *session) error) error {
	s, err := openSession(context)
	if err != nil {
		return err
	}

	err = action(s)
	closeErr := s.close(modifies && err == nil)
	if closeErr != nil {
		return multierror.Append(err, closeErr)
	}
	return err
}
