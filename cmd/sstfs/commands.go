package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dargueta/sstfs"
	"github.com/dargueta/sstfs/file_systems/sst"
	"github.com/dargueta/sstfs/flash"
	"github.com/dargueta/sstfs/layouts"
	"github.com/dargueta/sstfs/utilities/imagefile"
	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v2"
)

func parseUID(context *cli.Context, position int) (sstfs.FileID, error) {
	arg := context.Args().Get(position)
	if arg == "" {
		return 0, errors.New("missing UID argument")
	}

	uid, err := strconv.ParseUint(arg, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid UID %q: %w", arg, err)
	}
	return sstfs.FileID(uid), nil
}

func formatImage(context *cli.Context) error {
	cfg, err := configFromFlags(context)
	if err != nil {
		return err
	}

	path := context.String("image")
	s := &session{path: path, config: cfg}

	if imagefile.IsCompressed(path) {
		s.memory = flash.NewMemoryDevice(cfg.BlockSize, cfg.TotalBlocks, cfg.ProgramUnit)
		s.wrapDevice(context, s.memory)
	} else {
		offset := context.Int64("offset")
		s.file, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return err
		}

		// Only the flash area is touched; anything around it in the image is
		// left alone.
		_, err = s.file.Seek(offset, io.SeekStart)
		if err == nil {
			err = flash.FormatStream(s.file, cfg.BlockSize, cfg.TotalBlocks)
		}
		if err != nil {
			s.close(false)
			return err
		}
		s.wrapDevice(context, flash.NewStreamDevice(s.file, cfg.BlockSize, cfg.TotalBlocks, offset))
	}

	_, err = sst.WipeAll(s.device, cfg)
	closeErr := s.close(err == nil)
	if err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}

	fmt.Fprintf(
		context.App.Writer,
		"Formatted %s: %d blocks of %d bytes\n",
		path,
		cfg.TotalBlocks,
		cfg.BlockSize)
	return nil
}

func listObjects(context *cli.Context) error {
	return run(context, false, func(s *session) error {
		if context.Bool("files") {
			return gocsv.Marshal(s.fileSystem().List(), context.App.Writer)
		}

		objects, err := s.service.List()
		if err != nil {
			return err
		}
		return gocsv.Marshal(objects, context.App.Writer)
	})
}

func putObject(context *cli.Context) error {
	uid, err := parseUID(context, 0)
	if err != nil {
		return err
	}

	source := context.Args().Get(1)
	var data []byte
	switch source {
	case "":
		return errors.New("missing FILE argument")
	case "-":
		data, err = io.ReadAll(os.Stdin)
	default:
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return err
	}

	flags := sstfs.FlagNone
	if context.Bool("write-once") {
		flags |= sstfs.FlagWriteOnce
	}
	if context.Bool("public") {
		flags |= sstfs.FlagNoConfidentiality
	}

	return run(context, true, func(s *session) error {
		return s.service.Set(uid, data, flags)
	})
}

func getObject(context *cli.Context) error {
	uid, err := parseUID(context, 0)
	if err != nil {
		return err
	}

	return run(context, false, func(s *session) error {
		info, err := s.service.GetInfo(uid)
		if err != nil {
			return err
		}

		buffer := make([]byte, info.Size)
		n, err := s.service.Get(uid, 0, buffer)
		if err != nil {
			return err
		}

		output := context.Args().Get(1)
		if output == "" {
			_, err = context.App.Writer.Write(buffer[:n])
			return err
		}
		return os.WriteFile(output, buffer[:n], 0o644)
	})
}

func removeObject(context *cli.Context) error {
	uid, err := parseUID(context, 0)
	if err != nil {
		return err
	}

	return run(context, true, func(s *session) error {
		return s.service.Remove(uid)
	})
}

func showInfo(context *cli.Context) error {
	return run(context, false, func(s *session) error {
		fs := s.fileSystem()
		g := fs.Geometry()
		stats := fs.Stat()

		out := context.App.Writer
		fmt.Fprintf(out, "Variant:                %s\n", g.Variant)
		fmt.Fprintf(out, "Block size:             %d\n", g.BlockSize)
		fmt.Fprintf(out, "Total blocks:           %d\n", g.TotalBlocks)
		fmt.Fprintf(out, "Program unit:           %d\n", g.ProgramUnit)
		fmt.Fprintf(out, "Metadata size:          %d\n", g.MetadataSize)
		fmt.Fprintf(out, "Max object size:        %d\n", g.MaxObjectSize)
		fmt.Fprintf(out, "Active metadata block:  %d\n", stats.ActiveMetadataBlock)
		fmt.Fprintf(out, "Scratch metadata block: %d\n", stats.ScratchMetadataBlock)
		if g.Variant == sst.VariantDedicated {
			fmt.Fprintf(out, "Scratch data block:     %d\n", stats.ScratchDataBlock)
		}
		fmt.Fprintf(out, "Swap count:             %d\n", stats.SwapCount)
		fmt.Fprintf(out, "Files:                  %d/%d\n", stats.Files, stats.MaxFiles)
		fmt.Fprintf(out, "Free bytes:             %d %v\n", stats.TotalFreeBytes, stats.FreeBytes)
		fmt.Fprintf(out, "Largest free:           %d\n", stats.LargestFree)
		return nil
	})
}

func checkImage(context *cli.Context) error {
	return run(context, false, func(s *session) error {
		err := s.fileSystem().Check()
		if err != nil {
			return err
		}
		fmt.Fprintln(context.App.Writer, "No problems found.")
		return nil
	})
}

func listLayouts(context *cli.Context) error {
	return gocsv.Marshal(layouts.All(), context.App.Writer)
}
