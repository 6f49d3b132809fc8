package main

import (
	"log"
	"os"

	"github.com/dargueta/sstfs/status"
	"github.com/urfave/cli/v2"
)

// imageFlags are the flags of every command that works on an image.
func imageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "image",
			Aliases:  []string{"i"},
			Usage:    "flash image file; names ending in .gz are stored compressed",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "layout",
			Aliases: []string{"l"},
			Usage:   "predefined flash layout, see the layouts command",
			Value:   "two-block-test",
		},
		&cli.UintFlag{Name: "block-size", Usage: "override the layout's block size"},
		&cli.UintFlag{Name: "total-blocks", Usage: "override the layout's number of blocks"},
		&cli.UintFlag{Name: "program-unit", Usage: "override the layout's program unit"},
		&cli.UintFlag{Name: "max-object-size", Usage: "override the layout's max object size"},
		&cli.UintFlag{Name: "max-objects", Usage: "override the layout's max number of objects"},
		&cli.BoolFlag{Name: "no-validate", Usage: "don't validate metadata read from flash"},
		&cli.Int64Flag{
			Name:  "offset",
			Usage: "byte offset of the flash area in the image (uncompressed images only)",
		},
		&cli.StringFlag{
			Name:  "key-file",
			Usage: "file holding the device root key; objects are stored encrypted if given",
		},
		&cli.BoolFlag{Name: "trace", Usage: "log every flash operation to stderr"},
	}
}

func withImageFlags(extra ...cli.Flag) []cli.Flag {
	return append(imageFlags(), extra...)
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "sstfs",
		Usage: "Manage secure storage flash images",
		Commands: []*cli.Command{
			{
				Name:   "format",
				Usage:  "Create an image, or wipe an existing one",
				Action: formatImage,
				Flags:  withImageFlags(),
			},
			{
				Name:   "ls",
				Usage:  "List the objects in an image as CSV",
				Action: listObjects,
				Flags: withImageFlags(
					&cli.BoolFlag{Name: "files", Usage: "list the raw file table instead"},
				),
			},
			{
				Name:      "put",
				Usage:     "Store an object; FILE can be - for stdin",
				ArgsUsage: "UID FILE",
				Action:    putObject,
				Flags: withImageFlags(
					&cli.BoolFlag{Name: "write-once", Usage: "make the object immutable"},
					&cli.BoolFlag{Name: "public", Usage: "store the object unencrypted"},
				),
			},
			{
				Name:      "get",
				Usage:     "Read an object, to stdout if OUTPUT isn't given",
				ArgsUsage: "UID [OUTPUT]",
				Action:    getObject,
				Flags:     withImageFlags(),
			},
			{
				Name:      "rm",
				Usage:     "Remove an object",
				ArgsUsage: "UID",
				Action:    removeObject,
				Flags:     withImageFlags(),
			},
			{
				Name:   "info",
				Usage:  "Show the layout and usage of an image",
				Action: showInfo,
				Flags:  withImageFlags(),
			},
			{
				Name:   "check",
				Usage:  "Check the consistency of an image",
				Action: checkImage,
				Flags:  withImageFlags(),
			},
			{
				Name:   "layouts",
				Usage:  "List the predefined flash layouts as CSV",
				Action: listLayouts,
			},
		},
	}
}

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		log.Fatalf("fatal error (%s): %s", status.FromError(err), err.Error())
	}
}
