package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/gofatx/drivers/fatx"
)

func main() {
	app := cli.App{
		Name:  "fatxtool",
		Usage: "Inspect and format FATX disk images",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Format a raw disk image with the retail five-partition layout",
				ArgsUsage: "IMAGE_FILE",
				Action:    formatDisk,
			},
			{
				Name:      "probe",
				Usage:     "Print the superblock and geometry of a partition",
				ArgsUsage: "IMAGE_FILE PARTITION_OFFSET PARTITION_SIZE",
				Action:    probeVolume,
			},
			{
				Name:      "ls",
				Usage:     "List a directory's contents",
				ArgsUsage: "IMAGE_FILE PARTITION_OFFSET PARTITION_SIZE PATH",
				Action:    listDir,
			},
			{
				Name:      "cat",
				Usage:     "Print a file's contents to stdout",
				ArgsUsage: "IMAGE_FILE PARTITION_OFFSET PARTITION_SIZE PATH",
				Action:    catFile,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

const defaultSectorSize = 512

func formatDisk(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return cli.Exit("expected IMAGE_FILE", 1)
	}
	imagePath := context.Args().Get(0)

	stat, err := os.Stat(imagePath)
	if err != nil {
		return cli.Exit(err, 1)
	}

	image, err := os.OpenFile(imagePath, os.O_RDWR, 0o644)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer image.Close()

	volumes, err := fatx.FormatDisk(image, fatx.FormatDiskOptions{
		SectorSize: defaultSectorSize,
		Layout:     fatx.LayoutRetail,
		DiskSize:   stat.Size(),
	})
	if err != nil {
		return cli.Exit(err, 1)
	}

	for letter := range volumes {
		fmt.Printf("formatted partition %q\n", letter)
	}
	return nil
}

func openVolume(context *cli.Context) (*fatx.Volume, error) {
	if context.Args().Len() < 3 {
		return nil, cli.Exit("expected IMAGE_FILE PARTITION_OFFSET PARTITION_SIZE", 1)
	}

	imagePath := context.Args().Get(0)
	offset, err := strconv.ParseInt(context.Args().Get(1), 0, 64)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("invalid partition offset: %s", err), 1)
	}
	size, err := strconv.ParseInt(context.Args().Get(2), 0, 64)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("invalid partition size: %s", err), 1)
	}

	image, err := os.OpenFile(imagePath, os.O_RDWR, 0o644)
	if err != nil {
		return nil, cli.Exit(err, 1)
	}

	return fatx.Open(image, offset, size, defaultSectorSize)
}

func probeVolume(context *cli.Context) error {
	vol, err := openVolume(context)
	if err != nil {
		return err
	}
	defer vol.Close()

	fmt.Printf("volume id:          0x%08X\n", vol.VolumeID)
	fmt.Printf("sectors per cluster: %d\n", vol.SectorsPerCluster)
	fmt.Printf("bytes per cluster:   %d\n", vol.Device.BytesPerCluster)
	fmt.Printf("total clusters:      %d\n", vol.TotalClusters)
	fmt.Printf("FAT entry width:     %d bytes\n", vol.EntryWidth)
	fmt.Printf("root cluster:        %d\n", vol.RootCluster)
	return nil
}

func listDir(context *cli.Context) error {
	if context.Args().Len() != 4 {
		return cli.Exit("expected IMAGE_FILE PARTITION_OFFSET PARTITION_SIZE PATH", 1)
	}
	path := context.Args().Get(3)

	vol, err := openVolume(context)
	if err != nil {
		return err
	}
	defer vol.Close()

	driver := fatx.NewDriver(vol)
	names, err := driver.ListDir(path)
	if err != nil {
		return cli.Exit(err, 1)
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func catFile(context *cli.Context) error {
	if context.Args().Len() != 4 {
		return cli.Exit("expected IMAGE_FILE PARTITION_OFFSET PARTITION_SIZE PATH", 1)
	}
	path := context.Args().Get(3)

	vol, err := openVolume(context)
	if err != nil {
		return err
	}
	defer vol.Close()

	driver := fatx.NewDriver(vol)
	attr, err := driver.GetAttr(path)
	if err != nil {
		return cli.Exit(err, 1)
	}

	buffer := make([]byte, attr.FileSize)
	if _, err := driver.ReadAt(path, 0, buffer); err != nil {
		return cli.Exit(err, 1)
	}

	_, err = os.Stdout.Write(buffer)
	return err
}
