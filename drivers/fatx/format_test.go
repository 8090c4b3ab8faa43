package fatx

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	fatxtesting "github.com/dargueta/gofatx/testing"
)

func TestRetailPartitionTableParsesHexOffsets(t *testing.T) {
	table, err := RetailPartitionTable()
	require.NoError(t, err)
	require.Len(t, table, 6)

	x, err := LookupPartition(table, "x")
	require.NoError(t, err)
	require.EqualValues(t, 0x00080000, x.Offset)
	require.EqualValues(t, 0x02EE00000, x.Size)
}

func TestRetailPartitionTableFRemainderSentinel(t *testing.T) {
	table, err := RetailPartitionTable()
	require.NoError(t, err)

	f, err := LookupPartition(table, "f")
	require.NoError(t, err)
	require.EqualValues(t, RemainderSize, f.Size)
}

func TestLookupPartitionUnknownLetter(t *testing.T) {
	table, err := RetailPartitionTable()
	require.NoError(t, err)

	_, err = LookupPartition(table, "q")
	require.Error(t, err)
}

// seekWriterAt adapts a plain io.ReadWriteSeeker to io.WriterAt for tests;
// FormatDisk needs WriterAt for the refurb record, but the in-memory test
// image only exposes Seek+Write.
type seekWriterAt struct {
	io.ReadWriteSeeker
}

func (s seekWriterAt) WriteAt(p []byte, off int64) (int, error) {
	if _, err := s.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return s.Write(p)
}

// minRetailPartitionSize is the smallest partition size that can hold a
// superblock, a (rounded-up-to-4K) FAT, and one 16 KiB retail cluster at a
// 512-byte sector size: 4096 + 4096 + 16384.
const minRetailPartitionSize = 24576

func TestFormatDiskLayoutRetail(t *testing.T) {
	table := []PartitionTableEntry{
		{Letter: "a", Offset: 0, Size: minRetailPartitionSize},
		{Letter: "b", Offset: minRetailPartitionSize, Size: minRetailPartitionSize},
		{Letter: "f", Offset: 2 * minRetailPartitionSize, Size: RemainderSize},
	}

	stream := fatxtesting.NewBlankImage(2 * minRetailPartitionSize)
	w := seekWriterAt{stream}

	volumes, err := formatDiskWithTable(w, FormatDiskOptions{SectorSize: 512, Layout: LayoutRetail}, table)
	require.NoError(t, err)
	require.Len(t, volumes, 2)
	require.Contains(t, volumes, "a")
	require.Contains(t, volumes, "b")
	require.NotContains(t, volumes, "f")
}

func TestFormatDiskLayoutFTakesAll(t *testing.T) {
	table := []PartitionTableEntry{
		{Letter: "a", Offset: 0, Size: minRetailPartitionSize},
		{Letter: "b", Offset: minRetailPartitionSize, Size: minRetailPartitionSize},
		{Letter: "f", Offset: 2 * minRetailPartitionSize, Size: RemainderSize},
	}

	diskSize := int64(3 * minRetailPartitionSize)
	stream := fatxtesting.NewBlankImage(diskSize)
	w := seekWriterAt{stream}

	volumes, err := formatDiskWithTable(w, FormatDiskOptions{
		SectorSize:         512,
		Layout:             LayoutFTakesAll,
		FSectorsPerCluster: 32,
		DiskSize:           diskSize,
	}, table)
	require.NoError(t, err)
	require.Len(t, volumes, 3)
	require.Contains(t, volumes, "f")
	require.EqualValues(t, minRetailPartitionSize, volumes["f"].Device.PartitionSize)
}

func TestFormatDiskAggregatesPartitionFailures(t *testing.T) {
	table := []PartitionTableEntry{
		{Letter: "a", Offset: 0, Size: minRetailPartitionSize},
		// Too small to hold even a superblock: forces FormatPartition to fail.
		{Letter: "b", Offset: minRetailPartitionSize, Size: 100},
	}

	stream := fatxtesting.NewBlankImage(minRetailPartitionSize + 100)
	w := seekWriterAt{stream}

	volumes, err := formatDiskWithTable(w, FormatDiskOptions{SectorSize: 512, Layout: LayoutRetail}, table)
	require.Error(t, err)
	require.Contains(t, err.Error(), "b")
	require.Contains(t, volumes, "a")
	require.NotContains(t, volumes, "b")
}

func TestWriteRefurbInfoAtFixedOffset(t *testing.T) {
	stream := fatxtesting.NewBlankImage(4096)
	w := seekWriterAt{stream}

	require.NoError(t, WriteRefurbInfo(w, 7, 123456))

	header := make([]byte, 16)
	_, err := stream.Seek(RefurbOffset, 0)
	require.NoError(t, err)
	_, err = stream.Read(header)
	require.NoError(t, err)

	require.Equal(t, RefurbSignature, binary.LittleEndian.Uint32(header[0:4]))
	require.Equal(t, uint32(7), binary.LittleEndian.Uint32(header[4:8]))
	require.Equal(t, uint64(123456), binary.LittleEndian.Uint64(header[8:16]))
}
