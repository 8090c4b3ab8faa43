package fatx

import (
	"encoding/binary"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/noxer/bytewriter"
)

// RetailClusterSize is the mandatory cluster size, in bytes, for the five
// fixed retail partitions. The console firmware validates that retail
// partitions use exactly this cluster size before it will load a game from
// them, so it must never be made configurable (spec.md section 4.8,
// confirmed by original_source/libfatx/fatx_disk.c's comment on
// fatx_disk_format).
const RetailClusterSize = 16 * 1024

// RefurbOffset is the fixed absolute disk offset of the refurb info
// record.
const RefurbOffset = 0x600

// RefurbSignature is the 4-byte "RFRB" magic value.
const RefurbSignature uint32 = 0x42524652

type rawRefurbInfo struct {
	Signature      uint32
	NumberOfBoots  uint32
	FirstPowerOn   uint64
	_              [16]byte // remainder of the record, always zero
}

// WriteRefurbInfo writes the disk-level refurb record at its fixed offset
// (spec.md section 6). FormatDisk always writes the all-zero case
// (bootCount=0, firstPowerOn=0); this function is exposed separately so a
// caller such as a maintenance tool can update the record after formatting
// without reformatting the disk, matching the reference implementation's
// fatx_disk_write_refurb_info, which takes the boot count and timestamp as
// explicit parameters rather than always zeroing them.
func WriteRefurbInfo(w io.WriterAt, bootCount uint32, firstPowerOn uint64) error {
	buf := make([]byte, 32)
	bw := bytewriter.New(buf)

	raw := rawRefurbInfo{
		Signature:     RefurbSignature,
		NumberOfBoots: bootCount,
		FirstPowerOn:  firstPowerOn,
	}
	if err := binary.Write(bw, binary.LittleEndian, &raw); err != nil {
		return errIO("encode refurb info: %s", err.Error())
	}

	if _, err := w.WriteAt(buf, RefurbOffset); err != nil {
		return errIO("write refurb info: %s", err.Error())
	}
	return nil
}

// DiskLayout selects between the fixed five-partition retail layout and
// the "f-takes-all" layout of spec.md section 4.8.
type DiskLayout int

const (
	LayoutRetail DiskLayout = iota
	LayoutFTakesAll
)

// FormatDiskOptions configures FormatDisk.
type FormatDiskOptions struct {
	SectorSize uint32
	Layout     DiskLayout
	// FSectorsPerCluster is used only when Layout is LayoutFTakesAll; the
	// five retail partitions always use RetailClusterSize regardless of
	// this value.
	FSectorsPerCluster uint32
	// DiskSize is the total size of the backing stream, in bytes; required
	// to compute the f partition's remainder size.
	DiskSize int64
}

// diskStream is the minimal interface FormatDisk needs: a seekable stream
// that also supports WriteAt for the refurb record.
type diskStream interface {
	io.ReadWriteSeeker
	io.WriterAt
}

// FormatDisk implements spec.md section 4.8's whole-disk formatter: write
// the refurb info record, format each of the five retail partitions with
// the mandatory cluster size, and optionally format the "f" remainder
// partition. Per-partition failures are collected into a single
// *multierror.Error rather than aborting at the first failure, so a caller
// can see the full extent of what failed (the reference implementation
// aborts the whole format on the first failing partition; a multi-fault
// report is more useful for a maintenance tool operating on a possibly
// already-damaged disk).
func FormatDisk(stream diskStream, opts FormatDiskOptions) (map[string]*Volume, error) {
	table, err := RetailPartitionTable()
	if err != nil {
		return nil, err
	}
	return formatDiskWithTable(stream, opts, table)
}

// formatDiskWithTable is FormatDisk's implementation, parameterized over the
// partition table so tests can exercise the LayoutFTakesAll remainder-sizing
// branch and the multierror aggregation path against a small table instead
// of the multi-gigabyte real retail offsets.
func formatDiskWithTable(stream diskStream, opts FormatDiskOptions, table []PartitionTableEntry) (map[string]*Volume, error) {
	if err := WriteRefurbInfo(stream, 0, 0); err != nil {
		return nil, err
	}

	volumes := make(map[string]*Volume)
	var result *multierror.Error

	retailSectorsPerCluster := RetailClusterSize / opts.SectorSize

	for _, entry := range table {
		if entry.Letter == "f" {
			continue
		}
		vol, err := FormatPartition(stream, int64(entry.Offset), int64(entry.Size), opts.SectorSize, retailSectorsPerCluster)
		if err != nil {
			result = multierror.Append(result, errFormatPartition(entry.Letter, err))
			continue
		}
		volumes[entry.Letter] = vol
	}

	if opts.Layout == LayoutFTakesAll {
		fEntry, err := LookupPartition(table, "f")
		if err != nil {
			result = multierror.Append(result, err)
		} else {
			size := opts.DiskSize - int64(fEntry.Offset)
			size -= size % int64(opts.SectorSize)

			vol, err := FormatPartition(stream, int64(fEntry.Offset), size, opts.SectorSize, opts.FSectorsPerCluster)
			if err != nil {
				result = multierror.Append(result, errFormatPartition("f", err))
			} else {
				volumes["f"] = vol
			}
		}
	}

	return volumes, result.ErrorOrNil()
}

func errFormatPartition(letter string, cause error) error {
	return errIO("failed to format partition %q: %s", letter, cause.Error())
}
