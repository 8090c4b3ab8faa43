package fatx

import (
	_ "embed"
	"strconv"

	"github.com/gocarina/gocsv"
)

//go:embed partitions.csv
var retailPartitionTableCSV []byte

// RemainderSize is the sentinel used by PartitionTableEntry.Size to mean
// "the rest of the disk" (the reference implementation's -1 sentinel for
// the "f" partition, spec.md section 6).
const RemainderSize = -1

// hexUint64 decodes CSV cells written as "0x..." hexadecimal literals, or
// the literal "-1" sentinel, via gocsv's TypeUnmarshaller interface
// (UnmarshalCSV), the same struct-tag-driven decoding style as the
// teacher's disks.DiskGeometry in disks/disks.go.
type hexUint64 int64

func (h *hexUint64) UnmarshalCSV(s string) error {
	if s == "-1" {
		*h = RemainderSize
		return nil
	}
	v, err := strconv.ParseUint(s[2:], 16, 64)
	if err != nil {
		return err
	}
	*h = hexUint64(v)
	return nil
}

// PartitionTableEntry is one row of the fixed retail partition table
// (spec.md section 6): a drive letter and its (offset, size) window on the
// disk. Size is RemainderSize for the "f" partition, whose size is
// determined at format time from the disk's actual capacity.
type PartitionTableEntry struct {
	Letter string    `csv:"letter"`
	Offset hexUint64 `csv:"offset"`
	Size   hexUint64 `csv:"size"`
}

// RetailPartitionTable returns the fixed (offset, size) table of the five
// retail partitions plus the optional "f" remainder partition, decoded
// from the embedded CSV resource.
func RetailPartitionTable() ([]PartitionTableEntry, error) {
	var entries []PartitionTableEntry
	if err := gocsv.UnmarshalBytes(retailPartitionTableCSV, &entries); err != nil {
		return nil, errCorrupt("failed to decode retail partition table: %s", err.Error())
	}
	return entries, nil
}

// LookupPartition finds the (offset, size) window for a drive letter.
func LookupPartition(table []PartitionTableEntry, letter string) (*PartitionTableEntry, error) {
	for i := range table {
		if table[i].Letter == letter {
			return &table[i], nil
		}
	}
	return nil, errInvalidArgument("unknown drive letter %q", letter)
}
