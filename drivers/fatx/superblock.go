package fatx

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/noxer/bytewriter"
)

const (
	// SuperblockSize is the fixed size, in bytes, of the on-disk superblock.
	SuperblockSize = 4096
	// SuperblockSignature is the 4-byte magic value "FATX" stored
	// little-endian as 0x58544146.
	SuperblockSignature uint32 = 0x58544146
)

// rawSuperblock is the bit-exact on-disk layout of spec.md section 3's
// superblock, read and written via explicit little-endian serialization
// (spec.md section 9, "Packed on-disk structs") rather than relying on host
// struct layout.
type rawSuperblock struct {
	Signature         uint32
	VolumeID          uint32
	SectorsPerCluster uint32
	RootCluster       uint32
	Reserved          uint16
}

// Superblock is the in-memory, validated view of the 4 KiB on-disk header
// that fixes a FATX volume's geometry.
type Superblock struct {
	VolumeID          uint32
	SectorsPerCluster uint32
	RootCluster       ClusterID
}

// validSectorsPerCluster is the fixed set spec.md section 3 allows.
func validSectorsPerCluster(n uint32) bool {
	switch n {
	case 1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024:
		return true
	default:
		return false
	}
}

// ReadSuperblock reads and validates the superblock at the start of the
// device's partition. It does not validate RootCluster against the total
// cluster count; that bound depends on geometry the superblock alone
// doesn't carry and is checked by the caller once cluster counts are known.
func ReadSuperblock(d *Device) (*Superblock, error) {
	buf := make([]byte, SuperblockSize)
	if err := d.ReadAt(d.PartitionOffset, buf); err != nil {
		return nil, err
	}

	var raw rawSuperblock
	r := bytes.NewReader(buf)
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return nil, errCorrupt("malformed superblock header: %s", err.Error())
	}

	if raw.Signature != SuperblockSignature {
		return nil, errCorrupt(
			"bad superblock signature: got 0x%08X, want 0x%08X", raw.Signature, SuperblockSignature,
		)
	}
	if !validSectorsPerCluster(raw.SectorsPerCluster) {
		return nil, errCorrupt("invalid sectors-per-cluster: %d", raw.SectorsPerCluster)
	}

	return &Superblock{
		VolumeID:          raw.VolumeID,
		SectorsPerCluster: raw.SectorsPerCluster,
		RootCluster:       ClusterID(raw.RootCluster),
	}, nil
}

// NewSuperblockForFormat synthesizes a fresh superblock for the format path
// (spec.md section 4.2): volume id from the wallclock, root cluster fixed at
// 1, sectors-per-cluster from the caller.
func NewSuperblockForFormat(sectorsPerCluster uint32) *Superblock {
	return &Superblock{
		VolumeID:          synthesizeVolumeID(),
		SectorsPerCluster: sectorsPerCluster,
		RootCluster:       1,
	}
}

// synthesizeVolumeID derives a volume id from wallclock time: the low 32
// bits of the current Unix time in microseconds. The value differs from run
// to run; there is no deterministic fallback.
func synthesizeVolumeID() uint32 {
	return uint32(time.Now().UnixMicro())
}

// WriteSuperblock writes the 4096-byte superblock at the start of the
// device's partition: a buffer filled with 0xFF, with the header fields
// overwritten and the 2-byte reserved word explicitly zeroed (the original
// reference implementation zeroes this word even though the rest of the
// padding is 0xFF).
func WriteSuperblock(d *Device, sb *Superblock) error {
	buf := make([]byte, SuperblockSize)
	for i := range buf {
		buf[i] = 0xFF
	}

	w := bytewriter.New(buf)
	raw := rawSuperblock{
		Signature:         SuperblockSignature,
		VolumeID:          sb.VolumeID,
		SectorsPerCluster: sb.SectorsPerCluster,
		RootCluster:       uint32(sb.RootCluster),
		Reserved:          0,
	}
	if err := binary.Write(w, binary.LittleEndian, &raw); err != nil {
		return errIO("encode superblock: %s", err.Error())
	}

	return d.WriteAt(d.PartitionOffset, buf)
}
