package fatx

import (
	"io"
)

// FAT entry widths, per spec.md section 3.
const (
	EntryWidth16 = 2
	EntryWidth32 = 4

	// fat16Ceiling is the total-cluster threshold below which a 16-bit FAT
	// is used; at or above it, a 32-bit FAT is required.
	fat16Ceiling = 0xFFF0

	// fatRegionOffset is the fixed byte offset of the FAT, relative to the
	// start of the partition (immediately after the 4 KiB superblock).
	fatRegionOffset = SuperblockSize
)

// DetermineEntryWidth picks the FAT entry width for a volume with
// `totalClusters` data clusters, per spec.md section 3.
func DetermineEntryWidth(totalClusters uint32) int {
	if totalClusters < fat16Ceiling {
		return EntryWidth16
	}
	return EntryWidth32
}

// roundUp4K rounds n up to the next multiple of 4096.
func roundUp4K(n int64) int64 {
	const align = 4096
	if n%align == 0 {
		return n
	}
	return n + (align - n%align)
}

// Volume is a mounted FATX volume: the backing device, its geometry, and
// the FAT and directory engines operating over it (spec.md section 3,
// "Volume").
type Volume struct {
	Device *Device
	FAT    *FATEngine
	Dir    *Directory

	SectorSize        uint32
	SectorsPerCluster uint32
	TotalClusters     uint32
	RootCluster       ClusterID
	EntryWidth        int
	FATOffset         int64
	FATSize           int64
	VolumeID          uint32
}

// Open mounts a FATX volume from an existing, already-formatted partition.
func Open(stream io.ReadWriteSeeker, partitionOffset, partitionSize int64, sectorSize uint32) (*Volume, error) {
	dev := NewDevice(stream, partitionOffset, partitionSize)

	sb, err := ReadSuperblock(dev)
	if err != nil {
		return nil, err
	}

	return newVolume(dev, sb, sectorSize)
}

func newVolume(dev *Device, sb *Superblock, sectorSize uint32) (*Volume, error) {
	numSectors := uint32(dev.PartitionSize) / sectorSize
	totalClusters := numSectors / sb.SectorsPerCluster
	bytesPerCluster := int64(sb.SectorsPerCluster) * int64(sectorSize)

	clusterLimit := totalClusters + ReservedClusterCount
	if uint32(sb.RootCluster) >= clusterLimit {
		return nil, errInvalidArgument("root cluster %d exceeds cluster limit %d", sb.RootCluster, clusterLimit)
	}

	entryWidth := DetermineEntryWidth(totalClusters)
	fatSize := roundUp4K(int64(clusterLimit) * int64(entryWidth))
	fatOffset := dev.PartitionOffset + fatRegionOffset
	clusterRegionOffset := fatOffset + fatSize

	dev.configureClusterRegion(clusterRegionOffset, bytesPerCluster)

	fat := NewFATEngine(dev, fatOffset, entryWidth, totalClusters)
	dir := NewDirectory(fat, dev)

	return &Volume{
		Device:            dev,
		FAT:               fat,
		Dir:               dir,
		SectorSize:        sectorSize,
		SectorsPerCluster: sb.SectorsPerCluster,
		TotalClusters:     totalClusters,
		RootCluster:       sb.RootCluster,
		EntryWidth:        entryWidth,
		FATOffset:         fatOffset,
		FATSize:           fatSize,
		VolumeID:          sb.VolumeID,
	}, nil
}

// FormatPartition formats a single partition: write superblock, zero FAT,
// initialize root (spec.md section 4.8, step 2). sectorsPerCluster must
// already reflect any mandatory policy (e.g. the retail 16 KiB rule); this
// function does not second-guess the caller's choice.
func FormatPartition(stream io.ReadWriteSeeker, partitionOffset, partitionSize int64, sectorSize, sectorsPerCluster uint32) (*Volume, error) {
	dev := NewDevice(stream, partitionOffset, partitionSize)
	sb := NewSuperblockForFormat(sectorsPerCluster)

	if err := WriteSuperblock(dev, sb); err != nil {
		return nil, err
	}

	vol, err := newVolume(dev, sb, sectorSize)
	if err != nil {
		return nil, err
	}

	if err := vol.FAT.InitFAT(dev, vol.FATOffset, vol.FATSize); err != nil {
		return nil, err
	}
	if err := vol.FAT.InitRoot(dev, vol.RootCluster); err != nil {
		return nil, err
	}
	if err := vol.FAT.Flush(); err != nil {
		return nil, err
	}

	return vol, nil
}

// Close flushes the FAT cache. Per spec.md section 5, flush() happens at
// the end of every public operation already; Close exists so callers have
// an explicit final consistency point to call before discarding a Volume.
func (v *Volume) Close() error {
	return v.FAT.Flush()
}
