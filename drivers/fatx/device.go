package fatx

import (
	"io"
)

// ClusterID is a cluster number as stored in a FAT entry or a directory
// entry's first-cluster field. Cluster numbers below ReservedClusterCount
// never name a data cluster.
type ClusterID uint32

// ReservedClusterCount is the number of low cluster indices that never name
// a data cluster. Index 0 is reserved outright; usable indices begin at the
// root-cluster index recorded in the superblock (conventionally 1).
const ReservedClusterCount = 1

// Device is the synchronous, single-threaded byte-addressable view of the
// backing partition described in spec.md section 4.1. It wraps a seekable
// stream the way drivers/common.BlockDevice wraps one, but speaks in the
// FATX partition's own coordinate systems (absolute byte offset, and
// (cluster, byte-within-cluster) pairs) rather than fixed-size blocks.
type Device struct {
	stream io.ReadWriteSeeker

	// PartitionOffset is the byte offset of this partition on the backing
	// stream.
	PartitionOffset int64
	// PartitionSize is the size, in bytes, of this partition.
	PartitionSize int64

	// ClusterRegionOffset is the absolute byte offset of cluster
	// ReservedClusterCount, i.e. the first byte of the data-cluster region.
	ClusterRegionOffset int64
	// BytesPerCluster is the size, in bytes, of a single cluster.
	BytesPerCluster int64
}

// NewDevice wraps a stream as a Device for the given partition window.
func NewDevice(stream io.ReadWriteSeeker, partitionOffset, partitionSize int64) *Device {
	return &Device{
		stream:          stream,
		PartitionOffset: partitionOffset,
		PartitionSize:   partitionSize,
	}
}

// configureClusterRegion finishes setting up the device once the volume
// geometry (data region offset and cluster size) is known. Called once by
// Volume construction after the superblock and FAT size have been
// determined.
func (d *Device) configureClusterRegion(clusterRegionOffset, bytesPerCluster int64) {
	d.ClusterRegionOffset = clusterRegionOffset
	d.BytesPerCluster = bytesPerCluster
}

// checkAbsoluteBounds enforces spec.md section 4.1's invariant that no
// mapped byte range may extend past partition_offset + partition_size.
func (d *Device) checkAbsoluteBounds(offset int64, length int) error {
	if offset < d.PartitionOffset {
		return errCorrupt("offset %d precedes partition start %d", offset, d.PartitionOffset)
	}
	end := offset + int64(length)
	if end > d.PartitionOffset+d.PartitionSize {
		return errCorrupt(
			"range [%d, %d) extends past end of partition at %d",
			offset, end, d.PartitionOffset+d.PartitionSize,
		)
	}
	return nil
}

// ClusterByteOffset computes the absolute byte offset of the start of
// `cluster`, per spec.md section 4.1:
// cluster_region_offset + (cluster - reserved_count) * bytes_per_cluster.
func (d *Device) ClusterByteOffset(cluster ClusterID) int64 {
	return d.ClusterRegionOffset + (int64(cluster)-ReservedClusterCount)*d.BytesPerCluster
}

// SeekAbsolute positions the stream at an absolute byte offset from the
// start of the backing stream (not relative to the partition).
func (d *Device) SeekAbsolute(offset int64) error {
	_, err := d.stream.Seek(offset, io.SeekStart)
	if err != nil {
		return errIO("seek to offset %d: %s", offset, err.Error())
	}
	return nil
}

// SeekCluster positions the stream at `byteWithinCluster` bytes into
// `cluster`.
func (d *Device) SeekCluster(cluster ClusterID, byteWithinCluster int64) error {
	offset := d.ClusterByteOffset(cluster) + byteWithinCluster
	if err := d.checkAbsoluteBounds(offset, 0); err != nil {
		return err
	}
	return d.SeekAbsolute(offset)
}

// ReadAt reads exactly len(buffer) bytes starting at the absolute offset
// `offset`, without disturbing any notion of a "current position" held by
// higher layers (it always seeks first).
func (d *Device) ReadAt(offset int64, buffer []byte) error {
	if err := d.checkAbsoluteBounds(offset, len(buffer)); err != nil {
		return err
	}
	if err := d.SeekAbsolute(offset); err != nil {
		return err
	}
	n, err := io.ReadFull(d.stream, buffer)
	if err != nil {
		return errIO("read %d bytes at offset %d: %s (got %d)", len(buffer), offset, err.Error(), n)
	}
	return nil
}

// WriteAt writes buffer at the absolute offset `offset`.
func (d *Device) WriteAt(offset int64, buffer []byte) error {
	if err := d.checkAbsoluteBounds(offset, len(buffer)); err != nil {
		return err
	}
	if err := d.SeekAbsolute(offset); err != nil {
		return err
	}
	n, err := d.stream.Write(buffer)
	if err != nil || n != len(buffer) {
		return errIO("write %d bytes at offset %d: %s (wrote %d)", len(buffer), offset, err, n)
	}
	return nil
}

// Read reads from the current stream position into buffer. It is used by
// callers that have already seeked with SeekCluster/SeekAbsolute and want to
// stream sequential reads without recomputing an offset each time.
func (d *Device) Read(buffer []byte) error {
	n, err := io.ReadFull(d.stream, buffer)
	if err != nil {
		return errIO("read %d bytes: %s (got %d)", len(buffer), err.Error(), n)
	}
	return nil
}

// Write writes buffer at the current stream position.
func (d *Device) Write(buffer []byte) error {
	n, err := d.stream.Write(buffer)
	if err != nil || n != len(buffer) {
		return errIO("write %d bytes: %s (wrote %d)", len(buffer), err, n)
	}
	return nil
}
