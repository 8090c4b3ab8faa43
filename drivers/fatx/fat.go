package fatx

// EntryClass is the classification of a single FAT entry, per spec.md
// section 3's table and section 4.3's classify() contract. Unlike the
// original reference implementation, which collapses 0xFFFFFFF8 and
// 0xFFFFFFFF into a single "end" bucket, this driver keeps the media/
// root-terminator marker distinct from the general chain terminator, as
// spec.md's table requires.
type EntryClass int

const (
	ClassAvailable EntryClass = iota
	ClassData
	ClassReserved
	ClassBad
	ClassMedia
	ClassEnd
	ClassInvalid
)

func (c EntryClass) String() string {
	switch c {
	case ClassAvailable:
		return "available"
	case ClassData:
		return "data"
	case ClassReserved:
		return "reserved"
	case ClassBad:
		return "bad"
	case ClassMedia:
		return "media"
	case ClassEnd:
		return "end"
	default:
		return "invalid"
	}
}

const (
	entryAvailable uint32 = 0x00000000
	entryReserved  uint32 = 0xFFFFFFF0
	entryBad       uint32 = 0xFFFFFFF7
	entryMedia     uint32 = 0xFFFFFFF8
	entryEnd       uint32 = 0xFFFFFFFF

	// endOfChain16 / endOfChain32 are the canonical terminator values
	// written by mark_end, per spec.md section 9's resolution of the
	// historical 0xFFFF-vs-0xFFFFFFFF ambiguity: 16-bit entries get
	// 0xFFFF, 32-bit entries get 0xFFFFFFFF.
	endOfChain16 uint32 = 0x0000FFFF
	endOfChain32 uint32 = 0xFFFFFFFF
)

// Classify sign-extends a raw entry value (if this is a 16-bit FAT) to 32
// bits and classifies it per spec.md section 3's table.
func Classify(entryWidth int, raw uint32) EntryClass {
	value := raw
	if entryWidth == 2 {
		value = signExtend16(uint16(raw))
	}

	switch {
	case value == entryAvailable:
		return ClassAvailable
	case value >= 0x00000001 && value <= 0xFFFFFFEF:
		return ClassData
	case value == entryReserved:
		return ClassReserved
	case value == entryBad:
		return ClassBad
	case value == entryMedia:
		return ClassMedia
	case value == entryEnd:
		return ClassEnd
	default:
		return ClassInvalid
	}
}

func signExtend16(v uint16) uint32 {
	return uint32(int32(int16(v)))
}

// FATEngine is the typed view over the allocation table described by spec.md
// section 4.3: cached reads/writes, cluster classification, allocation with
// a persistent search cursor, free-chain walking, and chain attachment.
type FATEngine struct {
	cache         *fatCache
	entryWidth    int
	totalClusters uint32 // data clusters only, not counting the reserved entry

	// searchCursor is the allocator's persistent scan position (spec.md
	// section 4.3 "Allocation search cursor" and section 9 "Global static
	// state": this is a field of the volume record, not a package global).
	searchCursor uint32
}

// NewFATEngine constructs a FAT engine over a freshly-opened device. Index 0
// plus totalClusters data cluster entries are addressable.
func NewFATEngine(dev *Device, fatOffset int64, entryWidth int, totalClusters uint32) *FATEngine {
	totalEntries := totalClusters + ReservedClusterCount
	window := uint32(DefaultCacheWindowEntries)
	return &FATEngine{
		cache:         newFATCache(dev, fatOffset, entryWidth, totalEntries, window),
		entryWidth:    entryWidth,
		totalClusters: totalClusters,
		searchCursor:  ReservedClusterCount,
	}
}

func (f *FATEngine) checkIndex(index ClusterID) error {
	total := f.totalClusters + ReservedClusterCount
	if uint32(index) >= total {
		return errInvalidArgument("cluster index %d out of range [0, %d)", index, total)
	}
	return nil
}

// ReadEntry classifies the FAT entry at `index`.
func (f *FATEngine) ReadEntry(index ClusterID) (EntryClass, uint32, error) {
	if err := f.checkIndex(index); err != nil {
		return ClassInvalid, 0, err
	}
	raw, err := f.cache.readRaw(uint32(index))
	if err != nil {
		return ClassInvalid, 0, err
	}
	return Classify(f.entryWidth, raw), raw, nil
}

// WriteEntry stores a raw value at `index` and marks the cache dirty.
func (f *FATEngine) WriteEntry(index ClusterID, value uint32) error {
	if err := f.checkIndex(index); err != nil {
		return err
	}
	return f.cache.writeRaw(uint32(index), value)
}

// NextCluster returns the successor of `index`'s chain. It fails unless the
// current entry classifies as data.
func (f *FATEngine) NextCluster(index ClusterID) (ClusterID, error) {
	class, raw, err := f.ReadEntry(index)
	if err != nil {
		return 0, err
	}
	if class != ClassData {
		return 0, errCorrupt("cluster %d is not a data entry (class=%s)", index, class)
	}
	// Sign extension is for classification only; the successor index is the
	// raw entry value.
	return ClusterID(raw), nil
}

// MarkEnd writes the canonical end-of-chain sentinel for this FAT's entry
// width at `index`.
func (f *FATEngine) MarkEnd(index ClusterID) error {
	if f.entryWidth == 2 {
		return f.WriteEntry(index, endOfChain16)
	}
	return f.WriteEntry(index, endOfChain32)
}

// AllocCluster finds a free cluster using the engine's persistent search
// cursor, per spec.md section 4.3: scan forward from the cursor, wrapping
// once; if the scan returns to its start, report NoSpace. On success the new
// cluster is marked end-of-chain (it is not yet attached to any chain) and,
// if zeroing is requested, its data region is zero-filled.
func (f *FATEngine) AllocCluster(dev *Device, zeroing bool) (ClusterID, error) {
	total := f.totalClusters + ReservedClusterCount
	start := f.searchCursor
	if start < ReservedClusterCount || uint32(start) >= total {
		start = ReservedClusterCount
	}

	idx := start
	for {
		class, _, err := f.ReadEntry(ClusterID(idx))
		if err != nil {
			return 0, err
		}
		if class == ClassAvailable {
			if err := f.MarkEnd(ClusterID(idx)); err != nil {
				return 0, err
			}
			f.searchCursor = idx + 1
			if f.searchCursor >= total {
				f.searchCursor = ReservedClusterCount
			}

			if zeroing {
				if err := f.zeroCluster(dev, ClusterID(idx)); err != nil {
					return 0, err
				}
			}
			return ClusterID(idx), nil
		}

		idx++
		if idx >= total {
			idx = ReservedClusterCount
		}
		if idx == start {
			return 0, errNoSpace("no free clusters remain")
		}
	}
}

func (f *FATEngine) zeroCluster(dev *Device, cluster ClusterID) error {
	buf := make([]byte, dev.BytesPerCluster)
	return dev.WriteAt(dev.ClusterByteOffset(cluster), buf)
}

// FreeChain walks next-cluster pointers starting at `first` and resets each
// to available. It tolerates premature termination: if NextCluster fails
// partway through (e.g. the chain is already truncated), the cluster that
// was successfully read is still freed and the walk stops there.
func (f *FATEngine) FreeChain(first ClusterID) error {
	current := first
	for {
		class, _, err := f.ReadEntry(current)
		if err != nil {
			return err
		}

		var next ClusterID
		hasNext := class == ClassData
		if hasNext {
			next, err = f.NextCluster(current)
			if err != nil {
				hasNext = false
			}
		}

		if err := f.WriteEntry(current, entryAvailable); err != nil {
			return err
		}

		if !hasNext {
			return nil
		}
		current = next
	}
}

// Attach links `tail` (which must currently classify as end-of-chain) to
// `next`: it writes `next` into `tail`'s entry and marks `next` as
// end-of-chain. Any other classification of `tail` is an error, preventing
// accidental chain merges.
func (f *FATEngine) Attach(tail, next ClusterID) error {
	class, _, err := f.ReadEntry(tail)
	if err != nil {
		return err
	}
	if class != ClassEnd {
		return errCorrupt("cluster %d is not a chain tail (class=%s)", tail, class)
	}
	if err := f.WriteEntry(tail, uint32(next)); err != nil {
		return err
	}
	return f.MarkEnd(next)
}

// Flush writes the dirty cache window to disk. Called by higher layers at
// consistency points (spec.md section 5: "flush() of the FAT cache is
// invoked at the end of each public operation").
func (f *FATEngine) Flush() error {
	return f.cache.flush()
}

// initChunkSize is the chunk size used to zero a freshly-formatted FAT:
// max(16 KiB, fat_size/256), per spec.md section 4.3.
func initChunkSize(fatSize int64) int {
	size := fatSize / 256
	if size < 16*1024 {
		size = 16 * 1024
	}
	return int(size)
}

// InitFAT zeroes the entire FAT region in fixed-size chunks and writes the
// media marker at index 0, per spec.md section 4.3's "Initialization
// (format path)" and confirmed by the reference implementation's
// fatx_init_fat/fatx_init_root (original_source/libfatx/fatx_fat.c).
func (f *FATEngine) InitFAT(dev *Device, fatOffset, fatSize int64) error {
	chunkSize := initChunkSize(fatSize)
	zero := make([]byte, chunkSize)

	remaining := fatSize
	offset := fatOffset
	for remaining > 0 {
		n := int64(chunkSize)
		if n > remaining {
			n = remaining
		}
		if err := dev.WriteAt(offset, zero[:n]); err != nil {
			return err
		}
		offset += n
		remaining -= n
	}

	return f.WriteEntry(0, entryMedia)
}

// InitRoot marks the root cluster as end-of-chain and fills its entire data
// region with the end-of-directory sentinel byte, initializing it as an
// empty directory.
func (f *FATEngine) InitRoot(dev *Device, root ClusterID) error {
	if err := f.MarkEnd(root); err != nil {
		return err
	}

	buf := make([]byte, dev.BytesPerCluster)
	for i := range buf {
		buf[i] = endOfDirMarker
	}
	return dev.WriteAt(dev.ClusterByteOffset(root), buf)
}
