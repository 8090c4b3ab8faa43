package fatx

// DirCursor is a transient (cluster, entry_index_within_cluster) pair
// identifying a slot in a directory's cluster chain (spec.md section 3,
// "Lifecycles": "A directory cursor is transient"). It is a plain value,
// not an owned object, per spec.md section 9's "raw-pointer directory/FAT
// graph" note: indices are the canonical edge type here, not pointers.
type DirCursor struct {
	Cluster ClusterID
	Entry   uint32
}

// ReadResult is the outcome of reading one directory slot (spec.md section
// 4.4's operation table).
type ReadResult int

const (
	ReadSuccess ReadResult = iota
	ReadDeleted
	ReadEndOfDir
)

// Directory is the engine operating on one directory's cluster chain: a
// linked list of clusters, each holding bytesPerCluster/64 fixed-size
// directory entries.
type Directory struct {
	fat *FATEngine
	dev *Device
}

// NewDirectory builds a directory engine bound to the given FAT/device
// pair. Every directory on a volume shares the same FAT engine; only the
// head cluster differs between directory instances, so operations take a
// DirCursor rather than this type owning one.
func NewDirectory(fat *FATEngine, dev *Device) *Directory {
	return &Directory{fat: fat, dev: dev}
}

func (d *Directory) entriesPerCluster() uint32 {
	return uint32(d.dev.BytesPerCluster) / DirEntrySize
}

// Root returns the cursor for the start of the volume's root directory.
func (d *Directory) Root(rootCluster ClusterID) DirCursor {
	return DirCursor{Cluster: rootCluster, Entry: 0}
}

func (d *Directory) slotOffset(cur DirCursor) int64 {
	return d.dev.ClusterByteOffset(cur.Cluster) + int64(cur.Entry)*DirEntrySize
}

// Read reads the slot at `cur`. On ReadSuccess, attr is populated. On
// ReadDeleted and ReadEndOfDir, attr is nil.
func (d *Directory) Read(cur DirCursor) (ReadResult, *Attr, error) {
	buf := make([]byte, DirEntrySize)
	if err := d.dev.ReadAt(d.slotOffset(cur), buf); err != nil {
		return ReadEndOfDir, nil, err
	}

	filenameLen := buf[0]
	switch filenameLen {
	case endOfDirMarker, endOfDirMarker2:
		return ReadEndOfDir, nil, nil
	case deletedEntryMarker:
		return ReadDeleted, nil, nil
	}

	raw, err := decodeDirEntry(buf)
	if err != nil {
		return ReadEndOfDir, nil, err
	}
	if int(raw.FilenameLength) > MaxFilenameLength {
		return ReadEndOfDir, nil, errCorrupt("directory entry filename length %d exceeds maximum", raw.FilenameLength)
	}
	return ReadSuccess, rawToAttr(raw), nil
}

// Write encodes attr into the slot at `cur`.
func (d *Directory) Write(cur DirCursor, attr *Attr) error {
	if len(attr.Filename) > MaxFilenameLength {
		return errNameTooLong("filename %q exceeds %d bytes", attr.Filename, MaxFilenameLength)
	}
	raw := attrToRaw(attr)
	return d.dev.WriteAt(d.slotOffset(cur), encodeDirEntry(raw))
}

// markFilenameByte overwrites just the filename-length/marker byte of a
// slot, used by MarkDeleted and markEnd so the rest of a stale record is
// left untouched on disk (matching the reference implementation's
// fatx_mark_dir_entry, which only ever touches this one byte).
func (d *Directory) markFilenameByte(cur DirCursor, marker uint8) error {
	return d.dev.WriteAt(d.slotOffset(cur), []byte{marker})
}

// MarkDeleted flips the filename-length byte of `cur` to the deleted
// marker.
func (d *Directory) MarkDeleted(cur DirCursor) error {
	return d.markFilenameByte(cur, deletedEntryMarker)
}

// markEnd flips the filename-length byte of `cur` to the end-of-directory
// marker.
func (d *Directory) markEnd(cur DirCursor) error {
	return d.markFilenameByte(cur, endOfDirMarker)
}

// Advance moves the cursor to the next slot, following the FAT at cluster
// boundaries (spec.md section 4.4's "Advance policy"). Reaching
// end-of-chain at this level is an error: callers are expected to have
// already seen ReadEndOfDir before exhausting the chain.
func (d *Directory) Advance(cur DirCursor) (DirCursor, error) {
	next := cur.Entry + 1
	if next < d.entriesPerCluster() {
		return DirCursor{Cluster: cur.Cluster, Entry: next}, nil
	}

	class, _, err := d.fat.ReadEntry(cur.Cluster)
	if err != nil {
		return DirCursor{}, err
	}
	switch class {
	case ClassData:
		nextCluster, err := d.fat.NextCluster(cur.Cluster)
		if err != nil {
			return DirCursor{}, err
		}
		return DirCursor{Cluster: nextCluster, Entry: 0}, nil
	case ClassEnd:
		return DirCursor{}, errCorrupt("reached end of cluster chain before end-of-directory marker")
	default:
		return DirCursor{}, errCorrupt("unexpected FAT classification %s while advancing directory", class)
	}
}

// AllocSlot implements spec.md section 4.4's "Slot allocation for new
// entries" algorithm exactly, including the reference implementation's
// detail (original_source/libfatx/fatx_dir.c, fatx_alloc_dir_entry) of
// returning the formerly-last slot of the old cluster — not the new
// cluster's first slot — when the chain has to grow.
func (d *Directory) AllocSlot(head ClusterID) (DirCursor, error) {
	cur := DirCursor{Cluster: head, Entry: 0}

	for {
		result, _, err := d.Read(cur)
		if err != nil {
			return DirCursor{}, err
		}

		if result == ReadDeleted {
			return cur, nil
		}

		if result == ReadEndOfDir {
			break
		}

		cur, err = d.Advance(cur)
		if err != nil {
			return DirCursor{}, err
		}
	}

	// cur is now positioned at the end-of-dir sentinel.
	if cur.Entry+1 < d.entriesPerCluster() {
		reused := cur
		shifted := DirCursor{Cluster: cur.Cluster, Entry: cur.Entry + 1}
		if err := d.markEnd(shifted); err != nil {
			return DirCursor{}, err
		}
		return reused, nil
	}

	newCluster, err := d.fat.AllocCluster(d.dev, false)
	if err != nil {
		return DirCursor{}, err
	}
	if err := d.fat.Attach(cur.Cluster, newCluster); err != nil {
		return DirCursor{}, err
	}
	if err := d.markEnd(DirCursor{Cluster: newCluster, Entry: 0}); err != nil {
		return DirCursor{}, err
	}

	// The formerly-last slot of the old cluster is no longer the
	// terminator and is now free for the caller to use.
	return cur, nil
}

// InitEmpty writes the end-of-directory sentinel at the first slot of a
// newly allocated directory cluster.
func (d *Directory) InitEmpty(head ClusterID) error {
	return d.markEnd(DirCursor{Cluster: head, Entry: 0})
}

// Lookup scans the directory at `head` for a live entry named `name`,
// skipping deleted slots, and returns not-found at end-of-dir.
func (d *Directory) Lookup(head ClusterID, name string) (DirCursor, *Attr, error) {
	cur := DirCursor{Cluster: head, Entry: 0}
	for {
		result, attr, err := d.Read(cur)
		if err != nil {
			return DirCursor{}, nil, err
		}
		switch result {
		case ReadSuccess:
			if attr.Filename == name {
				return cur, attr, nil
			}
		case ReadEndOfDir:
			return DirCursor{}, nil, errNotFound("no such entry %q", name)
		}
		cur, err = d.Advance(cur)
		if err != nil {
			return DirCursor{}, nil, err
		}
	}
}

// List returns the names of every live entry in the directory at `head`.
func (d *Directory) List(head ClusterID) ([]string, error) {
	var names []string
	cur := DirCursor{Cluster: head, Entry: 0}
	for {
		result, attr, err := d.Read(cur)
		if err != nil {
			return nil, err
		}
		if result == ReadEndOfDir {
			return names, nil
		}
		if result == ReadSuccess {
			names = append(names, attr.Filename)
		}
		cur, err = d.Advance(cur)
		if err != nil {
			return nil, err
		}
	}
}

// IsEmpty reports whether the directory at `head` contains no live entries,
// per spec.md section 4.7's "Remove directory": deleted entries do not
// count against emptiness.
func (d *Directory) IsEmpty(head ClusterID) (bool, error) {
	names, err := d.List(head)
	if err != nil {
		return false, err
	}
	return len(names) == 0, nil
}
