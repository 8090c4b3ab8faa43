package fatx

import "time"

// now returns the current time broken out into a Timestamp, for
// initializing/touching directory entries.
func now() Timestamp {
	t := time.Now()
	return Timestamp{
		Year: t.Year(), Month: int(t.Month()), Day: t.Day(),
		Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(),
	}
}

// clusterForOffset walks a chain starting at `first`, consuming
// bytesPerCluster per hop, until it reaches the cluster containing
// `offset`. If `alloc` is true and the chain ends before `offset` is
// reached, new clusters are allocated and attached (spec.md section 4.7,
// "Offset-to-cluster mapping").
func (v *Volume) clusterForOffset(first ClusterID, offset int64, alloc bool) (ClusterID, error) {
	bpc := v.Device.BytesPerCluster
	current := first
	remaining := offset

	for remaining >= bpc {
		class, _, err := v.FAT.ReadEntry(current)
		if err != nil {
			return 0, err
		}

		switch class {
		case ClassData:
			current, err = v.FAT.NextCluster(current)
			if err != nil {
				return 0, err
			}
		case ClassEnd:
			if !alloc {
				return 0, errCorrupt("expected another cluster while seeking to file offset %d", offset)
			}
			next, err := v.FAT.AllocCluster(v.Device, false)
			if err != nil {
				return 0, err
			}
			if err := v.FAT.Attach(current, next); err != nil {
				return 0, err
			}
			current = next
		default:
			return 0, errCorrupt("unexpected FAT classification %s while seeking to file offset", class)
		}

		remaining -= bpc
	}

	return current, nil
}

// Read fills buffer with up to len(buffer) bytes of attr's data starting at
// offset, returning the number of bytes actually read (0 at EOF, never an
// error merely for reading past the end).
func (v *Volume) Read(attr *Attr, offset int64, buffer []byte) (int, error) {
	if offset >= int64(attr.FileSize) {
		return 0, nil
	}

	bpc := v.Device.BytesPerCluster
	cluster, err := v.clusterForOffset(attr.FirstCluster, offset, false)
	if err != nil {
		return 0, err
	}

	clusterOffset := offset % bpc
	if err := v.Device.SeekCluster(cluster, clusterOffset); err != nil {
		return 0, err
	}

	totalRead := 0
	remainingInFile := int64(attr.FileSize) - offset
	remainingRequest := int64(len(buffer))

	for remainingRequest > 0 && remainingInFile > 0 {
		remainingInCluster := bpc - clusterOffset
		chunk := remainingInCluster
		if remainingRequest < chunk {
			chunk = remainingRequest
		}
		if remainingInFile < chunk {
			chunk = remainingInFile
		}

		if err := v.Device.Read(buffer[totalRead : totalRead+int(chunk)]); err != nil {
			return totalRead, err
		}

		totalRead += int(chunk)
		remainingRequest -= chunk
		remainingInFile -= chunk
		clusterOffset += chunk

		if clusterOffset >= bpc && remainingRequest > 0 && remainingInFile > 0 {
			cluster, err = v.FAT.NextCluster(cluster)
			if err != nil {
				return totalRead, err
			}
			clusterOffset = 0
			if err := v.Device.SeekCluster(cluster, 0); err != nil {
				return totalRead, err
			}
		}
	}

	return totalRead, nil
}

// Write writes buffer into attr's data at offset, growing the chain and the
// recorded file size as needed. If offset exceeds the current file size,
// the gap is closed by truncating to exactly `offset` first (spec.md
// section 9's resolution of the original off-by-one: the stricter
// "truncate to offset", not "offset+1", variant). Write updates attr's
// FileSize in place; the caller is responsible for persisting attr.
func (v *Volume) Write(attr *Attr, offset int64, buffer []byte) (int, error) {
	if offset > int64(attr.FileSize) {
		if err := v.truncateChain(attr, offset); err != nil {
			return 0, err
		}
	}

	bpc := v.Device.BytesPerCluster
	cluster, err := v.clusterForOffset(attr.FirstCluster, offset, true)
	if err != nil {
		return 0, err
	}

	clusterOffset := offset % bpc
	if err := v.Device.SeekCluster(cluster, clusterOffset); err != nil {
		return 0, err
	}

	totalWritten := 0
	remaining := int64(len(buffer))

	for remaining > 0 {
		remainingInCluster := bpc - clusterOffset
		chunk := remainingInCluster
		if remaining < chunk {
			chunk = remaining
		}

		if err := v.Device.Write(buffer[totalWritten : totalWritten+int(chunk)]); err != nil {
			return totalWritten, err
		}

		totalWritten += int(chunk)
		remaining -= chunk
		clusterOffset += chunk

		if clusterOffset >= bpc && remaining > 0 {
			class, _, err := v.FAT.ReadEntry(cluster)
			if err != nil {
				return totalWritten, err
			}
			var next ClusterID
			if class == ClassData {
				next, err = v.FAT.NextCluster(cluster)
				if err != nil {
					return totalWritten, err
				}
			} else {
				next, err = v.FAT.AllocCluster(v.Device, false)
				if err != nil {
					return totalWritten, err
				}
				if err := v.FAT.Attach(cluster, next); err != nil {
					return totalWritten, err
				}
			}
			cluster = next
			clusterOffset = 0
			if err := v.Device.SeekCluster(cluster, 0); err != nil {
				return totalWritten, err
			}
		}
	}

	newSize := offset + int64(totalWritten)
	if newSize > int64(attr.FileSize) {
		attr.FileSize = uint32(newSize)
	}

	return totalWritten, nil
}

// truncateChain is the shared implementation behind Write's "grow the hole
// before writing past EOF" step and the public Truncate operation: it
// implements spec.md section 4.7's "Truncate to length L" algorithm
// uniformly for both growing and shrinking.
func (v *Volume) truncateChain(attr *Attr, length int64) error {
	bpc := v.Device.BytesPerCluster
	targetClusters := int64(1)
	if length > 0 {
		targetClusters = (length + bpc - 1) / bpc
		if targetClusters == 0 {
			targetClusters = 1
		}
	}

	current := attr.FirstCluster
	count := int64(1)

	for count < targetClusters {
		class, _, err := v.FAT.ReadEntry(current)
		if err != nil {
			return err
		}
		if class == ClassData {
			current, err = v.FAT.NextCluster(current)
			if err != nil {
				return err
			}
		} else {
			next, err := v.FAT.AllocCluster(v.Device, false)
			if err != nil {
				return err
			}
			if err := v.FAT.Attach(current, next); err != nil {
				return err
			}
			current = next
		}
		count++
	}

	// current is now the surviving last cluster. If it has a successor,
	// free everything past it.
	class, _, err := v.FAT.ReadEntry(current)
	if err != nil {
		return err
	}
	if class == ClassData {
		successor, err := v.FAT.NextCluster(current)
		if err != nil {
			return err
		}
		if err := v.FAT.FreeChain(successor); err != nil {
			return err
		}
	}

	if err := v.FAT.MarkEnd(current); err != nil {
		return err
	}

	attr.FileSize = uint32(length)
	return nil
}

// Truncate implements spec.md section 4.7's "Truncate to length L" as a
// public operation.
func (v *Volume) Truncate(attr *Attr, length int64) error {
	return v.truncateChain(attr, length)
}

// createEntry is shared by CreateFile and CreateDirectory: allocate a
// first cluster, then a directory slot, and write a fresh entry. Order
// matches spec.md section 5's recommended ordering for create (FAT
// allocation before directory slot write), confirmed by the reference
// implementation's fatx_create_dirent.
func (v *Volume) createEntry(parentHead ClusterID, name string, attributes uint8, zeroFirstCluster bool) (*Attr, DirCursor, error) {
	if len(name) == 0 {
		return nil, DirCursor{}, errInvalidArgument("empty filename")
	}
	if len(name) > MaxFilenameLength {
		return nil, DirCursor{}, errNameTooLong("filename %q exceeds %d bytes", name, MaxFilenameLength)
	}

	if _, _, err := v.Dir.Lookup(parentHead, name); err == nil {
		return nil, DirCursor{}, errAlreadyExists("%q already exists", name)
	}

	firstCluster, err := v.FAT.AllocCluster(v.Device, zeroFirstCluster)
	if err != nil {
		return nil, DirCursor{}, err
	}

	slot, err := v.Dir.AllocSlot(parentHead)
	if err != nil {
		// Clean up the cluster we allocated; nothing else references it.
		_ = v.FAT.FreeChain(firstCluster)
		return nil, DirCursor{}, err
	}

	ts := now()
	attr := &Attr{
		Filename:     name,
		Attributes:   attributes,
		FirstCluster: firstCluster,
		FileSize:     0,
		Modified:     ts,
		Created:      ts,
		Accessed:     ts,
	}

	if err := v.Dir.Write(slot, attr); err != nil {
		return nil, DirCursor{}, err
	}

	return attr, slot, nil
}

// CreateFile implements spec.md section 4.7's "Create file".
func (v *Volume) CreateFile(parentHead ClusterID, name string) (*Attr, error) {
	attr, _, err := v.createEntry(parentHead, name, 0, false)
	if err != nil {
		return nil, err
	}
	return attr, v.FAT.Flush()
}

// CreateDirectory implements spec.md section 4.7's "Create directory",
// including the reference implementation's two-step shape: create the
// entry in the parent, then reopen/initialize the new directory's own
// interior (original_source/libfatx/fatx_dir.c, fatx_mkdir).
func (v *Volume) CreateDirectory(parentHead ClusterID, name string) (*Attr, error) {
	attr, _, err := v.createEntry(parentHead, name, AttrDirectory, false)
	if err != nil {
		return nil, err
	}
	if err := v.Dir.InitEmpty(attr.FirstCluster); err != nil {
		return nil, err
	}
	return attr, v.FAT.Flush()
}

// Unlink implements spec.md section 4.7's "Unlink": free the chain first,
// then mark the slot deleted, so a crash between the two steps leaves only
// an orphaned directory slot (spec.md section 5's ordering rationale).
func (v *Volume) Unlink(parentHead ClusterID, name string) error {
	cur, attr, err := v.Dir.Lookup(parentHead, name)
	if err != nil {
		return err
	}

	if err := v.FAT.FreeChain(attr.FirstCluster); err != nil {
		return err
	}
	if err := v.Dir.MarkDeleted(cur); err != nil {
		return err
	}
	return v.FAT.Flush()
}

// RemoveDirectory implements spec.md section 4.7's "Remove directory":
// fail NotEmpty if any live entry remains, otherwise unlink like a file.
func (v *Volume) RemoveDirectory(parentHead ClusterID, name string) error {
	cur, attr, err := v.Dir.Lookup(parentHead, name)
	if err != nil {
		return err
	}
	if !attr.IsDirectory() {
		return errNotADirectory("%q is not a directory", name)
	}

	empty, err := v.Dir.IsEmpty(attr.FirstCluster)
	if err != nil {
		return err
	}
	if !empty {
		return errNotEmpty("directory %q is not empty", name)
	}

	if err := v.FAT.FreeChain(attr.FirstCluster); err != nil {
		return err
	}
	if err := v.Dir.MarkDeleted(cur); err != nil {
		return err
	}
	return v.FAT.Flush()
}

// Rename implements spec.md section 4.7's "Rename": same-directory only.
// The caller passes the dirnames of both paths (typically via Dirname);
// Rename rejects the call with InvalidArgument unless the two strings are
// equal, and otherwise looks up oldName in the single directory parentHead.
func (v *Volume) Rename(fromDirname, toDirname string, parentHead ClusterID, oldName, newName string) error {
	if fromDirname != toDirname {
		return errInvalidArgument("rename across directories is not supported (from %q to %q)", fromDirname, toDirname)
	}
	if len(newName) > MaxFilenameLength {
		return errNameTooLong("filename %q exceeds %d bytes", newName, MaxFilenameLength)
	}

	cur, attr, err := v.Dir.Lookup(parentHead, oldName)
	if err != nil {
		return err
	}

	attr.Filename = newName
	if err := v.Dir.Write(cur, attr); err != nil {
		return err
	}
	return v.FAT.Flush()
}

// Utime implements spec.md section 4.7's "Utime": overwrite accessed and
// modified only; created is never touched.
func (v *Volume) Utime(parentHead ClusterID, name string, accessed, modified Timestamp) error {
	cur, attr, err := v.Dir.Lookup(parentHead, name)
	if err != nil {
		return err
	}

	attr.Accessed = accessed
	attr.Modified = modified
	if err := v.Dir.Write(cur, attr); err != nil {
		return err
	}
	return v.FAT.Flush()
}
