package fatx

import (
	"golang.org/x/exp/slices"
)

// Driver adapts a Volume to the operation surface spec.md section 6
// exposes to a mount layer: lookup, read, write, truncate, create,
// remove, rename, utime, and directory listing, all addressed by logical
// path. It stays a thin adapter over Volume rather than reimplementing
// path walking, since Resolve already does that work.
type Driver struct {
	vol *Volume
}

// NewDriver wraps an already-open Volume.
func NewDriver(vol *Volume) *Driver {
	return &Driver{vol: vol}
}

// resolveParentAndName splits a path into its parent directory's head
// cluster and basename, resolving the parent with Resolve.
func (d *Driver) resolveParentAndName(logicalPath string) (ClusterID, string, error) {
	dirname := Dirname(logicalPath)
	basename := Basename(logicalPath)

	if dirname == "/" || dirname == "." {
		return d.vol.RootCluster, basename, nil
	}

	_, parentAttr, err := Resolve(d.vol.Dir, d.vol.RootCluster, dirname)
	if err != nil {
		return 0, "", err
	}
	if parentAttr != nil && !parentAttr.IsDirectory() {
		return 0, "", errNotADirectory("%q is not a directory", dirname)
	}

	head := d.vol.RootCluster
	if parentAttr != nil {
		head = parentAttr.FirstCluster
	}
	return head, basename, nil
}

// GetAttr looks up a path's attribute record. "/" itself resolves to a
// synthetic root Attr with the directory bit set and size zero, per
// spec.md section 8's "Format -> mount -> get_attr('/')" round-trip
// property.
func (d *Driver) GetAttr(logicalPath string) (*Attr, error) {
	_, attr, err := Resolve(d.vol.Dir, d.vol.RootCluster, logicalPath)
	if err != nil {
		return nil, err
	}
	if attr == nil {
		return &Attr{
			Filename:     "/",
			Attributes:   AttrDirectory,
			FirstCluster: d.vol.RootCluster,
			FileSize:     0,
		}, nil
	}
	return attr, nil
}

// ReadAt reads up to len(buffer) bytes from the named file at offset.
func (d *Driver) ReadAt(logicalPath string, offset int64, buffer []byte) (int, error) {
	attr, err := d.GetAttr(logicalPath)
	if err != nil {
		return 0, err
	}
	return d.vol.Read(attr, offset, buffer)
}

// WriteAt writes buffer into the named file at offset, persisting the
// updated size if the write extended the file.
func (d *Driver) WriteAt(logicalPath string, offset int64, buffer []byte) (int, error) {
	parentHead, name, err := d.resolveParentAndName(logicalPath)
	if err != nil {
		return 0, err
	}
	cur, attr, err := d.vol.Dir.Lookup(parentHead, name)
	if err != nil {
		return 0, err
	}

	n, err := d.vol.Write(attr, offset, buffer)
	if err != nil {
		return n, err
	}
	if err := d.vol.Dir.Write(cur, attr); err != nil {
		return n, err
	}
	return n, d.vol.FAT.Flush()
}

// Truncate resizes the named file to length.
func (d *Driver) Truncate(logicalPath string, length int64) error {
	parentHead, name, err := d.resolveParentAndName(logicalPath)
	if err != nil {
		return err
	}
	cur, attr, err := d.vol.Dir.Lookup(parentHead, name)
	if err != nil {
		return err
	}
	if err := d.vol.Truncate(attr, length); err != nil {
		return err
	}
	if err := d.vol.Dir.Write(cur, attr); err != nil {
		return err
	}
	return d.vol.FAT.Flush()
}

// CreateFile creates a new, empty file at logicalPath.
func (d *Driver) CreateFile(logicalPath string) (*Attr, error) {
	parentHead, name, err := d.resolveParentAndName(logicalPath)
	if err != nil {
		return nil, err
	}
	return d.vol.CreateFile(parentHead, name)
}

// Mkdir creates a new, empty directory at logicalPath.
func (d *Driver) Mkdir(logicalPath string) (*Attr, error) {
	parentHead, name, err := d.resolveParentAndName(logicalPath)
	if err != nil {
		return nil, err
	}
	return d.vol.CreateDirectory(parentHead, name)
}

// Remove removes a file.
func (d *Driver) Remove(logicalPath string) error {
	parentHead, name, err := d.resolveParentAndName(logicalPath)
	if err != nil {
		return err
	}
	return d.vol.Unlink(parentHead, name)
}

// Rmdir removes an empty directory.
func (d *Driver) Rmdir(logicalPath string) error {
	parentHead, name, err := d.resolveParentAndName(logicalPath)
	if err != nil {
		return err
	}
	return d.vol.RemoveDirectory(parentHead, name)
}

// Rename renames an entry; spec.md restricts this to the same directory.
func (d *Driver) Rename(fromPath, toPath string) error {
	fromParentHead, fromName, err := d.resolveParentAndName(fromPath)
	if err != nil {
		return err
	}
	_, toName, err := d.resolveParentAndName(toPath)
	if err != nil {
		return err
	}
	return d.vol.Rename(Dirname(fromPath), Dirname(toPath), fromParentHead, fromName, toName)
}

// Utime updates a path's accessed/modified timestamps.
func (d *Driver) Utime(logicalPath string, accessed, modified Timestamp) error {
	parentHead, name, err := d.resolveParentAndName(logicalPath)
	if err != nil {
		return err
	}
	return d.vol.Utime(parentHead, name, accessed, modified)
}

// ListDir returns the sorted names of a directory's live entries.
func (d *Driver) ListDir(logicalPath string) ([]string, error) {
	attr, err := d.GetAttr(logicalPath)
	if err != nil {
		return nil, err
	}
	if !attr.IsDirectory() && logicalPath != "/" {
		return nil, errNotADirectory("%q is not a directory", logicalPath)
	}

	head := d.vol.RootCluster
	if attr.Filename != "/" {
		head = attr.FirstCluster
	}

	names, err := d.vol.Dir.List(head)
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}
