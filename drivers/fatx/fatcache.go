package fatx

import (
	"github.com/boljen/go-bitmap"
)

// DefaultCacheWindowEntries is the fixed number of FAT entries kept in the
// single sliding cache window per volume (spec.md section 4.3 and section
// 9's note that the window size must be fixed and documented).
const DefaultCacheWindowEntries = 1024

// fatCache is a single sliding window over the raw FAT entry bytes on disk,
// grounded on drivers/common/blockcache.BlockCache but deliberately
// simplified to exactly one window rather than a cache covering the whole
// table: a request outside the window flushes the dirty window and refills
// from disk at the requested index (spec.md section 4.3).
type fatCache struct {
	entryWidth  int // 2 or 4 bytes
	fatOffset   int64
	totalEntries uint32
	windowSize  uint32

	windowStart uint32
	data        []byte // windowSize * entryWidth bytes
	loaded      bitmap.Bitmap
	dirty       bitmap.Bitmap
	anyDirty    bool

	dev *Device
}

func newFATCache(dev *Device, fatOffset int64, entryWidth int, totalEntries uint32, windowSize uint32) *fatCache {
	if windowSize > totalEntries {
		windowSize = totalEntries
	}
	return &fatCache{
		entryWidth:   entryWidth,
		fatOffset:    fatOffset,
		totalEntries: totalEntries,
		windowSize:   windowSize,
		windowStart:  0,
		data:         make([]byte, int(windowSize)*entryWidth),
		loaded:       bitmap.NewSlice(int(windowSize)),
		dirty:        bitmap.NewSlice(int(windowSize)),
		dev:          dev,
	}
}

// inWindow reports whether `index` currently falls within the loaded window.
func (c *fatCache) inWindow(index uint32) bool {
	return index >= c.windowStart && index < c.windowStart+c.windowSize
}

// ensureWindow makes sure `index` is covered by the cache window, flushing
// the current dirty window and refilling from disk if necessary.
func (c *fatCache) ensureWindow(index uint32) error {
	if index >= c.totalEntries {
		return errInvalidArgument("FAT index %d out of range [0, %d)", index, c.totalEntries)
	}
	if c.inWindow(index) && c.loaded.Get(int(index-c.windowStart)) {
		return nil
	}

	if err := c.flush(); err != nil {
		return err
	}

	newStart := index
	if newStart+c.windowSize > c.totalEntries {
		newStart = c.totalEntries - c.windowSize
	}

	buf := make([]byte, int(c.windowSize)*c.entryWidth)
	offset := c.fatOffset + int64(newStart)*int64(c.entryWidth)
	if err := c.dev.ReadAt(offset, buf); err != nil {
		return err
	}

	c.data = buf
	c.windowStart = newStart
	c.loaded = bitmap.NewSlice(int(c.windowSize))
	c.dirty = bitmap.NewSlice(int(c.windowSize))
	for i := 0; i < int(c.windowSize); i++ {
		c.loaded.Set(i, true)
	}
	c.anyDirty = false
	return nil
}

// slot returns the raw little-endian bytes at `index` within the window.
func (c *fatCache) slot(index uint32) []byte {
	local := int(index - c.windowStart)
	start := local * c.entryWidth
	return c.data[start : start+c.entryWidth]
}

// readRaw returns the raw (not sign-extended) value stored at `index`.
func (c *fatCache) readRaw(index uint32) (uint32, error) {
	if err := c.ensureWindow(index); err != nil {
		return 0, err
	}
	b := c.slot(index)
	if c.entryWidth == 2 {
		return uint32(uint16(b[0]) | uint16(b[1])<<8), nil
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// writeRaw stores value at `index` and marks the slot dirty, without any
// per-entry write-through to disk.
func (c *fatCache) writeRaw(index uint32, value uint32) error {
	if err := c.ensureWindow(index); err != nil {
		return err
	}
	b := c.slot(index)
	if c.entryWidth == 2 {
		b[0] = byte(value)
		b[1] = byte(value >> 8)
	} else {
		b[0] = byte(value)
		b[1] = byte(value >> 8)
		b[2] = byte(value >> 16)
		b[3] = byte(value >> 24)
	}
	local := int(index - c.windowStart)
	c.dirty.Set(local, true)
	c.anyDirty = true
	return nil
}

// flush writes the dirty window to disk and clears the dirty flags.
func (c *fatCache) flush() error {
	if !c.anyDirty {
		return nil
	}

	// The window is small enough that it's simpler (and still correct per
	// spec.md's "flushed-on-miss" cache policy) to write the whole window in
	// one shot rather than hunting for dirty sub-ranges.
	offset := c.fatOffset + int64(c.windowStart)*int64(c.entryWidth)
	if err := c.dev.WriteAt(offset, c.data); err != nil {
		return err
	}
	for i := range c.dirty {
		c.dirty[i] = 0
	}
	c.anyDirty = false
	return nil
}
