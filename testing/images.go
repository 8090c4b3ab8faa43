package testing

import (
	"io"

	"github.com/xaionaro-go/bytesextra"
)

// NewBlankImage returns an in-memory read/write/seekable stream of exactly
// `size` zeroed bytes, standing in for a freshly-allocated (but not yet
// formatted) disk image or partition.
func NewBlankImage(size int64) io.ReadWriteSeeker {
	return bytesextra.NewReadWriteSeeker(make([]byte, size))
}
