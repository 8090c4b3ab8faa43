package disko

import "syscall"

// POSIX-ish errno values used throughout the driver tree. These are plain
// aliases for the platform's syscall.Errno constants so that DriverError
// values carry a real errno underneath, referenced as disko.EINVAL,
// disko.ENOENT, and friends by drivers/fatx.
const (
	EINVAL       = syscall.EINVAL
	ENOENT       = syscall.ENOENT
	EEXIST       = syscall.EEXIST
	ENOTEMPTY    = syscall.ENOTEMPTY
	ENAMETOOLONG = syscall.ENAMETOOLONG
	ENOSPC       = syscall.ENOSPC
	EIO          = syscall.EIO
	EUCLEAN      = syscall.EUCLEAN
	EALREADY     = syscall.EALREADY
	EBUSY        = syscall.EBUSY
	ENOSYS       = syscall.ENOSYS
	ENOTDIR      = syscall.ENOTDIR
	EISDIR       = syscall.EISDIR
	EMEDIUMTYPE  = syscall.EMEDIUMTYPE
)
