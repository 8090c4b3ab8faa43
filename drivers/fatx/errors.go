package fatx

import (
	"fmt"

	disko "github.com/dargueta/gofatx"
)

// The eight error categories of spec.md section 7, expressed as constructors
// over disko.DriverError so every public operation returns the same error
// type the rest of the driver tree uses.

func errNotFound(format string, args ...any) *disko.DriverError {
	return disko.NewDriverErrorWithMessage(disko.ENOENT, fmt.Sprintf(format, args...))
}

func errAlreadyExists(format string, args ...any) *disko.DriverError {
	return disko.NewDriverErrorWithMessage(disko.EEXIST, fmt.Sprintf(format, args...))
}

func errNotEmpty(format string, args ...any) *disko.DriverError {
	return disko.NewDriverErrorWithMessage(disko.ENOTEMPTY, fmt.Sprintf(format, args...))
}

func errNameTooLong(format string, args ...any) *disko.DriverError {
	return disko.NewDriverErrorWithMessage(disko.ENAMETOOLONG, fmt.Sprintf(format, args...))
}

func errNoSpace(format string, args ...any) *disko.DriverError {
	return disko.NewDriverErrorWithMessage(disko.ENOSPC, fmt.Sprintf(format, args...))
}

func errIO(format string, args ...any) *disko.DriverError {
	return disko.NewDriverErrorWithMessage(disko.EIO, fmt.Sprintf(format, args...))
}

func errCorrupt(format string, args ...any) *disko.DriverError {
	return disko.NewDriverErrorWithMessage(disko.EUCLEAN, fmt.Sprintf(format, args...))
}

func errInvalidArgument(format string, args ...any) *disko.DriverError {
	return disko.NewDriverErrorWithMessage(disko.EINVAL, fmt.Sprintf(format, args...))
}

func errNotADirectory(format string, args ...any) *disko.DriverError {
	return disko.NewDriverErrorWithMessage(disko.ENOTDIR, fmt.Sprintf(format, args...))
}
