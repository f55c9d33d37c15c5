package schema

import "errors"

// The error kinds of the simulated kernel. Every package-level sentinel error
// wraps exactly one of these, so callers can classify any returned error with
// [errors.Is] without knowing the originating package.
var (
	// ErrInvalidArgument occurs when an operation receives a malformed or
	// out-of-range argument.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound occurs when a block, process or path does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotADirectory occurs when a directory was expected but a file was
	// found.
	ErrNotADirectory = errors.New("not a directory")

	// ErrNotAFile occurs when a file was expected but a directory was found.
	ErrNotAFile = errors.New("not a file")

	// ErrAlreadyExists occurs when a name is already taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrOutOfMemory occurs when no single free block can hold a request.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrPermissionDenied occurs when an operation targets a protected
	// process.
	ErrPermissionDenied = errors.New("permission denied")
)

// ErrNotReady is returned for commands submitted while the kernel is still
// booting. It is a transient notice and deliberately not one of the error
// kinds above.
var ErrNotReady = errors.New("system is booting")

// Kind returns the error kind wrapped by err, or nil if err is not of any
// known kind.
func Kind(err error) error {
	for _, kind := range []error{
		ErrInvalidArgument,
		ErrNotFound,
		ErrNotADirectory,
		ErrNotAFile,
		ErrAlreadyExists,
		ErrOutOfMemory,
		ErrPermissionDenied,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return nil
}
