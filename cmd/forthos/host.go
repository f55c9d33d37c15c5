package main

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// hostDescription returns a short description of the host system for the
// kernel log, e.g. "Linux 6.1.0 x86_64 (myhost)".
func hostDescription() string {
	var uts unix.Utsname

	if err := unix.Uname(&uts); err != nil {
		return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
	}

	return fmt.Sprintf("%s %s %s (%s)",
		unix.ByteSliceToString(uts.Sysname[:]),
		unix.ByteSliceToString(uts.Release[:]),
		unix.ByteSliceToString(uts.Machine[:]),
		unix.ByteSliceToString(uts.Nodename[:]),
	)
}
