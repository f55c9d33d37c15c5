package schema

import "strconv"

// Pid is a process identifier. Pids are assigned from a monotonic counter and
// never reused; the zero value means "no process".
type Pid uint

// NoPid is the zero [Pid], used where an owner is optional.
const NoPid Pid = 0

// String returns the decimal representation of the [Pid].
func (p Pid) String() string {
	return strconv.FormatUint(uint64(p), 10)
}

// ParsePid parses a decimal [Pid]. Zero and negative numbers are rejected.
func ParsePid(s string) (Pid, bool) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return NoPid, false
	}

	return Pid(v), true
}
