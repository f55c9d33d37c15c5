package schema

import "time"

// OutputKind classifies an [OutputEntry].
type OutputKind int

const (
	// OutputInput is a command line as it was submitted.
	OutputInput OutputKind = iota

	// OutputText is regular command output.
	OutputText

	// OutputError is a recovered command error.
	OutputError

	// OutputSystem is a boot or system notice.
	OutputSystem
)

// String returns the lower-case name of the [OutputKind].
func (k OutputKind) String() string {
	switch k {
	case OutputInput:
		return "input"
	case OutputText:
		return "output"
	case OutputError:
		return "error"
	case OutputSystem:
		return "system"
	default:
		return "unknown"
	}
}

// OutputEntry is a single line of the append-only shell output log.
type OutputEntry struct {
	ID   string
	Kind OutputKind
	Text string
}

// KernelLogEntry is a single timestamped kernel event.
type KernelLogEntry struct {
	ID        string
	Timestamp time.Time
	Message   string
}
