package process

import (
	"time"

	"github.com/desertwitch/forthos/internal/schema"
)

// Status is the lifecycle state of a [Process].
type Status int

const (
	// StatusRunning is a process that is currently scheduled.
	StatusRunning Status = iota

	// StatusStopped is a suspended process.
	StatusStopped

	// StatusZombie is a terminated process that was not yet reaped.
	StatusZombie

	// StatusIdle is a process waiting for work.
	StatusIdle
)

// String returns the lower-case name of a [Status].
func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	case StatusZombie:
		return "zombie"
	case StatusIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// User is the owner of a [Process].
type User int

const (
	// UserRoot is the system user.
	UserRoot User = iota

	// UserUser is the interactive user.
	UserUser
)

// String returns the login name of a [User].
func (u User) String() string {
	if u == UserRoot {
		return "root"
	}

	return "user"
}

// Process is a single record of the process table.
type Process struct {
	Pid             schema.Pid
	Command         string
	Status          Status
	Priority        int
	StartTime       time.Time
	User            User
	MemoryFootprint uint
}
