package kernel

import (
	"errors"
	"fmt"

	"github.com/desertwitch/forthos/internal/schema"
)

var (
	// ErrUsage is returned for a command with missing or malformed arguments.
	ErrUsage = fmt.Errorf("bad usage: %w", schema.ErrInvalidArgument)

	// ErrUnknownCommand is returned for a command name without a handler.
	ErrUnknownCommand = fmt.Errorf("unknown command: %w", schema.ErrNotFound)

	// ErrNoScript is returned when a script cannot be found or is not a
	// runnable script file.
	ErrNoScript = fmt.Errorf("no such script: %w", schema.ErrNotFound)
)

// CommandError is a failed command. Its message is the text shown to the
// user, while the wrapped error carries the error kind.
type CommandError struct {
	Msg string
	Err error
}

func (e *CommandError) Error() string {
	return e.Msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// fail returns a [CommandError] showing the formatted message for err.
func fail(err error, format string, args ...any) error {
	return &CommandError{
		Msg: fmt.Sprintf(format, args...),
		Err: err,
	}
}

// message returns the user-facing text of a command error.
func message(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return "Error: " + cmdErr.Msg
	}

	return "Error: " + err.Error()
}
