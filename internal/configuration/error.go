package configuration

import (
	"fmt"

	"github.com/desertwitch/forthos/internal/schema"
)

var (
	// ErrBadLayout is returned when the memory keys do not describe a bootable
	// address space.
	ErrBadLayout = fmt.Errorf("kernel and vm regions do not fit the address space: %w", schema.ErrInvalidArgument)

	// ErrBadImage is returned for a boot image that fails validation.
	ErrBadImage = fmt.Errorf("invalid boot image: %w", schema.ErrInvalidArgument)
)
