package filesystem

import (
	"fmt"

	"github.com/desertwitch/forthos/internal/schema"
)

var (
	// ErrNoSuchPath is returned when a path, or any of its intermediate
	// directories, does not exist.
	ErrNoSuchPath = fmt.Errorf("no such file or directory: %w", schema.ErrNotFound)

	// ErrNoParent is returned when the parent of a path to be created does
	// not resolve to an existing directory.
	ErrNoParent = fmt.Errorf("parent is not an existing directory: %w", schema.ErrNotFound)

	// ErrIsDirectory is returned when file content of a directory is
	// requested.
	ErrIsDirectory = fmt.Errorf("is a directory: %w", schema.ErrNotAFile)

	// ErrIsFile is returned when a file is to be listed like a directory.
	ErrIsFile = fmt.Errorf("is a file: %w", schema.ErrNotADirectory)

	// ErrExists is returned when a name is already taken in its parent.
	ErrExists = fmt.Errorf("file exists: %w", schema.ErrAlreadyExists)
)
