package filesystem

import (
	"path"
	"strings"
)

// Root is the canonical path of the root directory.
const Root = "/"

// Normalize returns the canonical absolute form of p. Empty and repeated
// segments are collapsed, "." segments are dropped and ".." segments remove
// the preceding segment (a no-op at the root). The empty path, and any path
// without remaining segments, normalizes to [Root].
func Normalize(p string) string {
	return path.Clean(Root + p)
}

// Resolve returns the canonical absolute path for p. Absolute input is
// normalized directly; relative input is applied segment by segment to the
// working directory cwd.
func Resolve(p string, cwd string) string {
	if strings.HasPrefix(p, Root) {
		return Normalize(p)
	}

	return Normalize(Normalize(cwd) + Root + p)
}

// Split returns the canonical parent directory and the base name of the
// absolute path p. The root has itself as parent and an empty name.
func Split(p string) (string, string) {
	p = Normalize(p)
	if p == Root {
		return Root, ""
	}

	dir, name := path.Split(p)

	return Normalize(dir), name
}

// segments returns the names along the canonical path p.
func segments(p string) []string {
	p = Normalize(p)
	if p == Root {
		return nil
	}

	return strings.Split(strings.TrimPrefix(p, Root), Root)
}
