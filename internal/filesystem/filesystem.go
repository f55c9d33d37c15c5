// Package filesystem implements the hierarchical in-memory filesystem of the
// simulated kernel. Nodes are identified by their canonical absolute path and
// are either files or directories.
package filesystem

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	"github.com/desertwitch/forthos/internal/clock"
	"github.com/zeebo/blake3"
)

// Handler is the principal implementation of the filesystem tree.
type Handler struct {
	sync.RWMutex
	root *dirNode
}

// NewHandler returns a pointer to a new [Handler] holding only the empty root
// directory.
func NewHandler() *Handler {
	return &Handler{
		root: newDirNode(Meta{
			ID:           Root,
			Name:         Root,
			LastModified: clock.Now(),
		}),
	}
}

// Lookup returns a snapshot of the node at the absolute path p. Traversal
// fails if any intermediate segment is missing or is a file.
func (f *Handler) Lookup(p string) (Node, error) {
	f.RLock()
	defer f.RUnlock()

	n, err := f.lookup(p)
	if err != nil {
		return nil, err
	}

	return n.snapshot(), nil
}

// Exists returns whether a node exists at the absolute path p.
func (f *Handler) Exists(p string) bool {
	f.RLock()
	defer f.RUnlock()

	_, err := f.lookup(p)

	return err == nil
}

// IsDir returns whether a directory exists at the absolute path p.
func (f *Handler) IsDir(p string) bool {
	f.RLock()
	defer f.RUnlock()

	n, err := f.lookup(p)
	if err != nil {
		return false
	}

	_, ok := n.(*dirNode)

	return ok
}

// CreateFile creates an empty file at the absolute path p. If a node already
// exists there, only its modification time is updated and any content is left
// untouched.
func (f *Handler) CreateFile(p string) error {
	f.Lock()
	defer f.Unlock()

	parent, name, err := f.parentOf(p)
	if err != nil {
		return err
	}

	if existing, ok := parent.child(name); ok {
		existing.meta().LastModified = clock.Now()

		return nil
	}

	if name == "" {
		f.root.m.LastModified = clock.Now()

		return nil
	}

	parent.add(name, &fileNode{m: f.newMeta(parent, name)})
	slog.Debug("Created file", "path", Normalize(p))

	return nil
}

// WriteFile replaces the content of the file at the absolute path p, creating
// it first if needed.
func (f *Handler) WriteFile(p string, content string) error {
	f.Lock()
	defer f.Unlock()

	parent, name, err := f.parentOf(p)
	if err != nil {
		return err
	}

	existing, ok := parent.child(name)
	if !ok {
		if name == "" {
			return fmt.Errorf("(fs) %s: %w", Root, ErrIsDirectory)
		}

		parent.add(name, &fileNode{m: f.newMeta(parent, name), content: content})

		return nil
	}

	file, isFile := existing.(*fileNode)
	if !isFile {
		return fmt.Errorf("(fs) %s: %w", Normalize(p), ErrIsDirectory)
	}

	file.content = content
	file.m.LastModified = clock.Now()

	return nil
}

// CreateDirectory creates an empty directory at the absolute path p. The name
// must not be taken by any node in the parent directory.
func (f *Handler) CreateDirectory(p string) error {
	f.Lock()
	defer f.Unlock()

	parent, name, err := f.parentOf(p)
	if err != nil {
		return err
	}

	if _, ok := parent.child(name); ok || name == "" {
		return fmt.Errorf("(fs) %s: %w", Normalize(p), ErrExists)
	}

	parent.add(name, newDirNode(f.newMeta(parent, name)))
	slog.Debug("Created directory", "path", Normalize(p))

	return nil
}

// Read returns the content of the file at the absolute path p.
func (f *Handler) Read(p string) (string, error) {
	f.RLock()
	defer f.RUnlock()

	n, err := f.lookup(p)
	if err != nil {
		return "", err
	}

	file, ok := n.(*fileNode)
	if !ok {
		return "", fmt.Errorf("(fs) %s: %w", Normalize(p), ErrIsDirectory)
	}

	return file.content, nil
}

// List returns snapshots of the entries of the directory at the absolute
// path p in insertion order.
func (f *Handler) List(p string) ([]Node, error) {
	f.RLock()
	defer f.RUnlock()

	n, err := f.lookup(p)
	if err != nil {
		return nil, err
	}

	dir, ok := n.(*dirNode)
	if !ok {
		return nil, fmt.Errorf("(fs) %s: %w", Normalize(p), ErrIsFile)
	}

	out := make([]Node, 0, len(dir.order))
	for _, name := range dir.order {
		out = append(out, dir.children[name].snapshot())
	}

	return out, nil
}

// Checksum returns the hex-encoded BLAKE3 digest of the content of the file
// at the absolute path p.
func (f *Handler) Checksum(p string) (string, error) {
	content, err := f.Read(p)
	if err != nil {
		return "", err
	}

	sum := blake3.Sum256([]byte(content))

	return hex.EncodeToString(sum[:]), nil
}

// lookup walks the tree from the root. Must be called with the lock held.
func (f *Handler) lookup(p string) (treeNode, error) {
	var current treeNode = f.root

	for _, name := range segments(p) {
		dir, ok := current.(*dirNode)
		if !ok {
			return nil, fmt.Errorf("(fs) %s: %w", Normalize(p), ErrNoSuchPath)
		}

		next, ok := dir.child(name)
		if !ok {
			return nil, fmt.Errorf("(fs) %s: %w", Normalize(p), ErrNoSuchPath)
		}

		current = next
	}

	return current, nil
}

// parentOf returns the parent directory node and base name for p. Must be
// called with the lock held.
func (f *Handler) parentOf(p string) (*dirNode, string, error) {
	parentPath, name := Split(p)

	n, err := f.lookup(parentPath)
	if err != nil {
		return nil, "", fmt.Errorf("(fs) %s: %w", parentPath, ErrNoParent)
	}

	dir, ok := n.(*dirNode)
	if !ok {
		return nil, "", fmt.Errorf("(fs) %s: %w", parentPath, ErrNoParent)
	}

	return dir, name, nil
}

func (f *Handler) newMeta(parent *dirNode, name string) Meta {
	id := Root + name
	if parent.m.ID != Root {
		id = parent.m.ID + Root + name
	}

	return Meta{
		ID:           id,
		Name:         name,
		ParentID:     parent.m.ID,
		LastModified: clock.Now(),
	}
}
