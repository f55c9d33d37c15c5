package filesystem

import "time"

// Meta is the metadata common to all nodes. ID is always the canonical
// absolute path of the node; the root has an empty ParentID.
type Meta struct {
	ID           string
	Name         string
	ParentID     string
	LastModified time.Time
}

// Node is a read-only snapshot of a filesystem node. It is either a [File] or
// a [Directory].
type Node interface {
	Info() Meta
	isNode()
}

// File is a snapshot of a regular file.
type File struct {
	Meta

	Content string
}

// Info returns the [Meta] of the [File].
func (f File) Info() Meta { return f.Meta }

func (File) isNode() {}

// Directory is a snapshot of a directory. Children holds the names of the
// directory's entries in insertion order.
type Directory struct {
	Meta

	Children []string
}

// Info returns the [Meta] of the [Directory].
func (d Directory) Info() Meta { return d.Meta }

func (Directory) isNode() {}

// treeNode is a live node of the tree, either *fileNode or *dirNode.
type treeNode interface {
	meta() *Meta
	snapshot() Node
}

type fileNode struct {
	m       Meta
	content string
}

func (f *fileNode) meta() *Meta { return &f.m }

func (f *fileNode) snapshot() Node {
	return File{Meta: f.m, Content: f.content}
}

// dirNode keeps its children in a map for lookup and in a slice for the
// insertion order.
type dirNode struct {
	m        Meta
	children map[string]treeNode
	order    []string
}

func newDirNode(m Meta) *dirNode {
	return &dirNode{
		m:        m,
		children: make(map[string]treeNode),
	}
}

func (d *dirNode) meta() *Meta { return &d.m }

func (d *dirNode) snapshot() Node {
	children := make([]string, len(d.order))
	copy(children, d.order)

	return Directory{Meta: d.m, Children: children}
}

func (d *dirNode) child(name string) (treeNode, bool) {
	n, ok := d.children[name]

	return n, ok
}

func (d *dirNode) add(name string, n treeNode) {
	d.children[name] = n
	d.order = append(d.order, name)
}
