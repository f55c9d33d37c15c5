package kernel

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertwitch/forthos/internal/clock"
	"github.com/desertwitch/forthos/internal/filesystem"
	"github.com/desertwitch/forthos/internal/schema"
	"github.com/dustin/go-humanize"
)

const dateFormat = "2006-01-02"

func (k *Kernel) resolve(p string) string {
	return filesystem.Resolve(p, k.cwd)
}

func (k *Kernel) cmdLs(_ context.Context, args []string) error {
	target := k.cwd
	if len(args) > 0 {
		target = k.resolve(args[0])
	}

	nodes, err := k.fs.List(target)
	if err != nil {
		return fail(err, "Path %s not found or not a directory.", target)
	}

	k.printf("Contents of %s:", target)

	for _, n := range nodes {
		meta := n.Info()

		switch n.(type) {
		case filesystem.Directory:
			k.printf("  %s/ \t(directory, %s)", meta.Name, meta.LastModified.Format(dateFormat))
		default:
			k.printf("  %s \t(file, %s)", meta.Name, meta.LastModified.Format(dateFormat))
		}
	}

	if len(nodes) == 0 {
		k.print("  (empty)")
	}

	return nil
}

func (k *Kernel) cmdCat(_ context.Context, args []string) error {
	if len(args) == 0 {
		return fail(ErrUsage, "Usage: cat <filepath>")
	}

	target := k.resolve(args[0])

	content, err := k.fs.Read(target)
	if err != nil {
		return fail(err, "File %s not found or is a directory.", target)
	}

	if content == "" {
		content = "(empty file)"
	}
	k.print(content)

	return nil
}

func (k *Kernel) cmdTouch(_ context.Context, args []string) error {
	if len(args) == 0 {
		return fail(ErrUsage, "Usage: touch <filepath>")
	}

	target := k.resolve(args[0])

	if err := k.fs.CreateFile(target); err != nil {
		parent, _ := filesystem.Split(target)

		return fail(err, "Cannot touch file in %s. Path not found or not a directory.", parent)
	}

	k.logf("File %s touched/created.", target)

	return nil
}

func (k *Kernel) cmdMkdir(_ context.Context, args []string) error {
	if len(args) == 0 {
		return fail(ErrUsage, "Usage: mkdir <path>")
	}

	target := k.resolve(args[0])

	err := k.fs.CreateDirectory(target)
	switch {
	case errors.Is(err, schema.ErrAlreadyExists):
		return fail(err, "%s already exists.", target)
	case err != nil:
		parent, _ := filesystem.Split(target)

		return fail(err, "Cannot create directory in %s. Path not found or not a directory.", parent)
	}

	k.logf("Directory %s created.", target)

	return nil
}

func (k *Kernel) cmdCd(_ context.Context, args []string) error {
	if len(args) == 0 {
		k.cwd = filesystem.Normalize(k.image.Home)
		k.printf("Changed directory to %s", k.cwd)

		return nil
	}

	target := k.resolve(args[0])

	node, err := k.fs.Lookup(target)
	if err == nil {
		if _, ok := node.(filesystem.Directory); !ok {
			err = fmt.Errorf("(kernel) %s: %w", target, filesystem.ErrIsFile)
		}
	}

	if err != nil {
		return fail(err, "Path %s not found or not a directory.", target)
	}

	k.cwd = target
	k.printf("Current directory: %s", target)

	return nil
}

func (k *Kernel) cmdPwd(context.Context, []string) error {
	k.print(k.cwd)

	return nil
}

func (k *Kernel) cmdStat(_ context.Context, args []string) error {
	if len(args) == 0 {
		return fail(ErrUsage, "Usage: stat <path>")
	}

	target := k.resolve(args[0])

	node, err := k.fs.Lookup(target)
	if err != nil {
		return fail(err, "Path %s not found.", target)
	}

	meta := node.Info()

	k.printf("  Path: %s", target)

	switch n := node.(type) {
	case filesystem.Directory:
		k.print("  Type: directory")
		k.printf("  Entries: %d", len(n.Children))
	case filesystem.File:
		sum, err := k.fs.Checksum(target)
		if err != nil {
			return fail(err, "Cannot checksum %s.", target)
		}

		k.print("  Type: file")
		k.printf("  Size: %s", humanize.Bytes(uint64(len(n.Content))))
		k.printf("  BLAKE3: %s", sum)
	}

	k.printf("  Modified: %s (%s)",
		meta.LastModified.Format("2006-01-02 15:04:05"),
		humanize.RelTime(meta.LastModified, clock.Now(), "ago", "from now"),
	)

	return nil
}
