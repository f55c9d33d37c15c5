package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/desertwitch/forthos/internal/allocation"
	"github.com/desertwitch/forthos/internal/configuration"
	"github.com/stretchr/testify/require"
)

// bootTime is enough simulated time for the embedded boot sequence.
const bootTime = 5 * time.Second

type blockShape struct {
	Address uint
	Size    uint
	Kind    allocation.StatusKind
	Label   string
}

func newKernel(t *testing.T, opts Options) *Kernel {
	t.Helper()

	cfg := configuration.Defaults()
	cfg.Seed = 7

	img, err := configuration.LoadImage("")
	require.NoError(t, err)

	k, err := New(cfg, img, opts)
	require.NoError(t, err)

	return k
}

func newBootedKernel(t *testing.T) *Kernel {
	t.Helper()

	k := newKernel(t, Options{})
	k.Advance(bootTime)
	require.False(t, k.Booting())

	return k
}

func exec(k *Kernel, line string) error {
	return k.Execute(context.Background(), line)
}

// textsSince returns the texts of the output log from index n.
func textsSince(k *Kernel, n int) []string {
	out := k.Output()
	texts := make([]string, 0, len(out))

	for _, e := range out[n:] {
		texts = append(texts, e.Text)
	}

	return texts
}

func shapes(k *Kernel) []blockShape {
	blocks := k.MemoryMap()
	out := make([]blockShape, 0, len(blocks))

	for _, b := range blocks {
		out = append(out, blockShape{b.Address, b.Size, b.Status.Kind, b.Label})
	}

	return out
}

func freshShapes() []blockShape {
	return []blockShape{
		{0, 32, allocation.StatusKernel, allocation.LabelKernel},
		{32, 32, allocation.StatusVirtualMachine, allocation.LabelVirtualMachine},
		{64, 192, allocation.StatusFree, ""},
	}
}

func count(texts []string, s string) int {
	n := 0

	for _, t := range texts {
		if t == s {
			n++
		}
	}

	return n
}
