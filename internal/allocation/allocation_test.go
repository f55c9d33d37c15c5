package allocation

import (
	"math/rand"
	"testing"

	"github.com/desertwitch/forthos/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type layoutEntry struct {
	Address uint
	Size    uint
	Kind    StatusKind
}

func layoutOf(blocks []Block) []layoutEntry {
	out := make([]layoutEntry, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, layoutEntry{b.Address, b.Size, b.Status.Kind})
	}

	return out
}

func newBootHandler(t *testing.T) *Handler {
	t.Helper()

	a, err := NewHandler(Layout{TotalSize: 256, KernelSize: 32, VMSize: 32})
	require.NoError(t, err)

	return a
}

// TestNewHandler_Success tests the boot layout of the address space.
func TestNewHandler_Success(t *testing.T) {
	t.Parallel()

	a := newBootHandler(t)

	assert.Equal(t, []layoutEntry{
		{0, 32, StatusKernel},
		{32, 32, StatusVirtualMachine},
		{64, 192, StatusFree},
	}, layoutOf(a.Snapshot()))
	require.NoError(t, a.Verify())
}

// TestNewHandler_Fail_Layout tests reserved regions exceeding the address
// space.
func TestNewHandler_Fail_Layout(t *testing.T) {
	t.Parallel()

	_, err := NewHandler(Layout{TotalSize: 32, KernelSize: 32, VMSize: 1})
	require.ErrorIs(t, err, ErrBadLayout)
	require.ErrorIs(t, err, schema.ErrInvalidArgument)
}

// TestAllocate_Success_Split tests first-fit allocation splitting the free
// remainder off after the allocated block.
func TestAllocate_Success_Split(t *testing.T) {
	t.Parallel()

	a := newBootHandler(t)

	id, err := a.Allocate(10, "X", schema.NoPid)
	require.NoError(t, err)

	blocks := a.Snapshot()
	require.Len(t, blocks, 4)

	assert.Equal(t, id, blocks[2].ID)
	assert.Equal(t, StatusUserAllocated, blocks[2].Status.Kind)
	assert.Equal(t, "X", blocks[2].Label)
	assert.Equal(t, uint(64), blocks[2].Address)
	assert.Equal(t, uint(10), blocks[2].Size)

	assert.True(t, blocks[3].IsFree())
	assert.Equal(t, uint(74), blocks[3].Address)
	assert.Equal(t, uint(182), blocks[3].Size)
	require.NoError(t, a.Verify())
}

// TestAllocate_Success_ExactFit tests that an exact fit leaves no remainder.
func TestAllocate_Success_ExactFit(t *testing.T) {
	t.Parallel()

	a := newBootHandler(t)

	_, err := a.Allocate(192, "all", schema.Pid(4))
	require.NoError(t, err)

	blocks := a.Snapshot()
	require.Len(t, blocks, 3)
	assert.Equal(t, Process(4), blocks[2].Status)
	assert.Equal(t, schema.Pid(4), blocks[2].Pid())
	require.NoError(t, a.Verify())
}

// TestAllocate_Fail_ZeroSize tests the rejection of empty allocations.
func TestAllocate_Fail_ZeroSize(t *testing.T) {
	t.Parallel()

	a := newBootHandler(t)
	before := a.Snapshot()

	_, err := a.Allocate(0, "none", schema.NoPid)
	require.ErrorIs(t, err, schema.ErrInvalidArgument)
	assert.Equal(t, before, a.Snapshot())
}

// TestAllocate_Fail_Fragmented tests that a request larger than every single
// free block fails, even when the free blocks add up to enough memory.
func TestAllocate_Fail_Fragmented(t *testing.T) {
	t.Parallel()

	a := newBootHandler(t)

	first, err := a.Allocate(64, "a", schema.Pid(10))
	require.NoError(t, err)
	_, err = a.Allocate(64, "b", schema.Pid(11))
	require.NoError(t, err)
	third, err := a.Allocate(64, "c", schema.Pid(12))
	require.NoError(t, err)

	require.NoError(t, a.Free(first))
	require.NoError(t, a.Free(third))

	stats := a.Stats()
	assert.Equal(t, uint(128), stats.Free)
	assert.Equal(t, uint(64), stats.LargestFree)
	assert.Equal(t, 2, stats.FreeBlocks)

	_, err = a.Allocate(100, "too big", schema.NoPid)
	require.ErrorIs(t, err, ErrNoFit)
	require.ErrorIs(t, err, schema.ErrOutOfMemory)
	require.NoError(t, a.Verify())
}

// TestFree_Success_CoalesceChain tests that a chain of three adjacent free
// blocks is merged into one.
func TestFree_Success_CoalesceChain(t *testing.T) {
	t.Parallel()

	a := newBootHandler(t)

	first, err := a.Allocate(10, "a", schema.NoPid)
	require.NoError(t, err)
	second, err := a.Allocate(10, "b", schema.NoPid)
	require.NoError(t, err)
	third, err := a.Allocate(10, "c", schema.NoPid)
	require.NoError(t, err)
	_, err = a.Allocate(10, "d", schema.NoPid)
	require.NoError(t, err)

	require.NoError(t, a.Free(first))
	require.NoError(t, a.Free(third))
	require.NoError(t, a.Verify())
	require.Len(t, a.Snapshot(), 7)

	require.NoError(t, a.Free(second))
	require.NoError(t, a.Verify())

	assert.Equal(t, []layoutEntry{
		{0, 32, StatusKernel},
		{32, 32, StatusVirtualMachine},
		{64, 30, StatusFree},
		{94, 10, StatusUserAllocated},
		{104, 152, StatusFree},
	}, layoutOf(a.Snapshot()))
}

// TestFree_Success_NewIdentity tests that merged blocks receive a new
// identifier.
func TestFree_Success_NewIdentity(t *testing.T) {
	t.Parallel()

	a := newBootHandler(t)
	tail := a.Snapshot()[2].ID

	id, err := a.Allocate(10, "a", schema.NoPid)
	require.NoError(t, err)
	require.NoError(t, a.Free(id))

	blocks := a.Snapshot()
	require.Len(t, blocks, 3)
	assert.NotEqual(t, tail, blocks[2].ID)
	assert.NotEqual(t, id, blocks[2].ID)
}

// TestFree_Success_RoundTrip tests that an allocation freed right away
// restores the previous layout.
func TestFree_Success_RoundTrip(t *testing.T) {
	t.Parallel()

	a := newBootHandler(t)

	_, err := a.Allocate(20, "keep", schema.Pid(7))
	require.NoError(t, err)

	for _, size := range []uint{1, 5, 172} {
		before := layoutOf(a.Snapshot())

		id, err := a.Allocate(size, "tmp", schema.NoPid)
		require.NoError(t, err)
		require.NoError(t, a.Free(id))

		assert.Equal(t, before, layoutOf(a.Snapshot()), "size %d", size)
	}
}

// TestFree_Fail_Table tests the blocks that cannot be freed.
func TestFree_Fail_Table(t *testing.T) {
	t.Parallel()

	a := newBootHandler(t)
	blocks := a.Snapshot()

	testCases := []struct {
		name string
		id   BlockID
	}{
		{"Fail_Kernel", blocks[0].ID},
		{"Fail_VirtualMachine", blocks[1].ID},
		{"Fail_AlreadyFree", blocks[2].ID},
		{"Fail_Unknown", BlockID("mem_nope_1")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := a.Free(tc.id)
			require.ErrorIs(t, err, schema.ErrNotFound)
		})
	}

	assert.Equal(t, blocks, a.Snapshot())
}

// TestFreeByPid_Success tests freeing by the owning pid.
func TestFreeByPid_Success(t *testing.T) {
	t.Parallel()

	a := newBootHandler(t)

	_, err := a.Allocate(8, "Process 4 (hello.py)", schema.Pid(4))
	require.NoError(t, err)
	_, err = a.Allocate(8, "Process 5 (blink.py)", schema.Pid(5))
	require.NoError(t, err)

	require.NoError(t, a.FreeByPid(4))
	require.ErrorIs(t, a.FreeByPid(4), schema.ErrNotFound)
	require.ErrorIs(t, a.FreeByPid(schema.NoPid), schema.ErrNotFound)

	for _, b := range a.Snapshot() {
		assert.NotEqual(t, schema.Pid(4), b.Pid())
	}
	require.NoError(t, a.Verify())
}

// TestHandler_Invariants_Random runs a deterministic random sequence of
// allocations and frees, checking the memory map invariants after each step.
func TestHandler_Invariants_Random(t *testing.T) {
	t.Parallel()

	a := newBootHandler(t)
	rng := rand.New(rand.NewSource(42)) //nolint:gosec

	var live []BlockID

	for range 2000 {
		if len(live) > 0 && rng.Intn(2) == 0 {
			idx := rng.Intn(len(live))
			require.NoError(t, a.Free(live[idx]))
			live = append(live[:idx], live[idx+1:]...)
		} else {
			size := uint(rng.Intn(40) + 1)
			id, err := a.Allocate(size, "r", schema.NoPid)
			if err != nil {
				require.ErrorIs(t, err, schema.ErrOutOfMemory)
				assert.Less(t, a.Stats().LargestFree, size)
			} else {
				live = append(live, id)
			}
		}

		require.NoError(t, a.Verify())

		var sum uint
		for _, b := range a.Snapshot() {
			sum += b.Size
		}
		require.Equal(t, a.TotalSize(), sum)
	}
}
