package kernel

import (
	"context"
	"testing"
	"time"

	"github.com/desertwitch/forthos/internal/configuration"
	"github.com/desertwitch/forthos/internal/process"
	"github.com/desertwitch/forthos/internal/schema"
	"github.com/desertwitch/forthos/internal/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestBoot_Success tests the boot sequence and the state after booting.
func TestBoot_Success(t *testing.T) {
	t.Parallel()

	k := newKernel(t, Options{Host: "testhost"})

	assert.True(t, k.Booting())
	assert.Equal(t, 0, k.BootProgress())
	assert.Empty(t, k.Processes())

	k.Advance(200 * time.Millisecond)
	assert.Equal(t, 10, k.BootProgress())
	assert.Equal(t, []string{" ", "ForthOS v0.1 Bootloader..."}, textsSince(k, 0))

	k.Advance(2800 * time.Millisecond)
	assert.Equal(t, 100, k.BootProgress())
	assert.True(t, k.Booting())

	k.Advance(300 * time.Millisecond)
	assert.False(t, k.Booting())
	assert.Equal(t, "/home/user", k.Cwd())

	out := k.Output()
	require.Len(t, out, 15)
	for _, e := range out[:13] {
		assert.Equal(t, schema.OutputSystem, e.Kind)
	}
	assert.Equal(t, "Welcome to ForthOS v0.1 - The Future is Retro!", out[13].Text)
	assert.Equal(t, "Type 'help' for available commands. Current directory: /home/user", out[14].Text)

	procs := k.Processes()
	require.Len(t, procs, 3)
	assert.Equal(t, "[kernel_task]", procs[0].Command)
	assert.Equal(t, "micropython_vm", procs[1].Command)
	assert.Equal(t, "sh (CLI)", procs[2].Command)

	var messages []string
	for _, e := range k.KernelLog() {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "Memory Controller online.")
	assert.Contains(t, messages, "Host: testhost")
	assert.Contains(t, messages, "Total Memory: 256 units. Kernel: 32, VM: 32.")

	assert.Equal(t, freshShapes(), shapes(k))
	assert.Empty(t, k.Tasks())
}

// TestBoot_Speed_Success tests that the boot speed divides the boot delays.
func TestBoot_Speed_Success(t *testing.T) {
	t.Parallel()

	cfg := configuration.Defaults()
	cfg.BootSpeed = 10

	img, err := configuration.LoadImage("")
	require.NoError(t, err)

	k, err := New(cfg, img, Options{})
	require.NoError(t, err)

	k.Advance(330 * time.Millisecond)
	assert.False(t, k.Booting())
}

// TestExecute_Fail_NotReady tests that commands are rejected while booting,
// without being recorded.
func TestExecute_Fail_NotReady(t *testing.T) {
	t.Parallel()

	k := newKernel(t, Options{})
	before := k.Output()

	err := exec(k, "mem_alloc 10 X")
	require.ErrorIs(t, err, schema.ErrNotReady)
	assert.Nil(t, schema.Kind(err))

	assert.Equal(t, before, k.Output())
	assert.Equal(t, freshShapes(), shapes(k))
}

// TestExecute_Fail_Cancelled tests that a cancelled context is refused.
func TestExecute_Fail_Cancelled(t *testing.T) {
	t.Parallel()

	k := newBootedKernel(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, k.Execute(ctx, "pwd"), context.Canceled)
}

// TestExecute_Success_Dispatch tests input echoing, case-insensitive command
// names and whitespace splitting.
func TestExecute_Success_Dispatch(t *testing.T) {
	t.Parallel()

	k := newBootedKernel(t)
	mark := len(k.Output())

	require.NoError(t, exec(k, "  ECHO   hello    world "))
	require.NoError(t, exec(k, "   "))

	out := k.Output()[mark:]
	require.Len(t, out, 2)
	assert.Equal(t, schema.OutputInput, out[0].Kind)
	assert.Equal(t, "ECHO   hello    world", out[0].Text)
	assert.Equal(t, schema.OutputText, out[1].Kind)
	assert.Equal(t, "hello world", out[1].Text)
}

// TestExecute_Fail_UnknownCommand tests the recovery of an unknown command.
func TestExecute_Fail_UnknownCommand(t *testing.T) {
	t.Parallel()

	k := newBootedKernel(t)
	mark := len(k.Output())

	err := exec(k, "FORMAT c:")
	require.ErrorIs(t, err, ErrUnknownCommand)
	require.ErrorIs(t, err, schema.ErrNotFound)

	out := k.Output()[mark:]
	require.Len(t, out, 2)
	assert.Equal(t, schema.OutputError, out[1].Kind)
	assert.Equal(t, "Error: Command not found: format. Type 'help' for available commands.", out[1].Text)

	require.NoError(t, exec(k, "pwd"))
}

// TestHelp_Success tests that help lists every command.
func TestHelp_Success(t *testing.T) {
	t.Parallel()

	k := newBootedKernel(t)
	mark := len(k.Output())

	require.NoError(t, exec(k, "help"))

	texts := textsSince(k, mark)
	require.Len(t, texts, 2)
	assert.Contains(t, texts[1], "Available commands:")

	for _, cmd := range k.commands {
		assert.Contains(t, texts[1], "  "+cmd.usage)
	}
}

// TestClear_Success tests that clear empties the output log.
func TestClear_Success(t *testing.T) {
	t.Parallel()

	k := newBootedKernel(t)

	require.NoError(t, exec(k, "echo a"))
	require.NoError(t, exec(k, "clear"))
	assert.Empty(t, k.Output())

	require.NoError(t, exec(k, "echo b"))
	assert.Equal(t, []string{"echo b", "b"}, textsSince(k, 0))
}

// TestKernelLog_Success tests the display of kernel events.
func TestKernelLog_Success(t *testing.T) {
	t.Parallel()

	k := newBootedKernel(t)
	logs := k.KernelLog()
	mark := len(k.Output())

	require.NoError(t, exec(k, "kernel_log"))

	out := k.Output()[mark+1:]
	require.Len(t, out, len(logs))
	assert.Equal(t, schema.OutputSystem, out[0].Kind)
	assert.Contains(t, out[0].Text, logs[0].Message)

	after := k.KernelLog()
	assert.Equal(t, "User requested kernel log display.", after[len(after)-1].Message)
}

// TestLogs_Capacity_Success tests the capacity of the logs.
func TestLogs_Capacity_Success(t *testing.T) {
	t.Parallel()

	k := newBootedKernel(t)

	for range 150 {
		require.NoError(t, exec(k, "ps"))
	}

	out := k.Output()
	assert.Len(t, out, MaxOutputEntries)
	assert.Len(t, k.KernelLog(), MaxKernelLogEntries)
	assert.Equal(t, "ps", out[len(out)-5].Text)
}

// TestUptime_Success tests the uptime command.
func TestUptime_Success(t *testing.T) {
	t.Parallel()

	k := newBootedKernel(t)
	mark := len(k.Output())

	require.NoError(t, exec(k, "uptime"))

	texts := textsSince(k, mark)
	require.Len(t, texts, 2)
	assert.Contains(t, texts[1], "up 5s (simulated)")
	assert.Contains(t, texts[1], k.Session())
	assert.Contains(t, texts[1], "3 processes")
}

// TestExecute_Tracing_Success tests that commands and steps are traced.
func TestExecute_Tracing_Success(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()

	p, err := tracing.NewProvider(context.Background(), "forthos", "test", exporter)
	require.NoError(t, err)

	k := newKernel(t, Options{Tracer: p.Tracer()})
	k.Advance(bootTime)

	spans := exporter.GetSpans()
	require.NotEmpty(t, spans)
	assert.Equal(t, "step boot", spans[0].Name)

	exporter.Reset()

	require.NoError(t, exec(k, "mem_map"))
	require.Error(t, exec(k, "kill 999"))

	spans = exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "command mem_map", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Equal(t, "command kill", spans[1].Name)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
}

// TestNew_Fail tests the rejection of unbootable configurations.
func TestNew_Fail(t *testing.T) {
	t.Parallel()

	img, err := configuration.LoadImage("")
	require.NoError(t, err)

	cfg := configuration.Defaults()
	cfg.KernelMemory = 300

	_, err = New(cfg, img, Options{})
	require.ErrorIs(t, err, schema.ErrInvalidArgument)

	bad, err := configuration.ParseImage([]byte("home: /\nfilesystem:\n  - path: /missing/file\n"))
	require.NoError(t, err)

	_, err = New(configuration.Defaults(), bad, Options{})
	require.ErrorIs(t, err, schema.ErrNotFound)
}

// TestKernel_Concurrent_Success tests that concurrent commands and clock
// advances leave a consistent state.
func TestKernel_Concurrent_Success(t *testing.T) {
	t.Parallel()

	k := newBootedKernel(t)
	done := make(chan struct{})

	go func() {
		defer close(done)

		for range 200 {
			k.Advance(50 * time.Millisecond)
			_ = k.MemoryMap()
			_ = k.Output()
		}
	}()

	for range 50 {
		_ = exec(k, "run /bin/blink.py")
		_ = exec(k, "mem_alloc 1")
		_ = exec(k, "ps")
	}

	<-done
	k.Advance(time.Minute)

	require.NoError(t, k.alloc.Verify())

	for _, p := range k.Processes() {
		assert.LessOrEqual(t, p.Pid, process.PidShell)
	}
}
