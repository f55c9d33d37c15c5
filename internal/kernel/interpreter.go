package kernel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/desertwitch/forthos/internal/schema"
	"github.com/desertwitch/forthos/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type command struct {
	name  string
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

func (k *Kernel) commandTable() []command {
	return []command{
		{"help", "help", "Show this help message", k.cmdHelp},
		{"echo", "echo [text]", "Print text to console", k.cmdEcho},
		{"clear", "clear", "Clear CLI output", k.cmdClear},
		{"kernel_log", "kernel_log", "(System) Show recent kernel messages", k.cmdKernelLog},
		{"mem_map", "mem_map", "(System) Show current memory map", k.cmdMemMap},
		{"mem_alloc", "mem_alloc <size> [<label>]", "(System Call) Allocate memory", k.cmdMemAlloc},
		{"mem_free", "mem_free <id_or_pid>", "(System Call) Free memory block by ID or PID", k.cmdMemFree},
		{"ls", "ls [path]", "List directory contents", k.cmdLs},
		{"cat", "cat <filepath>", "Display file content", k.cmdCat},
		{"touch", "touch <filepath>", "Create an empty file or update timestamp", k.cmdTouch},
		{"mkdir", "mkdir <dirpath>", "Create a directory", k.cmdMkdir},
		{"cd", "cd [path]", "Change current directory", k.cmdCd},
		{"pwd", "pwd", "Print working directory", k.cmdPwd},
		{"stat", "stat <path>", "Show file details and checksum", k.cmdStat},
		{"ps", "ps", "List running processes", k.cmdPs},
		{"kill", "kill <pid>", "Terminate a process", k.cmdKill},
		{"nice", "nice <pid> <priority>", "Change process priority (0-19, lower is higher)", k.cmdNice},
		{"run", "run <script.py> [args...]", "Simulate running a MicroPython script", k.cmdRun},
		{"uptime", "uptime", "Show simulated uptime and session", k.cmdUptime},
	}
}

// Execute runs a single command line. The line is echoed to the output log,
// followed by everything the command prints. A failed command is recovered
// into one error line of the output log and its error is returned for
// inspection only; the kernel stays usable either way.
//
// While the kernel is booting the line is not parsed, nothing is recorded and
// [schema.ErrNotReady] is returned.
func (k *Kernel) Execute(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("(kernel) %w", err)
	}

	k.Lock()
	defer k.Unlock()

	if k.booting {
		return fmt.Errorf("(kernel) %w", schema.ErrNotReady)
	}

	return k.execute(ctx, line)
}

// execute is the re-entrant dispatch path. Must be called with the lock held.
func (k *Kernel) execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	k.emit(schema.OutputInput, line)

	fields := strings.Fields(line)
	name := strings.ToLower(fields[0])
	args := fields[1:]

	ctx, span := k.tracer.Start(ctx, "command "+name, trace.WithAttributes(
		attribute.String("line", line),
		attribute.String("cwd", k.cwd),
	))

	var err error

	if cmd, ok := k.lookup(name); ok {
		err = cmd.run(ctx, args)
	} else {
		k.logf("Unknown command received: %s", name)
		err = fail(ErrUnknownCommand, "Command not found: %s. Type 'help' for available commands.", name)
	}

	tracing.End(span, err)

	if err != nil {
		k.emit(schema.OutputError, message(err))
		slog.Debug("Command failed",
			"line", line,
			"kind", schema.Kind(err),
			"err", err,
		)
	}

	return err
}

func (k *Kernel) lookup(name string) (command, bool) {
	for _, cmd := range k.commands {
		if cmd.name == name {
			return cmd, true
		}
	}

	return command{}, false
}

func (k *Kernel) cmdHelp(context.Context, []string) error {
	var sb strings.Builder

	sb.WriteString("Available commands:")
	for _, cmd := range k.commands {
		fmt.Fprintf(&sb, "\n  %-26s - %s", cmd.usage, cmd.help)
	}

	k.print(sb.String())

	return nil
}

func (k *Kernel) cmdEcho(_ context.Context, args []string) error {
	k.print(strings.Join(args, " "))

	return nil
}

func (k *Kernel) cmdClear(context.Context, []string) error {
	k.output = k.output[:0]

	return nil
}
