package kernel

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"text/template"

	"github.com/desertwitch/forthos/internal/configuration"
	"github.com/desertwitch/forthos/internal/filesystem"
	"github.com/desertwitch/forthos/internal/process"
	"github.com/desertwitch/forthos/internal/queue"
	"github.com/desertwitch/forthos/internal/schema"
)

const (
	scriptExt = ".py"
	binDir    = "/bin"
)

// scriptData is the data passed to the text templates of a script.
type scriptData struct {
	Name string
	Pid  schema.Pid
	Args []string
	Tick int
}

func (k *Kernel) cmdRun(ctx context.Context, args []string) error {
	name := firstArg(args)
	if name == "" {
		return fail(ErrUsage, "Missing script name for 'run'. Usage: run <script.py>")
	}

	target, content, err := k.findScript(name)
	if err != nil {
		k.logf("Script run failed: %s not found or invalid.", name)

		return fail(err, "Script '%s' not found at '%s' or not a .py file.", name, target)
	}

	base := path.Base(target)

	k.logf("Userland attempting to run script: %s from %s", base, target)
	k.printf("Running %s...", base)

	pid, err := k.procs.Create(base, process.DefaultPriority, process.UserUser, k.cfg.ProcessMemory)
	k.logf("Process %d requesting %d units of memory for %s.", pid, k.cfg.ProcessMemory, base)

	if err != nil {
		k.logf("Memory allocation failed for PID %d: Not enough contiguous free memory.", pid)
		k.logf("Failed to start %s (PID %d) due to OOM.", base, pid)

		return fail(err, "Not enough memory to start %s.", base)
	}

	for _, b := range k.alloc.Snapshot() {
		if b.Pid() == pid {
			k.logf("Memory allocated for PID %d at %d, size %d.", pid, b.Address, b.Size)
		}
	}

	k.logf("Process %d (%s) started.", pid, base)

	data := scriptData{Name: base, Pid: pid, Args: args[1:]}

	script, known := k.image.Script(base)
	if !known {
		script = k.image.Generic
	}

	for _, line := range script.Start {
		k.print(k.render(line, data))
	}

	if !known && content != "" {
		for _, line := range strings.Split(content, "\n") {
			k.print(line)
		}
	}

	for _, line := range script.Commands {
		_ = k.execute(ctx, k.render(line, data))
	}

	if _, alive := k.procs.Get(pid); !alive {
		return nil
	}

	task, err := k.scriptTask(script, data)
	if err == nil {
		_, err = k.sched.Schedule(task)
	}

	if err != nil {
		_, _ = k.procs.Terminate(pid)

		return fail(err, "Cannot schedule %s.", base)
	}

	return nil
}

// findScript resolves a script against the working directory, falling back
// to the binary directory for bare names.
func (k *Kernel) findScript(name string) (string, string, error) {
	target := k.resolve(name)

	node, err := k.fs.Lookup(target)
	if err != nil && !strings.Contains(name, "/") {
		if alt, altErr := k.fs.Lookup(path.Join(binDir, name)); altErr == nil {
			target, node, err = path.Join(binDir, name), alt, nil
		}
	}

	if err != nil {
		return target, "", fmt.Errorf("(kernel) %s: %w", target, ErrNoScript)
	}

	file, ok := node.(filesystem.File)
	if !ok || !strings.HasSuffix(file.Name, scriptExt) {
		return target, "", fmt.Errorf("(kernel) %s: %w", target, ErrNoScript)
	}

	return target, file.Content, nil
}

// scriptTask builds the scheduled task of a started script.
func (k *Kernel) scriptTask(script configuration.ScriptImage, data scriptData) (queue.Task, error) {
	finish := func() { k.finishScript(script, data) }

	switch script.Kind {
	case configuration.ScriptBoundedPeriodic:
		emit := func(tmpl string) func(int) {
			return func(tick int) {
				d := data
				d.Tick = tick + 1
				k.traced(data.Name, func() { k.print(k.render(tmpl, d)) })()
			}
		}

		return queue.BoundedPeriodic(data.Pid, data.Name,
			script.Ticks, script.Interval, script.SubDelay,
			emit(script.On), emit(script.Off), k.traced(data.Name, finish),
		)

	case configuration.ScriptMultiStage:
		steps := make([]queue.Step, 0, len(script.Stages))

		for i, stage := range script.Stages {
			last := i == len(script.Stages)-1

			steps = append(steps, queue.Step{
				Delay: stage.Delay,
				Run: k.traced(data.Name, func() {
					for _, line := range stage.Lines {
						k.print(k.render(line, data))
					}
					if last {
						finish()
					}
				}),
			})
		}

		return queue.MultiStage(data.Pid, data.Name, steps...), nil

	default:
		return queue.OneShot(data.Pid, data.Name, script.Duration, k.traced(data.Name, finish)), nil
	}
}

// finishScript prints the completion lines of a script and terminates its
// process, which also frees its memory.
func (k *Kernel) finishScript(script configuration.ScriptImage, data scriptData) {
	for _, line := range script.Done {
		k.print(k.render(line, data))
	}

	if _, err := k.procs.Terminate(data.Pid); err != nil {
		slog.Warn("Failed to terminate finished script",
			"pid", data.Pid,
			"name", data.Name,
			"err", err,
		)

		return
	}

	k.logf("Memory for PID %d freed and coalesced.", data.Pid)
	k.logf("Process %d (%s) finished.", data.Pid, data.Name)
}

// render executes a line template. A broken template is printed verbatim.
func (k *Kernel) render(line string, data scriptData) string {
	if !strings.Contains(line, "{{") {
		return line
	}

	tmpl, err := template.New("line").Funcs(template.FuncMap{
		"rand": k.randRange,
	}).Parse(line)
	if err != nil {
		slog.Warn("Invalid script line template", "line", line, "err", err)

		return line
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		slog.Warn("Failed to render script line", "line", line, "err", err)

		return line
	}

	return sb.String()
}

// randRange returns a pseudo-random number in [lo, hi).
func (k *Kernel) randRange(lo, hi float64) float64 {
	return lo + k.rng.Float64()*(hi-lo)
}
