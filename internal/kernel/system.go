package kernel

import (
	"context"
	"time"

	"github.com/desertwitch/forthos/internal/schema"
	"github.com/dustin/go-humanize"
)

func (k *Kernel) cmdKernelLog(context.Context, []string) error {
	logs := append([]schema.KernelLogEntry(nil), k.klog...)

	k.logf("User requested kernel log display.")

	if len(logs) == 0 {
		k.print("No kernel logs yet.")

		return nil
	}

	for _, entry := range logs {
		k.emit(schema.OutputSystem, "["+entry.Timestamp.Format("15:04:05")+"] "+entry.Message)
	}

	return nil
}

func (k *Kernel) cmdUptime(context.Context, []string) error {
	k.printf("up %s (simulated), session %s started %s, %d processes, %d scheduled tasks",
		k.sched.Now().Round(100*time.Millisecond), //nolint:mnd
		k.session,
		humanize.Time(k.started),
		len(k.procs.List()),
		len(k.sched.Pending()),
	)

	return nil
}
