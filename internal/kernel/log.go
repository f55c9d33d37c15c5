package kernel

import (
	"fmt"
	"log/slog"

	"github.com/desertwitch/forthos/internal/clock"
	"github.com/desertwitch/forthos/internal/schema"
)

const (
	// MaxOutputEntries is the capacity of the output log.
	MaxOutputEntries = 200

	// MaxKernelLogEntries is the capacity of the kernel log.
	MaxKernelLogEntries = 100
)

// emit appends a line to the output log. Must be called with the lock held.
func (k *Kernel) emit(kind schema.OutputKind, text string) {
	k.entrySeq++

	k.output = append(k.output, schema.OutputEntry{
		ID:   fmt.Sprintf("cli-%d", k.entrySeq),
		Kind: kind,
		Text: text,
	})

	if over := len(k.output) - MaxOutputEntries; over > 0 {
		k.output = append(k.output[:0:0], k.output[over:]...)
	}
}

func (k *Kernel) print(text string) {
	k.emit(schema.OutputText, text)
}

func (k *Kernel) printf(format string, args ...any) {
	k.emit(schema.OutputText, fmt.Sprintf(format, args...))
}

// logf appends a kernel event to the kernel log. Must be called with the lock
// held.
func (k *Kernel) logf(format string, args ...any) {
	k.entrySeq++

	msg := fmt.Sprintf(format, args...)

	k.klog = append(k.klog, schema.KernelLogEntry{
		ID:        fmt.Sprintf("log-%d", k.entrySeq),
		Timestamp: clock.Now(),
		Message:   msg,
	})

	if over := len(k.klog) - MaxKernelLogEntries; over > 0 {
		k.klog = append(k.klog[:0:0], k.klog[over:]...)
	}

	slog.Debug("Kernel event", "msg", msg)
}
