// Package ui implements the terminal user interface of the simulated kernel
// using [tea]. It only ever submits command lines to the kernel and renders
// read-only snapshots of the kernel state.
package ui

import (
	"context"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertwitch/forthos/internal/allocation"
	"github.com/desertwitch/forthos/internal/schema"
)

type kernelProvider interface {
	Execute(ctx context.Context, line string) error
	Output() []schema.OutputEntry
	KernelLog() []schema.KernelLogEntry
	MemoryMap() []allocation.Block
	MemoryStats() allocation.Stats
	Cwd() string
	Booting() bool
	BootProgress() int
}

// Handler is the principal implementation of a user interface [Handler].
type Handler struct {
	kernel  kernelProvider
	program *tea.Program

	LogWriter *TeaLogWriter

	Initialized atomic.Bool
	Failed      atomic.Bool
}

// NewHandler returns a pointer to a new user interface [Handler] for kernel.
// A Ctrl+C keypress calls cancel.
func NewHandler(ctx context.Context, cancel context.CancelFunc, kernel kernelProvider) *Handler {
	handler := &Handler{
		kernel: kernel,
	}

	model := NewTeaModel(ctx, handler, cancel)
	handler.program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	handler.LogWriter = NewTeaLogWriter(handler.program)

	return handler
}

// Launch starts the terminal user interface (the [tea.Program]) and blocks
// until it exits.
func (uiHandler *Handler) Launch() error {
	defer uiHandler.LogWriter.Stop()

	if _, err := uiHandler.program.Run(); err != nil {
		uiHandler.Failed.Store(true)

		return fmt.Errorf("(ui) %w", err)
	}

	return nil
}
