package main

import (
	"context"
	"log/slog"
	"os"
	"runtime/pprof"
)

// profiler writes a pprof profile to a file for the lifetime of its context.
//
//nolint:containedctx
type profiler struct {
	ctx      context.Context
	cancel   context.CancelFunc
	doneChan chan struct{}
}

// newCPUProfiler starts CPU profiling into path until stopped. An empty path
// disables profiling.
func newCPUProfiler(ctx context.Context, path string) *profiler {
	p := newProfiler(ctx)

	go func() {
		defer close(p.doneChan)

		if path == "" {
			return
		}

		f, err := os.Create(path)
		if err != nil {
			slog.Error("Could not create cpu profile", "err", err)

			return
		}
		defer f.Close()

		if err := pprof.StartCPUProfile(f); err != nil {
			slog.Error("Could not start cpu profile", "err", err)

			return
		}
		defer pprof.StopCPUProfile()

		<-p.ctx.Done()
	}()

	return p
}

// newAllocProfiler writes an allocation profile into path when stopped. An
// empty path disables profiling.
func newAllocProfiler(ctx context.Context, path string) *profiler {
	p := newProfiler(ctx)

	go func() {
		defer close(p.doneChan)

		if path == "" {
			return
		}

		<-p.ctx.Done()

		f, err := os.Create(path)
		if err != nil {
			slog.Error("Could not create allocs profile", "err", err)

			return
		}
		defer f.Close()

		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			slog.Error("Could not write allocs profile", "err", err)
		}
	}()

	return p
}

func newProfiler(ctx context.Context) *profiler {
	p := &profiler{doneChan: make(chan struct{})}
	p.ctx, p.cancel = context.WithCancel(ctx)

	return p
}

// Stop ends the profiling and waits for the profile to be written.
func (p *profiler) Stop() {
	p.cancel()
	<-p.doneChan
}
