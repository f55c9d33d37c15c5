package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/desertwitch/forthos/internal/kernel"
	"github.com/desertwitch/forthos/internal/ui"
)

// App ties the kernel, its clock runner and the chosen front end together.
type App struct {
	kernel    *kernel.Kernel
	runner    *kernel.Runner
	uiHandler *ui.Handler
	logs      *SlogManager
	debug     bool
}

func NewApp(k *kernel.Kernel, runner *kernel.Runner, uiHandler *ui.Handler, logs *SlogManager, debug bool) *App {
	return &App{
		kernel:    k,
		runner:    runner,
		uiHandler: uiHandler,
		logs:      logs,
		debug:     debug,
	}
}

// Launch runs the kernel clock and the front end until the front end exits
// or the context is cancelled.
func (app *App) Launch(ctx context.Context, cancel context.CancelFunc) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()

		if err := app.runner.Run(ctx); err != nil {
			slog.Error("Kernel clock failure", "err", err)
			cancel()
		}
	}()

	if app.uiHandler != nil {
		err := app.LaunchUI()
		if err == nil || ctx.Err() != nil {
			return nil
		}

		slog.Error("UI failure: falling back to terminal.", "err", err)
	}

	if err := newShell(app.kernel, os.Stdin, os.Stdout).Run(ctx); err != nil {
		return fmt.Errorf("(app) %w", err)
	}

	return nil
}

// LaunchUI routes host logs into the user interface while it runs.
func (app *App) LaunchUI() error {
	app.logs.AddHandler(handlerUI, newConsoleHandler(app.uiHandler.LogWriter, logLevel(app.debug), true))
	app.logs.RemoveHandler(handlerTerminal)

	defer func() {
		app.logs.AddHandler(handlerTerminal, newConsoleHandler(os.Stdout, logLevel(app.debug), false))
		app.logs.RemoveHandler(handlerUI)
	}()

	if err := app.uiHandler.Launch(); err != nil {
		return fmt.Errorf("(app-ui) %w", err)
	}

	return nil
}
