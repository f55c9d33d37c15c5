package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/desertwitch/forthos/internal/configuration"
	"github.com/desertwitch/forthos/internal/kernel"
	"github.com/desertwitch/forthos/internal/tracing"
	"github.com/desertwitch/forthos/internal/ui"
)

const (
	stackTraceBufMax = 1 << 24

	serviceName = "forthos"
	shutdownMax = 5 * time.Second
)

//nolint:gochecknoglobals
var (
	ExitCode = 0
	Version  string

	configFile = flag.String("config", "forthos.env", "configuration file (optional unless given)")
	uiEnabled  = flag.Bool("ui", true, "enable the UI")
	debugMode  = flag.Bool("debug", false, "enable debug logging")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
)

func logLevel(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}

	return slog.LevelInfo
}

func setupLogging(debug bool) *SlogManager {
	logs := NewSlogManager()
	logs.AddHandler(handlerTerminal, newConsoleHandler(os.Stdout, logLevel(debug), false))
	slog.SetDefault(slog.New(logs))

	return logs
}

func setupSignalHandlers(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigChan
		cancel()
	}()

	sigChan2 := make(chan os.Signal, 1)
	signal.Notify(sigChan2, syscall.SIGUSR1)
	go func() {
		for range sigChan2 {
			buf := make([]byte, stackTraceBufMax)
			stacklen := runtime.Stack(buf, true)
			os.Stderr.Write(buf[:stacklen])
		}
	}()
}

// configGiven returns whether the configuration file was set explicitly, in
// which case it must exist.
func configGiven() bool {
	given := false

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			given = true
		}
	})

	return given
}

//nolint:funlen
func main() {
	defer func() {
		os.Exit(ExitCode)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	flag.Parse()
	logs := setupLogging(*debugMode)
	setupSignalHandlers(cancel)

	cpuProfiler := newCPUProfiler(ctx, *cpuprofile)
	defer cpuProfiler.Stop()

	allocProfiler := newAllocProfiler(ctx, *memprofile)
	defer allocProfiler.Stop()

	configHandler := configuration.NewHandler(&configuration.GodotenvProvider{})

	cfg, err := configHandler.Load(*configFile, configGiven())
	if err != nil {
		slog.Error("Failed to load the configuration.", "err", err)
		ExitCode = 1

		return
	}

	img, err := configuration.LoadImage(cfg.ImagePath)
	if err != nil {
		slog.Error("Failed to load the boot image.", "err", err)
		ExitCode = 1

		return
	}

	opts := kernel.Options{Host: hostDescription()}

	if cfg.TraceFile != "" {
		provider, err := tracing.Init(ctx, serviceName, Version, cfg.TraceFile)
		if err != nil {
			slog.Error("Failed to set up tracing.", "err", err)
			ExitCode = 1

			return
		}

		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownMax)
			defer shutdownCancel()

			if err := provider.Shutdown(shutdownCtx); err != nil {
				slog.Warn("Failed to flush traces.", "err", err)
			}
		}()

		opts.Tracer = provider.Tracer()
	}

	k, err := kernel.New(cfg, img, opts)
	if err != nil {
		slog.Error("Failed to create the kernel.", "err", err)
		ExitCode = 1

		return
	}

	slog.Info("Kernel created",
		"session", k.Session(),
		"memory", cfg.TotalMemory,
		"tick", cfg.Tick,
	)

	var uiHandler *ui.Handler
	if *uiEnabled {
		uiHandler = ui.NewHandler(ctx, cancel, k)
	}

	app := NewApp(k, kernel.NewRunner(k, cfg.Tick), uiHandler, logs, *debugMode)

	if err := app.Launch(ctx, cancel); err != nil {
		slog.Error("Kernel session ended with failure.", "err", err)
		ExitCode = 1
	}
}
