package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertwitch/forthos/internal/allocation"
	"github.com/desertwitch/forthos/internal/schema"
)

const (
	// pollInterval is the interval at which kernel snapshots are refreshed.
	pollInterval = 100 * time.Millisecond

	// maxHostLogs is the amount of host log lines kept for rendering.
	maxHostLogs = 100

	// noticeTicks is the amount of polls a transient notice stays visible.
	noticeTicks = 20

	notReadyNotice = "System is booting. Please wait..."
)

// KernelSnapshotMsg is a [tea.Msg] containing a read-only copy of the kernel
// state at the time of polling.
type KernelSnapshotMsg struct {
	t         time.Time
	output    []schema.OutputEntry
	kernelLog []schema.KernelLogEntry
	blocks    []allocation.Block
	stats     allocation.Stats
	cwd       string
	booting   bool
	progress  int
}

// TeaModel is the principal [tea.Model] for the command-line user interface.
//
//nolint:containedctx
type TeaModel struct {
	width  int
	height int

	ctx    context.Context
	cancel context.CancelFunc

	uiHandler *Handler

	shellWidth int
	sideWidth  int

	snapshot KernelSnapshotMsg

	bootProgress   progress.Model
	memoryProgress progress.Model
	prompt         textinput.Model
	shellViewport  viewport.Model
	klogViewport   viewport.Model
	hostViewport   viewport.Model
	hostLogs       []string

	notice      string
	noticeTicks int

	ready bool
}

// NewTeaModel returns an initial new [TeaModel]. The kernel is taken from the
// given [Handler].
//
//nolint:mnd
func NewTeaModel(ctx context.Context, uiHandler *Handler, cancel context.CancelFunc) TeaModel {
	prompt := textinput.New()
	prompt.Prompt = "$ "
	prompt.CharLimit = 256
	prompt.Focus()

	return TeaModel{
		ctx:       ctx,
		cancel:    cancel,
		uiHandler: uiHandler,
		bootProgress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(60),
		),
		memoryProgress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		prompt:        prompt,
		shellViewport: viewport.New(80, 20),
		klogViewport:  viewport.New(40, 10),
		hostViewport:  viewport.New(40, 10),
		hostLogs:      make([]string, 0, maxHostLogs),
		ready:         false,
	}
}

// Init initializes the model within a [tea.Program].
func (m TeaModel) Init() tea.Cmd {
	m.uiHandler.Initialized.Store(true)

	return tea.Batch(
		tea.EnterAltScreen,
		textinput.Blink,
		pollKernel(m.uiHandler.kernel),
	)
}

// pollKernel produces a [tea.Cmd] for later scheduling in a [tea.Program].
// When executed, a [KernelSnapshotMsg] with the current kernel state is
// returned.
func pollKernel(k kernelProvider) tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return takeSnapshot(k, t)
	})
}

// refreshKernel returns a [tea.Cmd] taking an immediate snapshot, used after
// submitting a line so the output does not lag a full poll behind. It does
// not schedule another poll.
func refreshKernel(k kernelProvider) tea.Cmd {
	return func() tea.Msg {
		msg := takeSnapshot(k, time.Now())
		msg.t = time.Time{}

		return msg
	}
}

func takeSnapshot(k kernelProvider, t time.Time) KernelSnapshotMsg {
	return KernelSnapshotMsg{
		t:         t,
		output:    k.Output(),
		kernelLog: k.KernelLog(),
		blocks:    k.MemoryMap(),
		stats:     k.MemoryStats(),
		cwd:       k.Cwd(),
		booting:   k.Booting(),
		progress:  k.BootProgress(),
	}
}

// Update is the principal message handling method of the model.
// It sets the internal state of the model, for later rendering.
//
//nolint:mnd,funlen,ireturn,cyclop
func (m TeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()

			return m, tea.Quit

		case "esc", "ctrl+d":
			return m, tea.Quit

		case "enter":
			line := m.prompt.Value()
			m.prompt.Reset()

			if err := m.uiHandler.kernel.Execute(m.ctx, line); errors.Is(err, schema.ErrNotReady) {
				m.notice = notReadyNotice
				m.noticeTicks = noticeTicks
			}

			return m, refreshKernel(m.uiHandler.kernel)

		case "pgup", "pgdown":
			m.shellViewport, cmd = m.shellViewport.Update(msg)

			return m, cmd
		}

		m.prompt, cmd = m.prompt.Update(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

		if !m.ready {
			m.ready = true
		}

	case KernelSnapshotMsg:
		m.snapshot = msg
		m.prompt.Prompt = m.snapshot.cwd + " $ "
		m.refreshShell()
		m.refreshKernelLog()

		if m.noticeTicks > 0 {
			m.noticeTicks--
			if m.noticeTicks == 0 {
				m.notice = ""
			}
		}

		if msg.stats.Total > 0 {
			cmds = append(cmds, m.memoryProgress.SetPercent(float64(msg.stats.Used)/float64(msg.stats.Total)))
		}
		cmds = append(cmds, m.bootProgress.SetPercent(float64(msg.progress)/100))

		// Only timed snapshots queue the next poll.
		if !msg.t.IsZero() {
			cmds = append(cmds, pollKernel(m.uiHandler.kernel))
		}

	case LogMsg:
		if len(m.hostLogs) >= maxHostLogs {
			m.hostLogs = m.hostLogs[1:]
		}
		m.hostLogs = append(m.hostLogs, string(msg))
		m.refreshHostLog()

	case progress.FrameMsg:
		updatedBoot, cmd := m.bootProgress.Update(msg)
		if progressModel, ok := updatedBoot.(progress.Model); ok {
			m.bootProgress = progressModel
		}
		cmds = append(cmds, cmd)

		updatedMemory, cmd := m.memoryProgress.Update(msg)
		if progressModel, ok := updatedMemory.(progress.Model); ok {
			m.memoryProgress = progressModel
		}
		cmds = append(cmds, cmd)

	default:
		m.prompt, cmd = m.prompt.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// layout recalculates the panel geometry after a resize.
//
//nolint:mnd
func (m *TeaModel) layout() {
	// The shell takes about 60% of the width.
	m.shellWidth = max(m.width*3/5-2, 20)
	m.sideWidth = max(m.width-m.shellWidth-4, 20)

	// Help line below all panels.
	usable := max(m.height-1, 12)

	// Shell: borders, title and prompt.
	m.shellViewport.Width = m.shellWidth
	m.shellViewport.Height = max(usable-4, 1)

	// Memory panel: borders, title, bar, two lines of stats.
	sideLeft := max(usable-6, 6)

	// Log panels: borders and title each.
	m.klogViewport.Width = m.sideWidth
	m.klogViewport.Height = max(sideLeft/2-3, 1)
	m.hostViewport.Width = m.sideWidth
	m.hostViewport.Height = max(sideLeft-sideLeft/2-3, 1)

	m.memoryProgress.Width = m.sideWidth
	m.bootProgress.Width = min(max(m.width-10, 10), 80)
	m.prompt.Width = max(m.shellWidth-len(m.prompt.Prompt)-1, 1)

	m.refreshShell()
	m.refreshKernelLog()
	m.refreshHostLog()
}
