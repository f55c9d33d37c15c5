package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertwitch/forthos/internal/allocation"
	"github.com/desertwitch/forthos/internal/schema"
	"github.com/dustin/go-humanize"
)

//nolint:gochecknoglobals
var (
	// titleStyle defines the style for a panel's title.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	// borderStyle defines the style for a panel's borders.
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))

	// infoStyle defines the style for a panel's text.
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	// helpStyle defines the style for the help panel's text.
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)

	inputStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	systemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A49FA5"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F")).Bold(true)

	// blockColors maps each block status to its color in the memory bar.
	blockColors = map[allocation.StatusKind]lipgloss.Color{
		allocation.StatusFree:           lipgloss.Color("#3A3A3A"),
		allocation.StatusKernel:         lipgloss.Color("#7D56F4"),
		allocation.StatusVirtualMachine: lipgloss.Color("#5F87FF"),
		allocation.StatusProcess:        lipgloss.Color("#04B575"),
		allocation.StatusUserAllocated:  lipgloss.Color("#FFD75F"),
	}
)

// View is the principal rendering function of the model.
func (m TeaModel) View() string {
	if !m.ready {
		return "Loading the GUI..."
	}

	if m.snapshot.booting {
		return m.bootView()
	}

	shellSection := borderStyle.
		Width(m.shellWidth).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				titleStyle.Width(m.shellWidth).Render("Shell"),
				m.shellViewport.View(),
				m.prompt.View(),
			),
		)

	sideSection := lipgloss.JoinVertical(
		lipgloss.Left,
		m.panel("Kernel Log", m.klogViewport.View()),
		m.panel("Memory", m.memoryView()),
		m.panel("Host Log", m.hostViewport.View()),
	)

	help := "enter: submit • pgup/pgdown: scroll • esc: quit gui • ctrl+c: quit program"
	if m.notice != "" {
		help = noticeStyle.Render(m.notice) + "  " + help
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, shellSection, sideSection),
		helpStyle.Width(m.width).Render(help),
	)
}

func (m TeaModel) panel(title string, content string) string {
	return borderStyle.
		Width(m.sideWidth).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				titleStyle.Width(m.sideWidth).Render(title),
				content,
			),
		)
}

// bootView renders the boot splash with the boot messages so far.
//
//nolint:mnd
func (m TeaModel) bootView() string {
	lines := make([]string, 0, len(m.snapshot.output))
	for _, entry := range m.snapshot.output {
		if entry.Kind == schema.OutputSystem {
			lines = append(lines, systemStyle.Render(entry.Text))
		}
	}

	if len(lines) > 12 {
		lines = lines[len(lines)-12:]
	}

	status := fmt.Sprintf("Booting... %d%%", m.snapshot.progress)
	if m.notice != "" {
		status += "  " + noticeStyle.Render(m.notice)
	}

	splash := lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Padding(0, 1).Render("ForthOS"),
		"",
		strings.Join(lines, "\n"),
		"",
		m.bootProgress.View(),
		infoStyle.Render(status),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, splash)
}

// memoryView renders the memory bar and a usage summary.
func (m TeaModel) memoryView() string {
	stats := m.snapshot.stats
	if stats.Total == 0 {
		return infoStyle.Render("No memory map yet.")
	}

	summary := fmt.Sprintf("Used %s of %s units (%d%%)\nFree %s units, largest %s",
		humanize.Comma(int64(stats.Used)),
		humanize.Comma(int64(stats.Total)),
		stats.Used*100/stats.Total, //nolint:mnd
		humanize.Comma(int64(stats.Free)),
		humanize.Comma(int64(stats.LargestFree)),
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		memoryBar(m.snapshot.blocks, stats.Total, m.sideWidth),
		m.memoryProgress.View(),
		infoStyle.Width(m.sideWidth).Render(summary),
	)
}

func (m *TeaModel) refreshShell() {
	lines := make([]string, 0, len(m.snapshot.output))
	for _, entry := range m.snapshot.output {
		lines = append(lines, renderEntry(entry))
	}

	m.shellViewport.SetContent(lipgloss.NewStyle().
		Width(m.shellViewport.Width).
		Render(strings.Join(lines, "\n")))
	m.shellViewport.GotoBottom()
}

func (m *TeaModel) refreshKernelLog() {
	lines := make([]string, 0, len(m.snapshot.kernelLog))
	for _, entry := range m.snapshot.kernelLog {
		lines = append(lines, systemStyle.Render(entry.Timestamp.Format("15:04:05"))+" "+entry.Message)
	}

	m.klogViewport.SetContent(lipgloss.NewStyle().
		Width(m.klogViewport.Width).
		Render(strings.Join(lines, "\n")))
	m.klogViewport.GotoBottom()
}

func (m *TeaModel) refreshHostLog() {
	if len(m.hostLogs) == 0 {
		return
	}

	m.hostViewport.SetContent(lipgloss.NewStyle().
		Width(m.hostViewport.Width).
		Render(strings.TrimSuffix(strings.Join(m.hostLogs, ""), "\n")))
	m.hostViewport.GotoBottom()
}

// renderEntry styles a single shell output line by its kind.
func renderEntry(entry schema.OutputEntry) string {
	switch entry.Kind {
	case schema.OutputInput:
		return inputStyle.Render("$ " + entry.Text)
	case schema.OutputError:
		return errorStyle.Render(entry.Text)
	case schema.OutputSystem:
		return systemStyle.Render(entry.Text)
	default:
		return entry.Text
	}
}

// memoryBar renders the address space as a bar of width cells, where each
// block covers the cells proportional to its address range.
func memoryBar(blocks []allocation.Block, total uint, width int) string {
	if total == 0 || width <= 0 {
		return ""
	}

	var s strings.Builder

	for _, b := range blocks {
		start := int(b.Address * uint(width) / total)
		end := int(b.End() * uint(width) / total)

		if end <= start {
			continue
		}

		s.WriteString(lipgloss.NewStyle().
			Foreground(blockColors[b.Status.Kind]).
			Render(strings.Repeat("█", end-start)))
	}

	return s.String()
}
