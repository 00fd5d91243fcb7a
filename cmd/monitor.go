// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Ryan Bahl

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ryanbahl9/FlasherX-can/pkg/hextransfer"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive transfer monitor (TUI)",
	Long: `Run the receiver with a live terminal dashboard.

Shows the transfer state machine, per-line progress, staged address
bounds, statistics, and a scrolling event log while acting as a fully
functional receiver.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("63")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	stateStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	logStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))
)

const maxMonitorLog = 12

// Messages
type tickMsg time.Time

type frameMsg [hextransfer.FrameSize]byte

type connErrMsg struct {
	err error
}

type monitorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

type monitorModel struct {
	cfg      Config
	fc       *FrameConn
	connInfo string
	session  *hextransfer.Session

	prog  progress.Model
	spin  spinner.Model
	log   []monitorLogEntry
	width int
	err   error
}

func newMonitorModel(cfg Config, fc *FrameConn, connInfo string) monitorModel {
	prog := progress.New(progress.WithDefaultGradient())
	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return monitorModel{
		cfg:      cfg,
		fc:       fc,
		connInfo: connInfo,
		session:  newSession(cfg, false, false),
		prog:     prog,
		spin:     spin,
	}
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m monitorModel) tickInterval() time.Duration {
	return time.Duration(m.cfg.Timing.TickMs) * time.Millisecond
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.tickInterval()), m.spin.Tick)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.prog.Width = msg.Width - 20
		if m.prog.Width > 60 {
			m.prog.Width = 60
		}

	case frameMsg:
		m.session.HandleFrame(msg)

	case tickMsg:
		if resp := m.session.Update(); resp != nil {
			m.sendResponse(*resp)
			m.appendLog(monitorLogEntry{
				timestamp: time.Now(),
				message:   "-> " + hextransfer.FormatResponse(*resp),
				isError:   resp.Code == hextransfer.ResponseError,
			})
		}
		return m, tickCmd(m.tickInterval())

	case connErrMsg:
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// sendResponse puts one acknowledgement on the wire.
func (m *monitorModel) sendResponse(resp hextransfer.Response) {
	if err := m.fc.WriteFrame(responseFrame(m.cfg, resp)); err != nil {
		m.appendLog(monitorLogEntry{
			timestamp: time.Now(),
			message:   fmt.Sprintf("write failed: %v", err),
			isError:   true,
		})
	}
}

func (m *monitorModel) appendLog(entry monitorLogEntry) {
	m.log = append(m.log, entry)
	if len(m.log) > maxMonitorLog {
		m.log = m.log[len(m.log)-maxMonitorLog:]
	}
}

func (m monitorModel) stateName() string {
	switch {
	case m.session.Complete():
		return "COMPLETE"
	case m.session.InProgress():
		return "RECEIVING"
	default:
		return "IDLE"
	}
}

func (m monitorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("FlasherX Transfer Monitor"))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Connection: ") + m.connInfo + "\n")
	b.WriteString(labelStyle.Render("Device id:  ") +
		fmt.Sprintf("0x%02X", m.cfg.CAN.DeviceID) + "\n\n")

	state := m.stateName()
	switch state {
	case "COMPLETE":
		b.WriteString(labelStyle.Render("State: ") + okStyle.Render(state) + "\n")
	case "RECEIVING":
		b.WriteString(labelStyle.Render("State: ") +
			stateStyle.Render(state) + " " + m.spin.View() + "\n")
	default:
		b.WriteString(labelStyle.Render("State: ") + state + "\n")
	}

	current, expected := m.session.Progress()
	if expected > 0 {
		percent := float64(current) / float64(expected)
		b.WriteString(fmt.Sprintf("Lines: %d/%d\n", current, expected))
		b.WriteString(m.prog.ViewAs(percent) + "\n")
	}

	if min, max := m.session.Bounds(); max > min {
		b.WriteString(fmt.Sprintf("Image: [0x%08X, 0x%08X) %d bytes\n", min, max, max-min))
	}

	stats := m.session.Stats()
	b.WriteString(fmt.Sprintf("\nFrames: %d   Lines OK: %d   Errors: %d\n",
		stats.TotalFrames, stats.LinesCompleted, stats.Errors()))

	if len(m.log) > 0 {
		b.WriteString("\n" + labelStyle.Render("Events:") + "\n")
		for _, entry := range m.log {
			line := fmt.Sprintf("  %s %s",
				entry.timestamp.Format("15:04:05.000"), entry.message)
			if entry.isError {
				b.WriteString(errStyle.Render(line) + "\n")
			} else {
				b.WriteString(logStyle.Render(line) + "\n")
			}
		}
	}

	if m.err != nil {
		b.WriteString("\n" + errStyle.Render(fmt.Sprintf("Connection error: %v", m.err)) + "\n")
	}

	b.WriteString("\n" + labelStyle.Render("q to quit") + "\n")
	return b.String()
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	fc, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer fc.Close()

	model := newMonitorModel(cfg, fc, connInfo)
	p := tea.NewProgram(model)

	// Frame reader feeds the TUI event loop; the session itself is only
	// touched from the bubbletea goroutine.
	frames := make(chan [hextransfer.FrameSize]byte, 64)
	errs := make(chan error, 1)
	go readFrames(fc, cfg.CAN.DeviceID, frames, errs)
	go func() {
		for {
			select {
			case buf := <-frames:
				p.Send(frameMsg(buf))
			case err := <-errs:
				p.Send(connErrMsg{err: err})
				return
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	return nil
}
