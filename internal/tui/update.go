package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mindcraft-ce/provisioner/internal/provision"
)

// Update handles Bubbletea messages and drives the supervisor state machine.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case eventMsg:
		switch ev := msg.event.(type) {
		case provision.LogEvent:
			m.appendLine(formatLog(ev))
		case provision.DoneEvent:
			if ev.Success {
				m.phase = PhaseSucceeded
			} else {
				m.phase = PhaseFailed
			}
		}
		return m, waitForEvent(m.worker.Events())

	case streamClosedMsg:
		// Worker goroutine is gone; nothing further arrives.
		return m, nil

	case spinner.TickMsg:
		if m.phase != PhaseRunning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", " ":
		return m.primaryAction()
	case "q", "ctrl+c":
		if m.phase == PhaseRunning {
			// No cooperative mid-step cancellation: warn, then tear the
			// whole process down.
			m.appendLine("Cancel requested: provisioning cannot be interrupted cleanly; closing.")
			m.quitting = true
			return m, tea.Quit
		}
		m.quitting = true
		return m, tea.Quit
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// primaryAction is what the single primary control does in each phase:
// Idle starts the run, Running does nothing (the control is disabled),
// Succeeded and Failed close the window.
func (m Model) primaryAction() (tea.Model, tea.Cmd) {
	switch m.phase {
	case PhaseIdle:
		m.phase = PhaseRunning
		m.worker.Start(context.Background())
		return m, tea.Batch(m.spinner.Tick, waitForEvent(m.worker.Events()))
	case PhaseRunning:
		return m, nil
	default:
		m.quitting = true
		return m, tea.Quit
	}
}

func (m Model) resize(msg tea.WindowSizeMsg) Model {
	headerHeight := 6
	footerHeight := 3
	height := msg.Height - headerHeight - footerHeight
	if height < 3 {
		height = 3
	}

	if !m.ready {
		m.viewport = newLogViewport(msg.Width, height)
		m.viewport.SetContent(logContent(m.lines))
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = height
	}
	return m
}
