// Package tui is the supervising context of a provisioning run: it renders
// the ordered log stream, owns the Idle/Running/Succeeded/Failed state
// machine, and never blocks on the worker.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mindcraft-ce/provisioner/internal/provision"
)

// Phase is the supervisor-side state machine. A single primary control
// changes meaning with the phase instead of rewiring handlers at runtime.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseSucceeded
	PhaseFailed
)

// Worker is the slice of the orchestrator the supervisor needs: a one-shot
// start signal and the ordered event stream.
type Worker interface {
	Start(ctx context.Context)
	Events() <-chan provision.Event
}

// eventMsg carries one worker event into the Bubbletea loop.
type eventMsg struct {
	event provision.Event
}

// streamClosedMsg signals that the worker's event channel closed.
type streamClosedMsg struct{}

const timestampFormat = "2006-01-02 15:04:05"

// Model contains the Bubbletea state for the provisioning window.
type Model struct {
	title    string
	worker   Worker
	phase    Phase
	lines    []string
	viewport viewport.Model
	spinner  spinner.Model
	ready    bool
	quitting bool
}

// NewModel constructs the supervisor model for the given worker.
func NewModel(title string, worker Worker) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = runningStyle

	return Model{
		title:   title,
		worker:  worker,
		phase:   PhaseIdle,
		spinner: sp,
	}
}

// Init starts the Bubbletea program.
func (m Model) Init() tea.Cmd {
	return nil
}

// Phase returns the current supervisor state.
func (m Model) Phase() Phase {
	return m.phase
}

// Lines returns the rendered log lines accumulated so far.
func (m Model) Lines() []string {
	return m.lines
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	if m.ready {
		m.viewport.SetContent(logContent(m.lines))
		m.viewport.GotoBottom()
	}
}

func waitForEvent(ch <-chan provision.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg{event: ev}
	}
}

func formatLog(ev provision.LogEvent) string {
	return fmt.Sprintf("[%s] %s", ev.Time.Format(timestampFormat), ev.Text)
}
