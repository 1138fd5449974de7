package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// View renders the current state of the supervisor window.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var sections []string

	sections = append(sections, titleStyle.Render(m.headerTitle()))
	sections = append(sections, subtitleStyle.Render(m.headerSubtitle()))

	if m.phase == PhaseIdle {
		sections = append(sections, sectionStyle.Render("Installation Details"))
		sections = append(sections, detailStyle.Render(
			"This looks like the first launch: the required tools and the\n"+
				"application workspace will be set up now. Press the primary\n"+
				"button to begin."))
	} else {
		header := "Progress"
		if m.phase == PhaseRunning {
			header = m.spinner.View() + " Progress"
		}
		sections = append(sections, sectionStyle.Render(header))
		if m.ready {
			sections = append(sections, m.viewport.View())
		} else {
			sections = append(sections, logContent(m.lines))
		}
	}

	sections = append(sections, buttonBar(m.phase))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) headerTitle() string {
	switch m.phase {
	case PhaseRunning:
		return m.title + " - Installing..."
	case PhaseSucceeded:
		return m.title + " - Installation complete"
	case PhaseFailed:
		return m.title + " - Installation failed"
	default:
		return "Welcome to the " + m.title + " installer!"
	}
}

func (m Model) headerSubtitle() string {
	switch m.phase {
	case PhaseRunning:
		return "Please wait."
	case PhaseSucceeded:
		return "Restart the launcher to continue."
	case PhaseFailed:
		return "See the log below; nothing was finalized, so running again starts over."
	default:
		return "You're seeing this because this is the first time you're opening the launcher."
	}
}

// buttonBar renders the single primary control with its phase-dependent
// label, plus the always-available quit hint.
func buttonBar(phase Phase) string {
	var label string
	var style lipgloss.Style
	switch phase {
	case PhaseIdle:
		label, style = "Install", buttonStyle
	case PhaseRunning:
		label, style = "Installing…", buttonDisabledStyle
	case PhaseSucceeded:
		label, style = "Finish", buttonStyle
	default:
		label, style = "Close", buttonStyle
	}

	return lipgloss.JoinHorizontal(lipgloss.Center,
		style.Render("[ "+label+" ] (enter)"),
		hintStyle.Render("  q to quit"),
	)
}

func newLogViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.Style = logPaneStyle
	return vp
}

func logContent(lines []string) string {
	if len(lines) == 0 {
		return "Waiting for output..."
	}
	return strings.Join(lines, "\n")
}
