package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/brokerhost/internal/model"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case StepStartMsg:
		m.ensureStep(msg.Name)
		step := m.steps[msg.Name]
		step.Status = model.StatusRunning
		m.steps[msg.Name] = step
		return m, nil
	case StepCompleteMsg:
		name := msg.Result.Step
		if name == "" {
			return m, nil
		}
		m.ensureStep(name)
		if !m.steps[name].IsTerminal() {
			m.completed++
			if msg.Result.Changed {
				m.changed++
			}
		}
		m.steps[name] = msg.Result
		return m, nil
	case RunDoneMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			m.finished = true
			return m, tea.Quit
		}
	}

	return m, nil
}
