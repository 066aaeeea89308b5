package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/brokerhost/internal/model"
)

// Sender is the part of *tea.Program the observer needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Observer forwards sequencer events to a running program.
type Observer struct {
	Program Sender
}

// StepStarted sends a StepStartMsg.
func (o Observer) StepStarted(name string) {
	o.Program.Send(StepStartMsg{Name: name, Time: time.Now()})
}

// StepFinished sends a StepCompleteMsg.
func (o Observer) StepFinished(res model.StepResult) {
	o.Program.Send(StepCompleteMsg{Result: res})
}
