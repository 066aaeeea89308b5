package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/brokerhost/internal/model"
)

// StepStartMsg indicates a step has started executing.
type StepStartMsg struct {
	Name string
	Time time.Time
}

// StepCompleteMsg reports that a step has finished execution.
type StepCompleteMsg struct {
	Result model.StepResult
}

// RunDoneMsg reports the end of the run. Err is the run's error, if any.
type RunDoneMsg struct {
	Err error
}

// Model contains the Bubbletea state for the apply progress view.
type Model struct {
	title     string
	steps     map[string]model.StepResult
	order     []string
	total     int
	completed int
	changed   int
	finished  bool
	cancelled bool
	err       error

	spinner spinner.Model
	bar     progress.Model
}

// NewModel builds a model that tracks the named steps in table order.
func NewModel(title string, stepNames []string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = runningStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30

	m := Model{
		title:   title,
		steps:   make(map[string]model.StepResult, len(stepNames)),
		order:   make([]string, 0, len(stepNames)),
		spinner: sp,
		bar:     bar,
	}
	for _, name := range stepNames {
		m.ensureStep(name)
	}
	return m
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// TotalSteps returns the total number of steps tracked by the model.
func (m Model) TotalSteps() int {
	return m.total
}

// CompletedSteps returns the number of steps that reached a terminal status.
func (m Model) CompletedSteps() int {
	return m.completed
}

// IsFinished reports whether the run has ended.
func (m Model) IsFinished() bool {
	return m.finished
}

// Cancelled reports whether the operator interrupted the view.
func (m Model) Cancelled() bool {
	return m.cancelled
}

func (m *Model) ensureStep(name string) {
	if name == "" {
		return
	}
	if _, exists := m.steps[name]; !exists {
		m.steps[name] = model.StepResult{Step: name, Status: model.StatusPending}
		m.order = append(m.order, name)
		m.total++
	}
}
