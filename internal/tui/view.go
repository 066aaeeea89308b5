package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/brokerhost/internal/model"
)

// View renders the current state of the model.
func (m Model) View() string {
	sections := []string{
		titleStyle.Render(m.heading()),
		sectionStyle.Render("Progress"),
		m.progressView(),
	}

	if len(m.order) > 0 {
		sections = append(sections, sectionStyle.Render("Steps"), m.stepsView())
	}

	if summary := m.summary(); summary != "" {
		sections = append(sections, summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m Model) heading() string {
	if strings.TrimSpace(m.title) == "" {
		return "brokerhost"
	}
	return "brokerhost • " + m.title
}

func (m Model) progressView() string {
	ratio := 0.0
	if m.total > 0 {
		ratio = math.Min(1.0, float64(m.completed)/float64(m.total))
	}
	label := lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%d/%d", m.completed, m.total))
	return lipgloss.JoinHorizontal(lipgloss.Left, label, " ", m.bar.ViewAs(ratio))
}

func (m Model) stepsView() string {
	lines := make([]string, 0, len(m.order))
	for _, name := range m.order {
		res := m.steps[name]
		icon := StatusIcon(res.Status, res.Changed)
		if res.Status == model.StatusRunning {
			icon = m.spinner.View()
		}
		line := fmt.Sprintf(" %s %s", icon, name)
		if msg := strings.TrimSpace(res.Message); msg != "" && res.Status != model.StatusPending {
			line += messageStyle.Render(": " + msg)
		}
		if res.Duration >= 10*time.Millisecond {
			line += messageStyle.Render(fmt.Sprintf(" (%s)", res.Duration.Truncate(10*time.Millisecond)))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) summary() string {
	switch {
	case m.cancelled:
		return failureStyle.Render("Interrupted; the run continues until the current step ends")
	case !m.finished:
		return ""
	case m.err != nil:
		return failureStyle.Render("Run failed: " + m.err.Error())
	case m.changed == 0:
		return successStyle.Render("Host already converged, nothing changed")
	default:
		return changedStyle.Render(fmt.Sprintf("Host converged, %d step(s) changed", m.changed))
	}
}

// StatusIcon returns the glyph representing a step status.
func StatusIcon(status string, changed bool) string {
	switch status {
	case model.StatusSuccess:
		if changed {
			return changedStyle.Render("✱")
		}
		return successStyle.Render("✓")
	case model.StatusRunning:
		return runningStyle.Render("⏳")
	case model.StatusFailed:
		return failureStyle.Render("✗")
	case model.StatusSkipped:
		return skippedStyle.Render("⊘")
	default:
		return pendingStyle.Render("…")
	}
}
