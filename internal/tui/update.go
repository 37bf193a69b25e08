package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/reeveops/reeve/internal/model"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case OpStartMsg:
		m.ensureOp(msg.OpID)
		m.status[msg.OpID] = model.StatusRunning
		return m, nil
	case OpResultMsg:
		res := msg.Result
		if res == nil || res.OpID == "" {
			return m, nil
		}
		m.ensureOp(res.OpID)
		_, seen := m.results[res.OpID]
		m.results[res.OpID] = res
		m.status[res.OpID] = model.DisplayStatus(res)
		if !seen {
			m.completed++
			m.markFinishedIfComplete()
		}
		return m, nil
	case JobDoneMsg:
		m.summary = msg.Summary
		m.finished = true
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			m.finished = true
			return m, tea.Quit
		}
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}
