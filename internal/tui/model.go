package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/reeveops/reeve/internal/config"
	"github.com/reeveops/reeve/internal/engine"
	"github.com/reeveops/reeve/internal/model"
)

// OpStartMsg indicates an operation has been dispatched.
type OpStartMsg struct {
	OpID string
	Time time.Time
}

// OpResultMsg delivers one operation's finished record.
type OpResultMsg struct {
	Result *model.ExecutionResult
}

// JobDoneMsg closes out the run with its aggregated summary.
type JobDoneMsg struct {
	Summary *model.RunSummary
}

// Model contains the Bubbletea state for reeve's run display.
type Model struct {
	plan           *config.Plan
	execPlan       *engine.ExecutionPlan
	results        map[string]*model.ExecutionResult
	status         map[string]string
	order          []string
	summary        *model.RunSummary
	spin           spinner.Model
	total          int
	completed      int
	dryRun         bool
	finished       bool
	cancelled      bool
	nonInteractive bool
}

// NewModel constructs a TUI model for the given plan and its execution
// levels. Operations render in level order.
func NewModel(plan *config.Plan, execPlan *engine.ExecutionPlan, nonInteractive bool) Model {
	m := Model{
		plan:           plan,
		execPlan:       execPlan,
		results:        make(map[string]*model.ExecutionResult),
		status:         make(map[string]string),
		order:          make([]string, 0),
		spin:           spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(runningStyle)),
		nonInteractive: nonInteractive,
	}

	if plan != nil {
		m.dryRun = plan.Settings.DryRun
	}

	if execPlan != nil {
		for _, level := range execPlan.Levels {
			for _, id := range level.OpIDs {
				if _, exists := m.status[id]; !exists {
					m.status[id] = model.StatusPending
					m.order = append(m.order, id)
					m.total++
				}
			}
		}
	}

	return m
}

// Init starts the spinner ticker.
func (m Model) Init() tea.Cmd {
	return m.spin.Tick
}

// TotalOps returns the number of operations tracked by the model.
func (m Model) TotalOps() int {
	return m.total
}

// CompletedOps returns the number of operations with a finished record.
func (m Model) CompletedOps() int {
	return m.completed
}

// IsFinished reports whether the run has completed.
func (m Model) IsFinished() bool {
	return m.finished
}

// Summary returns the run summary once a JobDoneMsg has arrived, nil before.
func (m Model) Summary() *model.RunSummary {
	return m.summary
}

func (m *Model) ensureOp(id string) {
	if id == "" {
		return
	}
	if _, exists := m.status[id]; !exists {
		m.status[id] = model.StatusPending
		m.order = append(m.order, id)
		m.total++
	}
}

func (m *Model) markFinishedIfComplete() {
	if m.total > 0 && m.completed >= m.total {
		m.finished = true
	}
}
