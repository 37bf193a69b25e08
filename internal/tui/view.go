package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/reeveops/reeve/internal/model"
	"github.com/reeveops/reeve/internal/tui/components"
	"github.com/reeveops/reeve/pkg/diff"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render(fmt.Sprintf("reeve • %s", m.title())))

	progress := components.NewProgress(m.total).View(m.completed)
	sections = append(sections, sectionStyle.Render("Progress"), progress)

	entries := components.NewOpList(m.order, m.status, m.results).Entries()
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("Operations"), m.renderOpEntries(entries))
	}

	summary := components.NewSummary(components.SummaryData{
		Summary:   m.summary,
		DryRun:    m.dryRun,
		Finished:  m.finished,
		Cancelled: m.cancelled,
	}).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderOpEntries(entries []components.OpEntry) string {
	var lines []string
	for _, entry := range entries {
		icon := StatusIcon(entry.Status)
		if entry.Status == model.StatusRunning {
			icon = m.spin.View()
		}
		line := fmt.Sprintf(" %s %s", icon, entry.ID)
		res := entry.Result
		if res != nil {
			if len(res.Comments) > 0 && strings.TrimSpace(res.Comments[0]) != "" {
				line = fmt.Sprintf("%s — %s", line, res.Comments[0])
			}
			if res.Duration > 0 {
				line = fmt.Sprintf("%s (%s)", line, res.Duration.Truncate(10*time.Millisecond))
			}
		}
		lines = append(lines, line)
		if res != nil {
			lines = append(lines, renderChangeLines(res)...)
		}
	}
	return strings.Join(lines, "\n")
}

// renderChangeLines lists a result's attribute transitions, one indented
// line per change, keys sorted for stable output.
func renderChangeLines(res *model.ExecutionResult) []string {
	if len(res.Changes) == 0 {
		return nil
	}

	keys := make([]string, 0, len(res.Changes))
	for key := range res.Changes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var lines []string
	for _, key := range keys {
		ch := res.Changes[key]
		for _, detail := range strings.Split(diff.RenderTransition(key, ch.Old, ch.New), "\n") {
			lines = append(lines, changeDetailStyle.Render("     "+detail))
		}
	}
	return lines
}

func (m Model) title() string {
	name := "Run"
	if m.plan != nil && strings.TrimSpace(m.plan.Name) != "" {
		name = m.plan.Name
	}
	if m.dryRun {
		name = fmt.Sprintf("%s (preview)", name)
	}
	return name
}

// StatusIcon returns the glyph representing an operation status.
func StatusIcon(status string) string {
	switch status {
	case model.StatusSatisfied:
		return satisfiedStyle.Render("✓")
	case model.StatusChanged:
		return changedStyle.Render("↻")
	case model.StatusWouldChange:
		return previewStyle.Render("✱")
	case model.StatusRunning:
		return runningStyle.Render("⏳")
	case model.StatusFailed:
		return failedStyle.Render("✗")
	case model.StatusSkipped:
		return skippedStyle.Render("⊘")
	default:
		return pendingStyle.Render("…")
	}
}
