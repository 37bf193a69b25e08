package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginTop(1)
	satisfiedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	changedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	previewStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	runningStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	failedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	skippedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	pendingStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	changeDetailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	summaryStyle      = lipgloss.NewStyle().MarginTop(1)
)
