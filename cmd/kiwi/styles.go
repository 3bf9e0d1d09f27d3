package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Italic(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

func terminalOutput() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func styleSuccess(s string) string {
	if !terminalOutput() {
		return s
	}
	return successStyle.Render(s)
}

func styleWarn(s string) string {
	if !terminalOutput() {
		return s
	}
	return warnStyle.Render(s)
}

func styleError(s string) string {
	if !terminalOutput() {
		return s
	}
	return errorStyle.Render(s)
}

func styleHint(s string) string {
	if !terminalOutput() {
		return s
	}
	return hintStyle.Render(s)
}

func styleDim(s string) string {
	if !terminalOutput() {
		return s
	}
	return dimStyle.Render(s)
}
