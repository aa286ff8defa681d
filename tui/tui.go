package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"nids-engine/models"
)

// Run starts the TUI application
func Run(cfg models.Config) error {
	m := NewModel(cfg)

	// Alt screen fully isolates the TUI from the shell scrollback
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
