package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		if m.state == StateProcessing {
			m.processingDots = (m.processingDots + 1) % 4
			return m, tickCmd()
		}
		return m, nil

	case scanDoneMsg:
		m.state = StateResults
		m.resultLines = msg.lines
		m.scrollOff = 0
		return m, nil

	case scanErrMsg:
		m.state = StateError
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.state {
	case StateMenu:
		return m.updateMenu(msg)
	case StateRulesInput, StatePayloadInput, StateExprInput:
		return m.updateTextInput(msg)
	case StateEndpointInput:
		return m.updateEndpointInput(msg)
	case StateQueryInput:
		return m.updateQueryInput(msg)
	case StateResults, StateError:
		return m.updateTerminal(msg)
	}
	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case "enter", " ":
		switch m.cursor {
		case 0:
			m.state = StateRulesInput
		case 1:
			m.state = StateExprInput
		case 2:
			return m, tea.Quit
		}
	}
	return m, nil
}

// updateTextInput is the shared single-line editor for the states that edit
// one field: enter advances, esc goes back.
func (m Model) updateTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var field *string
	var next, prev AppState

	switch m.state {
	case StateRulesInput:
		field, next, prev = &m.rulesInput, StatePayloadInput, StateMenu
	case StatePayloadInput:
		field, next, prev = &m.payloadInput, StateEndpointInput, StateRulesInput
	case StateExprInput:
		field, next, prev = &m.exprInput, StateQueryInput, StateMenu
	default:
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.state = prev
	case "enter":
		if *field != "" {
			m.state = next
		}
	case "backspace":
		if len(*field) > 0 {
			*field = (*field)[:len(*field)-1]
		}
	default:
		if len(msg.String()) == 1 {
			*field += msg.String()
		}
	}
	return m, nil
}

// updateEndpointInput edits the src/dst pair; tab switches fields and enter
// starts the scan.
func (m Model) updateEndpointInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	field := &m.srcInput
	if m.activeField == 1 {
		field = &m.dstInput
	}

	switch msg.String() {
	case "esc":
		m.state = StatePayloadInput
	case "tab":
		m.activeField = (m.activeField + 1) % 2
	case "enter":
		if m.srcInput != "" && m.dstInput != "" {
			m.state = StateProcessing
			return m, tea.Batch(m.runScanCmd(), tickCmd())
		}
	case "backspace":
		if len(*field) > 0 {
			*field = (*field)[:len(*field)-1]
		}
	default:
		if len(msg.String()) == 1 {
			*field += msg.String()
		}
	}
	return m, nil
}

func (m Model) updateQueryInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = StateExprInput
	case "enter":
		m.state = StateProcessing
		return m, tea.Batch(m.runExprCmd(), tickCmd())
	case "backspace":
		if len(m.queryInput) > 0 {
			m.queryInput = m.queryInput[:len(m.queryInput)-1]
		}
	default:
		if len(msg.String()) == 1 {
			m.queryInput += msg.String()
		}
	}
	return m, nil
}

// updateTerminal handles the results and error screens.
func (m Model) updateTerminal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "enter":
		m.state = StateMenu
		m.err = nil
	case "up", "k":
		if m.scrollOff > 0 {
			m.scrollOff--
		}
	case "down", "j":
		if m.scrollOff < len(m.resultLines)-1 {
			m.scrollOff++
		}
	}
	return m, nil
}
