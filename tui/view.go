package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"nids-engine/models"
)

// View implements tea.Model
func (m Model) View() string {
	switch m.state {
	case StateMenu:
		return m.render(m.viewMenu())
	case StateRulesInput:
		return m.render(m.viewInput("Rule File", "Path to the rule file to compile", m.rulesInput, "local.rules"))
	case StatePayloadInput:
		return m.render(m.viewInput("Payload File", "Path to the payload to scan", m.payloadInput, "payload.bin"))
	case StateEndpointInput:
		return m.render(m.viewEndpoints())
	case StateExprInput:
		return m.render(m.viewInput("Address Expression", "Expression to compile, e.g. [10.0.0.0/8, !10.1.0.0/16]", m.exprInput, "any"))
	case StateQueryInput:
		return m.render(m.viewInput("Lookup Address", "Optional address to look up (enter to skip)", m.queryInput, ""))
	case StateProcessing:
		return m.render(m.viewProcessing())
	case StateResults:
		return m.render(m.viewResults())
	case StateError:
		return m.render(m.viewError())
	}
	return ""
}

func (m Model) render(content string) string {
	if m.width <= 0 || m.height <= 0 {
		return boxStyle.Render(content)
	}

	contentWidth := m.width - 6
	contentHeight := m.height - 4
	if contentWidth < 50 {
		contentWidth = 50
	}
	if contentHeight < 10 {
		contentHeight = 10
	}

	mainStyle := lipgloss.NewStyle().
		Width(contentWidth).
		Height(contentHeight).
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(secondaryColor).
		Align(lipgloss.Left)

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Padding(1, 2).
		Render(mainStyle.Render(content))
}

func (m Model) viewMenu() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %s", models.AppName, models.Version)))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("Rule-driven packet inspection prototype"))
	b.WriteString("\n\n")

	for i, choice := range m.choices {
		cursor := "  "
		style := choiceStyle
		if m.cursor == i {
			cursor = "> "
			style = selectedStyle
		}
		b.WriteString(style.Render(cursor + choice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("up/down: navigate - enter: select - q: quit"))
	return b.String()
}

func (m Model) viewInput(title, hint, value, placeholder string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(hint))
	b.WriteString("\n\n")

	b.WriteString(inputFieldStyle.Render("> "))
	if value == "" && placeholder != "" {
		b.WriteString(placeholderStyle.Render(placeholder))
	} else {
		b.WriteString(inputTextStyle.Render(value))
	}
	b.WriteString(inputTextStyle.Render("_"))

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter: continue - esc: back"))
	return b.String()
}

func (m Model) viewEndpoints() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Synthetic Packet Endpoints"))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("Source and destination addresses of the packet"))
	b.WriteString("\n\n")

	fields := []struct {
		label string
		value string
	}{
		{"Source     ", m.srcInput},
		{"Destination", m.dstInput},
	}
	for i, f := range fields {
		marker := "  "
		if m.activeField == i {
			marker = "> "
		}
		b.WriteString(inputFieldStyle.Render(marker + f.label + " "))
		b.WriteString(inputTextStyle.Render(f.value))
		if m.activeField == i {
			b.WriteString(inputTextStyle.Render("_"))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab: switch field - enter: scan - esc: back"))
	return b.String()
}

func (m Model) viewProcessing() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Compiling and Scanning"))
	b.WriteString("\n\n")
	b.WriteString(m.progress.ViewAs(0.5))
	b.WriteString("\n\n")
	b.WriteString(subtitleStyle.Render("Working" + strings.Repeat(".", m.processingDots)))
	return b.String()
}

func (m Model) viewResults() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Results"))
	b.WriteString("\n\n")

	visible := m.resultLines
	maxLines := m.height - 10
	if maxLines > 0 && m.scrollOff < len(visible) {
		visible = visible[m.scrollOff:]
		if len(visible) > maxLines {
			visible = visible[:maxLines]
		}
	}
	for _, line := range visible {
		switch {
		case strings.Contains(line, "[sid "):
			b.WriteString(successStyle.Render(line))
		case strings.HasPrefix(line, "No alerts"):
			b.WriteString(warningStyle.Render(line))
		default:
			b.WriteString(resultLineStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("up/down: scroll - enter: menu - q: quit to menu"))
	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorTitleStyle.Render("Error"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(subtitleStyle.Render(m.err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter: back to menu"))
	return b.String()
}
