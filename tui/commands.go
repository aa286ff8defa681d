package tui

import (
	"fmt"
	"net"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"nids-engine/models"
	"nids-engine/processor"
	"nids-engine/utils"
)

// scanDoneMsg carries the rendered result lines of a finished scan.
type scanDoneMsg struct {
	lines []string
}

// scanErrMsg carries a failure from the worker command.
type scanErrMsg struct {
	err error
}

// runScanCmd compiles (or reuses) the engine for the rule file and scans the
// payload file as a synthetic packet, off the UI goroutine.
func (m Model) runScanCmd() tea.Cmd {
	rules, payload := m.rulesInput, m.payloadInput
	src, dst := m.srcInput, m.dstInput
	engines, cfg := m.engines, m.cfg

	return func() tea.Msg {
		if err := utils.ValidateFile(rules); err != nil {
			return scanErrMsg{err}
		}
		engine, err := engines.Get(rules, cfg)
		if err != nil {
			return scanErrMsg{err}
		}

		data, err := os.ReadFile(payload)
		if err != nil {
			return scanErrMsg{fmt.Errorf("cannot read payload file: %w", err)}
		}

		srcFam, srcWords, err := parseEndpoint(src)
		if err != nil {
			return scanErrMsg{err}
		}
		dstFam, dstWords, err := parseEndpoint(dst)
		if err != nil {
			return scanErrMsg{err}
		}

		alerts, err := engine.Match(&models.Packet{
			SrcFamily: srcFam, Src: srcWords,
			DstFamily: dstFam, Dst: dstWords,
			Payload: data,
		})
		if err != nil {
			return scanErrMsg{err}
		}

		lines := []string{
			fmt.Sprintf("Rules loaded:    %d (%d rejected)", len(engine.Rules), engine.Failed),
			fmt.Sprintf("Unique patterns: %d", engine.Matcher().PatternCount()),
			fmt.Sprintf("Address nodes:   %d", engine.Source().NodeCount()),
			fmt.Sprintf("Payload:         %s (%s)", payload, utils.FormatBytes(int64(len(data)))),
			fmt.Sprintf("Packet:          %s -> %s", src, dst),
			"",
		}
		if len(alerts) == 0 {
			lines = append(lines, "No alerts.")
		} else {
			lines = append(lines, fmt.Sprintf("%d alert(s):", len(alerts)))
			for _, a := range alerts {
				lines = append(lines, fmt.Sprintf("  [sid %d] %s at offset %d", a.SID, a.Msg, a.Position))
			}
		}
		return scanDoneMsg{lines: lines}
	}
}

// runExprCmd compiles a bare address expression and optionally looks up one
// address in the compiled set.
func (m Model) runExprCmd() tea.Cmd {
	expr, query := m.exprInput, m.queryInput

	return func() tea.Msg {
		set := processor.NewAddressSet()
		if err := set.Parse(expr, 0); err != nil {
			return scanErrMsg{err}
		}

		var lines []string
		lines = append(lines, fmt.Sprintf("Expression: %s", expr), "")
		for _, n := range set.V4 {
			lines = append(lines, fmt.Sprintf("  v4  %s", n.Range))
		}
		for _, n := range set.V6 {
			lines = append(lines, fmt.Sprintf("  v6  %s", n.Range))
		}

		if query != "" {
			fam, words, err := parseEndpoint(query)
			if err != nil {
				return scanErrMsg{err}
			}
			lines = append(lines, "")
			if node := set.Lookup(fam, words); node != nil {
				lines = append(lines, fmt.Sprintf("%s is covered by %s", query, node.Range))
			} else {
				lines = append(lines, fmt.Sprintf("%s is not covered", query))
			}
		}
		return scanDoneMsg{lines: lines}
	}
}

func parseEndpoint(s string) (models.Family, models.Words, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return models.FamilyUnspec, models.Words{}, fmt.Errorf("not an IP address: %q", s)
	}
	words, family := models.WordsFromIP(ip)
	return family, words, nil
}
