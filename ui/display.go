package ui

import (
	"fmt"
	"strings"

	"nids-engine/models"
	"nids-engine/processor"
	"nids-engine/utils"
)

// ANSI color codes for terminal output
const (
	ColorReset   = "\033[0m"
	ColorBold    = "\033[1m"
	ColorDim     = "\033[2m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
	ColorWhite   = "\033[37m"
)

// Color helper functions
func ColorTitle(text string) string     { return ColorCyan + ColorBold + text + ColorReset }
func ColorSuccess(text string) string   { return ColorGreen + ColorBold + text + ColorReset }
func ColorError(text string) string     { return ColorRed + ColorBold + text + ColorReset }
func ColorWarning(text string) string   { return ColorYellow + text + ColorReset }
func ColorInfo(text string) string      { return ColorWhite + text + ColorReset }
func ColorSection(text string) string   { return ColorBlue + ColorBold + text + ColorReset }
func ColorHighlight(text string) string { return ColorCyan + text + ColorReset }
func ColorDimText(text string) string   { return ColorDim + ColorWhite + text + ColorReset }

// PrintBanner prints the startup banner.
func PrintBanner() {
	fmt.Println(ColorTitle("  ================================================"))
	fmt.Printf(ColorTitle("   %s "), models.AppName)
	fmt.Println(ColorHighlight(models.Version))
	fmt.Println(ColorInfo("   Rule-driven packet inspection prototype"))
	fmt.Println(ColorTitle("  ================================================"))
}

// PrintSectionHeader prints a boxed section header line.
func PrintSectionHeader(title string) {
	headerContent := fmt.Sprintf("- %s ", title)
	remainingWidth := 60 - len(headerContent)
	if remainingWidth < 0 {
		remainingWidth = 0
	}
	fmt.Printf(ColorSection(".%s%s.\n"), headerContent, strings.Repeat("-", remainingWidth))
}

// PrintSectionFooter closes a section box.
func PrintSectionFooter() {
	fmt.Printf(ColorSection("'%s'\n"), strings.Repeat("-", 60))
}

// PrintEngineSummary prints compile statistics of a loaded engine.
func PrintEngineSummary(engine *processor.Engine) {
	fmt.Printf(ColorInfo("  Rules loaded:    %s\n"), ColorHighlight(utils.FormatNumber(len(engine.Rules))))
	if engine.Failed > 0 {
		fmt.Printf(ColorWarning("  Rules rejected:  %s\n"), utils.FormatNumber(engine.Failed))
	}
	if m := engine.Matcher(); m != nil {
		fmt.Printf(ColorInfo("  Unique patterns: %s\n"), ColorHighlight(utils.FormatNumber(m.PatternCount())))
	}
	fmt.Printf(ColorInfo("  Address nodes:   %s\n"), ColorHighlight(utils.FormatNumber(engine.Source().NodeCount())))
}

// PrintAddressSet dumps the compiled lists of an address set.
func PrintAddressSet(set *processor.AddressSet) {
	for _, n := range set.V4 {
		fmt.Printf(ColorInfo("  v4  %-44s rules: %d\n"), n.Range, n.Sigs.Len())
	}
	for _, n := range set.V6 {
		fmt.Printf(ColorInfo("  v6  %-44s rules: %d\n"), n.Range, n.Sigs.Len())
	}
	if len(set.V4)+len(set.V6) == 0 {
		fmt.Println(ColorDimText("  (empty)"))
	}
}

// PrintAlerts prints the alerts of one scanned payload.
func PrintAlerts(alerts []models.Alert) {
	if len(alerts) == 0 {
		fmt.Println(ColorDimText("  No alerts"))
		return
	}
	for i, a := range alerts {
		msg := a.Msg
		if msg == "" {
			msg = "(no msg)"
		}
		fmt.Printf(ColorSuccess("  %2d. [sid %d] %s"), i+1, a.SID, ColorInfo(msg))
		fmt.Printf(ColorDimText("  at offset %d\n"), a.Position)
	}
}
