package ui

import (
	"fmt"
	"net"
	"os"
	"runtime"

	"nids-engine/models"
	"nids-engine/processor"
	"nids-engine/utils"
)

// PromptInput prompts the user for input with a default value
func PromptInput(prompt, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf(ColorSection("%s [default: %s]: "), prompt, ColorHighlight(defaultValue))
	} else {
		fmt.Printf(ColorSection("%s: "), prompt)
	}

	var input string
	fmt.Scanln(&input)

	if input == "" && defaultValue != "" {
		return defaultValue
	}
	return input
}

// ClearScreen clears the terminal.
func ClearScreen() {
	if runtime.GOOS == "windows" {
		fmt.Print("\033[H\033[2J")
	} else {
		fmt.Print("\033[2J\033[H")
	}
}

// RunInteractiveMode is the prompt-driven fallback when the TUI is not
// wanted: ask for a rule file and a payload file, compile, scan, report.
func RunInteractiveMode(cfg models.Config, scanPayload func(engine *processor.Engine, payloadPath, src, dst string) error) {
	ClearScreen()
	PrintBanner()

	PrintSectionHeader("Rule Set Selection")
	rulesFile := PromptInput("Enter path to your rule file", "local.rules")
	if err := utils.ValidateFile(rulesFile); err != nil {
		fmt.Printf(ColorError("  %v\n"), err)
		PrintSectionFooter()
		return
	}
	PrintSectionFooter()

	PrintSectionHeader("Compiling Rule Set")
	engine := processor.NewEngine(cfg)
	if err := engine.LoadRules(rulesFile); err != nil {
		fmt.Printf(ColorError("  %v\n"), err)
		PrintSectionFooter()
		return
	}
	if err := engine.Compile(); err != nil {
		fmt.Printf(ColorError("  %v\n"), err)
		PrintSectionFooter()
		return
	}
	PrintEngineSummary(engine)
	PrintSectionFooter()

	PrintSectionHeader("Payload Selection")
	payloadFile := PromptInput("Enter path to a payload file to scan", "")
	if err := utils.ValidateFile(payloadFile); err != nil {
		fmt.Printf(ColorError("  %v\n"), err)
		PrintSectionFooter()
		return
	}

	src := PromptInput("Source address", "1.2.3.4")
	dst := PromptInput("Destination address", "5.6.7.8")
	if net.ParseIP(src) == nil || net.ParseIP(dst) == nil {
		fmt.Println(ColorError("  Source and destination must be IP addresses"))
		PrintSectionFooter()
		return
	}
	PrintSectionFooter()

	PrintSectionHeader("Scan Results")
	if err := scanPayload(engine, payloadFile, src, dst); err != nil {
		fmt.Printf(ColorError("  %v\n"), err)
		os.Exit(1)
	}
	PrintSectionFooter()
}
