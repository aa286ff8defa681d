package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/sirupsen/logrus"

	"nids-engine/models"
	"nids-engine/processor"
	"nids-engine/tui"
	"nids-engine/ui"
	"nids-engine/utils"
)

func main() {
	var (
		rulesFlag   = flag.String("r", "", "Path to the rule file")
		payloadFlag = flag.String("p", "", "Path to a payload file to scan")
		srcFlag     = flag.String("s", "1.2.3.4", "Source address of the synthetic packet")
		dstFlag     = flag.String("d", "5.6.7.8", "Destination address of the synthetic packet")
		exprFlag    = flag.String("e", "", "Compile a bare address expression and dump it")
		queryFlag   = flag.String("q", "", "Address to look up in the compiled expression (with -e)")
		output      = flag.String("o", "", "Output report file name")
		configFile  = flag.String("c", "", "Path to a YAML configuration file")
		interactive = flag.Bool("i", false, "Run the interactive TUI")
		verbose     = flag.Bool("v", false, "Verbose (debug) logging")
		help        = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - rule-driven packet inspection prototype\n\n", models.AppName)
		fmt.Fprintf(os.Stderr, "Loads an IDS rule set, compiles the rule addresses into disjoint range\n")
		fmt.Fprintf(os.Stderr, "lists and the rule contents into a multi-pattern matcher, then scans a\n")
		fmt.Fprintf(os.Stderr, "payload as a synthetic packet and reports the alerts.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	cfg := models.DefaultConfig()
	if *configFile != "" {
		var err error
		cfg, err = models.LoadConfig(*configFile)
		if err != nil {
			fmt.Printf(ui.ColorError("Error loading config: %v\n"), err)
			os.Exit(1)
		}
	}
	setupLogging(cfg, *verbose)

	switch {
	case *exprFlag != "":
		runExprMode(*exprFlag, *queryFlag)
	case *interactive:
		if err := tui.Run(cfg); err != nil {
			fmt.Printf(ui.ColorError("Error running TUI: %v\n"), err)
			os.Exit(1)
		}
	case *rulesFlag != "" && *payloadFlag != "":
		reportFile := *output
		if reportFile == "" {
			reportFile = cfg.Report
		}
		runScanMode(cfg, *rulesFlag, *payloadFlag, *srcFlag, *dstFlag, reportFile)
	case *rulesFlag != "":
		runCompileMode(cfg, *rulesFlag)
	default:
		ui.RunInteractiveMode(cfg, func(engine *processor.Engine, payloadPath, src, dst string) error {
			return scanPayload(engine, payloadPath, src, dst, "")
		})
	}
}

func setupLogging(cfg models.Config, verbose bool) {
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
}

// runExprMode compiles one address expression and optionally looks up an
// address in it. This exercises the address compiler stand-alone.
func runExprMode(expr, query string) {
	set := processor.NewAddressSet()
	if err := set.Parse(expr, 0); err != nil {
		fmt.Printf(ui.ColorError("Error parsing expression: %v\n"), err)
		os.Exit(1)
	}

	ui.PrintSectionHeader("Compiled Address Set")
	ui.PrintAddressSet(set)
	ui.PrintSectionFooter()

	if query == "" {
		return
	}
	family, words, err := parseAddr(query)
	if err != nil {
		fmt.Printf(ui.ColorError("Error parsing address %q: %v\n"), query, err)
		os.Exit(1)
	}
	if node := set.Lookup(family, words); node != nil {
		fmt.Printf(ui.ColorSuccess("%s is covered by %s\n"), query, node.Range)
	} else {
		fmt.Printf(ui.ColorWarning("%s is not covered\n"), query)
	}
}

// runCompileMode loads and compiles a rule set, printing the statistics.
func runCompileMode(cfg models.Config, rulesFile string) {
	engine, err := buildEngine(cfg, rulesFile)
	if err != nil {
		fmt.Printf(ui.ColorError("Error: %v\n"), err)
		os.Exit(1)
	}
	ui.PrintSectionHeader("Rule Set Compiled")
	ui.PrintEngineSummary(engine)
	ui.PrintSectionFooter()
}

// runScanMode is the main command-line path: compile the rules, scan one
// payload file as a synthetic packet, print and optionally write the report.
func runScanMode(cfg models.Config, rulesFile, payloadFile, src, dst, output string) {
	engine, err := buildEngine(cfg, rulesFile)
	if err != nil {
		fmt.Printf(ui.ColorError("Error: %v\n"), err)
		os.Exit(1)
	}

	ui.PrintSectionHeader("Rule Set Compiled")
	ui.PrintEngineSummary(engine)
	ui.PrintSectionFooter()

	ui.PrintSectionHeader("Scan Results")
	if err := scanPayload(engine, payloadFile, src, dst, output); err != nil {
		fmt.Printf(ui.ColorError("Error: %v\n"), err)
		os.Exit(1)
	}
	ui.PrintSectionFooter()
}

func buildEngine(cfg models.Config, rulesFile string) (*processor.Engine, error) {
	if err := utils.ValidateFile(rulesFile); err != nil {
		return nil, err
	}
	engine := processor.NewEngine(cfg)
	if err := engine.LoadRules(rulesFile); err != nil {
		return nil, err
	}
	if err := engine.Compile(); err != nil {
		return nil, err
	}
	return engine, nil
}

func scanPayload(engine *processor.Engine, payloadFile, src, dst, output string) error {
	payload, err := os.ReadFile(payloadFile)
	if err != nil {
		return fmt.Errorf("cannot read payload file: %w", err)
	}

	srcFam, srcWords, err := parseAddr(src)
	if err != nil {
		return fmt.Errorf("bad source address %q: %w", src, err)
	}
	dstFam, dstWords, err := parseAddr(dst)
	if err != nil {
		return fmt.Errorf("bad destination address %q: %w", dst, err)
	}

	pkt := &models.Packet{
		SrcFamily: srcFam, Src: srcWords,
		DstFamily: dstFam, Dst: dstWords,
		Payload: payload,
	}
	alerts, err := engine.Match(pkt)
	if err != nil {
		return err
	}

	fmt.Printf(ui.ColorInfo("  Scanned %s of payload against %s rules\n"),
		ui.ColorHighlight(utils.FormatBytes(int64(len(payload)))),
		ui.ColorHighlight(utils.FormatNumber(len(engine.Rules))))
	ui.PrintAlerts(alerts)

	if output == "" {
		return nil
	}
	report := engine.Report()
	report.PayloadFile = payloadFile
	report.PayloadSize = len(payload)
	report.Alerts = alerts
	if err := utils.WriteReport(output, &report); err != nil {
		return err
	}
	fmt.Printf(ui.ColorSuccess("  Report written to %s\n"), ui.ColorHighlight(output))
	return nil
}

func parseAddr(s string) (models.Family, models.Words, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return models.FamilyUnspec, models.Words{}, fmt.Errorf("not an IP address")
	}
	words, family := models.WordsFromIP(ip)
	return family, words, nil
}
