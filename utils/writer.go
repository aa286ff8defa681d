package utils

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"nids-engine/models"
)

// WriteReport writes a scan report to outputFile: a commented header with
// the headline numbers followed by the full report as YAML.
func WriteReport(outputFile string, report *models.ScanReport) error {
	file, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "# %s %s scan report\n", models.AppName, models.Version)
	fmt.Fprintf(file, "# rules file:   %s\n", report.RulesFile)
	fmt.Fprintf(file, "# payload file: %s (%s)\n", report.PayloadFile, FormatBytes(int64(report.PayloadSize)))
	fmt.Fprintf(file, "# alerts:       %d\n", len(report.Alerts))
	fmt.Fprintf(file, "---\n")

	enc := yaml.NewEncoder(file)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("error encoding report: %w", err)
	}
	return enc.Close()
}
