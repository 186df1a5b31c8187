package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/shiplift/pkg/domain/assessment"
	"github.com/felixgeelhaar/shiplift/pkg/storage"
)

var (
	reportFormat string
	reportOutput string
	reportFrom   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the current scan report",
	Long: `Render the current scan report.

By default the report of the last successful scan is shown. --from renders
an exported report file instead; the file is validated against the report
schema before use.

Examples:
  shiplift report
  shiplift report --format json --output report.json
  shiplift report --from exported.json`,
	RunE: runReportCmd,
}

func runReportCmd(cmd *cobra.Command, args []string) error {
	var report *assessment.Report

	if reportFrom != "" {
		data, err := os.ReadFile(reportFrom)
		if err != nil {
			return fmt.Errorf("read %s: %w", reportFrom, err)
		}
		report, err = storage.DecodeReport(data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", reportFrom, err)
		}
	} else {
		services, err := loadServices()
		if err != nil {
			return err
		}
		defer services.Close()

		report, err = services.Scan.Results()
		if err != nil {
			return friendlyError(err)
		}
	}

	switch reportFormat {
	case "table", "":
		renderReport(cmd.OutOrStdout(), report)
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	default:
		return fmt.Errorf("unsupported format %q (want table or json)", reportFormat)
	}

	if reportOutput != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		if err := os.WriteFile(reportOutput, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", reportOutput, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", reportOutput)
	}

	return nil
}

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "table", "Output format (table, json)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Also write the report as JSON to this file")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "Render an exported report file instead of the stored one")
	RootCmd.AddCommand(reportCmd)
}
