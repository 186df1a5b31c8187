package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/shiplift/pkg/domain/progress"
	"github.com/felixgeelhaar/shiplift/pkg/domain/scan"
)

var (
	scanProject string
	scanOutput  string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Inventory the organization and score its migration complexity",
	Long: `Inventory the organization and score its migration complexity.

Walks every project (or just --project), counts repositories, pipelines,
and work items, and stores the scored report as the current one. A failed
scan leaves the previous report untouched.

Examples:
  shiplift scan
  shiplift scan --project Payments
  shiplift scan --output report.json`,
	RunE: runScanCmd,
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	services, err := loadServices()
	if err != nil {
		return err
	}
	defer services.Close()

	filter := scanProject
	if filter == "" {
		if cfg, err := services.Config.Current(); err == nil {
			filter = cfg.DefaultProject
		}
	}

	events, cancel := services.Publisher.Subscribe()
	defer cancel()

	if err := services.Scan.StartScan(cmd.Context(), filter); err != nil {
		return friendlyError(err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Scan started.")
	if err := followScan(cmd, events, services.Scan.Status); err != nil {
		return err
	}

	report, err := services.Scan.Results()
	if err != nil {
		return friendlyError(err)
	}

	fmt.Fprintln(cmd.OutOrStdout())
	renderReport(cmd.OutOrStdout(), report)

	if scanOutput != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		if err := os.WriteFile(scanOutput, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", scanOutput, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nReport written to %s\n", scanOutput)
	}

	return nil
}

// followScan prints progress lines until the scan reaches a terminal state.
// The publisher subscription carries the live updates; the status poll is a
// fallback in case an update was dropped.
func followScan(cmd *cobra.Command, events <-chan progress.Event, status func() scan.Snapshot) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	report := func(snap scan.Snapshot) bool {
		switch snap.Status {
		case scan.StateRunning:
			fmt.Fprintf(cmd.OutOrStdout(), "  [%3d%%] %d/%d projects  %s\n",
				snap.Percent, snap.ProjectsScanned, snap.TotalProjects, snap.CurrentProject)
		case scan.StateCompleted:
			fmt.Fprintf(cmd.OutOrStdout(), "  [100%%] %d/%d projects\n",
				snap.ProjectsScanned, snap.TotalProjects)
			return true
		case scan.StateFailed:
			return true
		}
		return false
	}

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Kind != progress.KindScan {
				continue
			}
			snap, ok := event.Payload.(scan.Snapshot)
			if !ok {
				continue
			}
			if report(snap) {
				return scanOutcome(snap)
			}
		case <-ticker.C:
			if snap := status(); snap.Status.IsTerminal() {
				return scanOutcome(snap)
			}
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		}
	}
}

func scanOutcome(snap scan.Snapshot) error {
	if snap.Status == scan.StateFailed {
		return fmt.Errorf("scan failed: %s", snap.Error)
	}
	return nil
}

func init() {
	scanCmd.Flags().StringVarP(&scanProject, "project", "p", "", "Scan a single project instead of the whole organization")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "Also write the report as JSON to this file")
	RootCmd.AddCommand(scanCmd)
}
