package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/shiplift/pkg/domain"
	"github.com/felixgeelhaar/shiplift/pkg/domain/scan"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the workspace, scan, and migration state at a glance",
	RunE:  runStatusCmd,
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	services, err := loadServices()
	if err != nil {
		return err
	}
	defer services.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Workspace: %s\n\n", services.Workspace.Repo.Dir())

	cfg, err := services.Config.Current()
	switch {
	case err == nil:
		redacted := cfg.Redacted()
		fmt.Fprintf(out, "Organization: %s\n", redacted.OrganizationURL)
		if cfg.DefaultProject != "" {
			fmt.Fprintf(out, "Default project: %s\n", cfg.DefaultProject)
		}
		if cfg.HasGitHub() {
			fmt.Fprintf(out, "GitHub destination: %s (token %s)\n", orDash(cfg.GitHubOrg), redacted.GitHubToken)
		} else {
			fmt.Fprintln(out, "GitHub destination: not configured")
		}
	case errors.Is(err, domain.ErrConfigNotFound):
		fmt.Fprintln(out, "Organization: not configured (run 'shiplift configure')")
	default:
		return friendlyError(err)
	}

	fmt.Fprintln(out)

	if snap := services.Scan.Status(); snap.Status != scan.StateNotStarted {
		fmt.Fprintf(out, "Scan: %s", snap.Status)
		if snap.Status == scan.StateRunning {
			fmt.Fprintf(out, " (%d/%d projects, %s)", snap.ProjectsScanned, snap.TotalProjects, snap.CurrentProject)
		}
		if snap.Error != "" {
			fmt.Fprintf(out, " - %s", snap.Error)
		}
		fmt.Fprintln(out)
	}

	report, err := services.Scan.Results()
	switch {
	case err == nil:
		s := report.Summary
		fmt.Fprintf(out, "Report: %s (%d projects, %d repositories)\n",
			report.GeneratedAt.Format("2006-01-02 15:04 MST"), s.TotalProjects, s.TotalRepositories)
		fmt.Fprintf(out, "Overall complexity: %s (score %d, est. %s)\n",
			s.Complexity.Overall.Rating, s.Complexity.Overall.Score, s.Complexity.Overall.Effort)
		if len(s.Blockers) > 0 {
			fmt.Fprintf(out, "Blockers: %d (see 'shiplift report')\n", len(s.Blockers))
		}
	case errors.Is(err, domain.ErrReportNotFound):
		fmt.Fprintln(out, "Report: none (run 'shiplift scan')")
	default:
		return friendlyError(err)
	}

	if snap := services.Migration.Status(); snap != nil {
		fmt.Fprintf(out, "Migration batch %s: %s (%d repositories)\n", snap.BatchID, snap.Status, len(snap.Repos))
	}

	if events, err := services.Workspace.Journal.Timeline(); err == nil && len(events) > 0 {
		last := events[len(events)-1]
		fmt.Fprintf(out, "\nJournal: %d operations, last %q at %s\n",
			len(events), last.Action, last.Timestamp.Format("2006-01-02 15:04 MST"))
	}

	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	RootCmd.AddCommand(statusCmd)
}
