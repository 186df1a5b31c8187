package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/shiplift/pkg/application"
	"github.com/felixgeelhaar/shiplift/pkg/domain/migration"
	"github.com/felixgeelhaar/shiplift/pkg/domain/progress"
)

var (
	migrateRepos      []string
	migrateTargetOrg  string
	migrateVisibility string
	migrateWorkers    int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the selected repositories to GitHub",
	Long: `Migrate the selected repositories to GitHub.

Each repository transfers through its own 'gh ado2gh migrate-repo' run; a
fixed worker pool bounds how many run at once. One repository failing never
stops the others. Failed repositories are not retried; re-run them in a new
batch once the cause is fixed.

Examples:
  shiplift migrate --repo payments-api --target-org contoso-gh
  shiplift migrate --repo api --repo web --visibility internal --workers 2`,
	RunE: runMigrateCmd,
}

func runMigrateCmd(cmd *cobra.Command, args []string) error {
	services, err := loadServicesWithWorkers(migrateWorkers)
	if err != nil {
		return err
	}
	defer services.Close()

	events, cancel := services.Publisher.Subscribe()
	defer cancel()

	snap, err := services.Migration.StartMigration(cmd.Context(), application.MigrationRequest{
		Repositories: migrateRepos,
		TargetOrg:    migrateTargetOrg,
		Visibility:   migrateVisibility,
	})
	if err != nil {
		return friendlyError(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Migration batch %s started: %d repositories -> %s\n\n",
		snap.BatchID, len(snap.Repos), snap.TargetOrg)

	final := followMigration(cmd, events, services.Migration.Status)
	if final == nil {
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout())
	renderBatch(cmd, final)

	if final.Status == migration.BatchFailed {
		return fmt.Errorf("migration batch finished with failures")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "\nAll repositories migrated.")
	return nil
}

// followMigration prints per-repository transitions until the batch reaches a
// terminal state, then returns the final snapshot.
func followMigration(cmd *cobra.Command, events <-chan progress.Event, status func() *migration.Snapshot) *migration.Snapshot {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	last := map[string]migration.JobSnapshot{}
	report := func(snap migration.Snapshot) {
		for _, name := range sortedRepos(snap.Repos) {
			job := snap.Repos[name]
			if prev, ok := last[name]; ok && prev == job {
				continue
			}
			last[name] = job
			fmt.Fprintf(cmd.OutOrStdout(), "  %-40s %-12s %3d%%  %s\n", name, job.Status, job.Progress, job.Message)
			if job.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-40s %s\n", "", job.Error)
			}
		}
	}

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return status()
			}
			if event.Kind != progress.KindMigration {
				continue
			}
			snap, ok := event.Payload.(migration.Snapshot)
			if !ok {
				continue
			}
			report(snap)
			if snap.Status == migration.BatchCompleted || snap.Status == migration.BatchFailed {
				return &snap
			}
		case <-ticker.C:
			if snap := status(); snap != nil &&
				(snap.Status == migration.BatchCompleted || snap.Status == migration.BatchFailed) {
				report(*snap)
				return snap
			}
		case <-cmd.Context().Done():
			return status()
		}
	}
}

func renderBatch(cmd *cobra.Command, snap *migration.Snapshot) {
	fmt.Fprintf(cmd.OutOrStdout(), "Batch %s: %s\n", snap.BatchID, snap.Status)
	for _, name := range sortedRepos(snap.Repos) {
		job := snap.Repos[name]
		fmt.Fprintf(cmd.OutOrStdout(), "  %-40s %s\n", name, job.Status)
		if job.Error != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-40s %s\n", "", job.Error)
		}
	}
}

func sortedRepos(repos map[string]migration.JobSnapshot) []string {
	names := make([]string, 0, len(repos))
	for name := range repos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	migrateCmd.Flags().StringArrayVar(&migrateRepos, "repo", nil, "Repository to migrate (repeatable)")
	migrateCmd.Flags().StringVar(&migrateTargetOrg, "target-org", "", "Destination GitHub organization")
	migrateCmd.Flags().StringVar(&migrateVisibility, "visibility", "private", "Visibility of created repositories (private, internal, public)")
	migrateCmd.Flags().IntVar(&migrateWorkers, "workers", 0, "Concurrent repository transfers (default 3)")
	RootCmd.AddCommand(migrateCmd)
}
