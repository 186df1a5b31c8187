package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/shiplift/internal/infrastructure/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the workspace and re-render the status summary on changes",
	Long: `Watch the workspace and re-render the status summary on changes.

Useful alongside a long scan or migration started elsewhere (the API, MCP,
or another terminal): whenever config.yaml, report.json, or the journal
change, the summary refreshes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return err
		}
		dir := services.Workspace.Repo.Dir()
		services.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes... (Ctrl-C to stop)\n\n", dir)
		if err := runStatusCmd(cmd, nil); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "status: %v\n", err)
		}

		watcher, err := watch.NewWorkspaceWatcher(dir, watchDebounce, func(e watch.ChangeEvent) {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s %s at %s\n\n",
				e.Artifact, e.ChangeType, time.Now().Format("15:04:05"))
			if err := runStatusCmd(cmd, nil); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "status: %v\n", err)
			}
		})
		if err != nil {
			return err
		}

		if os.Getenv("SHIPLIFT_WATCH_ONCE") == "true" {
			return nil
		}
		return watcher.Run(cmd.Context())
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Quiet window before re-rendering")
	RootCmd.AddCommand(watchCmd)
}
