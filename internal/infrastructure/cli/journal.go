package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect and verify the operations journal",
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journaled operations in chronological order",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return err
		}
		defer services.Close()

		events, err := services.Workspace.Journal.Timeline()
		if err != nil {
			return friendlyError(err)
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Journal is empty.")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.AppendHeader(table.Row{"Time", "Action", "Actor"})
		for _, e := range events {
			tw.AppendRow(table.Row{e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.Actor})
		}
		tw.Render()
		return nil
	},
}

var journalVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the journal's hash chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return err
		}
		defer services.Close()

		fmt.Fprintln(cmd.OutOrStdout(), "Verifying journal integrity...")
		violations, err := services.Workspace.Journal.Verify()
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}

		if len(violations) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Journal is intact and verified.")
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Found %d integrity violations:\n", len(violations))
		for _, v := range violations {
			fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", v)
		}
		return fmt.Errorf("journal integrity check failed")
	},
}

func init() {
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalVerifyCmd)
	RootCmd.AddCommand(journalCmd)
}
