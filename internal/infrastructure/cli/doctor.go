package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/shiplift/pkg/application"
	"github.com/felixgeelhaar/shiplift/pkg/infrastructure/github"
)

// doctorProjectLimit caps how many projects the connectivity check prints.
const doctorProjectLimit = 5

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the configuration and connectivity on both sides of the migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return err
		}
		defer services.Close()

		fmt.Fprintln(cmd.OutOrStdout(), "Running shiplift doctor...")

		hasIssues := false
		check := func(name string, fn func() error) {
			fmt.Fprintf(cmd.OutOrStdout(), "Checking %s... ", name)
			if err := fn(); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL\n  Error: %v\n", err)
				hasIssues = true
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "PASS\n")
			}
		}

		var status *application.ConnectionStatus

		check("Workspace", func() error {
			if !services.Workspace.Repo.IsInitialized() {
				return fmt.Errorf("workspace %s not found (run 'shiplift configure')", services.Workspace.Repo.Dir())
			}
			return nil
		})

		check("Configuration", func() error {
			_, err := services.Config.Current()
			return err
		})

		check("Azure DevOps connectivity", func() error {
			var err error
			status, err = services.Config.TestConnection(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "(%d projects) ", status.ProjectCount)
			return nil
		})

		check("GitHub destination", func() error {
			cfg, err := services.Config.Current()
			if err != nil {
				return err
			}
			if !cfg.HasGitHub() {
				return fmt.Errorf("no github token configured (migrations need one; scans do not)")
			}
			result, err := github.NewPreflight(cfg.GitHubToken).Check(cmd.Context(), cfg.GitHubOrg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "(login: %s) ", result.Login)
			return nil
		})

		check("Journal integrity", func() error {
			violations, err := services.Workspace.Journal.Verify()
			if err != nil {
				return err
			}
			if len(violations) > 0 {
				return fmt.Errorf("%d integrity violations found", len(violations))
			}
			return nil
		})

		if status != nil && len(status.Projects) > 0 {
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Project", "Description"})
			for i, p := range status.Projects {
				if i == doctorProjectLimit {
					tw.AppendFooter(table.Row{fmt.Sprintf("... and %d more", len(status.Projects)-doctorProjectLimit), ""})
					break
				}
				tw.AppendRow(table.Row{p.Name, p.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout())
			tw.Render()
		}

		if hasIssues {
			fmt.Fprintln(cmd.OutOrStdout(), "\nissues found! Fix them before scanning or migrating.")
			return fmt.Errorf("doctor found issues")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "\nEverything looks good!")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}
