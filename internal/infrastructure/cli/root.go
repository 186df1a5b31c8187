package cli

import (
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var verbose bool

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "shiplift",
	Version: Version,
	Short:   "Assess and execute Azure DevOps to GitHub migrations",
	Long: `Shiplift sizes up an Azure DevOps organization before you move it.
It helps migration teams answer:
1. What is in the organization?
2. How hard will the move be?
3. How is the move going?`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
