package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/shiplift/pkg/domain"
)

var (
	configureOrg         string
	configurePAT         string
	configureGitHubToken string
	configureGitHubOrg   string
	configureProject     string
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Store the Azure DevOps connection and optional GitHub destination",
	Long: `Store the Azure DevOps connection and optional GitHub destination.

Values not passed as flags are prompted for. A bare organization name is
expanded to https://dev.azure.com/<name>. Tokens can also come from the
SHIPLIFT_ADO_PAT and SHIPLIFT_GITHUB_TOKEN environment variables.

Examples:
  shiplift configure --org contoso --pat $ADO_PAT
  shiplift configure --org https://dev.azure.com/contoso --pat $ADO_PAT \
    --github-token $GH_PAT --github-org contoso-gh`,
	RunE: runConfigureCmd,
}

func runConfigureCmd(cmd *cobra.Command, args []string) error {
	services, err := loadServices()
	if err != nil {
		return err
	}
	defer services.Close()

	cfg := domain.Config{}
	if existing, err := services.Config.Current(); err == nil {
		cfg = *existing
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	if configureOrg != "" {
		cfg.OrganizationURL = normalizeOrgURL(configureOrg)
	}
	if cfg.OrganizationURL == "" {
		cfg.OrganizationURL = normalizeOrgURL(promptLine(cmd, reader, "Azure DevOps organization (name or URL)", ""))
	}

	if configurePAT != "" {
		cfg.PAT = configurePAT
	} else if pat := os.Getenv("SHIPLIFT_ADO_PAT"); pat != "" && cfg.PAT == "" {
		cfg.PAT = pat
	}
	if cfg.PAT == "" {
		cfg.PAT = promptLine(cmd, reader, "Azure DevOps personal access token", "")
	}

	if configureGitHubToken != "" {
		cfg.GitHubToken = configureGitHubToken
	} else if token := os.Getenv("SHIPLIFT_GITHUB_TOKEN"); token != "" && cfg.GitHubToken == "" {
		cfg.GitHubToken = token
	}
	if configureGitHubOrg != "" {
		cfg.GitHubOrg = configureGitHubOrg
	}
	if configureProject != "" {
		cfg.DefaultProject = configureProject
	}

	saved, err := services.Config.Configure(cfg)
	if err != nil {
		return friendlyError(err)
	}

	redacted := saved.Redacted()
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", services.Workspace.Repo.Dir())
	fmt.Fprintf(cmd.OutOrStdout(), "  Organization: %s\n", redacted.OrganizationURL)
	fmt.Fprintf(cmd.OutOrStdout(), "  PAT:          %s\n", redacted.PAT)
	if saved.HasGitHub() {
		fmt.Fprintf(cmd.OutOrStdout(), "  GitHub token: %s\n", redacted.GitHubToken)
	}
	if saved.GitHubOrg != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  GitHub org:   %s\n", saved.GitHubOrg)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "\nRun 'shiplift doctor' to verify connectivity.")
	return nil
}

// normalizeOrgURL expands a bare organization name into the dev.azure.com URL
// and leaves full URLs alone.
func normalizeOrgURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, "://") {
		return s
	}
	if !strings.Contains(s, "/") && !strings.Contains(s, ".") {
		return "https://dev.azure.com/" + s
	}
	return "https://" + s
}

func promptLine(cmd *cobra.Command, reader *bufio.Reader, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s [%s]: ", label, defaultVal)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

func init() {
	configureCmd.Flags().StringVar(&configureOrg, "org", "", "Azure DevOps organization name or URL")
	configureCmd.Flags().StringVar(&configurePAT, "pat", "", "Azure DevOps personal access token")
	configureCmd.Flags().StringVar(&configureGitHubToken, "github-token", "", "GitHub token for migrations")
	configureCmd.Flags().StringVar(&configureGitHubOrg, "github-org", "", "Default GitHub target organization")
	configureCmd.Flags().StringVar(&configureProject, "project", "", "Default project for scans")
	RootCmd.AddCommand(configureCmd)
}
