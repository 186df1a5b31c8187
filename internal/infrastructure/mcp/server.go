// Package mcp exposes shiplift's scan and migration operations as MCP tools
// so agent clients can drive an assessment end to end.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/shiplift/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/shiplift/pkg/application"
	"github.com/felixgeelhaar/shiplift/pkg/domain"
	"github.com/felixgeelhaar/shiplift/pkg/domain/migration"
	"github.com/felixgeelhaar/shiplift/pkg/domain/scan"
)

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

// Server wires the application services into an MCP tool surface.
type Server struct {
	mcpServer *mcp.Server
	services  *wiring.AppServices
}

// mcpErr returns a user-friendly error for MCP clients. Internal details are
// omitted; only the friendly message is returned.
func mcpErr(friendly string) error {
	return fmt.Errorf("%s", friendly)
}

// NewServer builds the tool surface over the default workspace.
func NewServer() (*Server, error) {
	services, err := wiring.BuildAppServices(wiring.Options{Actor: "mcp"})
	if err != nil {
		return nil, fmt.Errorf("build services: %w", err)
	}
	return newServer(services), nil
}

func newServer(services *wiring.AppServices) *Server {
	info := mcp.ServerInfo{
		Name:    "shiplift",
		Version: Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("Shiplift MCP Server"),
			mcp.WithDescription("Shiplift assesses Azure DevOps organizations for GitHub migration and executes repository transfers."),
			mcp.WithWebsiteURL("https://github.com/felixgeelhaar/shiplift"),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Use tools to inspect the current scan report, start scans, and run repository migration batches."),
		),
		services: services,
	}

	s.registerTools()
	s.registerSchemaResource()
	return s
}

// Close releases the underlying service graph.
func (s *Server) Close() {
	s.services.Close()
}

type StartScanArgs struct {
	Project string `json:"project,omitempty" jsonschema:"description=Scan only this project instead of the whole organization"`
}

type StartMigrationArgs struct {
	Repos      []string `json:"repos" jsonschema:"description=Repository names from the current report to migrate"`
	TargetOrg  string   `json:"target_org,omitempty" jsonschema:"description=Destination GitHub organization (defaults to the configured one)"`
	Visibility string   `json:"visibility,omitempty" jsonschema:"description=Visibility of created repositories: private, internal, or public"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("shiplift_status").
		Description("Summarize the workspace: configuration presence, current report, scan and migration state").
		Handler(s.handleStatus)

	s.mcpServer.Tool("shiplift_get_report").
		Description("Retrieve the current scan report with complexity scores and blockers").
		Handler(s.handleGetReport)

	s.mcpServer.Tool("shiplift_list_repos").
		Description("List every repository in the current scan report").
		Handler(s.handleListRepos)

	s.mcpServer.Tool("shiplift_start_scan").
		Description("Start an organization scan. Rejected while another scan is running.").
		Handler(s.handleStartScan)

	s.mcpServer.Tool("shiplift_scan_status").
		Description("Get the live progress of the current scan").
		Handler(s.handleScanStatus)

	s.mcpServer.Tool("shiplift_start_migration").
		Description("Start a migration batch for the named repositories. Rejected while another batch is running.").
		Handler(s.handleStartMigration)

	s.mcpServer.Tool("shiplift_migration_status").
		Description("Get the per-repository status of the current migration batch").
		Handler(s.handleMigrationStatus)
}

func (s *Server) handleStatus(ctx context.Context, args struct{}) (any, error) {
	status := map[string]any{
		"workspace":  s.services.Workspace.Repo.Dir(),
		"configured": false,
		"has_report": s.services.Workspace.Repo.HasReport(),
		"scan":       s.services.Scan.Status(),
	}

	if cfg, err := s.services.Config.Current(); err == nil {
		status["configured"] = true
		status["organization_url"] = cfg.OrganizationURL
		status["github_org"] = cfg.GitHubOrg
		status["has_github_token"] = cfg.HasGitHub()
	}

	if snap := s.services.Migration.Status(); snap != nil {
		status["migration"] = snap
	}

	return status, nil
}

func (s *Server) handleGetReport(ctx context.Context, args struct{}) (any, error) {
	report, err := s.services.Scan.Results()
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			return nil, mcpErr("No scan report available. Run shiplift_start_scan first.")
		}
		return nil, mcpErr("Failed to load the scan report.")
	}
	return report, nil
}

func (s *Server) handleListRepos(ctx context.Context, args struct{}) (any, error) {
	report, err := s.services.Scan.Results()
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			return nil, mcpErr("No scan report available. Run shiplift_start_scan first.")
		}
		return nil, mcpErr("Failed to load the scan report.")
	}
	return report.Repositories(), nil
}

func (s *Server) handleStartScan(ctx context.Context, args StartScanArgs) (any, error) {
	if err := s.services.Scan.StartScan(ctx, args.Project); err != nil {
		switch {
		case errors.Is(err, application.ErrScanInProgress):
			return nil, mcpErr("A scan is already in progress. Check shiplift_scan_status and retry when it finishes.")
		case errors.Is(err, application.ErrNotConfigured):
			return nil, mcpErr("No organization configured. Run 'shiplift configure' first.")
		default:
			var unknown *application.UnknownProjectError
			if errors.As(err, &unknown) {
				return nil, mcpErr(fmt.Sprintf("Project %q not found in the organization.", unknown.Name))
			}
			return nil, mcpErr("Failed to start the scan: " + err.Error())
		}
	}
	return "Scan started. Poll shiplift_scan_status for progress.", nil
}

func (s *Server) handleScanStatus(ctx context.Context, args struct{}) (any, error) {
	snap := s.services.Scan.Status()
	if snap.Status == scan.StateNotStarted {
		return "No scan has been started in this session.", nil
	}
	return snap, nil
}

func (s *Server) handleStartMigration(ctx context.Context, args StartMigrationArgs) (any, error) {
	snap, err := s.services.Migration.StartMigration(ctx, application.MigrationRequest{
		Repositories: args.Repos,
		TargetOrg:    args.TargetOrg,
		Visibility:   args.Visibility,
	})
	if err != nil {
		switch {
		case errors.Is(err, application.ErrMigrationInProgress):
			return nil, mcpErr("A migration is already in progress. Check shiplift_migration_status and retry when it finishes.")
		case errors.Is(err, application.ErrNoReport):
			return nil, mcpErr("No scan report available. Run shiplift_start_scan first.")
		case errors.Is(err, application.ErrGitHubNotConfigured):
			return nil, mcpErr("GitHub credentials are not configured. Run 'shiplift configure' with a GitHub token.")
		case errors.Is(err, migration.ErrNoRepositories):
			return nil, mcpErr("No repositories selected. Pass at least one repository name in repos.")
		case errors.Is(err, migration.ErrNoTargetOrg):
			return nil, mcpErr("No target organization. Pass target_org or configure a default GitHub org.")
		default:
			var unknown *migration.UnknownRepoError
			if errors.As(err, &unknown) {
				return nil, mcpErr(fmt.Sprintf("Repository %q not found in the current report. Use shiplift_list_repos.", unknown.Name))
			}
			return nil, mcpErr("Failed to start the migration: " + err.Error())
		}
	}
	return snap, nil
}

func (s *Server) handleMigrationStatus(ctx context.Context, args struct{}) (any, error) {
	snap := s.services.Migration.Status()
	if snap == nil {
		return "No migration batch has been started in this session.", nil
	}
	return snap, nil
}

// ServeStdio serves MCP over stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP serves MCP over HTTP.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr, mcp.WithDefaultCORS())
}

// ServeWebSocket serves MCP over WebSocket.
func (s *Server) ServeWebSocket(ctx context.Context, addr string) error {
	return mcp.ServeWebSocket(ctx, s.mcpServer, addr)
}
