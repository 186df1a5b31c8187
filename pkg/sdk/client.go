package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/mcp-go/client"
)

// Client is a typed Go client for the shiplift MCP server.
type Client struct {
	mcp          *client.Client
	retryCfg     retry.Config
	timeout      time.Duration
	pollInterval time.Duration
}

// NewClient creates a new SDK client wrapping the given MCP transport.
func NewClient(transport client.Transport, opts ...Option) *Client {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Client{
		mcp:          client.New(transport, client.WithTimeout(o.timeout)),
		timeout:      o.timeout,
		pollInterval: o.pollInterval,
		retryCfg: retry.Config{
			MaxAttempts:   o.maxAttempts,
			InitialDelay:  o.initialDelay,
			BackoffPolicy: retry.BackoffExponential,
		},
	}
}

// Initialize performs the MCP initialize handshake.
func (c *Client) Initialize(ctx context.Context) (*client.ServerInfo, error) {
	return c.mcp.Initialize(ctx)
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.mcp.Close()
}

// call invokes a tool with retry.
func (c *Client) call(ctx context.Context, tool string, args map[string]any) (*client.ToolResult, error) {
	r := retry.New[*client.ToolResult](c.retryCfg)
	result, err := r.Do(ctx, func(ctx context.Context) (*client.ToolResult, error) {
		return c.mcp.CallTool(ctx, tool, args)
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", tool, err)
	}
	if result.IsError {
		msg := ""
		if len(result.Content) > 0 {
			msg = result.Content[0].Text
		}
		return nil, &ToolError{Tool: tool, Message: msg}
	}
	return result, nil
}

// unmarshalText extracts Content[0].Text from a tool result and unmarshals it as JSON.
func unmarshalText[T any](result *client.ToolResult) (*T, error) {
	text, err := textResult(result)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &v, nil
}

// textResult extracts Content[0].Text from a tool result.
func textResult(result *client.ToolResult) (string, error) {
	if len(result.Content) == 0 {
		return "", ErrNoContent
	}
	return result.Content[0].Text, nil
}

// --- Schema ---

// GetSchema reads the shiplift://schema resource from the server.
func (c *Client) GetSchema(ctx context.Context) (*SchemaInfo, error) {
	rc, err := c.mcp.ReadResource(ctx, "shiplift://schema")
	if err != nil {
		return nil, fmt.Errorf("read schema resource: %w", err)
	}
	var info SchemaInfo
	if err := json.Unmarshal([]byte(rc.Text), &info); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	return &info, nil
}

// Compatible checks if the server schema is compatible with this SDK version.
// Returns nil if compatible, error with details if not.
func (c *Client) Compatible(ctx context.Context) error {
	info, err := c.GetSchema(ctx)
	if err != nil {
		return fmt.Errorf("check compatibility: %w", err)
	}
	serverMajor := majorVersion(info.SchemaVersion)
	if serverMajor != SupportedSchemaMajor {
		return fmt.Errorf("incompatible schema: server=%s (major %s), sdk supports major %s",
			info.SchemaVersion, serverMajor, SupportedSchemaMajor)
	}
	return nil
}

// majorVersion extracts the major version from a semver string.
func majorVersion(v string) string {
	for i, ch := range v {
		if ch == '.' {
			return v[:i]
		}
	}
	return v
}

// --- Workspace ---

// Status returns the workspace overview: configuration, report presence, and
// the live scan and migration snapshots.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	res, err := c.call(ctx, "shiplift_status", nil)
	if err != nil {
		return nil, err
	}
	return unmarshalText[Status](res)
}

// --- Assessment ---

// GetReport retrieves the current readiness assessment report.
func (c *Client) GetReport(ctx context.Context) (*Report, error) {
	res, err := c.call(ctx, "shiplift_get_report", nil)
	if err != nil {
		return nil, err
	}
	return unmarshalText[Report](res)
}

// ListRepos lists every repository in the current report, in project order.
func (c *Client) ListRepos(ctx context.Context) ([]Repository, error) {
	res, err := c.call(ctx, "shiplift_list_repos", nil)
	if err != nil {
		return nil, err
	}
	repos, err := unmarshalText[[]Repository](res)
	if err != nil {
		return nil, err
	}
	return *repos, nil
}

// --- Scan ---

// StartScan starts an organization scan. Project narrows the scan to one
// project; empty scans the whole organization. The scan runs in the
// background; poll ScanStatus for progress.
func (c *Client) StartScan(ctx context.Context, project string) (string, error) {
	args := map[string]any{}
	if project != "" {
		args["project"] = project
	}
	res, err := c.call(ctx, "shiplift_start_scan", args)
	if err != nil {
		return "", err
	}
	return textResult(res)
}

// ScanStatus returns the live progress of the current scan. Before any scan
// has been started the returned progress reports status "not_started".
func (c *Client) ScanStatus(ctx context.Context) (*ScanProgress, error) {
	res, err := c.call(ctx, "shiplift_scan_status", nil)
	if err != nil {
		return nil, err
	}
	text, err := textResult(res)
	if err != nil {
		return nil, err
	}
	var progress ScanProgress
	if err := json.Unmarshal([]byte(text), &progress); err != nil {
		// The server answers with a plain message when no scan has run.
		return &ScanProgress{Status: "not_started"}, nil
	}
	return &progress, nil
}

// --- Migration ---

// MigrationRequest selects repositories and a destination for a batch.
type MigrationRequest struct {
	Repos      []string
	TargetOrg  string
	Visibility string
}

// StartMigration starts a migration batch and returns its initial snapshot.
// The batch runs in the background; poll MigrationStatus for progress.
func (c *Client) StartMigration(ctx context.Context, req MigrationRequest) (*MigrationSnapshot, error) {
	args := map[string]any{"repos": req.Repos}
	if req.TargetOrg != "" {
		args["target_org"] = req.TargetOrg
	}
	if req.Visibility != "" {
		args["visibility"] = req.Visibility
	}
	res, err := c.call(ctx, "shiplift_start_migration", args)
	if err != nil {
		return nil, err
	}
	return unmarshalText[MigrationSnapshot](res)
}

// MigrationStatus returns the per-repository status of the current batch, or
// nil when no batch has been started.
func (c *Client) MigrationStatus(ctx context.Context) (*MigrationSnapshot, error) {
	res, err := c.call(ctx, "shiplift_migration_status", nil)
	if err != nil {
		return nil, err
	}
	text, err := textResult(res)
	if err != nil {
		return nil, err
	}
	var snap MigrationSnapshot
	if err := json.Unmarshal([]byte(text), &snap); err != nil {
		// The server answers with a plain message when no batch has run.
		return nil, nil
	}
	return &snap, nil
}
