package sdk

import "time"

// The types below mirror the JSON the server emits. They are deliberately
// decoupled from the server's internal packages so consumers of the SDK
// depend only on the wire contract.

// SchemaInfo describes the server's tool schema version.
type SchemaInfo struct {
	SchemaVersion string `json:"schema_version"`
	ServerVersion string `json:"server_version"`
}

// Status is the workspace overview returned by shiplift_status.
type Status struct {
	Workspace       string             `json:"workspace"`
	Configured      bool               `json:"configured"`
	HasReport       bool               `json:"has_report"`
	OrganizationURL string             `json:"organization_url,omitempty"`
	GitHubOrg       string             `json:"github_org,omitempty"`
	HasGitHubToken  bool               `json:"has_github_token,omitempty"`
	Scan            *ScanProgress      `json:"scan,omitempty"`
	Migration       *MigrationSnapshot `json:"migration,omitempty"`
}

// ScanProgress is the live state of an organization scan.
type ScanProgress struct {
	Status          string `json:"status"`
	Percent         int    `json:"percent"`
	ProjectsScanned int    `json:"projects_scanned"`
	TotalProjects   int    `json:"total_projects"`
	CurrentProject  string `json:"current_project,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Done reports whether the scan has reached a terminal state.
func (p *ScanProgress) Done() bool {
	return p.Status == "completed" || p.Status == "failed"
}

// Repository is one source repository in the inventory.
type Repository struct {
	Project string `json:"project"`
	Name    string `json:"name"`
	ID      string `json:"id"`
	Size    int64  `json:"size"`
	TFVC    bool   `json:"tfvc"`
	URL     string `json:"url,omitempty"`
}

// RepositorySummary is the per-project repository rollup.
type RepositorySummary struct {
	Count    int          `json:"count"`
	TFVCUsed bool         `json:"tfvc_used"`
	Items    []Repository `json:"items"`
}

// PipelineSummary counts declarative pipelines against legacy release
// definitions.
type PipelineSummary struct {
	DeclarativeCount   int `json:"declarative_count"`
	LegacyReleaseCount int `json:"legacy_release_count"`
}

// WorkItemSummary is the per-project work item rollup by type.
type WorkItemSummary struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
}

// Project is one organizational unit's scan result.
type Project struct {
	Name         string            `json:"name"`
	Repositories RepositorySummary `json:"repositories"`
	Pipelines    PipelineSummary   `json:"pipelines"`
	WorkItems    WorkItemSummary   `json:"work_items"`
}

// ComplexityResult is one category's score, rating band, and effort estimate.
type ComplexityResult struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
	Rating   string `json:"rating"`
	Effort   string `json:"effort"`
}

// ComplexitySet groups the per-category results with the weighted overall.
type ComplexitySet struct {
	Repositories ComplexityResult `json:"repositories"`
	Pipelines    ComplexityResult `json:"pipelines"`
	WorkItems    ComplexityResult `json:"work_items"`
	Overall      ComplexityResult `json:"overall"`
}

// Summary is the organization-wide rollup.
type Summary struct {
	TotalProjects     int           `json:"total_projects"`
	TotalRepositories int           `json:"total_repositories"`
	TFVCProjects      int           `json:"tfvc_projects"`
	TotalPipelines    int           `json:"total_pipelines"`
	ClassicPipelines  int           `json:"classic_pipelines"`
	TotalWorkItems    int           `json:"total_work_items"`
	Complexity        ComplexitySet `json:"complexity"`
	Blockers          []string      `json:"blockers"`
}

// Report is the readiness assessment produced by a completed scan.
type Report struct {
	OrganizationURL string    `json:"organization_url"`
	GeneratedAt     time.Time `json:"generated_at"`
	Projects        []Project `json:"projects"`
	Summary         Summary   `json:"summary"`
}

// JobState is the per-repository view inside a migration batch.
type JobState struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// MigrationSnapshot is a point-in-time view of a migration batch.
type MigrationSnapshot struct {
	BatchID   string              `json:"batch_id"`
	Status    string              `json:"status"`
	TargetOrg string              `json:"target_org"`
	Repos     map[string]JobState `json:"repos"`
}

// Done reports whether the batch has reached a terminal state.
func (s *MigrationSnapshot) Done() bool {
	return s.Status == "completed" || s.Status == "failed"
}
