// Package assessment holds the asset model discovered by a scan and the
// deterministic complexity scoring over it.
package assessment

import (
	"time"
)

// ProjectRef is a lightweight project listing entry.
type ProjectRef struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Repository is one discovered source repository. A project's TFVC collection,
// when present, appears as a single item with TFVC set.
type Repository struct {
	Project string `json:"project" yaml:"project"`
	Name    string `json:"name" yaml:"name"`
	ID      string `json:"id" yaml:"id"`
	Size    int64  `json:"size" yaml:"size"` // bytes
	TFVC    bool   `json:"tfvc" yaml:"tfvc"`
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
}

// RepositorySummary is the per-project repository rollup.
type RepositorySummary struct {
	Count    int          `json:"count" yaml:"count"`
	TFVCUsed bool         `json:"tfvc_used" yaml:"tfvc_used"`
	Items    []Repository `json:"items" yaml:"items"`
}

// NewRepositorySummary derives the rollup from discovered items.
func NewRepositorySummary(items []Repository) RepositorySummary {
	s := RepositorySummary{Count: len(items), Items: items}
	for _, r := range items {
		if r.TFVC {
			s.TFVCUsed = true
			break
		}
	}
	return s
}

// PipelineSummary counts declarative (versioned YAML) pipeline definitions
// against legacy UI-authored release definitions.
type PipelineSummary struct {
	DeclarativeCount   int `json:"declarative_count" yaml:"declarative_count"`
	LegacyReleaseCount int `json:"legacy_release_count" yaml:"legacy_release_count"`
}

// Total returns the combined pipeline definition count.
func (p PipelineSummary) Total() int {
	return p.DeclarativeCount + p.LegacyReleaseCount
}

// WorkItemSummary is the per-project work item rollup. Type names are
// organization-defined, so ByType is an open string map rather than an enum.
type WorkItemSummary struct {
	Total  int            `json:"total" yaml:"total"`
	ByType map[string]int `json:"by_type" yaml:"by_type"`
}

// NewWorkItemSummary derives the rollup from a per-type count map.
func NewWorkItemSummary(byType map[string]int) WorkItemSummary {
	s := WorkItemSummary{ByType: byType}
	for _, n := range byType {
		s.Total += n
	}
	return s
}

// Project is one organizational unit's scan result. Projects are created
// during a scan and never mutated after the scan completes.
type Project struct {
	Name         string            `json:"name" yaml:"name"`
	Repositories RepositorySummary `json:"repositories" yaml:"repositories"`
	Pipelines    PipelineSummary   `json:"pipelines" yaml:"pipelines"`
	WorkItems    WorkItemSummary   `json:"work_items" yaml:"work_items"`
}

// ComplexityResult is one category's score, rating band, and effort estimate.
type ComplexityResult struct {
	Category Category `json:"category" yaml:"category"`
	Score    int      `json:"score" yaml:"score"`
	Rating   Rating   `json:"rating" yaml:"rating"`
	Effort   string   `json:"effort" yaml:"effort"`
}

// ComplexitySet groups the per-category results with the weighted overall.
type ComplexitySet struct {
	Repositories ComplexityResult `json:"repositories" yaml:"repositories"`
	Pipelines    ComplexityResult `json:"pipelines" yaml:"pipelines"`
	WorkItems    ComplexityResult `json:"work_items" yaml:"work_items"`
	Overall      ComplexityResult `json:"overall" yaml:"overall"`
}

// Summary is the organization-wide rollup: totals, complexity, blockers.
type Summary struct {
	TotalProjects     int           `json:"total_projects" yaml:"total_projects"`
	TotalRepositories int           `json:"total_repositories" yaml:"total_repositories"`
	TFVCProjects      int           `json:"tfvc_projects" yaml:"tfvc_projects"`
	TotalPipelines    int           `json:"total_pipelines" yaml:"total_pipelines"`
	ClassicPipelines  int           `json:"classic_pipelines" yaml:"classic_pipelines"`
	TotalWorkItems    int           `json:"total_work_items" yaml:"total_work_items"`
	Complexity        ComplexitySet `json:"complexity" yaml:"complexity"`
	Blockers          []string      `json:"blockers" yaml:"blockers"`
}

// Report is the root output artifact of a scan. Immutable once produced;
// exactly one current report exists at a time.
type Report struct {
	OrganizationURL string    `json:"organization_url" yaml:"organization_url"`
	GeneratedAt     time.Time `json:"generated_at" yaml:"generated_at"`
	Projects        []Project `json:"projects" yaml:"projects"`
	Summary         Summary   `json:"summary" yaml:"summary"`
}

// NewReport assembles a scored report from scanned projects.
func NewReport(organizationURL string, projects []Project) *Report {
	return &Report{
		OrganizationURL: organizationURL,
		GeneratedAt:     time.Now().UTC(),
		Projects:        projects,
		Summary:         Score(projects),
	}
}

// Repositories returns every repository in the report, in project order.
func (r *Report) Repositories() []Repository {
	var repos []Repository
	for _, p := range r.Projects {
		repos = append(repos, p.Repositories.Items...)
	}
	return repos
}

// FindRepository looks a repository up by name across all projects.
func (r *Report) FindRepository(name string) (Repository, bool) {
	for _, p := range r.Projects {
		for _, repo := range p.Repositories.Items {
			if repo.Name == name {
				return repo, true
			}
		}
	}
	return Repository{}, false
}
