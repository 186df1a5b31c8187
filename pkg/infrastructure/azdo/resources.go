package azdo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/shiplift/pkg/domain/assessment"
)

type projectDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type repositoryDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	RemoteURL string `json:"remoteUrl"`
	Project   struct {
		Name string `json:"name"`
	} `json:"project"`
}

type workItemTypeDTO struct {
	Name string `json:"name"`
}

type wiqlRequest struct {
	Query string `json:"query"`
}

type wiqlResponse struct {
	WorkItems []struct {
		ID int `json:"id"`
	} `json:"workItems"`
}

// ListProjects returns every project in the organization.
func (c *Client) ListProjects(ctx context.Context) ([]assessment.ProjectRef, error) {
	raw, err := c.getAll(ctx, "", "projects", nil)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	refs := make([]assessment.ProjectRef, 0, len(raw))
	for _, item := range raw {
		var p projectDTO
		if err := json.Unmarshal(item, &p); err != nil {
			return nil, fmt.Errorf("decode project: %w", err)
		}
		refs = append(refs, assessment.ProjectRef{Name: p.Name, Description: p.Description})
	}
	return refs, nil
}

// ListRepositories returns the project's Git repositories. When the project
// also hosts a TFVC collection, it is appended as a single flagged item so
// legacy version control shows up in the inventory.
func (c *Client) ListRepositories(ctx context.Context, project string) ([]assessment.Repository, error) {
	raw, err := c.getAll(ctx, project, "git/repositories", nil)
	if err != nil {
		return nil, fmt.Errorf("list repositories for %s: %w", project, err)
	}

	repos := make([]assessment.Repository, 0, len(raw))
	for _, item := range raw {
		var r repositoryDTO
		if err := json.Unmarshal(item, &r); err != nil {
			return nil, fmt.Errorf("decode repository: %w", err)
		}
		name := r.Project.Name
		if name == "" {
			name = project
		}
		repos = append(repos, assessment.Repository{
			Project: name,
			Name:    r.Name,
			ID:      r.ID,
			Size:    r.Size,
			URL:     r.RemoteURL,
		})
	}

	if c.HasTFVC(ctx, project) {
		repos = append(repos, assessment.Repository{
			Project: project,
			Name:    "$/" + project,
			ID:      "tfvc:" + project,
			TFVC:    true,
		})
	}

	return repos, nil
}

// HasTFVC probes the project's TFVC root. Any item means a TFVC collection
// exists; probe failures (404 on Git-only projects included) mean no.
func (c *Client) HasTFVC(ctx context.Context, project string) bool {
	params := url.Values{}
	params.Set("scopePath", "$/"+project)

	raw, err := c.getAll(ctx, project, "tfvc/items", params)
	if err != nil {
		return false
	}
	return len(raw) > 0
}

// CountPipelines returns the number of declarative pipeline definitions in
// the project.
func (c *Client) CountPipelines(ctx context.Context, project string) (int, error) {
	raw, err := c.getAll(ctx, project, "pipelines", nil)
	if err != nil {
		return 0, fmt.Errorf("list pipelines for %s: %w", project, err)
	}
	return len(raw), nil
}

// CountReleaseDefinitions returns the number of legacy release definitions.
// Organizations without the release service answer 404; that means zero.
func (c *Client) CountReleaseDefinitions(ctx context.Context, project string) (int, error) {
	raw, err := c.getAll(ctx, project, "release/definitions", nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return 0, nil
		}
		return 0, fmt.Errorf("list release definitions for %s: %w", project, err)
	}
	return len(raw), nil
}

// ListPipelines summarizes the project's pipeline definitions: declarative
// definitions against legacy release definitions.
func (c *Client) ListPipelines(ctx context.Context, project string) (assessment.PipelineSummary, error) {
	declarative, err := c.CountPipelines(ctx, project)
	if err != nil {
		return assessment.PipelineSummary{}, err
	}

	legacy, err := c.CountReleaseDefinitions(ctx, project)
	if err != nil {
		return assessment.PipelineSummary{}, err
	}

	return assessment.PipelineSummary{
		DeclarativeCount:   declarative,
		LegacyReleaseCount: legacy,
	}, nil
}

// ListWorkItems summarizes the project's work items by type.
func (c *Client) ListWorkItems(ctx context.Context, project string) (assessment.WorkItemSummary, error) {
	types, err := c.ListWorkItemTypes(ctx, project)
	if err != nil {
		return assessment.WorkItemSummary{}, err
	}

	return assessment.NewWorkItemSummary(c.CountWorkItemsByType(ctx, project, types)), nil
}

// ListWorkItemTypes returns the work item type names defined in the project.
func (c *Client) ListWorkItemTypes(ctx context.Context, project string) ([]string, error) {
	raw, err := c.getAll(ctx, project, "wit/workitemtypes", nil)
	if err != nil {
		return nil, fmt.Errorf("list work item types for %s: %w", project, err)
	}

	names := make([]string, 0, len(raw))
	for _, item := range raw {
		var t workItemTypeDTO
		if err := json.Unmarshal(item, &t); err != nil {
			return nil, fmt.Errorf("decode work item type: %w", err)
		}
		names = append(names, t.Name)
	}
	return names, nil
}

// CountWorkItemsByType runs one query per type and returns the counts. A
// failed query counts as zero for that type rather than failing the scan.
func (c *Client) CountWorkItemsByType(ctx context.Context, project string, types []string) map[string]int {
	counts := make(map[string]int, len(types))
	for _, t := range types {
		n, err := c.countWorkItems(ctx, project, t)
		if err != nil {
			counts[t] = 0
			continue
		}
		counts[t] = n
	}
	return counts
}

func (c *Client) countWorkItems(ctx context.Context, project, workItemType string) (int, error) {
	query := fmt.Sprintf(
		"SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = '%s' AND [System.WorkItemType] = '%s'",
		wiqlEscape(project), wiqlEscape(workItemType),
	)
	body, err := json.Marshal(wiqlRequest{Query: query})
	if err != nil {
		return 0, err
	}

	rawURL := c.apiURL(project, "wit/wiql", nil)
	retryer := retry.New[*wiqlResponse](c.retryConfig)

	resp, err := retryer.Do(ctx, func(ctx context.Context) (*wiqlResponse, error) {
		var out wiqlResponse
		if err := c.doJSON(ctx, "POST", rawURL, body, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return 0, err
	}
	return len(resp.WorkItems), nil
}

// wiqlEscape doubles single quotes, the only escape WIQL string literals need.
func wiqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
