package assessment

import (
	"fmt"
	"math"
	"sort"
)

// Scoring constants. Each category combines a saturating volume tier with a
// structural risk term, clamped to maxScore.
const (
	maxScore = 100

	repoBaseScore = 20
	repoTFVCRisk  = 40

	pipelineBaseScore     = 30
	pipelineClassicWeight = 50

	workItemBaseScore = 25
	customTypeRisk    = 10
	customTypeRiskCap = 30
)

// Overall weights. Pipelines dominate typical migration effort.
const (
	weightRepositories = 0.30
	weightPipelines    = 0.40
	weightWorkItems    = 0.30
)

// standardWorkItemTypes are the built-in process template types. Anything
// outside this set is organization-defined and needs field mapping on the
// target platform.
var standardWorkItemTypes = map[string]struct{}{
	"Bug":                  {},
	"Epic":                 {},
	"Feature":              {},
	"Impediment":           {},
	"Issue":                {},
	"Product Backlog Item": {},
	"Requirement":          {},
	"Task":                 {},
	"Test Case":            {},
	"Test Plan":            {},
	"Test Suite":           {},
	"User Story":           {},
}

// effortEstimates maps (category, rating) to a human-readable duration.
var effortEstimates = map[Category]map[Rating]string{
	CategoryRepositories: {RatingLow: "1-2 days", RatingMedium: "1-2 weeks", RatingHigh: "2+ weeks"},
	CategoryPipelines:    {RatingLow: "1-2 days", RatingMedium: "1-2 weeks", RatingHigh: "2+ weeks"},
	CategoryWorkItems:    {RatingLow: "1-2 days", RatingMedium: "1-2 weeks", RatingHigh: "2+ weeks"},
	CategoryOverall:      {RatingLow: "1-2 days", RatingMedium: "1-2 weeks", RatingHigh: "2+ weeks"},
}

// Score computes the organization-wide summary for a set of scanned projects.
// It is a pure function: identical inputs always produce identical totals,
// complexity results, and blocker ordering.
func Score(projects []Project) Summary {
	s := Summary{
		TotalProjects: len(projects),
	}

	for _, p := range projects {
		s.TotalRepositories += p.Repositories.Count
		if p.Repositories.TFVCUsed {
			s.TFVCProjects++
		}
		s.TotalPipelines += p.Pipelines.Total()
		s.ClassicPipelines += p.Pipelines.LegacyReleaseCount
		s.TotalWorkItems += p.WorkItems.Total
	}

	customTypes := CustomWorkItemTypes(projects)

	s.Complexity = ComplexitySet{
		Repositories: scoreRepositories(s.TotalRepositories, s.TFVCProjects),
		Pipelines:    scorePipelines(s.TotalPipelines, s.ClassicPipelines),
		WorkItems:    scoreWorkItems(s.TotalWorkItems, len(customTypes)),
	}
	s.Complexity.Overall = newResult(CategoryOverall, overallScore(
		s.Complexity.Repositories.Score,
		s.Complexity.Pipelines.Score,
		s.Complexity.WorkItems.Score,
	))

	s.Blockers = blockerMessages(s.TFVCProjects, s.ClassicPipelines, len(customTypes))

	return s
}

// CustomWorkItemTypes returns the distinct organization-defined type names
// across all projects, sorted for stable output.
func CustomWorkItemTypes(projects []Project) []string {
	seen := map[string]struct{}{}
	for _, p := range projects {
		for typeName := range p.WorkItems.ByType {
			if _, standard := standardWorkItemTypes[typeName]; !standard {
				seen[typeName] = struct{}{}
			}
		}
	}

	types := make([]string, 0, len(seen))
	for typeName := range seen {
		types = append(types, typeName)
	}
	sort.Strings(types)
	return types
}

func scoreRepositories(totalRepos, tfvcProjects int) ComplexityResult {
	score := repoBaseScore

	if tfvcProjects > 0 {
		score += repoTFVCRisk
	}

	switch {
	case totalRepos > 50:
		score += 20
	case totalRepos > 20:
		score += 10
	}

	return newResult(CategoryRepositories, score)
}

func scorePipelines(totalPipelines, classicPipelines int) ComplexityResult {
	score := pipelineBaseScore

	// Legacy release definitions need manual re-authoring; their share of the
	// pipeline estate drives the risk term.
	if classicPipelines > 0 {
		classicRatio := float64(classicPipelines) / float64(max(totalPipelines, 1))
		score += int(classicRatio * pipelineClassicWeight)
	}

	switch {
	case totalPipelines > 100:
		score += 20
	case totalPipelines > 50:
		score += 10
	}

	return newResult(CategoryPipelines, score)
}

func scoreWorkItems(totalWorkItems, customTypes int) ComplexityResult {
	score := workItemBaseScore

	score += min(customTypes*customTypeRisk, customTypeRiskCap)

	switch {
	case totalWorkItems > 10000:
		score += 25
	case totalWorkItems > 5000:
		score += 15
	case totalWorkItems > 1000:
		score += 5
	}

	return newResult(CategoryWorkItems, score)
}

// overallScore is the weighted category average, rounded half away from zero.
func overallScore(repositories, pipelines, workItems int) int {
	avg := weightRepositories*float64(repositories) +
		weightPipelines*float64(pipelines) +
		weightWorkItems*float64(workItems)
	return int(math.Round(avg))
}

func newResult(category Category, score int) ComplexityResult {
	score = min(score, maxScore)
	rating := RatingForScore(score)
	return ComplexityResult{
		Category: category,
		Score:    score,
		Rating:   rating,
		Effort:   effortEstimates[category][rating],
	}
}

// blockerMessages emits the blocker list in fixed order: repositories,
// pipelines, then work items.
func blockerMessages(tfvcProjects, classicPipelines, customTypes int) []string {
	var blockers []string

	if tfvcProjects > 0 {
		blockers = append(blockers, fmt.Sprintf("%d project(s) use TFVC - requires special handling", tfvcProjects))
	}
	if classicPipelines > 0 {
		blockers = append(blockers, fmt.Sprintf("%d Classic release pipeline(s) need manual conversion", classicPipelines))
	}
	if customTypes > 0 {
		blockers = append(blockers, fmt.Sprintf("%d custom work item type(s) need mapping", customTypes))
	}

	return blockers
}
