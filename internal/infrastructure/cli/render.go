package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/felixgeelhaar/shiplift/pkg/domain/assessment"
)

// renderReport writes the human-readable form of a scan report: per-project
// asset counts, the complexity breakdown, and the blocker list.
func renderReport(w io.Writer, report *assessment.Report) {
	fmt.Fprintf(w, "Scan of %s (generated %s)\n\n",
		report.OrganizationURL, report.GeneratedAt.Format("2006-01-02 15:04 MST"))

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Project", "Repos", "TFVC", "Pipelines", "Classic Releases", "Work Items"})
	for _, p := range report.Projects {
		tfvc := ""
		if p.Repositories.TFVCUsed {
			tfvc = "yes"
		}
		tw.AppendRow(table.Row{
			p.Name,
			p.Repositories.Count,
			tfvc,
			p.Pipelines.DeclarativeCount,
			p.Pipelines.LegacyReleaseCount,
			p.WorkItems.Total,
		})
	}
	s := report.Summary
	tw.AppendFooter(table.Row{"Total", s.TotalRepositories, s.TFVCProjects, s.TotalPipelines - s.ClassicPipelines, s.ClassicPipelines, s.TotalWorkItems})
	tw.Render()

	fmt.Fprintln(w)
	renderComplexity(w, s.Complexity)

	if len(s.Blockers) > 0 {
		fmt.Fprintln(w, "\nBlockers:")
		for _, b := range s.Blockers {
			fmt.Fprintf(w, "  - %s\n", b)
		}
	} else {
		fmt.Fprintln(w, "\nNo blockers found.")
	}
}

func renderComplexity(w io.Writer, c assessment.ComplexitySet) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Category", "Score", "Rating", "Estimated Effort"})
	for _, r := range []assessment.ComplexityResult{c.Repositories, c.Pipelines, c.WorkItems} {
		tw.AppendRow(table.Row{r.Category, r.Score, r.Rating, r.Effort})
	}
	tw.AppendFooter(table.Row{"Overall", c.Overall.Score, c.Overall.Rating, c.Overall.Effort})
	tw.Render()
}
