package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/shiplift/pkg/domain/assessment"
	"github.com/felixgeelhaar/shiplift/pkg/storage"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI view of the current scan report",
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("SHIPLIFT_SKIP_DASHBOARD_RUN") == "true" {
			return nil
		}
		p := tea.NewProgram(initialDashboardModel())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("dashboard run failed: %w", err)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(dashboardCmd)
}

// Styles
var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	PaddingLeft(1).
	PaddingRight(1)

var ratingLowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
var ratingMediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
var ratingHighStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

type dashboardModel struct {
	table  table.Model
	report *assessment.Report
	err    error
}

func initialDashboardModel() dashboardModel {
	report, err := loadDashboardReport()
	if err != nil {
		return dashboardModel{err: err}
	}
	return dashboardModel{table: projectTable(report), report: report}
}

func loadDashboardReport() (*assessment.Report, error) {
	dir, err := storage.WorkspaceDir()
	if err != nil {
		return nil, err
	}
	return storage.NewFilesystemRepository(dir).LoadReport()
}

func projectTable(report *assessment.Report) table.Model {
	columns := []table.Column{
		{Title: "Project", Width: 28},
		{Title: "Repos", Width: 6},
		{Title: "TFVC", Width: 5},
		{Title: "Pipelines", Width: 9},
		{Title: "Classic", Width: 7},
		{Title: "Work Items", Width: 10},
	}

	rows := []table.Row{}
	for _, p := range report.Projects {
		tfvc := ""
		if p.Repositories.TFVCUsed {
			tfvc = "yes"
		}
		rows = append(rows, table.Row{
			p.Name,
			fmt.Sprintf("%d", p.Repositories.Count),
			tfvc,
			fmt.Sprintf("%d", p.Pipelines.DeclarativeCount),
			fmt.Sprintf("%d", p.Pipelines.LegacyReleaseCount),
			fmt.Sprintf("%d", p.WorkItems.Total),
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229"))
	t.SetStyles(s)

	return t
}

func (m dashboardModel) Init() tea.Cmd { return nil }

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return initialDashboardModel(), nil
		}
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m dashboardModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error loading dashboard: %v\nPress q to quit.", m.err)
	}

	s := m.report.Summary
	header := headerStyle.Render(fmt.Sprintf("%s  (%d projects)", m.report.OrganizationURL, s.TotalProjects))

	overall := fmt.Sprintf("Overall complexity: %s (score %d, est. %s)",
		ratingStyle(s.Complexity.Overall.Rating).Render(s.Complexity.Overall.Rating.String()),
		s.Complexity.Overall.Score, s.Complexity.Overall.Effort)

	blockerView := ratingLowStyle.Render("\nNo blockers.")
	if len(s.Blockers) > 0 {
		blockerView = ratingHighStyle.Render("\nBLOCKERS:\n")
		for _, b := range s.Blockers {
			blockerView += fmt.Sprintf("- %s\n", b)
		}
	}

	return baseStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			overall,
			"\nProjects:",
			m.table.View(),
			blockerView,
			"\n[r] Reload  [q] Quit  [Up/Down] Navigate",
		),
	) + "\n"
}

func ratingStyle(r assessment.Rating) lipgloss.Style {
	switch r {
	case assessment.RatingHigh:
		return ratingHighStyle
	case assessment.RatingMedium:
		return ratingMediumStyle
	default:
		return ratingLowStyle
	}
}
