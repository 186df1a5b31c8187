package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/felixgeelhaar/shiplift/pkg/domain"
	"github.com/felixgeelhaar/shiplift/pkg/domain/assessment"
	"github.com/felixgeelhaar/shiplift/pkg/domain/progress"
	"github.com/felixgeelhaar/shiplift/pkg/domain/scan"
)

// ErrScanInProgress rejects a scan start while another scan holds the slot.
var ErrScanInProgress = errors.New("a scan is already in progress")

// ErrNotConfigured rejects operations that need a saved connection config.
var ErrNotConfigured = errors.New("no organization is configured")

// UnknownProjectError rejects a scan filtered to a project the organization
// does not have.
type UnknownProjectError struct {
	Name string
}

func (e *UnknownProjectError) Error() string {
	return fmt.Sprintf("project %q not found in the organization", e.Name)
}

// AssetLister is the remote asset surface a scan walks. Every listing drains
// pagination internally; the orchestrator never sees partial pages.
type AssetLister interface {
	ListProjects(ctx context.Context) ([]assessment.ProjectRef, error)
	ListRepositories(ctx context.Context, project string) ([]assessment.Repository, error)
	ListPipelines(ctx context.Context, project string) (assessment.PipelineSummary, error)
	ListWorkItems(ctx context.Context, project string) (assessment.WorkItemSummary, error)
}

// ListerFactory builds a client for the configured organization.
type ListerFactory func(cfg *domain.Config) AssetLister

// ScanService walks the configured organization, scores what it finds, and
// stores the resulting report. At most one scan runs at a time.
type ScanService struct {
	repo      domain.WorkspaceRepository
	tracker   *scan.Tracker
	publisher *progress.Publisher
	journal   domain.AuditLogger
	newLister ListerFactory
	logger    *zap.Logger
	actor     string
	inFlight  atomic.Bool
}

// ScanOption configures a ScanService.
type ScanOption func(*ScanService)

// WithScanLogger attaches a logger. The default discards everything.
func WithScanLogger(logger *zap.Logger) ScanOption {
	return func(s *ScanService) {
		s.logger = logger
	}
}

// WithScanActor names the surface journal entries are attributed to.
func WithScanActor(actor string) ScanOption {
	return func(s *ScanService) {
		s.actor = actor
	}
}

func NewScanService(
	repo domain.WorkspaceRepository,
	tracker *scan.Tracker,
	publisher *progress.Publisher,
	journal domain.AuditLogger,
	newLister ListerFactory,
	opts ...ScanOption,
) *ScanService {
	s := &ScanService{
		repo:      repo,
		tracker:   tracker,
		publisher: publisher,
		journal:   journal,
		newLister: newLister,
		logger:    zap.NewNop(),
		actor:     "cli",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// StartScan validates the request, claims the single scan slot, and runs the
// walk in the background. A rejected start never moves the published progress
// off its prior state. When projectFilter is non-empty the scan covers only
// that project; the name is checked against the live project list before
// acceptance.
func (s *ScanService) StartScan(ctx context.Context, projectFilter string) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrScanInProgress
	}

	cfg, err := s.repo.LoadConfig()
	if err != nil {
		s.inFlight.Store(false)
		if errors.Is(err, domain.ErrConfigNotFound) {
			return ErrNotConfigured
		}
		return fmt.Errorf("load config: %w", err)
	}

	lister := s.newLister(cfg)

	projects, err := lister.ListProjects(ctx)
	if err != nil {
		s.inFlight.Store(false)
		return fmt.Errorf("list projects: %w", err)
	}

	targets := projects
	if projectFilter != "" {
		ref, ok := findProject(projects, projectFilter)
		if !ok {
			s.inFlight.Store(false)
			return &UnknownProjectError{Name: projectFilter}
		}
		targets = []assessment.ProjectRef{ref}
	}

	snap, err := s.tracker.Begin(len(targets))
	if err != nil {
		s.inFlight.Store(false)
		return err
	}
	s.publishScan(snap)

	s.logJournal(domain.ActionScanStart, map[string]interface{}{
		"organization_url": cfg.OrganizationURL,
		"project_filter":   projectFilter,
		"total_projects":   len(targets),
	})
	s.logger.Info("Scan accepted",
		zap.String("organization_url", cfg.OrganizationURL),
		zap.Int("total_projects", len(targets)))

	// The scan outlives the request that started it.
	go s.runScan(context.Background(), lister, cfg.OrganizationURL, targets)

	return nil
}

// Status returns the current scan progress snapshot.
func (s *ScanService) Status() scan.Snapshot {
	return s.tracker.Snapshot()
}

// Results returns the current report.
func (s *ScanService) Results() (*assessment.Report, error) {
	return s.repo.LoadReport()
}

func (s *ScanService) runScan(ctx context.Context, lister AssetLister, orgURL string, targets []assessment.ProjectRef) {
	defer s.inFlight.Store(false)

	projects := make([]assessment.Project, 0, len(targets))
	for _, ref := range targets {
		if snap, err := s.tracker.StartProject(ref.Name); err == nil {
			s.publishScan(snap)
		}

		project, err := s.scanProject(ctx, lister, ref.Name)
		if err != nil {
			s.failScan(fmt.Sprintf("scan %s: %v", ref.Name, err))
			return
		}
		projects = append(projects, *project)

		if snap, err := s.tracker.ProjectDone(); err == nil {
			s.publishScan(snap)
		}
	}

	report := assessment.NewReport(orgURL, projects)
	if err := s.repo.SaveReport(report); err != nil {
		s.failScan(fmt.Sprintf("save report: %v", err))
		return
	}

	snap, err := s.tracker.Complete()
	if err == nil {
		s.publishScan(snap)
	}

	s.logJournal(domain.ActionScanComplete, map[string]interface{}{
		"projects":      len(projects),
		"overall_score": report.Summary.Complexity.Overall.Score,
	})
	s.logger.Info("Scan completed",
		zap.Int("projects", len(projects)),
		zap.Int("overall_score", report.Summary.Complexity.Overall.Score))
}

// scanProject collects one project's full inventory. Any listing failure
// fails the project, and with it the whole scan.
func (s *ScanService) scanProject(ctx context.Context, lister AssetLister, name string) (*assessment.Project, error) {
	repos, err := lister.ListRepositories(ctx, name)
	if err != nil {
		return nil, err
	}

	pipelines, err := lister.ListPipelines(ctx, name)
	if err != nil {
		return nil, err
	}

	workItems, err := lister.ListWorkItems(ctx, name)
	if err != nil {
		return nil, err
	}

	return &assessment.Project{
		Name:         name,
		Repositories: assessment.NewRepositorySummary(repos),
		Pipelines:    pipelines,
		WorkItems:    workItems,
	}, nil
}

func (s *ScanService) failScan(message string) {
	if snap, err := s.tracker.Fail(message); err == nil {
		s.publishScan(snap)
	}
	s.logJournal(domain.ActionScanFail, map[string]interface{}{
		"error": message,
	})
	s.logger.Warn("Scan failed", zap.String("error", message))
}

func (s *ScanService) publishScan(snap scan.Snapshot) {
	s.publisher.Publish(progress.Event{Kind: progress.KindScan, Payload: snap})
}

// logJournal appends to the operations journal without letting a journal
// failure disturb the scan itself.
func (s *ScanService) logJournal(action string, metadata map[string]interface{}) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Log(action, s.actor, metadata); err != nil {
		s.logger.Warn("Journal write failed", zap.String("action", action), zap.Error(err))
	}
}

func findProject(projects []assessment.ProjectRef, name string) (assessment.ProjectRef, bool) {
	for _, p := range projects {
		if p.Name == name {
			return p, true
		}
	}
	return assessment.ProjectRef{}, false
}
