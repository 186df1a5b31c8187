package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/shiplift/pkg/domain"
	"github.com/felixgeelhaar/shiplift/pkg/domain/migration"
	"github.com/felixgeelhaar/shiplift/pkg/domain/progress"
	"github.com/felixgeelhaar/shiplift/pkg/infrastructure/gei"
	"github.com/felixgeelhaar/shiplift/pkg/infrastructure/github"
)

// ErrMigrationInProgress rejects a migration start while a batch is running.
var ErrMigrationInProgress = errors.New("a migration is already in progress")

// ErrNoReport rejects a migration when no scan report exists yet.
var ErrNoReport = errors.New("no scan report available; run a scan first")

// ErrGitHubNotConfigured rejects a migration without destination credentials.
var ErrGitHubNotConfigured = errors.New("github credentials are not configured")

const (
	defaultMigrationWorkers = 3
	failureDetailLimit      = 200
)

// RepoMigrator executes one repository transfer, streaming progress signals
// as the underlying tool reports them.
type RepoMigrator interface {
	Migrate(ctx context.Context, req gei.MigrateRequest, progress gei.ProgressFunc) error
}

// TargetChecker verifies destination credentials and organization before any
// job is created.
type TargetChecker interface {
	Check(ctx context.Context, org string) (*github.Result, error)
}

// CheckerFactory builds a TargetChecker for the given destination token.
type CheckerFactory func(token string) TargetChecker

// MigrationRequest selects what to migrate and where to put it.
type MigrationRequest struct {
	Repositories []string
	TargetOrg    string
	Visibility   string
}

// MigrationService runs migration batches: a bounded pool of per-repository
// jobs whose failures stay isolated from each other. At most one batch runs
// at a time; the last batch stays readable after it finishes.
type MigrationService struct {
	repo       domain.WorkspaceRepository
	publisher  *progress.Publisher
	journal    domain.AuditLogger
	migrator   RepoMigrator
	newChecker CheckerFactory
	logger     *zap.Logger
	actor      string
	workers    int

	inFlight atomic.Bool

	mu    sync.RWMutex
	batch *migration.Batch
}

// MigrationOption configures a MigrationService.
type MigrationOption func(*MigrationService)

// WithMigrationLogger attaches a logger. The default discards everything.
func WithMigrationLogger(logger *zap.Logger) MigrationOption {
	return func(s *MigrationService) {
		s.logger = logger
	}
}

// WithMigrationActor names the surface journal entries are attributed to.
func WithMigrationActor(actor string) MigrationOption {
	return func(s *MigrationService) {
		s.actor = actor
	}
}

// WithMigrationWorkers bounds how many repositories transfer at once.
func WithMigrationWorkers(n int) MigrationOption {
	return func(s *MigrationService) {
		if n > 0 {
			s.workers = n
		}
	}
}

func NewMigrationService(
	repo domain.WorkspaceRepository,
	publisher *progress.Publisher,
	journal domain.AuditLogger,
	migrator RepoMigrator,
	newChecker CheckerFactory,
	opts ...MigrationOption,
) *MigrationService {
	s := &MigrationService{
		repo:       repo,
		publisher:  publisher,
		journal:    journal,
		migrator:   migrator,
		newChecker: newChecker,
		logger:     zap.NewNop(),
		actor:      "cli",
		workers:    defaultMigrationWorkers,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// StartMigration validates the request end to end, then runs the batch in
// the background. Validation creates no jobs: a rejected request leaves no
// trace beyond its error. The target organization falls back to the saved
// config when the request leaves it empty.
func (s *MigrationService) StartMigration(ctx context.Context, req MigrationRequest) (*migration.Snapshot, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrMigrationInProgress
	}

	batch, cfg, err := s.prepare(ctx, req)
	if err != nil {
		s.inFlight.Store(false)
		return nil, err
	}

	s.mu.Lock()
	s.batch = batch
	s.mu.Unlock()

	snap := batch.Snapshot()
	s.publisher.Publish(progress.Event{Kind: progress.KindMigration, Payload: snap})

	s.logJournal(domain.ActionMigrateStart, map[string]interface{}{
		"batch_id":     batch.ID,
		"target_org":   batch.TargetOrg,
		"visibility":   batch.Visibility.String(),
		"repositories": len(batch.Jobs),
	})
	s.logger.Info("Migration batch accepted",
		zap.String("batch_id", batch.ID),
		zap.String("target_org", batch.TargetOrg),
		zap.Int("repositories", len(batch.Jobs)))

	// The batch outlives the request that started it.
	go s.runBatch(context.Background(), cfg, batch)

	return &snap, nil
}

// prepare runs every up-front check and builds the batch. It owns no state;
// the caller installs the batch only when prepare succeeds.
func (s *MigrationService) prepare(ctx context.Context, req MigrationRequest) (*migration.Batch, *domain.Config, error) {
	cfg, err := s.repo.LoadConfig()
	if err != nil {
		if errors.Is(err, domain.ErrConfigNotFound) {
			return nil, nil, ErrNotConfigured
		}
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if !cfg.HasGitHub() {
		return nil, nil, ErrGitHubNotConfigured
	}

	report, err := s.repo.LoadReport()
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			return nil, nil, ErrNoReport
		}
		return nil, nil, fmt.Errorf("load report: %w", err)
	}

	visibility, err := migration.ParseVisibility(req.Visibility)
	if err != nil {
		return nil, nil, err
	}

	targetOrg := req.TargetOrg
	if targetOrg == "" {
		targetOrg = cfg.GitHubOrg
	}

	batch, err := migration.NewBatch(report, req.Repositories, targetOrg, visibility)
	if err != nil {
		return nil, nil, err
	}

	if s.newChecker != nil {
		result, err := s.newChecker(cfg.GitHubToken).Check(ctx, targetOrg)
		if err != nil {
			return nil, nil, err
		}
		s.logger.Info("GitHub preflight passed",
			zap.String("login", result.Login),
			zap.String("target_org", targetOrg))
	}

	return batch, cfg, nil
}

// Status returns the current batch snapshot, or nil when no batch has ever
// been started.
func (s *MigrationService) Status() *migration.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.batch == nil {
		return nil
	}
	snap := s.batch.Snapshot()
	return &snap
}

func (s *MigrationService) runBatch(ctx context.Context, cfg *domain.Config, batch *migration.Batch) {
	defer s.inFlight.Store(false)

	adoOrg := organizationName(cfg.OrganizationURL)

	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, job := range batch.Jobs {
		g.Go(func() error {
			s.runJob(ctx, cfg, adoOrg, job)
			return nil
		})
	}
	_ = g.Wait()

	snap := s.Status()
	s.logJournal(domain.ActionMigrateFinish, map[string]interface{}{
		"batch_id": batch.ID,
		"status":   snap.Status.String(),
	})
	s.logger.Info("Migration batch finished",
		zap.String("batch_id", batch.ID),
		zap.String("status", snap.Status.String()))
}

// runJob drives one repository through its transfer. Errors stop this job
// only; the rest of the batch keeps going.
func (s *MigrationService) runJob(ctx context.Context, cfg *domain.Config, adoOrg string, job *migration.Job) {
	s.transition(job, job.Start)

	req := gei.MigrateRequest{
		ADOOrg:      adoOrg,
		ADOProject:  job.Repository.Project,
		ADORepo:     job.Repository.Name,
		GitHubOrg:   job.TargetOrg,
		GitHubRepo:  job.Repository.Name,
		ADOPAT:      cfg.PAT,
		GitHubToken: cfg.GitHubToken,
		Visibility:  job.Visibility.String(),
	}

	err := s.migrator.Migrate(ctx, req, func(percent int, message string) {
		s.mu.Lock()
		job.SetProgress(percent, message)
		s.mu.Unlock()
		s.publishBatch()
	})
	if err != nil {
		detail := failureDetail(err)
		s.transition(job, func() error { return job.Fail(detail) })
		s.logger.Warn("Repository migration failed",
			zap.String("repository", job.Repository.Name),
			zap.String("error", detail))
		return
	}

	s.transition(job, job.Complete)
	s.logger.Info("Repository migration completed",
		zap.String("repository", job.Repository.Name))
}

// transition applies a job state change under the batch lock and publishes
// the resulting snapshot.
func (s *MigrationService) transition(job *migration.Job, fn func() error) {
	s.mu.Lock()
	err := fn()
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("Job transition rejected",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
	s.publishBatch()
}

func (s *MigrationService) publishBatch() {
	snap := s.Status()
	if snap == nil {
		return
	}
	s.publisher.Publish(progress.Event{Kind: progress.KindMigration, Payload: *snap})
}

func (s *MigrationService) logJournal(action string, metadata map[string]interface{}) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Log(action, s.actor, metadata); err != nil {
		s.logger.Warn("Journal write failed", zap.String("action", action), zap.Error(err))
	}
}

// failureDetail extracts the most useful short description of a failed
// transfer. Tool failures already carry trimmed output; anything else is
// capped to the same length.
func failureDetail(err error) string {
	var toolErr *gei.ToolError
	if errors.As(err, &toolErr) && toolErr.Detail != "" {
		return toolErr.Detail
	}
	detail := err.Error()
	if len(detail) > failureDetailLimit {
		detail = detail[:failureDetailLimit]
	}
	return detail
}

// organizationName extracts the organization segment from a dev.azure.com
// style URL.
func organizationName(orgURL string) string {
	trimmed := strings.TrimRight(orgURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
