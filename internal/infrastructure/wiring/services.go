package wiring

import (
	"go.uber.org/zap"

	"github.com/felixgeelhaar/shiplift/pkg/application"
	"github.com/felixgeelhaar/shiplift/pkg/domain"
	"github.com/felixgeelhaar/shiplift/pkg/domain/progress"
	"github.com/felixgeelhaar/shiplift/pkg/domain/scan"
	"github.com/felixgeelhaar/shiplift/pkg/infrastructure/azdo"
	"github.com/felixgeelhaar/shiplift/pkg/infrastructure/gei"
	"github.com/felixgeelhaar/shiplift/pkg/infrastructure/github"
	"github.com/felixgeelhaar/shiplift/pkg/storage"
)

// Options tunes how the service graph is assembled.
type Options struct {
	// Dir is the workspace directory. Empty resolves SHIPLIFT_HOME, falling
	// back to ~/.shiplift.
	Dir string
	// Actor names the surface journal entries are attributed to.
	Actor string
	// Logger is shared by every service. Nil discards all output.
	Logger *zap.Logger
	// Workers bounds concurrent repository transfers. Zero keeps the default.
	Workers int
}

// AppServices exposes the application layer services wired together with a
// workspace.
type AppServices struct {
	Workspace *Workspace
	Publisher *progress.Publisher
	Config    *application.ConfigService
	Scan      *application.ScanService
	Migration *application.MigrationService
	Logger    *zap.Logger
}

// BuildAppServices constructs the full service graph for one workspace.
func BuildAppServices(opts Options) (*AppServices, error) {
	dir := opts.Dir
	if dir == "" {
		resolved, err := storage.WorkspaceDir()
		if err != nil {
			return nil, err
		}
		dir = resolved
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	actor := opts.Actor
	if actor == "" {
		actor = "cli"
	}

	workspace := NewWorkspace(dir)
	publisher := progress.NewPublisher()

	newLister := func(cfg *domain.Config) application.AssetLister {
		return azdo.NewClient(cfg.OrganizationURL, cfg.PAT)
	}
	newChecker := func(token string) application.TargetChecker {
		return github.NewPreflight(token)
	}
	invoker := gei.NewInvoker(gei.WithLogger(logger))

	return &AppServices{
		Workspace: workspace,
		Publisher: publisher,
		Config: application.NewConfigService(workspace.Repo, workspace.Journal, newLister,
			application.WithConfigLogger(logger),
			application.WithConfigActor(actor)),
		Scan: application.NewScanService(workspace.Repo, scan.NewTracker(), publisher, workspace.Journal, newLister,
			application.WithScanLogger(logger),
			application.WithScanActor(actor)),
		Migration: application.NewMigrationService(workspace.Repo, publisher, workspace.Journal, invoker, newChecker,
			application.WithMigrationLogger(logger),
			application.WithMigrationActor(actor),
			application.WithMigrationWorkers(opts.Workers)),
		Logger: logger,
	}, nil
}

// Close releases long-lived resources. Safe to call more than once.
func (s *AppServices) Close() {
	s.Publisher.Close()
}
