package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/felixgeelhaar/shiplift/pkg/domain"
	"github.com/felixgeelhaar/shiplift/pkg/domain/assessment"
)

// ConnectionStatus is the outcome of probing the saved organization with its
// saved credentials.
type ConnectionStatus struct {
	OrganizationURL string                  `json:"organization_url"`
	ProjectCount    int                     `json:"project_count"`
	Projects        []assessment.ProjectRef `json:"projects,omitempty"`
}

// ConfigService manages the saved connection configuration. Writes go
// through the workspace repository so secrets land with owner-only
// permissions; reads hand callers the loaded config, and it is on the
// presentation layer to redact before display.
type ConfigService struct {
	repo      domain.WorkspaceRepository
	journal   domain.AuditLogger
	newLister ListerFactory
	logger    *zap.Logger
	actor     string
}

// ConfigOption configures a ConfigService.
type ConfigOption func(*ConfigService)

// WithConfigLogger attaches a logger. The default discards everything.
func WithConfigLogger(logger *zap.Logger) ConfigOption {
	return func(s *ConfigService) {
		s.logger = logger
	}
}

// WithConfigActor names the surface journal entries are attributed to.
func WithConfigActor(actor string) ConfigOption {
	return func(s *ConfigService) {
		s.actor = actor
	}
}

func NewConfigService(
	repo domain.WorkspaceRepository,
	journal domain.AuditLogger,
	newLister ListerFactory,
	opts ...ConfigOption,
) *ConfigService {
	s := &ConfigService{
		repo:      repo,
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

// Configure normalizes, validates, and persists a connection config,
// replacing whatever was saved before.
func (s *ConfigService) Configure(cfg domain.Config) (*domain.Config, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.SaveConfig(&cfg); err != nil {
		return nil, fmt.Errorf("save config: %w", err)
	}

	s.logJournal(domain.ActionConfigure, map[string]interface{}{
		"organization_url": cfg.OrganizationURL,
		"default_project":  cfg.DefaultProject,
		"has_github_token": cfg.HasGitHub(),
	})
	s.logger.Info("Configuration saved",
		zap.String("organization_url", cfg.OrganizationURL),
		zap.Bool("has_github_token", cfg.HasGitHub()))

	return &cfg, nil
}

// Current returns the saved config, or domain.ErrConfigNotFound.
func (s *ConfigService) Current() (*domain.Config, error) {
	return s.repo.LoadConfig()
}

// Delete removes the saved config. Deleting when nothing is saved succeeds.
func (s *ConfigService) Delete() error {
	if err := s.repo.DeleteConfig(); err != nil {
		return fmt.Errorf("delete config: %w", err)
	}

	s.logJournal(domain.ActionConfigDelete, nil)
	s.logger.Info("Configuration deleted")

	return nil
}

// TestConnection probes the saved organization by listing its projects with
// the saved credentials. It never mutates anything.
func (s *ConfigService) TestConnection(ctx context.Context) (*ConnectionStatus, error) {
	cfg, err := s.repo.LoadConfig()
	if err != nil {
		if errors.Is(err, domain.ErrConfigNotFound) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("load config: %w", err)
	}

	projects, err := s.newLister(cfg).ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.OrganizationURL, err)
	}

	return &ConnectionStatus{
		OrganizationURL: cfg.OrganizationURL,
		ProjectCount:    len(projects),
		Projects:        projects,
	}, nil
}

func (s *ConfigService) logJournal(action string, metadata map[string]interface{}) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Log(action, s.actor, metadata); err != nil {
		s.logger.Warn("Journal write failed", zap.String("action", action), zap.Error(err))
	}
}
