package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/shiplift/pkg/application"
	"github.com/felixgeelhaar/shiplift/pkg/domain"
	"github.com/felixgeelhaar/shiplift/pkg/domain/assessment"
)

func newConfigService(repo *MockRepo, lister *fakeLister) *application.ConfigService {
	factory := func(cfg *domain.Config) application.AssetLister { return lister }
	return application.NewConfigService(repo, application.NewJournalService(repo), factory)
}

func TestConfigure_NormalizesAndSaves(t *testing.T) {
	repo := &MockRepo{}
	svc := newConfigService(repo, &fakeLister{})

	saved, err := svc.Configure(domain.Config{
		OrganizationURL: "  https://dev.azure.com/contoso/  ",
		PAT:             " ado-secret ",
		GitHubToken:     "gh-secret",
	})
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if saved.OrganizationURL != "https://dev.azure.com/contoso" {
		t.Errorf("organization URL = %q, want trimmed form", saved.OrganizationURL)
	}
	if saved.PAT != "ado-secret" {
		t.Errorf("PAT = %q, want trimmed form", saved.PAT)
	}
	if repo.Config == nil {
		t.Fatal("config not saved")
	}
	if !contains(repo.Actions(), domain.ActionConfigure) {
		t.Error("configure missing from journal")
	}
	for _, e := range repo.Events {
		for _, v := range e.Metadata {
			if v == "ado-secret" || v == "gh-secret" {
				t.Error("journal metadata must not carry secrets")
			}
		}
	}
}

func TestConfigure_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  domain.Config
	}{
		{"missing URL", domain.Config{PAT: "x"}},
		{"missing PAT", domain.Config{OrganizationURL: "https://dev.azure.com/contoso"}},
		{"bad scheme", domain.Config{OrganizationURL: "ftp://dev.azure.com/contoso", PAT: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockRepo{}
			svc := newConfigService(repo, &fakeLister{})

			if _, err := svc.Configure(tt.cfg); err == nil {
				t.Fatal("expected a validation error")
			}
			if repo.Config != nil {
				t.Error("invalid config must not be saved")
			}
		})
	}
}

func TestCurrent_NotFound(t *testing.T) {
	svc := newConfigService(&MockRepo{}, &fakeLister{})
	if _, err := svc.Current(); !errors.Is(err, domain.ErrConfigNotFound) {
		t.Fatalf("error = %v, want ErrConfigNotFound", err)
	}
}

func TestDelete_RemovesConfig(t *testing.T) {
	repo := &MockRepo{Config: &domain.Config{OrganizationURL: "https://dev.azure.com/contoso", PAT: "x"}}
	svc := newConfigService(repo, &fakeLister{})

	if err := svc.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if repo.Config != nil {
		t.Error("config still present after delete")
	}
	if !contains(repo.Actions(), domain.ActionConfigDelete) {
		t.Error("config.delete missing from journal")
	}
}

func TestTestConnection_CountsProjects(t *testing.T) {
	repo := &MockRepo{Config: &domain.Config{OrganizationURL: "https://dev.azure.com/contoso", PAT: "x"}}
	lister := &fakeLister{projects: []assessment.ProjectRef{{Name: "Payments"}, {Name: "Platform"}}}
	svc := newConfigService(repo, lister)

	status, err := svc.TestConnection(context.Background())
	if err != nil {
		t.Fatalf("TestConnection failed: %v", err)
	}
	if status.ProjectCount != 2 {
		t.Errorf("project count = %d, want 2", status.ProjectCount)
	}
	if status.OrganizationURL != "https://dev.azure.com/contoso" {
		t.Errorf("organization URL = %q", status.OrganizationURL)
	}
}

func TestTestConnection_NotConfigured(t *testing.T) {
	svc := newConfigService(&MockRepo{}, &fakeLister{})
	if _, err := svc.TestConnection(context.Background()); !errors.Is(err, application.ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
}

func TestTestConnection_Unreachable(t *testing.T) {
	repo := &MockRepo{Config: &domain.Config{OrganizationURL: "https://dev.azure.com/contoso", PAT: "x"}}
	lister := &fakeLister{projectsErr: errors.New("401 unauthorized")}
	svc := newConfigService(repo, lister)

	if _, err := svc.TestConnection(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}
