package application_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/goleak"

	"github.com/felixgeelhaar/shiplift/pkg/application"
	"github.com/felixgeelhaar/shiplift/pkg/domain"
	"github.com/felixgeelhaar/shiplift/pkg/domain/assessment"
	"github.com/felixgeelhaar/shiplift/pkg/domain/migration"
	"github.com/felixgeelhaar/shiplift/pkg/domain/progress"
	"github.com/felixgeelhaar/shiplift/pkg/infrastructure/gei"
	"github.com/felixgeelhaar/shiplift/pkg/infrastructure/github"
)

func migrationFixture() *MockRepo {
	repos := []assessment.Repository{
		{Project: "Payments", Name: "alpha", Size: 1 << 20},
		{Project: "Payments", Name: "beta", Size: 2 << 20},
		{Project: "Platform", Name: "gamma", Size: 3 << 20},
	}
	projects := []assessment.Project{
		{Name: "Payments", Repositories: assessment.NewRepositorySummary(repos[:2])},
		{Name: "Platform", Repositories: assessment.NewRepositorySummary(repos[2:])},
	}
	return &MockRepo{
		Config: &domain.Config{
			OrganizationURL: "https://dev.azure.com/contoso",
			PAT:             "ado-secret",
			GitHubToken:     "gh-secret",
			GitHubOrg:       "contoso-gh",
		},
		Report: assessment.NewReport("https://dev.azure.com/contoso", projects),
	}
}

func newMigrationService(repo *MockRepo, migrator *fakeMigrator, checker *fakeChecker) (*application.MigrationService, *progress.Publisher) {
	publisher := progress.NewPublisher()
	var factory application.CheckerFactory
	if checker != nil {
		factory = func(token string) application.TargetChecker {
			checker.mu.Lock()
			checker.tokens = append(checker.tokens, token)
			checker.mu.Unlock()
			return checker
		}
	}
	svc := application.NewMigrationService(repo, publisher, application.NewJournalService(repo), migrator, factory)
	return svc, publisher
}

func waitForBatchDone(t *testing.T, repo *MockRepo) {
	t.Helper()
	waitFor(t, func() bool { return contains(repo.Actions(), domain.ActionMigrateFinish) })
}

func TestStartMigration_FailureIsolation(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := migrationFixture()
	migrator := &fakeMigrator{
		errs: map[string]error{"beta": &gei.ToolError{ExitCode: 1, Detail: "source repository is locked"}},
	}
	svc, _ := newMigrationService(repo, migrator, &fakeChecker{})

	snap, err := svc.StartMigration(context.Background(), application.MigrationRequest{
		Repositories: []string{"alpha", "beta", "gamma"},
		TargetOrg:    "contoso-gh",
	})
	if err != nil {
		t.Fatalf("StartMigration failed: %v", err)
	}
	if snap.Status != migration.BatchStarting {
		t.Errorf("initial status = %v, want starting", snap.Status)
	}

	waitForBatchDone(t, repo)

	final := svc.Status()
	if final == nil {
		t.Fatal("expected a batch snapshot")
	}
	if final.Status != migration.BatchFailed {
		t.Errorf("batch status = %v, want failed", final.Status)
	}
	for _, name := range []string{"alpha", "gamma"} {
		job := final.Repos[name]
		if job.Status != migration.StatusCompleted {
			t.Errorf("%s status = %v, want completed", name, job.Status)
		}
		if job.Progress != 100 {
			t.Errorf("%s progress = %d, want 100", name, job.Progress)
		}
	}
	beta := final.Repos["beta"]
	if beta.Status != migration.StatusFailed {
		t.Errorf("beta status = %v, want failed", beta.Status)
	}
	if beta.Error != "source repository is locked" {
		t.Errorf("beta error = %q", beta.Error)
	}
}

func TestStartMigration_RequestFields(t *testing.T) {
	repo := migrationFixture()
	migrator := &fakeMigrator{}
	svc, _ := newMigrationService(repo, migrator, &fakeChecker{})

	if _, err := svc.StartMigration(context.Background(), application.MigrationRequest{
		Repositories: []string{"alpha"},
		TargetOrg:    "contoso-gh",
		Visibility:   "internal",
	}); err != nil {
		t.Fatalf("StartMigration failed: %v", err)
	}
	waitForBatchDone(t, repo)

	requests := migrator.Requests()
	if len(requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(requests))
	}
	got := requests[0]
	want := gei.MigrateRequest{
		ADOOrg:      "contoso",
		ADOProject:  "Payments",
		ADORepo:     "alpha",
		GitHubOrg:   "contoso-gh",
		GitHubRepo:  "alpha",
		ADOPAT:      "ado-secret",
		GitHubToken: "gh-secret",
		Visibility:  "internal",
	}
	if got != want {
		t.Errorf("request = %+v, want %+v", got, want)
	}
}

func TestStartMigration_DefaultVisibilityPrivate(t *testing.T) {
	repo := migrationFixture()
	migrator := &fakeMigrator{}
	svc, _ := newMigrationService(repo, migrator, &fakeChecker{})

	if _, err := svc.StartMigration(context.Background(), application.MigrationRequest{
		Repositories: []string{"alpha"},
		TargetOrg:    "contoso-gh",
	}); err != nil {
		t.Fatalf("StartMigration failed: %v", err)
	}
	waitForBatchDone(t, repo)

	if got := migrator.Requests()[0].Visibility; got != "private" {
		t.Errorf("visibility = %q, want private", got)
	}
}

func TestStartMigration_SecondStartRejected(t *testing.T) {
	repo := migrationFixture()
	migrator := &fakeMigrator{gate: make(chan struct{})}
	svc, _ := newMigrationService(repo, migrator, &fakeChecker{})

	if _, err := svc.StartMigration(context.Background(), application.MigrationRequest{
		Repositories: []string{"alpha"},
		TargetOrg:    "contoso-gh",
	}); err != nil {
		t.Fatalf("StartMigration failed: %v", err)
	}

	_, err := svc.StartMigration(context.Background(), application.MigrationRequest{
		Repositories: []string{"beta"},
		TargetOrg:    "contoso-gh",
	})
	if !errors.Is(err, application.ErrMigrationInProgress) {
		t.Fatalf("second start error = %v, want ErrMigrationInProgress", err)
	}

	close(migrator.gate)
	waitForBatchDone(t, repo)
}

func TestStartMigration_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*MockRepo)
		request application.MigrationRequest
		wantErr error
	}{
		{
			name:    "no config",
			mutate:  func(m *MockRepo) { m.Config = nil },
			request: application.MigrationRequest{Repositories: []string{"alpha"}, TargetOrg: "contoso-gh"},
			wantErr: application.ErrNotConfigured,
		},
		{
			name:    "no github token",
			mutate:  func(m *MockRepo) { m.Config.GitHubToken = "" },
			request: application.MigrationRequest{Repositories: []string{"alpha"}, TargetOrg: "contoso-gh"},
			wantErr: application.ErrGitHubNotConfigured,
		},
		{
			name:    "no report",
			mutate:  func(m *MockRepo) { m.Report = nil },
			request: application.MigrationRequest{Repositories: []string{"alpha"}, TargetOrg: "contoso-gh"},
			wantErr: application.ErrNoReport,
		},
		{
			name:    "no repositories",
			mutate:  func(m *MockRepo) {},
			request: application.MigrationRequest{TargetOrg: "contoso-gh"},
			wantErr: migration.ErrNoRepositories,
		},
		{
			name:    "no target org anywhere",
			mutate:  func(m *MockRepo) { m.Config.GitHubOrg = "" },
			request: application.MigrationRequest{Repositories: []string{"alpha"}},
			wantErr: migration.ErrNoTargetOrg,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := migrationFixture()
			tt.mutate(repo)
			svc, _ := newMigrationService(repo, &fakeMigrator{}, &fakeChecker{})

			_, err := svc.StartMigration(context.Background(), tt.request)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if svc.Status() != nil {
				t.Error("rejected start must not install a batch")
			}
		})
	}
}

func TestStartMigration_UnknownRepository(t *testing.T) {
	repo := migrationFixture()
	svc, _ := newMigrationService(repo, &fakeMigrator{}, &fakeChecker{})

	_, err := svc.StartMigration(context.Background(), application.MigrationRequest{
		Repositories: []string{"alpha", "ghost"},
		TargetOrg:    "contoso-gh",
	})
	var unknownErr *migration.UnknownRepoError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("error = %v, want UnknownRepoError", err)
	}
	if unknownErr.Name != "ghost" {
		t.Errorf("Name = %q, want ghost", unknownErr.Name)
	}
	if svc.Status() != nil {
		t.Error("rejected start must not install a batch")
	}

	// The slot is free again after the rejection.
	if _, err := svc.StartMigration(context.Background(), application.MigrationRequest{
		Repositories: []string{"alpha"},
		TargetOrg:    "contoso-gh",
	}); err != nil {
		t.Fatalf("retry StartMigration failed: %v", err)
	}
	waitForBatchDone(t, repo)
}

func TestStartMigration_PreflightFailure(t *testing.T) {
	repo := migrationFixture()
	checker := &fakeChecker{err: &github.CredentialsError{}}
	svc, _ := newMigrationService(repo, &fakeMigrator{}, checker)

	_, err := svc.StartMigration(context.Background(), application.MigrationRequest{
		Repositories: []string{"alpha"},
		TargetOrg:    "contoso-gh",
	})
	var credErr *github.CredentialsError
	if !errors.As(err, &credErr) {
		t.Fatalf("error = %v, want CredentialsError", err)
	}
	if svc.Status() != nil {
		t.Error("failed preflight must not install a batch")
	}
	if len(checker.tokens) != 1 || checker.tokens[0] != "gh-secret" {
		t.Errorf("checker tokens = %v, want the configured github token", checker.tokens)
	}
	if len(checker.orgs) != 1 || checker.orgs[0] != "contoso-gh" {
		t.Errorf("checker orgs = %v, want [contoso-gh]", checker.orgs)
	}
}

func TestStartMigration_TargetOrgFallsBackToConfig(t *testing.T) {
	repo := migrationFixture()
	checker := &fakeChecker{}
	svc, _ := newMigrationService(repo, &fakeMigrator{}, checker)

	snap, err := svc.StartMigration(context.Background(), application.MigrationRequest{
		Repositories: []string{"alpha"},
	})
	if err != nil {
		t.Fatalf("StartMigration failed: %v", err)
	}
	if snap.TargetOrg != "contoso-gh" {
		t.Errorf("target org = %q, want contoso-gh from config", snap.TargetOrg)
	}
	waitForBatchDone(t, repo)
}

func TestStartMigration_ProgressPublished(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo := migrationFixture()
	svc, publisher := newMigrationService(repo, &fakeMigrator{}, &fakeChecker{})

	if _, err := svc.StartMigration(context.Background(), application.MigrationRequest{
		Repositories: []string{"alpha"},
		TargetOrg:    "contoso-gh",
	}); err != nil {
		t.Fatalf("StartMigration failed: %v", err)
	}
	waitForBatchDone(t, repo)

	event, ok := publisher.Latest(progress.KindMigration)
	if !ok {
		t.Fatal("no migration event published")
	}
	payload, ok := event.Payload.(migration.Snapshot)
	if !ok {
		t.Fatalf("payload type %T, want migration.Snapshot", event.Payload)
	}
	if payload.Repos["alpha"].Status != migration.StatusCompleted {
		t.Errorf("published alpha status = %v, want completed", payload.Repos["alpha"].Status)
	}
}

func TestMigrationService_StatusBeforeAnyBatch(t *testing.T) {
	svc, _ := newMigrationService(migrationFixture(), &fakeMigrator{}, &fakeChecker{})
	if svc.Status() != nil {
		t.Error("status before any batch should be nil")
	}
}
