package application_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/goleak"

	"github.com/felixgeelhaar/shiplift/pkg/application"
	"github.com/felixgeelhaar/shiplift/pkg/domain"
	"github.com/felixgeelhaar/shiplift/pkg/domain/assessment"
	"github.com/felixgeelhaar/shiplift/pkg/domain/progress"
	"github.com/felixgeelhaar/shiplift/pkg/domain/scan"
)

func scanFixture() (*MockRepo, *fakeLister) {
	repo := &MockRepo{
		Config: &domain.Config{
			OrganizationURL: "https://dev.azure.com/contoso",
			PAT:             "ado-secret",
		},
	}
	lister := &fakeLister{
		projects: []assessment.ProjectRef{
			{Name: "Payments"},
			{Name: "Platform"},
		},
		repos: map[string][]assessment.Repository{
			"Payments": {
				{Project: "Payments", Name: "payments-api", Size: 1 << 20},
				{Project: "Payments", Name: "$/Payments", TFVC: true},
			},
			"Platform": {
				{Project: "Platform", Name: "platform-core", Size: 2 << 20},
			},
		},
		pipelines: map[string]assessment.PipelineSummary{
			"Payments": {DeclarativeCount: 2, LegacyReleaseCount: 1},
			"Platform": {DeclarativeCount: 1},
		},
		workItems: map[string]assessment.WorkItemSummary{
			"Payments": {Total: 120, ByType: map[string]int{"Bug": 40, "Task": 80}},
			"Platform": {Total: 30, ByType: map[string]int{"Task": 30}},
		},
	}
	return repo, lister
}

func newScanService(repo *MockRepo, lister *fakeLister) (*application.ScanService, *progress.Publisher) {
	publisher := progress.NewPublisher()
	factory := func(cfg *domain.Config) application.AssetLister { return lister }
	svc := application.NewScanService(repo, scan.NewTracker(), publisher, application.NewJournalService(repo), factory)
	return svc, publisher
}

func TestStartScan_CompletesAndStoresReport(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo, lister := scanFixture()
	svc, publisher := newScanService(repo, lister)

	if err := svc.StartScan(context.Background(), ""); err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}

	waitFor(t, func() bool { return svc.Status().Status == scan.StateCompleted })
	waitFor(t, func() bool { return contains(repo.Actions(), domain.ActionScanComplete) })

	report := repo.SavedReport()
	if report == nil {
		t.Fatal("expected a stored report")
	}
	if len(report.Projects) != 2 {
		t.Errorf("report projects = %d, want 2", len(report.Projects))
	}
	if report.Summary.TotalRepositories != 3 {
		t.Errorf("total repositories = %d, want 3", report.Summary.TotalRepositories)
	}
	if !report.Summary.Complexity.Overall.Rating.IsValid() {
		t.Errorf("overall rating %q not valid", report.Summary.Complexity.Overall.Rating)
	}

	snap := svc.Status()
	if snap.Percent != 100 {
		t.Errorf("percent = %d, want 100", snap.Percent)
	}
	if snap.ProjectsScanned != 2 {
		t.Errorf("projects scanned = %d, want 2", snap.ProjectsScanned)
	}

	event, ok := publisher.Latest(progress.KindScan)
	if !ok {
		t.Fatal("no scan event published")
	}
	payload, ok := event.Payload.(scan.Snapshot)
	if !ok {
		t.Fatalf("payload type %T, want scan.Snapshot", event.Payload)
	}
	if payload.Status != scan.StateCompleted {
		t.Errorf("published status = %v, want completed", payload.Status)
	}

	if !contains(repo.Actions(), domain.ActionScanStart) {
		t.Error("scan.start missing from journal")
	}
}

func TestStartScan_SecondStartRejected(t *testing.T) {
	repo, lister := scanFixture()
	lister.gate = make(chan struct{})
	svc, _ := newScanService(repo, lister)

	if err := svc.StartScan(context.Background(), ""); err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	waitFor(t, func() bool { return svc.Status().Status.IsActive() })

	before := svc.Status()
	if err := svc.StartScan(context.Background(), ""); !errors.Is(err, application.ErrScanInProgress) {
		t.Fatalf("second start error = %v, want ErrScanInProgress", err)
	}
	if after := svc.Status(); after != before {
		t.Errorf("rejected start changed progress: %+v -> %+v", before, after)
	}

	close(lister.gate)
	waitFor(t, func() bool { return svc.Status().Status.IsTerminal() })
}

func TestStartScan_NotConfigured(t *testing.T) {
	repo := &MockRepo{}
	svc, _ := newScanService(repo, &fakeLister{})

	err := svc.StartScan(context.Background(), "")
	if !errors.Is(err, application.ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
	if got := svc.Status().Status; got != scan.StateNotStarted {
		t.Errorf("status = %v, want not_started", got)
	}
}

func TestStartScan_UnknownProjectFilter(t *testing.T) {
	repo, lister := scanFixture()
	svc, _ := newScanService(repo, lister)

	err := svc.StartScan(context.Background(), "Ghost")
	var unknownErr *application.UnknownProjectError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("error = %v, want UnknownProjectError", err)
	}
	if unknownErr.Name != "Ghost" {
		t.Errorf("Name = %q, want Ghost", unknownErr.Name)
	}
	if got := svc.Status().Status; got != scan.StateNotStarted {
		t.Errorf("status after rejection = %v, want not_started", got)
	}

	// The slot is free again: a valid filtered start runs to completion.
	if err := svc.StartScan(context.Background(), "Payments"); err != nil {
		t.Fatalf("filtered StartScan failed: %v", err)
	}
	waitFor(t, func() bool { return svc.Status().Status == scan.StateCompleted })

	report := repo.SavedReport()
	if report == nil {
		t.Fatal("expected a stored report")
	}
	if len(report.Projects) != 1 || report.Projects[0].Name != "Payments" {
		t.Errorf("filtered report projects = %+v, want only Payments", report.Projects)
	}
}

func TestStartScan_ProjectListFailure(t *testing.T) {
	repo, lister := scanFixture()
	lister.projectsErr = errors.New("401 unauthorized")
	svc, _ := newScanService(repo, lister)

	if err := svc.StartScan(context.Background(), ""); err == nil {
		t.Fatal("expected an error")
	}
	if got := svc.Status().Status; got != scan.StateNotStarted {
		t.Errorf("status = %v, want not_started", got)
	}

	// The failed validation released the slot.
	lister.projectsErr = nil
	if err := svc.StartScan(context.Background(), ""); err != nil {
		t.Fatalf("retry StartScan failed: %v", err)
	}
	waitFor(t, func() bool { return svc.Status().Status.IsTerminal() })
}

func TestStartScan_ListingFailureFailsScan(t *testing.T) {
	defer goleak.VerifyNone(t)

	repo, lister := scanFixture()
	lister.reposErr = map[string]error{"Platform": errors.New("503 service unavailable")}
	svc, _ := newScanService(repo, lister)

	if err := svc.StartScan(context.Background(), ""); err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	waitFor(t, func() bool { return svc.Status().Status == scan.StateFailed })
	waitFor(t, func() bool { return contains(repo.Actions(), domain.ActionScanFail) })

	snap := svc.Status()
	if snap.Error == "" {
		t.Error("expected a failure message")
	}
	if repo.SavedReport() != nil {
		t.Error("failed scan must not store a report")
	}
}

func TestScanService_ResultsWithoutScan(t *testing.T) {
	repo := &MockRepo{}
	svc, _ := newScanService(repo, &fakeLister{})

	if _, err := svc.Results(); !errors.Is(err, domain.ErrReportNotFound) {
		t.Fatalf("Results error = %v, want ErrReportNotFound", err)
	}
}
