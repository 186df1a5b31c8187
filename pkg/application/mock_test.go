package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/shiplift/pkg/domain"
	"github.com/felixgeelhaar/shiplift/pkg/domain/assessment"
	"github.com/felixgeelhaar/shiplift/pkg/infrastructure/gei"
	"github.com/felixgeelhaar/shiplift/pkg/infrastructure/github"
)

// MockRepo is an in-memory WorkspaceRepository and AuditRepository. Canned
// fields seed state; error fields force failures. Services touch the repo
// from background goroutines, so every method holds the lock.
type MockRepo struct {
	mu          sync.Mutex
	Config      *domain.Config
	Report      *assessment.Report
	Events      []domain.Event
	Initialized bool
	SaveError   error
	LoadError   error
}

func (m *MockRepo) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Initialized = true
	return nil
}

func (m *MockRepo) IsInitialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Initialized
}

func (m *MockRepo) SaveConfig(cfg *domain.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	m.Config = cfg
	return nil
}

func (m *MockRepo) LoadConfig() (*domain.Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	if m.Config == nil {
		return nil, domain.ErrConfigNotFound
	}
	return m.Config, nil
}

func (m *MockRepo) DeleteConfig() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	m.Config = nil
	return nil
}

func (m *MockRepo) SaveReport(report *assessment.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	m.Report = report
	return nil
}

func (m *MockRepo) LoadReport() (*assessment.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	if m.Report == nil {
		return nil, domain.ErrReportNotFound
	}
	return m.Report, nil
}

func (m *MockRepo) HasReport() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Report != nil
}

func (m *MockRepo) RecordEvent(event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockRepo) LoadEvents() ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	return append([]domain.Event(nil), m.Events...), nil
}

func (m *MockRepo) VerifyJournal() ([]string, error) {
	return nil, nil
}

// Actions returns the recorded journal actions in order.
func (m *MockRepo) Actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		actions = append(actions, e.Action)
	}
	return actions
}

// SavedReport returns the report a background scan stored, if any.
func (m *MockRepo) SavedReport() *assessment.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Report
}

// fakeLister serves canned organization assets. An optional gate blocks
// repository listings until released, holding a scan mid-flight.
type fakeLister struct {
	mu        sync.Mutex
	projects  []assessment.ProjectRef
	repos     map[string][]assessment.Repository
	pipelines map[string]assessment.PipelineSummary
	workItems map[string]assessment.WorkItemSummary

	projectsErr error
	reposErr    map[string]error

	gate  chan struct{}
	calls []string
}

func (f *fakeLister) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeLister) ListProjects(ctx context.Context) ([]assessment.ProjectRef, error) {
	f.record("projects")
	if f.projectsErr != nil {
		return nil, f.projectsErr
	}
	return f.projects, nil
}

func (f *fakeLister) ListRepositories(ctx context.Context, project string) ([]assessment.Repository, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.record("repos:" + project)
	if err := f.reposErr[project]; err != nil {
		return nil, err
	}
	return f.repos[project], nil
}

func (f *fakeLister) ListPipelines(ctx context.Context, project string) (assessment.PipelineSummary, error) {
	f.record("pipelines:" + project)
	return f.pipelines[project], nil
}

func (f *fakeLister) ListWorkItems(ctx context.Context, project string) (assessment.WorkItemSummary, error) {
	f.record("workitems:" + project)
	return f.workItems[project], nil
}

// fakeMigrator records requests and fails the repositories it is told to.
// An optional gate blocks every transfer until released.
type fakeMigrator struct {
	mu       sync.Mutex
	requests []gei.MigrateRequest
	errs     map[string]error
	gate     chan struct{}
}

func (f *fakeMigrator) Migrate(ctx context.Context, req gei.MigrateRequest, progress gei.ProgressFunc) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	err := f.errs[req.ADORepo]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if progress != nil {
		progress(60, "Migration in progress")
	}
	return nil
}

func (f *fakeMigrator) Requests() []gei.MigrateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gei.MigrateRequest(nil), f.requests...)
}

// fakeChecker answers destination preflights with a canned identity.
type fakeChecker struct {
	mu     sync.Mutex
	err    error
	orgs   []string
	tokens []string
}

func (f *fakeChecker) Check(ctx context.Context, org string) (*github.Result, error) {
	f.mu.Lock()
	f.orgs = append(f.orgs, org)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &github.Result{Login: "octocat", Org: org}, nil
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
