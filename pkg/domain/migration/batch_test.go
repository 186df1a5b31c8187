package migration

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/shiplift/pkg/domain/assessment"
)

func testReport() *assessment.Report {
	projects := []assessment.Project{
		{
			Name: "Payments",
			Repositories: assessment.NewRepositorySummary([]assessment.Repository{
				{Project: "Payments", Name: "payments-api", ID: "r1"},
				{Project: "Payments", Name: "payments-web", ID: "r2"},
			}),
		},
		{
			Name: "Platform",
			Repositories: assessment.NewRepositorySummary([]assessment.Repository{
				{Project: "Platform", Name: "infra", ID: "r3"},
			}),
		},
	}
	return assessment.NewReport("https://dev.azure.com/contoso", projects)
}

func TestNewBatch(t *testing.T) {
	report := testReport()

	batch, err := NewBatch(report, []string{"payments-api", "infra"}, "contoso-gh", VisibilityPrivate)
	if err != nil {
		t.Fatalf("NewBatch failed: %v", err)
	}

	if batch.ID == "" {
		t.Error("Batch ID should be set")
	}
	if batch.TargetOrg != "contoso-gh" {
		t.Errorf("TargetOrg = %s, want contoso-gh", batch.TargetOrg)
	}
	if len(batch.Jobs) != 2 {
		t.Fatalf("len(Jobs) = %d, want 2", len(batch.Jobs))
	}
	if batch.StartedAt.IsZero() {
		t.Error("StartedAt should be set")
	}

	for _, job := range batch.Jobs {
		if job.Status != StatusPending {
			t.Errorf("Job %s status = %s, want pending", job.Repository.Name, job.Status)
		}
		if job.Message != "Waiting to start" {
			t.Errorf("Job %s message = %q", job.Repository.Name, job.Message)
		}
		if job.ID == "" {
			t.Error("Job ID should be set")
		}
	}
	if batch.Jobs[0].Repository.Name != "payments-api" {
		t.Errorf("Jobs[0] = %s, want payments-api", batch.Jobs[0].Repository.Name)
	}
}

func TestNewBatch_UnknownRepo(t *testing.T) {
	report := testReport()

	_, err := NewBatch(report, []string{"payments-api", "does-not-exist"}, "contoso-gh", VisibilityPrivate)
	if err == nil {
		t.Fatal("Expected error for unknown repository")
	}

	var unknownErr *UnknownRepoError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("Expected *UnknownRepoError, got %T", err)
	}
	if unknownErr.Name != "does-not-exist" {
		t.Errorf("UnknownRepoError.Name = %s, want does-not-exist", unknownErr.Name)
	}
}

func TestNewBatch_Validation(t *testing.T) {
	report := testReport()

	tests := []struct {
		name       string
		report     *assessment.Report
		repos      []string
		targetOrg  string
		visibility Visibility
		wantErr    error
	}{
		{"nil report", nil, []string{"infra"}, "org", VisibilityPrivate, nil},
		{"no repos", report, nil, "org", VisibilityPrivate, ErrNoRepositories},
		{"empty target org", report, []string{"infra"}, "", VisibilityPrivate, ErrNoTargetOrg},
		{"bad visibility", report, []string{"infra"}, "org", Visibility("secret"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBatch(tt.report, tt.repos, tt.targetOrg, tt.visibility)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBatch_AggregateState(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		expected BatchState
	}{
		{"all pending", []Status{StatusPending, StatusPending}, BatchStarting},
		{"one running", []Status{StatusPending, StatusInProgress}, BatchRunning},
		{"partially completed", []Status{StatusCompleted, StatusPending}, BatchRunning},
		{"all completed", []Status{StatusCompleted, StatusCompleted}, BatchCompleted},
		{"one failed among completed", []Status{StatusCompleted, StatusFailed, StatusCompleted}, BatchFailed},
		{"failed while others still run", []Status{StatusInProgress, StatusFailed}, BatchFailed},
		{"single failed", []Status{StatusFailed}, BatchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := &Batch{Jobs: make([]*Job, len(tt.statuses))}
			for i, s := range tt.statuses {
				batch.Jobs[i] = &Job{Status: s, Repository: assessment.Repository{Name: "r"}}
			}
			if got := batch.AggregateState(); got != tt.expected {
				t.Errorf("AggregateState() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestBatch_Done(t *testing.T) {
	batch := &Batch{Jobs: []*Job{
		{Status: StatusCompleted},
		{Status: StatusInProgress},
	}}
	if batch.Done() {
		t.Error("Batch with a running job should not be done")
	}

	batch.Jobs[1].Status = StatusFailed
	if !batch.Done() {
		t.Error("Batch with only terminal jobs should be done")
	}
}

func TestBatch_Snapshot(t *testing.T) {
	report := testReport()
	batch, err := NewBatch(report, []string{"payments-api", "infra"}, "contoso-gh", VisibilityPrivate)
	if err != nil {
		t.Fatalf("NewBatch failed: %v", err)
	}

	if err := batch.Jobs[0].Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	batch.Jobs[0].SetProgress(60, "Migration in progress")

	snap := batch.Snapshot()
	if snap.BatchID != batch.ID {
		t.Errorf("BatchID = %s, want %s", snap.BatchID, batch.ID)
	}
	if snap.Status != BatchRunning {
		t.Errorf("Status = %s, want running", snap.Status)
	}
	if len(snap.Repos) != 2 {
		t.Fatalf("len(Repos) = %d, want 2", len(snap.Repos))
	}

	entry, ok := snap.Repos["payments-api"]
	if !ok {
		t.Fatal("Snapshot missing payments-api")
	}
	if entry.Status != StatusInProgress || entry.Progress != 60 {
		t.Errorf("payments-api = %+v", entry)
	}

	// The snapshot must not track later changes.
	if err := batch.Jobs[0].Complete(); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if snap.Repos["payments-api"].Status != StatusInProgress {
		t.Error("Snapshot changed after job moved on")
	}
}

func TestJob_Lifecycle(t *testing.T) {
	repo := assessment.Repository{Project: "Payments", Name: "payments-api", ID: "r1"}
	job := NewJob(repo, "contoso-gh", VisibilityInternal)

	if job.Status != StatusPending {
		t.Errorf("New job status = %s, want pending", job.Status)
	}

	if err := job.Complete(); err == nil {
		t.Error("Pending job must not complete directly")
	}

	if err := job.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if job.Status != StatusInProgress {
		t.Errorf("Status = %s, want in_progress", job.Status)
	}

	job.SetProgress(25, "Repository migration started")
	job.SetProgress(10, "stale signal")
	if job.Progress != 25 {
		t.Errorf("Progress = %d, regressed below 25", job.Progress)
	}
	if job.Message != "stale signal" {
		t.Errorf("Message = %q, want latest message", job.Message)
	}
	job.SetProgress(250, "")
	if job.Progress != 100 {
		t.Errorf("Progress = %d, want clamp to 100", job.Progress)
	}

	if err := job.Complete(); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if job.Status != StatusCompleted || job.Progress != 100 {
		t.Errorf("Completed job = %s/%d", job.Status, job.Progress)
	}

	if err := job.Fail("too late"); err == nil {
		t.Error("Completed job must not fail afterwards")
	}
}

func TestJob_Fail(t *testing.T) {
	repo := assessment.Repository{Project: "Payments", Name: "payments-api", ID: "r1"}
	job := NewJob(repo, "contoso-gh", VisibilityPrivate)

	if err := job.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := job.Fail("gh ado2gh exited with code 1: repo locked"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	if job.Status != StatusFailed {
		t.Errorf("Status = %s, want failed", job.Status)
	}
	if job.Error == "" {
		t.Error("Failed job should carry the error detail")
	}
}

func TestParseVisibility(t *testing.T) {
	tests := []struct {
		input     string
		expected  Visibility
		shouldErr bool
	}{
		{"private", VisibilityPrivate, false},
		{"internal", VisibilityInternal, false},
		{"public", VisibilityPublic, false},
		{"", VisibilityPrivate, false},
		{"secret", Visibility(""), true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVisibility(tt.input)
			if tt.shouldErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				if got != tt.expected {
					t.Errorf("ParseVisibility() = %v, want %v", got, tt.expected)
				}
			}
		})
	}
}
