package migration

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/shiplift/pkg/domain/assessment"
	"github.com/google/uuid"
)

// ErrNoRepositories rejects a batch with an empty repository selection.
var ErrNoRepositories = errors.New("no repositories selected")

// ErrNoTargetOrg rejects a batch without a destination organization.
var ErrNoTargetOrg = errors.New("target organization is required")

// BatchState is the aggregate condition of a batch, derived from its jobs.
type BatchState string

const (
	BatchStarting  BatchState = "starting"
	BatchRunning   BatchState = "running"
	BatchCompleted BatchState = "completed"
	BatchFailed    BatchState = "failed"
)

// String returns the string representation of the batch state.
func (s BatchState) String() string {
	return string(s)
}

// Batch groups the jobs of one migration request. The batch itself carries no
// state machine; its condition is always derived from the jobs it contains.
type Batch struct {
	ID         string     `json:"id" yaml:"id"`
	TargetOrg  string     `json:"target_org" yaml:"target_org"`
	Visibility Visibility `json:"visibility" yaml:"visibility"`
	Jobs       []*Job     `json:"jobs" yaml:"jobs"`
	StartedAt  time.Time  `json:"started_at" yaml:"started_at"`
}

// NewBatch creates a batch with one pending job per requested repository.
// Every name must resolve against the report; an unknown name rejects the
// whole batch before any job is created.
func NewBatch(report *assessment.Report, names []string, targetOrg string, visibility Visibility) (*Batch, error) {
	if report == nil {
		return nil, fmt.Errorf("no scan report available")
	}
	if len(names) == 0 {
		return nil, ErrNoRepositories
	}
	if targetOrg == "" {
		return nil, ErrNoTargetOrg
	}
	if !visibility.IsValid() {
		return nil, &InvalidVisibilityError{Value: string(visibility)}
	}

	jobs := make([]*Job, 0, len(names))
	for _, name := range names {
		repo, ok := report.FindRepository(name)
		if !ok {
			return nil, &UnknownRepoError{Name: name}
		}
		jobs = append(jobs, NewJob(repo, targetOrg, visibility))
	}

	return &Batch{
		ID:         uuid.New().String(),
		TargetOrg:  targetOrg,
		Visibility: visibility,
		Jobs:       jobs,
		StartedAt:  time.Now().UTC(),
	}, nil
}

// AggregateState derives the batch condition from its jobs. A single failed
// job fails the whole batch even when every other job completed.
func (b *Batch) AggregateState() BatchState {
	anyFailed := false
	anyStarted := false
	allCompleted := len(b.Jobs) > 0

	for _, job := range b.Jobs {
		switch job.Status {
		case StatusFailed:
			anyFailed = true
			allCompleted = false
		case StatusCompleted:
			anyStarted = true
		case StatusInProgress:
			anyStarted = true
			allCompleted = false
		default:
			allCompleted = false
		}
	}

	switch {
	case anyFailed:
		return BatchFailed
	case allCompleted:
		return BatchCompleted
	case anyStarted:
		return BatchRunning
	default:
		return BatchStarting
	}
}

// Done reports whether every job has reached a terminal status.
func (b *Batch) Done() bool {
	for _, job := range b.Jobs {
		if !job.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// JobSnapshot is the externally visible view of one job.
type JobSnapshot struct {
	Status   Status `json:"status" yaml:"status"`
	Progress int    `json:"progress" yaml:"progress"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Snapshot is a point-in-time copy of a batch, safe to hand to readers while
// the jobs keep moving.
type Snapshot struct {
	BatchID   string                 `json:"batch_id" yaml:"batch_id"`
	Status    BatchState             `json:"status" yaml:"status"`
	TargetOrg string                 `json:"target_org" yaml:"target_org"`
	Repos     map[string]JobSnapshot `json:"repos" yaml:"repos"`
}

// Snapshot copies the batch's current condition. The returned value shares no
// memory with the live jobs.
func (b *Batch) Snapshot() Snapshot {
	repos := make(map[string]JobSnapshot, len(b.Jobs))
	for _, job := range b.Jobs {
		repos[job.Repository.Name] = JobSnapshot{
			Status:   job.Status,
			Progress: job.Progress,
			Message:  job.Message,
			Error:    job.Error,
		}
	}
	return Snapshot{
		BatchID:   b.ID,
		Status:    b.AggregateState(),
		TargetOrg: b.TargetOrg,
		Repos:     repos,
	}
}
