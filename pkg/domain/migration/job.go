package migration

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/shiplift/pkg/domain/assessment"
	"github.com/google/uuid"
)

// Visibility is the target repository visibility on the destination platform.
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityInternal Visibility = "internal"
	VisibilityPublic   Visibility = "public"
)

// IsValid returns true if the visibility is one of the accepted values.
func (v Visibility) IsValid() bool {
	switch v {
	case VisibilityPrivate, VisibilityInternal, VisibilityPublic:
		return true
	default:
		return false
	}
}

// String returns the string representation of the visibility.
func (v Visibility) String() string {
	return string(v)
}

// InvalidVisibilityError rejects a visibility outside the accepted set.
type InvalidVisibilityError struct {
	Value string
}

func (e *InvalidVisibilityError) Error() string {
	return fmt.Sprintf("invalid visibility %q (want private, internal, or public)", e.Value)
}

// ParseVisibility parses a string into a Visibility. Empty input defaults
// to private.
func ParseVisibility(s string) (Visibility, error) {
	if s == "" {
		return VisibilityPrivate, nil
	}
	v := Visibility(s)
	if !v.IsValid() {
		return "", &InvalidVisibilityError{Value: s}
	}
	return v, nil
}

// UnknownRepoError rejects a batch naming a repository the current report
// does not contain.
type UnknownRepoError struct {
	Name string
}

func (e *UnknownRepoError) Error() string {
	return fmt.Sprintf("repository %q not found in the current scan report", e.Name)
}

// Job is one repository's transfer attempt. Jobs are created pending and move
// strictly forward; a failed repository needs a fresh batch, never a retry of
// the same job.
type Job struct {
	ID         string                `json:"id" yaml:"id"`
	Repository assessment.Repository `json:"repository" yaml:"repository"`
	TargetOrg  string                `json:"target_org" yaml:"target_org"`
	Visibility Visibility            `json:"visibility" yaml:"visibility"`
	Status     Status                `json:"status" yaml:"status"`
	Progress   int                   `json:"progress" yaml:"progress"`
	Message    string                `json:"message,omitempty" yaml:"message,omitempty"`
	Error      string                `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  *time.Time            `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	FinishedAt *time.Time            `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// NewJob creates a pending job for the given repository.
func NewJob(repo assessment.Repository, targetOrg string, visibility Visibility) *Job {
	return &Job{
		ID:         uuid.New().String(),
		Repository: repo,
		TargetOrg:  targetOrg,
		Visibility: visibility,
		Status:     StatusPending,
		Message:    "Waiting to start",
	}
}

// Transition moves the job with the given event, enforcing the FSM ordering.
func (j *Job) Transition(event string) error {
	fsm, err := NewJobFSM(j.Status, j.ID)
	if err != nil {
		return err
	}
	if err := fsm.Transition(event); err != nil {
		return err
	}
	j.Status = fsm.CurrentStatus()
	return nil
}

// Start marks the job as in progress.
func (j *Job) Start() error {
	if err := j.Transition(EventStart); err != nil {
		return err
	}
	now := time.Now().UTC()
	j.StartedAt = &now
	j.Message = "Starting migration..."
	return nil
}

// Complete marks the job as successfully finished.
func (j *Job) Complete() error {
	if err := j.Transition(EventComplete); err != nil {
		return err
	}
	now := time.Now().UTC()
	j.FinishedAt = &now
	j.Progress = 100
	j.Message = "Migration completed"
	j.Error = ""
	return nil
}

// Fail marks the job as failed with the captured detail.
func (j *Job) Fail(detail string) error {
	if err := j.Transition(EventFail); err != nil {
		return err
	}
	now := time.Now().UTC()
	j.FinishedAt = &now
	j.Message = "Migration failed"
	j.Error = detail
	return nil
}

// SetProgress records a progress signal from the transfer tool. Progress is
// clamped to [0,100] and never moves backwards.
func (j *Job) SetProgress(percent int, message string) {
	if percent > j.Progress {
		j.Progress = min(percent, 100)
	}
	if message != "" {
		j.Message = message
	}
}
