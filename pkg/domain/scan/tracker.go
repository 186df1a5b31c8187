package scan

import (
	"fmt"
	"sync"
)

// Snapshot is one published view of scan progress. Within a running scan,
// ProjectsScanned never decreases and Percent tracks scanned/total.
type Snapshot struct {
	Status          State  `json:"status" yaml:"status"`
	Percent         int    `json:"percent" yaml:"percent"`
	ProjectsScanned int    `json:"projects_scanned" yaml:"projects_scanned"`
	TotalProjects   int    `json:"total_projects" yaml:"total_projects"`
	CurrentProject  string `json:"current_project,omitempty" yaml:"current_project,omitempty"`
	Error           string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Tracker holds the process-wide scan progress behind a lock. All mutations
// go through lifecycle methods so state moves stay valid and monotonic.
type Tracker struct {
	mu      sync.RWMutex
	current Snapshot
}

// NewTracker returns a tracker in the not_started state.
func NewTracker() *Tracker {
	return &Tracker{current: Snapshot{Status: StateNotStarted}}
}

// Snapshot returns a copy of the current progress.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Begin claims a fresh run: resets counters and moves to starting.
func (t *Tracker) Begin(totalProjects int) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.current.Status.CanTransitionTo(StateStarting) {
		return t.current, fmt.Errorf("cannot start a scan while %s", t.current.Status)
	}
	if totalProjects < 0 {
		return t.current, fmt.Errorf("total projects must be non-negative, got %d", totalProjects)
	}

	t.current = Snapshot{
		Status:        StateStarting,
		TotalProjects: totalProjects,
	}
	return t.current, nil
}

// StartProject marks the named project as the one being scanned.
func (t *Tracker) StartProject(name string) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.Status != StateStarting && t.current.Status != StateRunning {
		return t.current, fmt.Errorf("cannot scan a project while %s", t.current.Status)
	}

	t.current.Status = StateRunning
	t.current.CurrentProject = name
	return t.current, nil
}

// ProjectDone advances the scanned counter and recomputes the percentage.
func (t *Tracker) ProjectDone() (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.Status != StateRunning {
		return t.current, fmt.Errorf("cannot advance progress while %s", t.current.Status)
	}
	if t.current.ProjectsScanned >= t.current.TotalProjects {
		return t.current, fmt.Errorf("scan already counted all %d projects", t.current.TotalProjects)
	}

	t.current.ProjectsScanned++
	t.current.Percent = percent(t.current.ProjectsScanned, t.current.TotalProjects)
	return t.current, nil
}

// Complete marks the run finished.
func (t *Tracker) Complete() (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.current.Status.CanTransitionTo(StateCompleted) {
		return t.current, fmt.Errorf("cannot complete a scan while %s", t.current.Status)
	}

	t.current.Status = StateCompleted
	t.current.Percent = 100
	t.current.CurrentProject = ""
	return t.current, nil
}

// Fail marks the run failed with the given message.
func (t *Tracker) Fail(message string) (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.current.Status.CanTransitionTo(StateFailed) {
		return t.current, fmt.Errorf("cannot fail a scan while %s", t.current.Status)
	}

	t.current.Status = StateFailed
	t.current.Error = message
	t.current.CurrentProject = ""
	return t.current, nil
}

func percent(scanned, total int) int {
	if total == 0 {
		return 0
	}
	return int(float64(scanned) / float64(total) * 100)
}
