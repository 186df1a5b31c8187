package migration

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State constants for statekit integration. These must remain untyped string
// constants for statekit.StateID compatibility and are kept in sync with the
// Status values in status.go.
const (
	statePending    = "pending"
	stateInProgress = "in_progress"
	stateCompleted  = "completed"
	stateFailed     = "failed"
)

func init() {
	stateMap := map[string]Status{
		statePending:    StatusPending,
		stateInProgress: StatusInProgress,
		stateCompleted:  StatusCompleted,
		stateFailed:     StatusFailed,
	}

	for fsmState, status := range stateMap {
		if fsmState != string(status) {
			panic(fmt.Sprintf("FSM state %q does not match Status %q - constants are out of sync", fsmState, status))
		}
	}
}

// jobContext carries the job identity through the machine.
type jobContext struct {
	JobID string
}

// JobFSM enforces the strict pending -> in_progress -> {completed|failed}
// ordering of a transfer job.
type JobFSM struct {
	interpreter *statekit.Interpreter[jobContext]
}

// NewJobFSM builds a machine positioned at the given status.
func NewJobFSM(initial Status, jobID string) (*JobFSM, error) {
	if !initial.IsValid() {
		return nil, fmt.Errorf("invalid initial job status: %s", initial)
	}

	builder := statekit.NewMachine[jobContext]("migration-job").
		WithInitial(statekit.StateID(initial)).
		WithContext(jobContext{JobID: jobID})

	builder.State(statePending).
		On(EventStart).Target(stateInProgress).
		Done()

	builder.State(stateInProgress).
		On(EventComplete).Target(stateCompleted).
		On(EventFail).Target(stateFailed).
		Done()

	// Terminal states: no way out.
	builder.State(stateCompleted).
		Done()

	builder.State(stateFailed).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	return &JobFSM{interpreter: interpreter}, nil
}

// Transition attempts to move the job with the given event.
func (sm *JobFSM) Transition(event string) error {
	before := sm.Current()
	sm.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	after := sm.Current()

	if before != after {
		return nil
	}

	return fmt.Errorf("the event '%s' is not allowed while the job is in the '%s' state", event, before)
}

// Current returns the current state id.
func (sm *JobFSM) Current() string {
	return string(sm.interpreter.State().Value)
}

// CurrentStatus returns the current state as a Status value object.
func (sm *JobFSM) CurrentStatus() Status {
	return Status(sm.Current())
}

// CanTransition checks if the given event is valid for the current state.
func (sm *JobFSM) CanTransition(event string) bool {
	return sm.CurrentStatus().CanTransitionWith(event)
}

// IsTerminal returns true once the job reached a final state.
func (sm *JobFSM) IsTerminal() bool {
	return sm.CurrentStatus().IsTerminal()
}
