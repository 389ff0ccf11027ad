package domain

import (
	"errors"
	"fmt"
	"time"
)

// State is the outcome recorded for a change execution step.
type State string

const (
	StateStarted        State = "STARTED"
	StateApplied        State = "APPLIED"
	StateFailed         State = "FAILED"
	StateRolledBack     State = "ROLLED_BACK"
	StateRollbackFailed State = "ROLLBACK_FAILED"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateStarted, StateApplied, StateFailed, StateRolledBack, StateRollbackFailed:
		return true
	default:
		return false
	}
}

// AuditEntry is one immutable row of the change audit log.
type AuditEntry struct {
	ExecutionID     string
	Stage           string
	ChangeID        string
	Author          string
	State           State
	TargetSystem    string
	Transactional   bool
	CreatedAt       time.Time
	ExecutionMillis int64
	ErrorTrace      string
	Hostname        string
}

// ChangeStatus pairs a registered change with its latest recorded state.
type ChangeStatus struct {
	Stage         string
	ChangeID      string
	Author        string
	TargetSystem  string
	Transactional bool
	State         State
}

// Pending reports whether a run would execute the change.
func (s ChangeStatus) Pending() bool {
	return s.State != StateApplied
}

// RunReport summarises one runner invocation.
type RunReport struct {
	ExecutionID string
	Applied     []string
	Skipped     []string
	RolledBack  []string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// ChangeError names the change that stopped a run.
type ChangeError struct {
	ChangeID string
	State    State
	Err      error
}

func (e *ChangeError) Error() string {
	return fmt.Sprintf("change %s %s: %v", e.ChangeID, e.State, e.Err)
}

func (e *ChangeError) Unwrap() error {
	return e.Err
}

// AsChangeError extracts the ChangeError from err, if any.
func AsChangeError(err error) (*ChangeError, bool) {
	var ce *ChangeError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
