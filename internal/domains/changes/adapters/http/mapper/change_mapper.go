package mapper

import (
	"time"

	changesdomain "github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
)

// ChangeStatus is the transport shape of a registered change.
type ChangeStatus struct {
	Stage         string `json:"stage" yaml:"stage"`
	ChangeID      string `json:"changeId" yaml:"changeId"`
	Author        string `json:"author" yaml:"author"`
	TargetSystem  string `json:"targetSystem" yaml:"targetSystem"`
	Transactional bool   `json:"transactional" yaml:"transactional"`
	State         string `json:"state,omitempty" yaml:"state,omitempty"`
	Pending       bool   `json:"pending" yaml:"pending"`
}

// AuditEntry is the transport shape of one audit log row.
type AuditEntry struct {
	ExecutionID     string    `json:"executionId" yaml:"executionId"`
	Stage           string    `json:"stage" yaml:"stage"`
	ChangeID        string    `json:"changeId" yaml:"changeId"`
	Author          string    `json:"author" yaml:"author"`
	State           string    `json:"state" yaml:"state"`
	TargetSystem    string    `json:"targetSystem" yaml:"targetSystem"`
	Transactional   bool      `json:"transactional" yaml:"transactional"`
	CreatedAt       time.Time `json:"createdAt" yaml:"createdAt"`
	ExecutionMillis int64     `json:"executionMillis" yaml:"executionMillis"`
	ErrorTrace      string    `json:"errorTrace,omitempty" yaml:"errorTrace,omitempty"`
	Hostname        string    `json:"hostname,omitempty" yaml:"hostname,omitempty"`
}

// RunReport summarises a run or undo.
type RunReport struct {
	ExecutionID string    `json:"executionId" yaml:"executionId"`
	Applied     []string  `json:"applied" yaml:"applied"`
	Skipped     []string  `json:"skipped" yaml:"skipped"`
	RolledBack  []string  `json:"rolledBack" yaml:"rolledBack"`
	StartedAt   time.Time `json:"startedAt" yaml:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt" yaml:"finishedAt"`
}

// UndoRequest is the body of POST /changes/undo.
type UndoRequest struct {
	ToChangeID string `json:"toChangeId"`
}

func FromDomainStatuses(statuses []changesdomain.ChangeStatus) []ChangeStatus {
	out := make([]ChangeStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, ChangeStatus{
			Stage:         s.Stage,
			ChangeID:      s.ChangeID,
			Author:        s.Author,
			TargetSystem:  s.TargetSystem,
			Transactional: s.Transactional,
			State:         string(s.State),
			Pending:       s.Pending(),
		})
	}
	return out
}

func FromDomainAudit(entries []changesdomain.AuditEntry) []AuditEntry {
	out := make([]AuditEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntry{
			ExecutionID:     e.ExecutionID,
			Stage:           e.Stage,
			ChangeID:        e.ChangeID,
			Author:          e.Author,
			State:           string(e.State),
			TargetSystem:    e.TargetSystem,
			Transactional:   e.Transactional,
			CreatedAt:       e.CreatedAt,
			ExecutionMillis: e.ExecutionMillis,
			ErrorTrace:      e.ErrorTrace,
			Hostname:        e.Hostname,
		})
	}
	return out
}

// FromDomainReport never returns nil slices so JSON renders [].
func FromDomainReport(report *changesdomain.RunReport) RunReport {
	if report == nil {
		return RunReport{Applied: []string{}, Skipped: []string{}, RolledBack: []string{}}
	}
	return RunReport{
		ExecutionID: report.ExecutionID,
		Applied:     nonNil(report.Applied),
		Skipped:     nonNil(report.Skipped),
		RolledBack:  nonNil(report.RolledBack),
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
