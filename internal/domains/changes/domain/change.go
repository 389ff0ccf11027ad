package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrEmptyChangeID       = errors.New("change id is required")
	ErrEmptyTargetSystem   = errors.New("change target system is required")
	ErrMissingApply        = errors.New("change apply function is required")
	ErrMissingRollback     = errors.New("non-transactional change must declare a rollback")
	ErrDuplicateChangeID   = errors.New("duplicate change id")
	ErrEmptyStageName      = errors.New("stage name is required")
	ErrTargetTypeMismatch  = errors.New("target system does not match the change signature")
	ErrUnknownTargetSystem = errors.New("unknown target system")
	ErrUnknownChange       = errors.New("unknown change")
	ErrManualIntervention  = errors.New("change left in an uncertain state; manual intervention required")
	ErrLockHeld            = errors.New("change runner lock is held by another process")
	ErrNoRollback          = errors.New("change has no rollback")
)

// TargetSystem is an external system a change is applied to.
type TargetSystem interface {
	ID() string
}

// TransactionalTarget runs a function atomically. Changes applied through
// WithTransaction are discarded when fn returns an error.
type TransactionalTarget interface {
	TargetSystem
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ChangeFunc applies or reverts a change against its resolved target.
type ChangeFunc func(ctx context.Context, target TargetSystem) error

// Using adapts a function expecting a concrete target type.
func Using[T TargetSystem](fn func(ctx context.Context, target T) error) ChangeFunc {
	return func(ctx context.Context, target TargetSystem) error {
		typed, ok := target.(T)
		if !ok {
			return fmt.Errorf("%w: got %T", ErrTargetTypeMismatch, target)
		}
		return fn(ctx, typed)
	}
}

// Change is a single, ordered, audited unit of work.
type Change struct {
	ID            string
	Order         string
	Author        string
	TargetSystem  string
	Transactional bool
	Apply         ChangeFunc
	Rollback      ChangeFunc
}

// Validate enforces the invariants required before a change may be registered.
func (c Change) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyChangeID
	}
	if strings.TrimSpace(c.TargetSystem) == "" {
		return fmt.Errorf("%s: %w", c.ID, ErrEmptyTargetSystem)
	}
	if c.Apply == nil {
		return fmt.Errorf("%s: %w", c.ID, ErrMissingApply)
	}
	if !c.Transactional && c.Rollback == nil {
		return fmt.Errorf("%s: %w", c.ID, ErrMissingRollback)
	}
	return nil
}

// Stage groups changes executed together, in Order.
type Stage struct {
	Name    string
	Changes []Change
}

// NewStage validates the changes and sorts them by Order, then ID.
func NewStage(name string, changes ...Change) (Stage, error) {
	if strings.TrimSpace(name) == "" {
		return Stage{}, ErrEmptyStageName
	}
	seen := make(map[string]struct{}, len(changes))
	sorted := make([]Change, 0, len(changes))
	for _, change := range changes {
		if err := change.Validate(); err != nil {
			return Stage{}, fmt.Errorf("stage %s: %w", name, err)
		}
		if _, dup := seen[change.ID]; dup {
			return Stage{}, fmt.Errorf("stage %s: %w: %s", name, ErrDuplicateChangeID, change.ID)
		}
		seen[change.ID] = struct{}{}
		sorted = append(sorted, change)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Order != sorted[j].Order {
			return sorted[i].Order < sorted[j].Order
		}
		return sorted[i].ID < sorted[j].ID
	})
	return Stage{Name: name, Changes: sorted}, nil
}

// Pipeline is the ordered list of stages the runner executes.
type Pipeline struct {
	stages []Stage
	index  map[string]PlannedChange
	order  []PlannedChange
}

// PlannedChange pins a change to its stage and global position.
type PlannedChange struct {
	Stage    string
	Position int
	Change   Change
}

// NewPipeline checks change ids are unique across stages.
func NewPipeline(stages ...Stage) (*Pipeline, error) {
	p := &Pipeline{index: map[string]PlannedChange{}}
	for _, stage := range stages {
		for _, change := range stage.Changes {
			if _, dup := p.index[change.ID]; dup {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateChangeID, change.ID)
			}
			planned := PlannedChange{Stage: stage.Name, Position: len(p.order), Change: change}
			p.index[change.ID] = planned
			p.order = append(p.order, planned)
		}
		p.stages = append(p.stages, stage)
	}
	return p, nil
}

// Changes returns every change in execution order.
func (p *Pipeline) Changes() []PlannedChange {
	if p == nil {
		return nil
	}
	out := make([]PlannedChange, len(p.order))
	copy(out, p.order)
	return out
}

// Lookup finds a change by id.
func (p *Pipeline) Lookup(id string) (PlannedChange, bool) {
	if p == nil {
		return PlannedChange{}, false
	}
	planned, ok := p.index[id]
	return planned, ok
}

// Stages returns the registered stage names in order.
func (p *Pipeline) Stages() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.stages))
	for _, s := range p.stages {
		names = append(names, s.Name)
	}
	return names
}
