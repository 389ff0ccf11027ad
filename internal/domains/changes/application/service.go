package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	"github.com/Apurer/inventory-orders-service/internal/domains/changes/ports"
)

// LockKey is the lock name shared by every runner of the pipeline.
const LockKey = "change-runner"

// DefaultLockTTL bounds how long a crashed runner blocks the next one.
const DefaultLockTTL = 5 * time.Minute

// Service executes the change pipeline against its target systems.
type Service struct {
	pipeline *domain.Pipeline
	targets  map[string]domain.TargetSystem
	audit    ports.AuditStore
	lock     ports.Lock
	lockTTL  time.Duration
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	hostname string
}

// Option configures the Service.
type Option func(*Service)

// WithLock replaces the default process-local lock.
func WithLock(lock ports.Lock) Option {
	return func(s *Service) {
		if lock != nil {
			s.lock = lock
		}
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithLogger sets the logger used for per-change progress.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithExecutionIDs overrides the execution id generator.
func WithExecutionIDs(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewService wires the runner. Every change must reference a registered target.
func NewService(pipeline *domain.Pipeline, audit ports.AuditStore, targets []domain.TargetSystem, opts ...Option) (*Service, error) {
	if pipeline == nil {
		return nil, errors.New("change pipeline is nil")
	}
	if audit == nil {
		return nil, errors.New("audit store is nil")
	}
	host, _ := os.Hostname()
	s := &Service{
		pipeline: pipeline,
		targets:  make(map[string]domain.TargetSystem, len(targets)),
		audit:    audit,
		lock:     newLocalLock(),
		lockTTL:  DefaultLockTTL,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
		hostname: host,
	}
	for _, target := range targets {
		if target == nil {
			continue
		}
		if _, dup := s.targets[target.ID()]; dup {
			return nil, fmt.Errorf("duplicate target system %q", target.ID())
		}
		s.targets[target.ID()] = target
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Run applies every pending change in pipeline order.
func (s *Service) Run(ctx context.Context) (*domain.RunReport, error) {
	release, err := s.lock.Acquire(ctx, LockKey, s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer s.release(release)

	report := &domain.RunReport{ExecutionID: s.newID(), StartedAt: s.now()}
	states, err := s.audit.LatestStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load audit states: %w", err)
	}
	for _, planned := range s.pipeline.Changes() {
		applied, err := s.execute(ctx, report.ExecutionID, planned, states[planned.Change.ID])
		if err != nil {
			report.FinishedAt = s.now()
			if ce, ok := domain.AsChangeError(err); ok && ce.State == domain.StateRolledBack {
				report.RolledBack = append(report.RolledBack, planned.Change.ID)
			}
			return report, err
		}
		if applied {
			report.Applied = append(report.Applied, planned.Change.ID)
		} else {
			report.Skipped = append(report.Skipped, planned.Change.ID)
		}
	}
	report.FinishedAt = s.now()
	return report, nil
}

// Execute applies a single change with the same rules as Run. It returns
// the state recorded last for the change.
func (s *Service) Execute(ctx context.Context, executionID, changeID string) (domain.State, error) {
	planned, ok := s.pipeline.Lookup(changeID)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownChange, changeID)
	}
	release, err := s.lock.Acquire(ctx, LockKey, s.lockTTL)
	if err != nil {
		return "", err
	}
	defer s.release(release)

	states, err := s.audit.LatestStates(ctx)
	if err != nil {
		return "", fmt.Errorf("load audit states: %w", err)
	}
	if executionID == "" {
		executionID = s.newID()
	}
	if _, err := s.execute(ctx, executionID, planned, states[changeID]); err != nil {
		if ce, ok := domain.AsChangeError(err); ok {
			return ce.State, err
		}
		return states[changeID], err
	}
	return domain.StateApplied, nil
}

// Plan lists the ids a run would execute, in order.
func (s *Service) Plan(ctx context.Context) ([]string, error) {
	states, err := s.audit.LatestStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load audit states: %w", err)
	}
	var pending []string
	for _, planned := range s.pipeline.Changes() {
		if states[planned.Change.ID] != domain.StateApplied {
			pending = append(pending, planned.Change.ID)
		}
	}
	return pending, nil
}

// Status reports every registered change with its latest state.
func (s *Service) Status(ctx context.Context) ([]domain.ChangeStatus, error) {
	states, err := s.audit.LatestStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load audit states: %w", err)
	}
	changes := s.pipeline.Changes()
	out := make([]domain.ChangeStatus, 0, len(changes))
	for _, planned := range changes {
		out = append(out, domain.ChangeStatus{
			Stage:         planned.Stage,
			ChangeID:      planned.Change.ID,
			Author:        planned.Change.Author,
			TargetSystem:  planned.Change.TargetSystem,
			Transactional: planned.Change.Transactional,
			State:         states[planned.Change.ID],
		})
	}
	return out, nil
}

// History returns the audit log.
func (s *Service) History(ctx context.Context) ([]domain.AuditEntry, error) {
	return s.audit.History(ctx)
}

// Undo rolls back applied changes in reverse order, stopping before
// toChangeID. An empty toChangeID undoes every applied change.
func (s *Service) Undo(ctx context.Context, toChangeID string) (*domain.RunReport, error) {
	stop := -1
	if toChangeID != "" {
		planned, ok := s.pipeline.Lookup(toChangeID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownChange, toChangeID)
		}
		stop = planned.Position
	}
	release, err := s.lock.Acquire(ctx, LockKey, s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer s.release(release)

	states, err := s.audit.LatestStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load audit states: %w", err)
	}
	report := &domain.RunReport{ExecutionID: s.newID(), StartedAt: s.now()}
	changes := s.pipeline.Changes()
	for i := len(changes) - 1; i > stop; i-- {
		planned := changes[i]
		if states[planned.Change.ID] != domain.StateApplied {
			report.Skipped = append(report.Skipped, planned.Change.ID)
			continue
		}
		if err := s.rollback(ctx, report.ExecutionID, planned); err != nil {
			report.FinishedAt = s.now()
			return report, err
		}
		report.RolledBack = append(report.RolledBack, planned.Change.ID)
	}
	report.FinishedAt = s.now()
	return report, nil
}

// execute reports whether the change ran (false when skipped).
func (s *Service) execute(ctx context.Context, executionID string, planned domain.PlannedChange, last domain.State) (bool, error) {
	change := planned.Change
	if last == domain.StateApplied {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "change already applied", slog.String("change.id", change.ID))
		return false, nil
	}
	target, ok := s.targets[change.TargetSystem]
	if !ok {
		return false, &domain.ChangeError{
			ChangeID: change.ID,
			State:    last,
			Err:      fmt.Errorf("%w: %s", domain.ErrUnknownTargetSystem, change.TargetSystem),
		}
	}
	txTarget, transactional := s.transactional(change, target)
	if (last == domain.StateStarted || last == domain.StateRollbackFailed) && !transactional {
		return false, &domain.ChangeError{ChangeID: change.ID, State: last, Err: domain.ErrManualIntervention}
	}

	if err := s.record(ctx, executionID, planned, domain.StateStarted, 0, nil); err != nil {
		return false, err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "applying change",
		slog.String("change.id", change.ID),
		slog.String("change.target", change.TargetSystem),
		slog.Bool("change.transactional", transactional))

	started := s.now()
	var applyErr error
	if transactional {
		applyErr = txTarget.WithTransaction(ctx, func(txCtx context.Context) error {
			return change.Apply(txCtx, target)
		})
	} else {
		applyErr = change.Apply(ctx, target)
	}
	elapsed := s.now().Sub(started).Milliseconds()
	if applyErr == nil {
		if err := s.record(ctx, executionID, planned, domain.StateApplied, elapsed, nil); err != nil {
			return false, err
		}
		s.logger.LogAttrs(ctx, slog.LevelInfo, "change applied",
			slog.String("change.id", change.ID), slog.Int64("duration_ms", elapsed))
		return true, nil
	}

	s.logger.LogAttrs(ctx, slog.LevelError, "change failed",
		slog.String("change.id", change.ID), slog.String("error", applyErr.Error()))
	if err := s.record(ctx, executionID, planned, domain.StateFailed, elapsed, applyErr); err != nil {
		return false, errors.Join(applyErr, err)
	}
	if transactional {
		if err := s.record(ctx, executionID, planned, domain.StateRolledBack, 0, nil); err != nil {
			return false, errors.Join(applyErr, err)
		}
		return false, &domain.ChangeError{ChangeID: change.ID, State: domain.StateRolledBack, Err: applyErr}
	}
	rollbackErr := change.Rollback(ctx, target)
	if rollbackErr != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "change rollback failed",
			slog.String("change.id", change.ID), slog.String("error", rollbackErr.Error()))
		if err := s.record(ctx, executionID, planned, domain.StateRollbackFailed, 0, rollbackErr); err != nil {
			return false, errors.Join(applyErr, rollbackErr, err)
		}
		return false, &domain.ChangeError{ChangeID: change.ID, State: domain.StateRollbackFailed, Err: errors.Join(applyErr, rollbackErr)}
	}
	if err := s.record(ctx, executionID, planned, domain.StateRolledBack, 0, nil); err != nil {
		return false, errors.Join(applyErr, err)
	}
	return false, &domain.ChangeError{ChangeID: change.ID, State: domain.StateRolledBack, Err: applyErr}
}

func (s *Service) rollback(ctx context.Context, executionID string, planned domain.PlannedChange) error {
	change := planned.Change
	if change.Rollback == nil {
		return &domain.ChangeError{ChangeID: change.ID, State: domain.StateApplied, Err: domain.ErrNoRollback}
	}
	target, ok := s.targets[change.TargetSystem]
	if !ok {
		return &domain.ChangeError{
			ChangeID: change.ID,
			State:    domain.StateApplied,
			Err:      fmt.Errorf("%w: %s", domain.ErrUnknownTargetSystem, change.TargetSystem),
		}
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "rolling back change", slog.String("change.id", change.ID))
	started := s.now()
	var err error
	if txTarget, transactional := s.transactional(change, target); transactional {
		err = txTarget.WithTransaction(ctx, func(txCtx context.Context) error {
			return change.Rollback(txCtx, target)
		})
	} else {
		err = change.Rollback(ctx, target)
	}
	elapsed := s.now().Sub(started).Milliseconds()
	if err != nil {
		if recErr := s.record(ctx, executionID, planned, domain.StateRollbackFailed, elapsed, err); recErr != nil {
			return errors.Join(err, recErr)
		}
		return &domain.ChangeError{ChangeID: change.ID, State: domain.StateRollbackFailed, Err: err}
	}
	return s.record(ctx, executionID, planned, domain.StateRolledBack, elapsed, nil)
}

func (s *Service) transactional(change domain.Change, target domain.TargetSystem) (domain.TransactionalTarget, bool) {
	if !change.Transactional {
		return nil, false
	}
	tx, ok := target.(domain.TransactionalTarget)
	return tx, ok
}

func (s *Service) record(ctx context.Context, executionID string, planned domain.PlannedChange, state domain.State, millis int64, cause error) error {
	entry := domain.AuditEntry{
		ExecutionID:     executionID,
		Stage:           planned.Stage,
		ChangeID:        planned.Change.ID,
		Author:          planned.Change.Author,
		State:           state,
		TargetSystem:    planned.Change.TargetSystem,
		Transactional:   planned.Change.Transactional,
		CreatedAt:       s.now().UTC(),
		ExecutionMillis: millis,
		Hostname:        s.hostname,
	}
	if cause != nil {
		entry.ErrorTrace = cause.Error()
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry for %s: %w", planned.Change.ID, err)
	}
	return nil
}

func (s *Service) release(release ports.ReleaseFunc) {
	if release == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := release(ctx); err != nil {
		s.logger.Warn("failed to release change runner lock", slog.String("error", err.Error()))
	}
}

var _ ports.Service = (*Service)(nil)
