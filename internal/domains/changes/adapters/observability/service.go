package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	changesdomain "github.com/Apurer/inventory-orders-service/internal/domains/changes/domain"
	changesports "github.com/Apurer/inventory-orders-service/internal/domains/changes/ports"
)

const tracerName = "github.com/Apurer/inventory-orders-service/internal/domains/changes/adapters/observability/service"

// Service decorates the change runner with tracing, logging, and metrics.
type Service struct {
	inner   changesports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core change runner.
func New(inner changesports.Service, opts ...Option) changesports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) Run(ctx context.Context) (*changesdomain.RunReport, error) {
	ctx, span := s.tracer.Start(ctx, "ChangeService.Run")
	defer span.End()

	s.logInfo(ctx, "running changes")
	report, err := s.inner.Run(ctx)
	if report != nil {
		span.SetAttributes(
			attribute.String("changes.execution_id", report.ExecutionID),
			attribute.Int("changes.applied", len(report.Applied)),
			attribute.Int("changes.skipped", len(report.Skipped)),
		)
		s.metrics.recordApplied(ctx, len(report.Applied))
	}
	if err != nil {
		s.metrics.recordFailed(ctx, err)
		return report, s.handleError(ctx, span, err, "change run failed", changeAttrs(err)...)
	}
	s.logInfo(ctx, "changes applied",
		slog.String("execution.id", report.ExecutionID),
		slog.Int("applied", len(report.Applied)),
		slog.Int("skipped", len(report.Skipped)))
	return report, nil
}

func (s *Service) Undo(ctx context.Context, toChangeID string) (*changesdomain.RunReport, error) {
	ctx, span := s.tracer.Start(ctx, "ChangeService.Undo", trace.WithAttributes(attribute.String("change.to", toChangeID)))
	defer span.End()

	s.logInfo(ctx, "undoing changes", slog.String("change.to", toChangeID))
	report, err := s.inner.Undo(ctx, toChangeID)
	if report != nil {
		span.SetAttributes(attribute.Int("changes.rolled_back", len(report.RolledBack)))
		s.metrics.recordRolledBack(ctx, len(report.RolledBack))
	}
	if err != nil {
		return report, s.handleError(ctx, span, err, "undo failed", changeAttrs(err)...)
	}
	s.logInfo(ctx, "changes rolled back", slog.Int("rolled_back", len(report.RolledBack)))
	return report, nil
}

func (s *Service) Status(ctx context.Context) ([]changesdomain.ChangeStatus, error) {
	ctx, span := s.tracer.Start(ctx, "ChangeService.Status")
	defer span.End()

	result, err := s.inner.Status(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load change status")
	}
	span.SetAttributes(attribute.Int("changes.count", len(result)))
	return result, nil
}

func (s *Service) History(ctx context.Context) ([]changesdomain.AuditEntry, error) {
	ctx, span := s.tracer.Start(ctx, "ChangeService.History")
	defer span.End()

	result, err := s.inner.History(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load audit log")
	}
	span.SetAttributes(attribute.Int("audit.entries", len(result)))
	return result, nil
}

func (s *Service) Plan(ctx context.Context) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "ChangeService.Plan")
	defer span.End()

	result, err := s.inner.Plan(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to plan changes")
	}
	span.SetAttributes(attribute.Int("changes.pending", len(result)))
	s.logInfo(ctx, "planned changes", slog.Int("pending", len(result)))
	return result, nil
}

func (s *Service) Execute(ctx context.Context, executionID, changeID string) (changesdomain.State, error) {
	ctx, span := s.tracer.Start(ctx, "ChangeService.Execute", trace.WithAttributes(
		attribute.String("changes.execution_id", executionID),
		attribute.String("change.id", changeID)))
	defer span.End()

	state, err := s.inner.Execute(ctx, executionID, changeID)
	span.SetAttributes(attribute.String("change.state", string(state)))
	if err != nil {
		s.metrics.recordFailed(ctx, err)
		return state, s.handleError(ctx, span, err, "change execution failed", slog.String("change.id", changeID))
	}
	s.metrics.recordApplied(ctx, 1)
	s.logInfo(ctx, "change executed", slog.String("change.id", changeID), slog.String("state", string(state)))
	return state, nil
}

func changeAttrs(err error) []slog.Attr {
	if ce, ok := changesdomain.AsChangeError(err); ok {
		return []slog.Attr{slog.String("change.id", ce.ChangeID), slog.String("change.state", string(ce.State))}
	}
	return nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

type serviceMetrics struct {
	applied    metric.Int64Counter
	failed     metric.Int64Counter
	rolledBack metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	applied, _ := m.Int64Counter("changes.service.applied", metric.WithDescription("Number of changes applied"))
	failed, _ := m.Int64Counter("changes.service.failed", metric.WithDescription("Number of failed change executions"))
	rolledBack, _ := m.Int64Counter("changes.service.rolled_back", metric.WithDescription("Number of changes undone"))
	return serviceMetrics{applied: applied, failed: failed, rolledBack: rolledBack}
}

func (m serviceMetrics) recordApplied(ctx context.Context, n int) {
	if m.applied != nil && n > 0 {
		m.applied.Add(ctx, int64(n))
	}
}

func (m serviceMetrics) recordFailed(ctx context.Context, err error) {
	if m.failed == nil {
		return
	}
	state := "unknown"
	if ce, ok := changesdomain.AsChangeError(err); ok {
		state = string(ce.State)
	}
	m.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("change.state", state)))
}

func (m serviceMetrics) recordRolledBack(ctx context.Context, n int) {
	if m.rolledBack != nil && n > 0 {
		m.rolledBack.Add(ctx, int64(n))
	}
}

var _ changesports.Service = (*Service)(nil)
