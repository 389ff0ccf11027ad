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

	"github.com/Apurer/inventory-orders-service/internal/domains/flags/application/types"
	flagsdomain "github.com/Apurer/inventory-orders-service/internal/domains/flags/domain"
	flagsports "github.com/Apurer/inventory-orders-service/internal/domains/flags/ports"
)

const tracerName = "github.com/Apurer/inventory-orders-service/internal/domains/flags/adapters/observability/service"

// Service decorates the flags service with tracing, logging, and metrics.
type Service struct {
	inner       flagsports.Service
	tracer      trace.Tracer
	logger      *slog.Logger
	evaluations metric.Int64Counter
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
		if m == nil {
			return
		}
		s.evaluations, _ = m.Int64Counter("flags.service.evaluations", metric.WithDescription("Number of flag evaluations"))
	}
}

// New wraps the core flags service.
func New(inner flagsports.Service, opts ...Option) flagsports.Service {
	s := &Service{
		inner:  inner,
		tracer: nooptrace.NewTracerProvider().Tracer(tracerName),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
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

func (s *Service) CreateFlag(ctx context.Context, input types.CreateFlagInput) (*flagsdomain.FeatureFlag, error) {
	ctx, span := s.tracer.Start(ctx, "FlagsService.CreateFlag", trace.WithAttributes(attribute.String("flag.name", input.Name)))
	defer span.End()

	flag, err := s.inner.CreateFlag(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to create flag", slog.String("flag.name", input.Name))
	}
	s.logInfo(ctx, "flag created", slog.String("flag.name", flag.Name))
	return flag, nil
}

func (s *Service) ListFlags(ctx context.Context) ([]*flagsdomain.FeatureFlag, error) {
	ctx, span := s.tracer.Start(ctx, "FlagsService.ListFlags")
	defer span.End()

	flags, err := s.inner.ListFlags(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list flags")
	}
	span.SetAttributes(attribute.Int("flags.count", len(flags)))
	return flags, nil
}

func (s *Service) UpdateFlag(ctx context.Context, name string, input types.UpdateFlagInput) (*flagsdomain.FeatureFlag, error) {
	ctx, span := s.tracer.Start(ctx, "FlagsService.UpdateFlag", trace.WithAttributes(attribute.String("flag.name", name)))
	defer span.End()

	flag, err := s.inner.UpdateFlag(ctx, name, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to update flag", slog.String("flag.name", name))
	}
	s.logInfo(ctx, "flag updated",
		slog.String("flag.name", flag.Name),
		slog.Bool("flag.enabled", flag.Enabled),
		slog.Int("flag.rollout", flag.RolloutPercentage))
	return flag, nil
}

func (s *Service) AddRule(ctx context.Context, flagName string, input types.AddRuleInput) (*flagsdomain.TargetingRule, error) {
	ctx, span := s.tracer.Start(ctx, "FlagsService.AddRule", trace.WithAttributes(
		attribute.String("flag.name", flagName),
		attribute.String("rule.operator", input.Operator),
	))
	defer span.End()

	rule, err := s.inner.AddRule(ctx, flagName, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to add targeting rule", slog.String("flag.name", flagName))
	}
	s.logInfo(ctx, "targeting rule added", slog.String("flag.name", flagName), slog.String("rule.id", rule.ID))
	return rule, nil
}

func (s *Service) ListRules(ctx context.Context, flagName string) ([]flagsdomain.TargetingRule, error) {
	ctx, span := s.tracer.Start(ctx, "FlagsService.ListRules", trace.WithAttributes(attribute.String("flag.name", flagName)))
	defer span.End()

	rules, err := s.inner.ListRules(ctx, flagName)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list targeting rules", slog.String("flag.name", flagName))
	}
	return rules, nil
}

func (s *Service) Evaluate(ctx context.Context, name, userID string, attrs map[string]string) (flagsdomain.Evaluation, error) {
	ctx, span := s.tracer.Start(ctx, "FlagsService.Evaluate", trace.WithAttributes(attribute.String("flag.name", name)))
	defer span.End()

	eval, err := s.inner.Evaluate(ctx, name, userID, attrs)
	if err != nil {
		return flagsdomain.Evaluation{}, s.handleError(ctx, span, err, "failed to evaluate flag", slog.String("flag.name", name))
	}
	span.SetAttributes(attribute.Bool("flag.enabled", eval.Enabled), attribute.String("flag.reason", eval.Reason))
	if s.evaluations != nil {
		s.evaluations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("flag.name", name),
			attribute.Bool("flag.enabled", eval.Enabled),
		))
	}
	return eval, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if s.logger != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	}
	return err
}

var _ flagsports.Service = (*Service)(nil)
