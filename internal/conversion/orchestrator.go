// Package conversion sequences preconditions, entitlement, metering and
// execution for one conversion request.
package conversion

import (
	"bytes"
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"pdfgate/internal/domain"
	"pdfgate/internal/precondition"
	"pdfgate/internal/registry"
	"pdfgate/internal/telemetry"
)

// Evaluator decides entitlement.
type Evaluator interface {
	Evaluate(ctx context.Context, userID, toolID string) domain.AccessDecision
}

// Ledger records usage and charges credits.
type Ledger interface {
	RecordUsage(ctx context.Context, userID, toolID string, fileSizeMB float64, meta domain.FormatMeta) error
	ChargeCredit(ctx context.Context, userID, toolID string, fileSizeMB float64) error
}

// VectorChecker classifies documents for vector-only tools.
type VectorChecker interface {
	IsVectorDocument(ctx context.Context, file domain.File) bool
}

// Request is one conversion attempt.
type Request struct {
	UserID     string
	ToolID     string
	File       domain.File
	FileSizeMB float64
}

// Result is a completed conversion.
type Result struct {
	State    State
	Artifact *domain.Artifact
	// Plan is the tier the request was authorized under.
	Plan domain.PlanTier
}

// Options configures an Orchestrator.
type Options struct {
	Tools          *registry.Registry
	Vector         VectorChecker
	Entitlement    Evaluator
	Ledger         Ledger
	Backend        domain.ExecutionBackend
	ExecuteTimeout time.Duration
	Logger         zerolog.Logger
	Metrics        *telemetry.Metrics
	Tracer         trace.Tracer
}

// Orchestrator is the single entry point the HTTP layer calls.
type Orchestrator struct {
	tools          *registry.Registry
	vector         VectorChecker
	entitlement    Evaluator
	ledger         Ledger
	backend        domain.ExecutionBackend
	executeTimeout time.Duration
	logger         zerolog.Logger
	metrics        *telemetry.Metrics
	tracer         trace.Tracer
}

// New constructs an Orchestrator.
func New(opts Options) *Orchestrator {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(telemetry.ScopeName)
	}
	return &Orchestrator{
		tools:          opts.Tools,
		vector:         opts.Vector,
		entitlement:    opts.Entitlement,
		ledger:         opts.Ledger,
		backend:        opts.Backend,
		executeTimeout: opts.ExecuteTimeout,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		tracer:         tracer,
	}
}

// Execute runs one request through the pipeline. Rejections are returned as
// *domain.ConversionError. Preconditions run before any credit is charged or
// usage is written.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*Result, error) {
	toolID := registry.Normalize(req.ToolID)
	ctx, span := o.tracer.Start(ctx, "conversion.execute", trace.WithAttributes(
		attribute.String("pdfgate.tool", toolID),
		attribute.String("pdfgate.user_id", req.UserID),
	))
	defer span.End()

	logger := o.logger.With().Str("user_id", req.UserID).Str("tool", toolID).Logger()
	descriptor, registered := o.tools.Lookup(toolID)

	logger.Debug().Str("state", string(StatePendingPreconditions)).Msg("conversion state")
	stepCtx, step := o.tracer.Start(ctx, "conversion.preconditions")
	err := o.checkPreconditions(stepCtx, descriptor, registered, req.File)
	step.End()
	if err != nil {
		return nil, o.reject(ctx, span, logger, toolID, StatePendingPreconditions, err)
	}

	logger.Debug().Str("state", string(StatePendingEntitlement)).Msg("conversion state")
	stepCtx, step = o.tracer.Start(ctx, "conversion.entitlement")
	decision := o.entitlement.Evaluate(stepCtx, req.UserID, toolID)
	step.SetAttributes(attribute.Bool("pdfgate.allowed", decision.Allowed), attribute.String("pdfgate.plan", string(decision.Plan)))
	step.End()
	o.metrics.Decision(ctx, toolID, decision)
	if err := decision.Err(); err != nil {
		return nil, o.reject(ctx, span, logger, toolID, StatePendingEntitlement, err)
	}

	stepCtx, step = o.tracer.Start(ctx, "conversion.ledger")
	o.meter(stepCtx, logger, req, toolID, decision.Plan, descriptor, registered)
	step.End()

	logger.Debug().Str("state", string(StatePendingExecution)).Msg("conversion state")
	stepCtx, step = o.tracer.Start(ctx, "conversion.backend")
	artifact, err := o.submit(stepCtx, toolID, req.File)
	if err != nil {
		step.SetStatus(codes.Error, err.Error())
	}
	step.End()
	if err != nil {
		return nil, o.reject(ctx, span, logger, toolID, StatePendingExecution, domain.ExecutionFailed(err))
	}

	o.metrics.Completion(ctx, toolID)
	span.SetStatus(codes.Ok, "")
	logger.Info().Str("state", string(StateCompleted)).Str("plan", string(decision.Plan)).Msg("conversion completed")
	return &Result{State: StateCompleted, Artifact: artifact, Plan: decision.Plan}, nil
}

// meter charges free-tier credits and records usage. Failures are logged and
// counted but never fail the request.
func (o *Orchestrator) meter(ctx context.Context, logger zerolog.Logger, req Request, toolID string, plan domain.PlanTier, d domain.ToolDescriptor, registered bool) {
	if plan == domain.PlanFree {
		if err := o.ledger.ChargeCredit(ctx, req.UserID, toolID, req.FileSizeMB); err != nil {
			o.metrics.LedgerFailure(ctx, "charge_credit")
			logger.Error().Err(err).Msg("credit charge failed; continuing")
		}
	}

	meta := domain.FormatMeta{InputFormat: req.File.Extension()}
	if registered {
		meta.OutputFormat = d.OutputKind
		meta.Category = d.Category
	}
	if err := o.ledger.RecordUsage(ctx, req.UserID, toolID, req.FileSizeMB, meta); err != nil {
		o.metrics.LedgerFailure(ctx, "record_usage")
		logger.Error().Err(err).Msg("usage record failed; continuing")
	}
}

func (o *Orchestrator) checkPreconditions(ctx context.Context, d domain.ToolDescriptor, registered bool, file domain.File) error {
	if !registered {
		return nil
	}
	if d.VectorOnly {
		if o.vector == nil || !o.vector.IsVectorDocument(ctx, file) {
			return domain.ErrVectorRequired
		}
	}
	if d.RequiresSignature() {
		if err := precondition.ValidateBinarySignature(bytes.NewReader(file.Data)); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) submit(ctx context.Context, toolID string, file domain.File) (*domain.Artifact, error) {
	if o.executeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.executeTimeout)
		defer cancel()
	}
	started := time.Now()
	artifact, err := o.backend.SubmitConversion(ctx, toolID, file)
	if err == nil && artifact == nil {
		err = errEmptyArtifact
	}
	o.metrics.Execution(ctx, toolID, time.Since(started), err == nil)
	return artifact, err
}

func (o *Orchestrator) reject(ctx context.Context, span trace.Span, logger zerolog.Logger, toolID string, from State, err error) error {
	kind, _ := domain.KindOf(err)
	o.metrics.Rejection(ctx, toolID, kind)
	span.SetAttributes(attribute.String("pdfgate.rejection", string(kind)))
	span.SetStatus(codes.Error, string(kind))
	event := logger.Info()
	if kind == domain.KindExecutionFailed {
		event = logger.Error()
	}
	event.Err(err).
		Str("from", string(from)).
		Str("state", string(StateRejected)).
		Str("kind", string(kind)).
		Msg("conversion rejected")
	return err
}
