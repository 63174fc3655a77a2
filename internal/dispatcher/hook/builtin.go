package hook

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/keystate/internal/message"
)

// Standard hook priorities.
const (
	PriorityAudit      = 1000 // Runs first (pre) / last (post)
	PriorityTracing    = 950  // Open spans before other hooks run
	PriorityValidation = 800  // Validate before processing
	PriorityHistory    = 500  // Record snapshots
)

// Logger is the interface for logging hooks. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// AuditHook logs all dispatched messages for debugging and audit trails.
type AuditHook struct {
	logger Logger
}

// NewAuditHook creates an audit hook with the given logger.
func NewAuditHook(logger Logger) *AuditHook {
	return &AuditHook{logger: logger}
}

// Name implements Hook.
func (h *AuditHook) Name() string { return "audit" }

// Priority implements Hook.
func (h *AuditHook) Priority() int { return PriorityAudit }

// PreDispatch logs the message being dispatched.
func (h *AuditHook) PreDispatch(msg *message.Message, _ any) bool {
	if h.logger != nil {
		h.logger.Debug("dispatch start",
			"type", msg.Type,
			"id", msg.ID,
			"source", msg.Source,
		)
	}
	return true
}

// PostDispatch logs the dispatch result.
func (h *AuditHook) PostDispatch(result *Result) {
	if h.logger == nil {
		return
	}

	switch result.Status {
	case StatusError:
		h.logger.Error("dispatch failed",
			"type", result.Message.Type,
			"id", result.Message.ID,
			"error", result.Err,
		)
	case StatusCancelled:
		h.logger.Warn("dispatch cancelled",
			"type", result.Message.Type,
			"id", result.Message.ID,
		)
	default:
		h.logger.Debug("dispatch complete",
			"type", result.Message.Type,
			"status", result.Status.String(),
			"duration", result.Duration,
		)
	}
}

// ValidationHook validates messages before dispatch.
type ValidationHook struct {
	validate func(msg message.Message) error

	mu      sync.Mutex
	lastErr error
}

// NewValidationHook creates a validation hook.
// A message for which validate returns an error is cancelled.
func NewValidationHook(validate func(msg message.Message) error) *ValidationHook {
	return &ValidationHook{validate: validate}
}

// Name implements Hook.
func (h *ValidationHook) Name() string { return "validation" }

// Priority implements Hook.
func (h *ValidationHook) Priority() int { return PriorityValidation }

// PreDispatch validates the message.
func (h *ValidationHook) PreDispatch(msg *message.Message, _ any) bool {
	if h.validate == nil {
		return true
	}
	err := h.validate(*msg)

	h.mu.Lock()
	h.lastErr = err
	h.mu.Unlock()

	return err == nil
}

// LastError returns the error from the most recent validation.
func (h *ValidationHook) LastError() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

// TracingHook records one span per dispatched message.
type TracingHook struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span // message ID -> open span
}

// NewTracingHook creates a tracing hook using tracer.
func NewTracingHook(tracer trace.Tracer) *TracingHook {
	return &TracingHook{
		tracer: tracer,
		spans:  make(map[string]trace.Span),
	}
}

// Name implements Hook.
func (h *TracingHook) Name() string { return "tracing" }

// Priority implements Hook.
func (h *TracingHook) Priority() int { return PriorityTracing }

// PreDispatch opens the span for msg.
func (h *TracingHook) PreDispatch(msg *message.Message, _ any) bool {
	_, span := h.tracer.Start(context.Background(), "dispatch "+msg.Type,
		trace.WithAttributes(
			attribute.String("keystate.message.type", msg.Type),
			attribute.String("keystate.message.id", msg.ID),
		),
	)

	h.mu.Lock()
	h.spans[msg.ID] = span
	h.mu.Unlock()
	return true
}

// PostDispatch closes the span opened for the result's message.
func (h *TracingHook) PostDispatch(result *Result) {
	h.mu.Lock()
	span, ok := h.spans[result.Message.ID]
	delete(h.spans, result.Message.ID)
	h.mu.Unlock()

	if !ok {
		return
	}

	span.SetAttributes(
		attribute.String("keystate.dispatch.status", result.Status.String()),
		attribute.Bool("keystate.dispatch.changed", result.Changed()),
	)
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
	}
	span.End()
}
