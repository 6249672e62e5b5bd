package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quantrove/tradescope/internal/ledger"
	"github.com/quantrove/tradescope/internal/runtime"
)

// Recorder mirrors session activity into spans. Tool events attach to the
// open turn span, or to the session span when a result arrives after its
// turn has closed.
type Recorder struct {
	tracer trace.Tracer

	sessionCtx  context.Context
	sessionSpan trace.Span
	turnSpan    trace.Span
}

var _ ledger.SessionRecorder = (*Recorder)(nil)

// NewRecorder opens the session root span.
func NewRecorder(tracer trace.Tracer, sessionID string) *Recorder {
	ctx, span := tracer.Start(context.Background(), "trading_session",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	return &Recorder{
		tracer:      tracer,
		sessionCtx:  ctx,
		sessionSpan: span,
	}
}

func (r *Recorder) StartTurn(number int) {
	r.EndTurn()
	_, r.turnSpan = r.tracer.Start(r.sessionCtx, fmt.Sprintf("turn_%d", number),
		trace.WithAttributes(attribute.Int("turn.number", number)))
}

func (r *Recorder) EndTurn() {
	if r.turnSpan == nil {
		return
	}
	r.turnSpan.End()
	r.turnSpan = nil
}

func (r *Recorder) RecordToolCall(toolName, toolID string, input map[string]any) {
	attrs := []attribute.KeyValue{
		attribute.String("tool.name", toolName),
		attribute.String("tool.id", toolID),
	}
	if subagentType, ok := input["subagent_type"].(string); ok && subagentType != "" {
		attrs = append(attrs, attribute.String("subagent.type", subagentType))
	}
	r.active().AddEvent("tool_use", trace.WithAttributes(attrs...))
}

func (r *Recorder) RecordToolResult(toolID string, content runtime.ResultContent, isError bool) {
	attrs := []attribute.KeyValue{
		attribute.String("tool.id", toolID),
		attribute.Bool("tool.is_error", isError),
	}
	if ms, ok := content.Int64Field("duration_ms"); ok {
		attrs = append(attrs, attribute.Int64("tool.duration_ms", ms))
	}
	if cost, ok := content.FloatField("total_cost_usd"); ok {
		attrs = append(attrs, attribute.Float64("tool.cost_usd", cost))
	}
	r.active().AddEvent("tool_result", trace.WithAttributes(attrs...))
}

// EndSession closes any open turn span and then the session span. Ending an
// already-ended span is a no-op, so the finalize-from-any-exit-path contract
// holds here too.
func (r *Recorder) EndSession() {
	r.EndTurn()
	r.sessionSpan.End()
}

func (r *Recorder) active() trace.Span {
	if r.turnSpan != nil {
		return r.turnSpan
	}
	return r.sessionSpan
}
