package link

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/roach88/nodelink/internal/graph"
)

// TracerName is the instrumentation scope of Linker spans.
const TracerName = "github.com/roach88/nodelink/internal/link"

// Linker plans and applies links against a registry. It holds no state
// between calls besides its options; calls must be serialized by the caller.
type Linker struct {
	reg *graph.Registry

	autoDisconnect bool
	pruneDangling  bool

	logger *slog.Logger
	tracer trace.Tracer
}

// Option configures a Linker.
type Option func(*Linker)

// WithAutoDisconnect controls what happens when the destination in-port is
// already linked: remove that link first (default), or fail with
// CodePortOccupied.
func WithAutoDisconnect(on bool) Option {
	return func(k *Linker) {
		k.autoDisconnect = on
	}
}

// WithPruneDanglingLegs makes Disconnect and re-application remove boundary
// legs left feeding nothing. Ports created on demand are never removed.
// Default: off.
func WithPruneDanglingLegs(on bool) Option {
	return func(k *Linker) {
		k.pruneDangling = on
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(k *Linker) {
		k.logger = l
	}
}

// WithTracer sets the tracer used for Connect, Apply and Disconnect spans.
// Default: no-op.
func WithTracer(t trace.Tracer) Option {
	return func(k *Linker) {
		k.tracer = t
	}
}

// New creates a Linker over reg.
func New(reg *graph.Registry, opts ...Option) *Linker {
	k := &Linker{
		reg:            reg,
		autoDisconnect: true,
		logger:         slog.New(slog.DiscardHandler),
		tracer:         noop.NewTracerProvider().Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Registry returns the registry the Linker works on.
func (k *Linker) Registry() *graph.Registry {
	return k.reg
}

// span starts a span for one public operation. The core is synchronous and
// takes no context, so every span is a root span.
func (k *Linker) span(name string, l *Link) trace.Span {
	_, span := k.tracer.Start(context.Background(), name)
	if l != nil {
		span.SetAttributes(linkAttr(l))
	}
	return span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func linkAttr(l *Link) attribute.KeyValue {
	return attribute.String("link", Describe(l))
}

func attributeRemoved(removed bool) attribute.KeyValue {
	return attribute.Bool("removed", removed)
}
