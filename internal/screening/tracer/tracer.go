// Package tracer is a small tracing abstraction for screening runs.
//
// Checks and the runner depend on Tracer rather than on OpenTelemetry
// directly. NoopTracer serves tests; OTelTracer adapts the global provider.
package tracer

import (
	"context"
	"time"
)

// Span is an active trace span. End must be called exactly once.
type Span interface {
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute { return Attribute{Key: key, Value: value} }

func Bool(key string, value bool) Attribute { return Attribute{Key: key, Value: value} }

func Int(key string, value int) Attribute { return Attribute{Key: key, Value: value} }

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanRun   = "screening.run"
	SpanStage = "screening.stage"
)

// Attribute keys.
const (
	AttrVendorID   = "vendor.id"
	AttrRunID      = "run.id"
	AttrStage      = "stage"
	AttrOutcome    = "outcome"
	AttrFlagCount  = "flags.count"
	AttrStageCount = "stages.count"
)

// Event names.
const (
	EventFlagAppended = "flag.appended"
	EventStageSkipped = "stage.skipped"
)
