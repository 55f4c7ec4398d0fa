package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/yungbote/neurobridge-adaptive"

// StartSpan starts a span on the global tracer. With tracing disabled the
// global provider is a no-op and the span costs nothing.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// FinishSpan records *errp on the span and ends it. Use with a named error
// return: defer observability.FinishSpan(span, &err).
func FinishSpan(span trace.Span, errp *error) {
	if span == nil {
		return
	}
	if errp != nil && *errp != nil {
		span.RecordError(*errp)
		span.SetStatus(codes.Error, (*errp).Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func AttrUserID(id string) attribute.KeyValue   { return attribute.String("learner.user_id", id) }
func AttrItemID(id string) attribute.KeyValue   { return attribute.String("item.id", id) }
func AttrCourseID(id string) attribute.KeyValue { return attribute.String("course.id", id) }
