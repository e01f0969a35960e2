package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// recaudit semantic convention attributes.
var (
	AttrOperation  = attribute.Key("recaudit.operation")
	AttrAuditID    = attribute.Key("recaudit.audit.id")
	AttrPlatformID = attribute.Key("recaudit.platform.id")
	AttrProductID  = attribute.Key("recaudit.product.id")
	AttrRank       = attribute.Key("recaudit.recommendation.rank")
	AttrCompliant  = attribute.Key("recaudit.compliant")
	AttrCached     = attribute.Key("recaudit.cached")
	AttrResult     = attribute.Key("recaudit.audit.result")
	AttrAction     = attribute.Key("recaudit.enforcement.action")
	AttrPenalty    = attribute.Key("recaudit.penalty")
)

// AuditAttributes describes one audit record.
func AuditAttributes(auditID, platformID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrAuditID.String(auditID),
		AttrPlatformID.String(platformID),
	}
}

// RecommendationAttributes describes the recommendation under evaluation.
func RecommendationAttributes(productID string, rank int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrProductID.String(productID),
		AttrRank.Int(rank),
	}
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}
