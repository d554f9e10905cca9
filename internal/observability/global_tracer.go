package observability

import (
	"context"
	"fmt"

	"certquiz/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var globalTracer trace.Tracer

// InitGlobalTracer initializes the global tracer for the application.
func InitGlobalTracer() {
	globalTracer = otel.Tracer("certquiz")
}

// GetGlobalTracer returns the global tracer instance for the application.
func GetGlobalTracer() trace.Tracer {
	if globalTracer == nil {
		// Fallback to default tracer if not initialized
		globalTracer = otel.Tracer("certquiz")
	}
	return globalTracer
}

// TraceFunction starts a new span with a descriptive name for the given service and function.
func TraceFunction(ctx context.Context, serviceName, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := GetGlobalTracer()
	spanName := fmt.Sprintf("%s.%s", serviceName, functionName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attributes...))
}

// TraceGenerationFunction starts a new span for a generation client function.
func TraceGenerationFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "generation", functionName, attributes...)
}

// TraceContentFunction starts a new span for a content service function.
func TraceContentFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "content", functionName, attributes...)
}

// TraceQuestionFunction starts a new span for a question service function.
func TraceQuestionFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "question", functionName, attributes...)
}

// TraceSessionFunction starts a new span for a session function.
func TraceSessionFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "session", functionName, attributes...)
}

// TraceHistoryFunction starts a new span for a history service function.
func TraceHistoryFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "history", functionName, attributes...)
}

// TraceWorkerFunction starts a new span for a worker function.
func TraceWorkerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "worker", functionName, attributes...)
}

// TraceHandlerFunction starts a new span for a handler function.
func TraceHandlerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "handler", functionName, attributes...)
}

// TraceDatabaseFunction starts a new span for a database function.
func TraceDatabaseFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "database", functionName, attributes...)
}

// AttributeQuestion returns a tracing attribute for a question's ID.
func AttributeQuestion(q *models.Question) attribute.KeyValue {
	return attribute.String("question.id", q.ID)
}

// AttributeQuestionID returns a tracing attribute for a question ID.
func AttributeQuestionID(id string) attribute.KeyValue {
	return attribute.String("question.id", id)
}

// AttributeUserID returns a tracing attribute for a user ID.
func AttributeUserID(id string) attribute.KeyValue {
	return attribute.String("user.id", id)
}

// AttributeLanguage returns a tracing attribute for a content language.
func AttributeLanguage(lang models.Language) attribute.KeyValue {
	return attribute.String("language", string(lang))
}

// AttributeContentKind returns a tracing attribute for a content kind.
func AttributeContentKind(kind models.ContentKind) attribute.KeyValue {
	return attribute.String("content.kind", string(kind))
}

// AttributeCredentialLabel returns a tracing attribute for a credential label.
func AttributeCredentialLabel(label string) attribute.KeyValue {
	return attribute.String("credential.label", label)
}

// AttributeQuestionIndex returns a tracing attribute for a question index.
func AttributeQuestionIndex(index int) attribute.KeyValue {
	return attribute.Int("question.index", index)
}

// AttributeOffset returns a tracing attribute for a pagination offset.
func AttributeOffset(offset int) attribute.KeyValue {
	return attribute.Int("offset", offset)
}

// AttributeLimit returns a tracing attribute for a limit value.
func AttributeLimit(limit int) attribute.KeyValue {
	return attribute.Int("limit", limit)
}
