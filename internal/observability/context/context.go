package context

import (
	"context"
	"strings"
)

type ctxKey string

const (
	requestIDKey  ctxKey = "request_id"
	propertyIDKey ctxKey = "property_id"
	runIDKey      ctxKey = "run_id"
	actorTypeKey  ctxKey = "actor_type"
	actorIDKey    ctxKey = "actor_id"
)

// WithRequestID stores the inbound request identifier.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, requestIDKey)
}

// WithPropertyID tags the context with the property being scored.
func WithPropertyID(ctx context.Context, propertyID string) context.Context {
	return withString(ctx, propertyIDKey, propertyID)
}

func PropertyIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, propertyIDKey)
}

// WithRunID tags the context with the batch run identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	return withString(ctx, runIDKey, runID)
}

func RunIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, runIDKey)
}

// WithActor records who triggered the work, e.g. ("system", "scheduler").
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	ctx = withString(ctx, actorTypeKey, actorType)
	return withString(ctx, actorIDKey, actorID)
}

func ActorFromContext(ctx context.Context) (string, string) {
	return stringFrom(ctx, actorTypeKey), stringFrom(ctx, actorIDKey)
}

func withString(ctx context.Context, key ctxKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(key).(string); ok {
		return value
	}
	return ""
}
