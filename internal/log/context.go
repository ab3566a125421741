package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	jobIDKey     ctxKey = "job_id"
)

// ContextWithRequestID stores a request ID for later log correlation.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithJobID stores a validation job ID for later log correlation.
func ContextWithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// RequestIDFromContext returns the request ID stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// JobIDFromContext returns the job ID stored in ctx, if any.
func JobIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(jobIDKey).(string)
	return v
}

// WithComponentFromContext returns a component logger enriched with the
// correlation IDs carried by ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	b := WithComponent(component).With()
	if id := RequestIDFromContext(ctx); id != "" {
		b = b.Str("request_id", id)
	}
	if id := JobIDFromContext(ctx); id != "" {
		b = b.Str("job_id", id)
	}
	return b.Logger()
}
