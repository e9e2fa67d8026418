package errors

import (
	"context"
	"log/slog"
)

// Handler handles errors in a consistent way
type Handler interface {
	// Handle processes an error
	Handle(ctx context.Context, err error)
}

// DefaultHandler logs errors with level chosen by error type.
type DefaultHandler struct {
	logger *slog.Logger
}

// NewDefaultHandler creates a new default error handler
func NewDefaultHandler(logger *slog.Logger) *DefaultHandler {
	return &DefaultHandler{
		logger: logger,
	}
}

// Handle implements the Handler interface
func (h *DefaultHandler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	e, ok := err.(*Error)
	if !ok {
		h.logger.ErrorContext(ctx, "unhandled error", slog.String("error", err.Error()))
		return
	}

	attrs := []any{
		slog.String("error_code", e.Code),
		slog.String("error_type", errorTypeToString(e.Type)),
		slog.Time("timestamp", e.Timestamp),
	}

	if e.Details != "" {
		attrs = append(attrs, slog.String("details", e.Details))
	}

	if e.Cause != nil {
		attrs = append(attrs, slog.String("cause", e.Cause.Error()))
	}

	switch e.Type {
	case ErrorTypeInternal:
		h.logger.ErrorContext(ctx, e.Message, attrs...)
	case ErrorTypeTimeout, ErrorTypeNotFound:
		h.logger.WarnContext(ctx, e.Message, attrs...)
	default:
		h.logger.InfoContext(ctx, e.Message, attrs...)
	}
}

// errorTypeToString converts ErrorType to string
func errorTypeToString(t ErrorType) string {
	switch t {
	case ErrorTypeTransport:
		return "transport"
	case ErrorTypeProtocol:
		return "protocol"
	case ErrorTypeSubscription:
		return "subscription"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeInternal:
		return "internal"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeValidation:
		return "validation"
	default:
		return "unknown"
	}
}
