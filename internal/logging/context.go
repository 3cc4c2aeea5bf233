package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. "evidence_save_failed").
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldSessionID identifies one recording session.
	FieldSessionID = "session_id"
	// FieldTriggerID identifies one SOS trigger across dispatch, capture, and upload.
	FieldTriggerID = "trigger_id"
	// FieldArtifactID is the evidence store identifier of a saved recording.
	FieldArtifactID = "artifact_id"
	// FieldContactID identifies an emergency contact.
	FieldContactID = "contact_id"
	// FieldMode is the alert dispatch mode.
	FieldMode = "mode"
)

type contextKey int

const (
	sessionIDKey contextKey = iota
	triggerIDKey
)

// WithSessionID returns a context carrying the recording session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the recording session identifier, if any.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// WithTriggerID returns a context carrying the SOS trigger identifier.
func WithTriggerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, triggerIDKey, id)
}

// TriggerIDFromContext returns the SOS trigger identifier, if any.
func TriggerIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(triggerIDKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := TriggerIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTriggerID, id))
	}
	if id, ok := SessionIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSessionID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	return logger.With(args...)
}
