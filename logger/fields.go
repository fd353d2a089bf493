package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across entorm.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRequestID   = "request_id"
	FieldStatementID = "statement_id"

	// Components
	FieldComponent = "component"

	// Operations
	FieldOperation = "operation"
	FieldQuery     = "query"
	FieldArgs      = "args"

	// Mapping
	FieldEntityType = "entity_type"
	FieldEntityID   = "entity_id"
	FieldTable      = "table"
	FieldField      = "field"
	FieldColumn     = "column"
	FieldRelation   = "relation"
	FieldValueType  = "value_type"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount        = "count"
	FieldRows         = "rows"
	FieldRowsAffected = "rows_affected"
	FieldTotalCount   = "total_count"
	FieldLimit        = "limit"
	FieldPage         = "page"

	// Database
	FieldDriver = "driver"
	FieldPath   = "path"
	FieldFile   = "file"
)

// Context keys for propagating logging context
type contextKey string

const (
	requestIDKey contextKey = "logger_request_id"
	componentKey contextKey = "logger_component"
)

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// WithContext returns base enriched with the fields carried by ctx.
// Statement executors use this so a request id set by the caller shows up
// on every SQL log line issued on its behalf.
func WithContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	exec := storage.NewSQLExecutor(conn, query.SQLite, logger.ComponentLogger("storage"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
