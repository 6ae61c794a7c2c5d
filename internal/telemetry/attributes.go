// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Break session attributes
	BreakSessionIDKey = "break.session_id"
	BreakTypeKey      = "break.type"
	BreakUserIDKey    = "break.user_id"
	BreakStatusKey    = "break.status"
	BreakViolationKey = "break.violation_seconds"

	// Event dispatch attributes
	EventTypeKey        = "event.type"
	EventSubscribersKey = "event.subscribers"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SessionAttributes creates break-session span attributes.
func SessionAttributes(sessionID, breakType, status string, userID int64) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if sessionID != "" {
		attrs = append(attrs, attribute.String(BreakSessionIDKey, sessionID))
	}
	if breakType != "" {
		attrs = append(attrs, attribute.String(BreakTypeKey, breakType))
	}
	if status != "" {
		attrs = append(attrs, attribute.String(BreakStatusKey, status))
	}
	attrs = append(attrs, attribute.Int64(BreakUserIDKey, userID))
	return attrs
}

// ViolationAttribute records the overrun length on a span.
func ViolationAttribute(seconds int64) attribute.KeyValue {
	return attribute.Int64(BreakViolationKey, seconds)
}

// EventAttributes creates dispatch-related span attributes.
func EventAttributes(eventType string, subscribers int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(EventTypeKey, eventType),
		attribute.Int(EventSubscribersKey, subscribers),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
