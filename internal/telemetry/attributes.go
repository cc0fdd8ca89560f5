// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the extension.
const (
	// Lifecycle attributes
	EventTypeKey      = "extension.event_type"
	InvocationIDKey   = "faas.invocation_id"
	FunctionARNKey    = "faas.invoked_arn"
	DeadlineMsKey     = "faas.deadline_ms"
	TracingTypeKey    = "faas.tracing.type"
	ShutdownReasonKey = "extension.shutdown_reason"

	// Relay attributes
	RelayUpstreamKey = "relay.upstream"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// InvokeAttributes creates span attributes for an invoke event.
func InvokeAttributes(requestID, functionARN, tracingType string, deadlineMs uint64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(EventTypeKey, "INVOKE"),
		attribute.String(InvocationIDKey, requestID),
		attribute.Int64(DeadlineMsKey, int64(deadlineMs)), // #nosec G115 -- epoch millis fit in int64
	}
	if functionARN != "" {
		attrs = append(attrs, attribute.String(FunctionARNKey, functionARN))
	}
	if tracingType != "" {
		attrs = append(attrs, attribute.String(TracingTypeKey, tracingType))
	}
	return attrs
}

// ShutdownAttributes creates span attributes for a shutdown event.
func ShutdownAttributes(reason string, deadlineMs uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(EventTypeKey, "SHUTDOWN"),
		attribute.String(ShutdownReasonKey, reason),
		attribute.Int64(DeadlineMsKey, int64(deadlineMs)), // #nosec G115 -- epoch millis fit in int64
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(err error, errorType string) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String(ErrorKey, err.Error()),
		attribute.String(ErrorTypeKey, errorType),
	}
}
