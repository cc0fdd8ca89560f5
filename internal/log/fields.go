// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldExtensionID   = "extension_id"
	FieldExtensionName = "extension_name"
	FieldRequestID     = "request_id"
	FieldFunctionARN   = "function_arn"

	// Lifecycle fields
	FieldEvent      = "event"
	FieldComponent  = "component"
	FieldEventType  = "event_type"
	FieldDeadlineMs = "deadline_ms"
	FieldReason     = "reason"

	// Trace fields
	FieldTraceID = "trace_id"
	FieldSpanID  = "span_id"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath     = "path"
	FieldBaseURL  = "base_url"
	FieldUpstream = "upstream"
	FieldAddr     = "addr"
)
