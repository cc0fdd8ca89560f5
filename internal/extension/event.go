// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package extension

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType is the discriminator of a lifecycle event.
type EventType string

const (
	Invoke   EventType = "INVOKE"
	Shutdown EventType = "SHUTDOWN"
)

// Event is a decoded lifecycle event. It is sealed: only InvokeEvent and
// ShutdownEvent implement it.
type Event interface {
	Type() EventType
	Deadline() uint64
	sealed()
}

// Tracing carries the platform's tracing header for an invocation.
type Tracing struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// InvokeEvent announces that the function is about to process one request.
type InvokeEvent struct {
	RequestID          string  `json:"requestId"`
	DeadlineMs         uint64  `json:"deadlineMs"`
	InvokedFunctionARN string  `json:"invokedFunctionArn"`
	Tracing            Tracing `json:"tracing"`
}

// ShutdownEvent announces that the execution environment is being torn down.
type ShutdownEvent struct {
	Reason     string `json:"shutdownReason"`
	DeadlineMs uint64 `json:"deadlineMs"`
}

func (InvokeEvent) Type() EventType      { return Invoke }
func (e InvokeEvent) Deadline() uint64   { return e.DeadlineMs }
func (InvokeEvent) sealed()              {}
func (ShutdownEvent) Type() EventType    { return Shutdown }
func (e ShutdownEvent) Deadline() uint64 { return e.DeadlineMs }
func (ShutdownEvent) sealed()            {}

type envelope struct {
	EventType *EventType `json:"eventType"`
}

// DecodeEvent decodes a next-event body. The eventType field selects the
// variant; a missing or unknown discriminator and any malformed body yield a
// *DecodeError.
func DecodeEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &DecodeError{Raw: excerpt(raw), Err: err}
	}
	if env.EventType == nil {
		return nil, &DecodeError{Raw: excerpt(raw), Err: errors.New("missing eventType discriminator")}
	}

	switch *env.EventType {
	case Invoke:
		var evt InvokeEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			return nil, &DecodeError{EventType: string(Invoke), Raw: excerpt(raw), Err: err}
		}
		if evt.RequestID == "" {
			return nil, &DecodeError{EventType: string(Invoke), Raw: excerpt(raw), Err: errors.New("missing requestId")}
		}
		return evt, nil
	case Shutdown:
		var evt ShutdownEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			return nil, &DecodeError{EventType: string(Shutdown), Raw: excerpt(raw), Err: err}
		}
		return evt, nil
	default:
		return nil, &DecodeError{
			EventType: string(*env.EventType),
			Raw:       excerpt(raw),
			Err:       fmt.Errorf("unknown eventType %q", *env.EventType),
		}
	}
}
