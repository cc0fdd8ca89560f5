// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package extension

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport classifies failures to reach the extension API or read its response.
	ErrTransport = errors.New("extension API transport error")

	// ErrRegistrationRejected is returned when /register answers with anything but 200.
	ErrRegistrationRejected = errors.New("extension registration rejected")

	// ErrMissingIdentifier is returned when a successful registration carries no identifier header.
	ErrMissingIdentifier = errors.New("registration response has no " + HeaderExtensionID + " header")

	// ErrUnexpectedStatus is returned when /event/next answers with a non-200 status.
	ErrUnexpectedStatus = errors.New("unexpected status from extension API")

	// ErrDecode classifies next-event bodies that cannot be decoded into an Event.
	ErrDecode = errors.New("malformed lifecycle event")
)

// maxExcerpt bounds how much of a raw payload is kept for diagnostics.
const maxExcerpt = 512

// DecodeError reports a next-event body that could not be decoded. It keeps
// the discriminator (if one was found) and a bounded excerpt of the raw body so
// the failure can be blamed on the payload.
type DecodeError struct {
	EventType string
	Raw       string
	Err       error
}

func (e *DecodeError) Error() string {
	if e.EventType != "" {
		return fmt.Sprintf("%s: eventType %q: %v (body: %s)", ErrDecode, e.EventType, e.Err, e.Raw)
	}
	return fmt.Sprintf("%s: %v (body: %s)", ErrDecode, e.Err, e.Raw)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDecode) hold for every *DecodeError.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func excerpt(raw []byte) string {
	if len(raw) <= maxExcerpt {
		return string(raw)
	}
	return string(raw[:maxExcerpt]) + "...(truncated)"
}
