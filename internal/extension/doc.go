// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package extension is a client for the platform extension API: the one-time
// registration handshake, the next-event long-poll and exit error reporting.
//
// Lifecycle events form a closed set. Event is sealed; the only
// implementations are InvokeEvent and ShutdownEvent, and DecodeEvent rejects
// any other discriminator with a *DecodeError.
package extension
