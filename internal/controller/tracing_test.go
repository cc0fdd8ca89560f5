// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package controller

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ManuGH/relay-extension/internal/log"
)

func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		out = append(out, entry)
	}
	return out
}

func TestRun_InvokeLogCarriesSpanIDs(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	h := newHarness(invoke("req-1"), shutdown("SPINDOWN"))
	l, err := New(Deps{
		Registrar:    h.reg,
		Poller:       h.poller,
		Supervisor:   h.sup,
		Reporter:     h.rep,
		Shutdowner:   h.shut,
		Flag:         h.flag,
		PollInterval: time.Millisecond,
		Sleep:        func(context.Context, time.Duration) {},
		Tracer:       tp.Tracer("controller-test"),
		Logger:       &logger,
	})
	require.NoError(t, err)
	require.NoError(t, l.Run(context.Background()))

	var invokeSpanTrace string
	for _, s := range recorder.Ended() {
		if s.Name() == "extension.invoke" {
			invokeSpanTrace = s.SpanContext().TraceID().String()
		}
	}
	require.NotEmpty(t, invokeSpanTrace, "invoke span recorded")

	var found bool
	for _, entry := range logEntries(t, &buf) {
		if entry[log.FieldEvent] != "extension.invoke" {
			continue
		}
		found = true
		assert.Equal(t, invokeSpanTrace, entry[log.FieldTraceID])
		assert.NotEmpty(t, entry[log.FieldSpanID])
		assert.Equal(t, "req-1", entry[log.FieldRequestID])
	}
	assert.True(t, found, "invoke log line written")
}
