// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestReconfigure_ServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "debug", Output: &buf, Service: "relay-extension", Version: "v0.1.0"})
	t.Cleanup(func() { Reconfigure(Config{}) })

	l := WithComponent("loop")
	l.Info().Str(FieldEvent, "test.event").Msg("hello")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "relay-extension", entry["service"])
	assert.Equal(t, "v0.1.0", entry["version"])
	assert.Equal(t, "loop", entry[FieldComponent])
	assert.Equal(t, "test.event", entry[FieldEvent])
}

func TestConfigure_FirstCallWins(t *testing.T) {
	var first, second bytes.Buffer
	Reconfigure(Config{Output: &first, Service: "first"})
	t.Cleanup(func() { Reconfigure(Config{}) })

	Configure(Config{Output: &second, Service: "second"})
	l := WithComponent("main")
	l.Info().Msg("x")

	assert.NotZero(t, first.Len())
	assert.Zero(t, second.Len())
}

func TestWithComponentLevel(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { Reconfigure(Config{}) })

	l := WithComponentLevel("relay", "warn")
	l.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("kept")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "relay", entry[FieldComponent])
	assert.Equal(t, zerolog.LevelWarnValue, entry["level"])
}

func TestWithComponentLevel_BelowBaseLevel(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "info", Output: &buf})
	t.Cleanup(func() { Reconfigure(Config{}) })

	l := WithComponentLevel("relay", "debug")
	l.Debug().Str(FieldEvent, "relay.debug").Msg("component debug")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "relay", entry[FieldComponent])
	assert.Equal(t, zerolog.LevelDebugValue, entry["level"])
}

func TestBaseLevelFiltersComponents(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Reconfigure(Config{}) })

	l := WithComponent("controller")
	l.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	inherited := WithComponentLevel("relay", "")
	inherited.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	l.Error().Msg("kept")
	entry := decodeLine(t, &buf)
	assert.Equal(t, zerolog.LevelErrorValue, entry["level"])
}

func TestWithComponentLevel_InvalidKeepsBaseLevel(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "info", Output: &buf})
	t.Cleanup(func() { Reconfigure(Config{}) })

	l := WithComponentLevel("relay", "chatty")
	buf.Reset() // drop the warning about the bad level
	l.Debug().Msg("dropped")
	assert.Zero(t, buf.Len())
}
