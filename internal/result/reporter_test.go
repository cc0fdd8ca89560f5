// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package result

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, dir, id, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, id), []byte(content), 0o600))
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "req-1", `{"payload":{"status":"ok","n":3}}`)
	writeArtifact(t, dir, "req-null", `{"payload":null}`)
	writeArtifact(t, dir, "req-empty", `{"other":1}`)
	writeArtifact(t, dir, "req-bad", `{"payload":`)

	r := NewReporter(dir)

	res, err := r.Read("req-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","n":3}`, string(res.Payload))

	res, err = r.Read("req-null")
	require.NoError(t, err)
	assert.Equal(t, "null", string(res.Payload))

	_, err = r.Read("req-empty")
	require.ErrorIs(t, err, ErrMissingPayload)

	_, err = r.Read("req-bad")
	require.Error(t, err)

	_, err = r.Read("req-missing")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRead_RejectsUnsafeIDs(t *testing.T) {
	r := NewReporter(t.TempDir())
	for _, id := range []string{"", ".", "..", "../etc/passwd", "a/b", `a\b`} {
		_, err := r.Read(id)
		assert.ErrorIs(t, err, ErrUnsafeRequestID, id)
	}
}

func TestRead_RejectsSymlinkOutsideDir(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	writeArtifact(t, outside, "req-x", `{"payload":1}`)
	require.NoError(t, os.Symlink(filepath.Join(outside, "req-x"), filepath.Join(dir, "req-x")))

	_, err := NewReporter(dir).Read("req-x")
	require.ErrorIs(t, err, ErrUnsafeRequestID)
}

func TestRead_DirectoryIsNotAResult(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "req-dir"), 0o750))

	_, err := NewReporter(dir).Read("req-dir")
	require.Error(t, err)
}

func TestProcess_LogsPayload(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "abc", `{"payload":{"k":"v"}}`)

	var buf bytes.Buffer
	r := NewReporter(dir).WithLogger(zerolog.New(&buf))
	r.Process("abc")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "abc", entry["request_id"])
	assert.Equal(t, map[string]any{"k": "v"}, entry["payload"])
}

func TestProcess_MissingFileIsLoggedNotFatal(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(t.TempDir()).WithLogger(zerolog.New(&buf))

	assert.NotPanics(t, func() { r.Process("gone") })

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "result.unavailable", entry["event"])
}
