package utils

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserOutput(t *testing.T) {
	var buf bytes.Buffer
	SetUserOutput(&buf)
	defer SetUserOutput(nil)

	User("hello %s", "world")
	assert.Equal(t, "hello world\n", buf.String())
}

func TestInternalOutputAndLevels(t *testing.T) {
	var buf bytes.Buffer
	SetInternalOutput(&buf)
	defer SetInternalOutput(nil)
	defer SetDebug(false)

	SetDebug(false)
	Debug("hidden %d", 1)
	assert.NotContains(t, buf.String(), "hidden 1")

	SetDebug(true)
	Debug("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
	assert.Equal(t, "debug", Level())

	require.NoError(t, SetLevel("warn"))
	Info("quiet")
	Warn("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")

	assert.Error(t, SetLevel("nope"))
}

func TestErrorf(t *testing.T) {
	var buf bytes.Buffer
	SetInternalOutput(&buf)
	defer SetInternalOutput(nil)

	base := errors.New("boom")
	err := Errorf("wrapped: %w", base)
	require.Error(t, err)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, buf.String(), "wrapped: boom")
}

func TestLoggerContext(t *testing.T) {
	buf := CaptureLogs(t)

	ctx := WithRequestID(context.Background(), "req-42")
	id, ok := RequestIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "req-42", id)

	_, ok = RequestIDFromContext(context.Background())
	assert.False(t, ok)

	InfoCtx(ctx, "handled", "route", "/loader")
	out := buf.String()
	assert.Contains(t, out, "handled")
	assert.Contains(t, out, "req-42")
	assert.Contains(t, out, "/loader")
	assert.NotContains(t, out, "workspace_id")

	ctx = WithWorkspace(ctx, "ws-3")
	ws, ok := WorkspaceFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "ws-3", ws)
	_, ok = WorkspaceFromContext(WithWorkspace(context.Background(), ""))
	assert.False(t, ok)

	ErrorCtx(ctx, "save failed")
	assert.Contains(t, buf.String(), "ws-3")
}

func TestWriteHTTPHelpers(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteHTTPError(rec, "bad input", http.StatusBadRequest)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"bad input"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	require.NoError(t, WriteHTTPJSON(rec, map[string]any{"ok": true}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestPrettyJSON(t *testing.T) {
	out := PrettyJSON(map[string]int{"a": 1})
	assert.True(t, strings.Contains(out, "\n  \"a\": 1"))
	assert.Equal(t, "{\"a\":1}", string(MustMarshalJSON(map[string]int{"a": 1})))
}
