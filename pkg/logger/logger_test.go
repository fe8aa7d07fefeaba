package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf, Level: LevelDebug})

	l.With(Component("session")).Warn("membership points to missing principal",
		UserID("u-1"), Err(errors.New("gone")))

	entry := decode(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "membership points to missing principal", entry["message"])
	assert.Equal(t, "session", entry["component"])
	assert.Equal(t, "u-1", entry["user_id"])
	assert.Equal(t, "gone", entry["error"])
	assert.Contains(t, entry, "time")
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Output: &buf, Level: LevelWarn})

	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.WithLevel(LevelDebug).Debug("kept")
	assert.NotZero(t, buf.Len())
}

func TestLogger_WithDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := New(Options{Output: &buf})
	_ = base.With(String("k", "v"))

	base.Info("plain")
	assert.NotContains(t, decode(t, &buf), "k")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelDebug, ParseLevel(" debug "))
	assert.Equal(t, LevelInfo, ParseLevel("loud"))
}

func TestContext(t *testing.T) {
	l := Nop()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}
