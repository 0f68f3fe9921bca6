package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/pathrecorder/internal/dispatcher"
)

var _ dispatcher.Logger = (*DispatcherLogger)(nil)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestDispatcherLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		log   func(*DispatcherLogger)
	}{
		{"debug", func(l *DispatcherLogger) { l.Debug("msg", "topic", "point") }},
		{"info", func(l *DispatcherLogger) { l.Info("msg", "topic", "point") }},
		{"error", func(l *DispatcherLogger) { l.Error("msg", "topic", "point") }},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewDispatcherLogger(NewZerolog(&buf, "debug", "dispatcher")))

			entry := decodeLine(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "msg", entry["message"])
			assert.Equal(t, "point", entry["topic"])
			assert.Equal(t, "dispatcher", entry["component"])
		})
	}
}

func TestNewZerolog_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewDispatcherLogger(NewZerolog(&buf, "info", "dispatcher"))

	l.Debug("filtered")
	assert.Empty(t, buf.String())

	l.Info("kept")
	assert.Contains(t, buf.String(), "kept")

	buf.Reset()
	NewDispatcherLogger(NewZerolog(&buf, "bogus", "x")).Debug("filtered")
	assert.Empty(t, buf.String())
}

func TestToFields(t *testing.T) {
	fields := toFields([]any{"a", 1, 2, "skipped", "dangling"})

	assert.Equal(t, map[string]any{"a": 1}, fields)
}
