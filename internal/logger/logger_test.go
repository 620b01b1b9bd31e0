// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

// ── constructors ─────────────────────────────────────────────────────────────

func TestNewWriterLogger_EntryFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf, "devserver")

	l.Info().Str("survey_id", "abc123").Msg("submission received")

	entries := decodeEntries(t, &buf)
	require.Len(t, entries, 1)
	entry := entries[0]

	assert.Equal(t, "devserver", entry["role"])
	assert.Equal(t, "abc123", entry["survey_id"])
	assert.Equal(t, "submission received", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry["func"], "TestNewWriterLogger_EntryFields", "caller is reported as the function name")
}

func TestNewLogger_SetsGlobals(t *testing.T) {
	l := NewLogger("devserver")
	require.NotNil(t, l)

	assert.Equal(t, "func", zerolog.CallerFieldName)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestNop_DiscardsOutput(t *testing.T) {
	var buf bytes.Buffer
	l := Nop()
	l.Logger = l.Output(&buf)

	l.Error().Msg("dropped")

	assert.Empty(t, buf.String())
}

// ── derived loggers ──────────────────────────────────────────────────────────

func TestDerivedLoggers(t *testing.T) {
	tests := []struct {
		name      string
		derive    func(*Logger) *Logger
		component any
	}{
		{
			name:      "child keeps parent fields",
			derive:    (*Logger).GetChildLogger,
			component: nil,
		},
		{
			name:      "component tag",
			derive:    func(l *Logger) *Logger { return l.WithComponent("pipeline") },
			component: "pipeline",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			parent := NewWriterLogger(&buf, "client")

			child := tt.derive(parent)
			require.NotSame(t, parent, child)
			child.Info().Msg("queue drained")

			entries := decodeEntries(t, &buf)
			require.Len(t, entries, 1)
			assert.Equal(t, "client", entries[0]["role"])
			assert.Equal(t, tt.component, entries[0]["component"])
		})
	}
}

// ── context helpers ──────────────────────────────────────────────────────────

func TestFromContext(t *testing.T) {
	t.Run("without attached logger", func(t *testing.T) {
		l := FromContext(context.Background())
		require.NotNil(t, l)
		assert.NotPanics(t, func() { l.Info().Msg("nowhere") })
	})

	t.Run("attached with WithContext", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := NewWriterLogger(&buf, "client").WithComponent("cache").WithContext(context.Background())

		FromContext(ctx).Warn().Msg("freshness check failed")

		entries := decodeEntries(t, &buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "cache", entries[0]["component"])
		assert.Equal(t, "warn", entries[0]["level"])
	})
}

func TestFromRequest(t *testing.T) {
	t.Run("without attached logger", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/connection", nil)
		require.NotNil(t, FromRequest(req))
	})

	t.Run("attached to request context", func(t *testing.T) {
		var buf bytes.Buffer
		zl := zerolog.New(&buf).With().Str("trace_id", "t-1").Logger()

		req := httptest.NewRequest(http.MethodPost, "/submission/abc123", nil)
		req = req.WithContext(zl.WithContext(req.Context()))

		FromRequest(req).Info().Msg("submission received")

		entries := decodeEntries(t, &buf)
		require.Len(t, entries, 1)
		assert.Equal(t, "t-1", entries[0]["trace_id"])
	})
}
