package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for raw, want := range cases {
		got, err := parseLevel(raw)
		require.NoError(t, err, "parseLevel(%q)", raw)
		assert.Equal(t, want, got, "parseLevel(%q)", raw)
	}

	_, err := parseLevel("loud")
	assert.Error(t, err)
}
