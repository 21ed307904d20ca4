// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Lingesh-S/multi-agent-blog-generator/pkg/types"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"WARNING", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"CRITICAL", zapcore.FatalLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("TRACE")
	assert.Error(t, err)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	logger, err := New(types.LogConfig{Level: "INFO", File: path, Format: "json"})
	require.NoError(t, err)

	logger.Info("hello", zap.String("topic", "go"))
	logger.Debug("hidden")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"hello"`)
	assert.Contains(t, out, `"topic":"go"`)
	assert.False(t, strings.Contains(out, "hidden"), "debug message must be filtered at INFO")
}

func TestAgentLoggerName(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Agent(zap.New(core), "Researcher").Info("start")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "agent.researcher", entries[0].LoggerName)
}

func TestAgentNilBase(t *testing.T) {
	assert.NotNil(t, Agent(nil, "Writer"))
}
