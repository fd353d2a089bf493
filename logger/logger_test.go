package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
		verbosity  int
		wantLevel  zapcore.Level
	}{
		{name: "JSON output quiet", jsonOutput: true, verbosity: VerbosityUser, wantLevel: zapcore.WarnLevel},
		{name: "console output -v", jsonOutput: false, verbosity: VerbosityInfo, wantLevel: zapcore.InfoLevel},
		{name: "console output -vv", jsonOutput: false, verbosity: VerbosityDebug, wantLevel: zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			require.NoError(t, Initialize(tt.jsonOutput, tt.verbosity))
			require.NotNil(t, Logger)
			assert.Equal(t, tt.jsonOutput, JSONOutput)
			assert.True(t, Logger.Desugar().Core().Enabled(tt.wantLevel))
			if tt.wantLevel > zapcore.DebugLevel {
				assert.False(t, Logger.Desugar().Core().Enabled(tt.wantLevel-1))
			}

			Logger = zap.NewNop().Sugar()
		})
	}
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(VerbosityUser))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(VerbosityInfo))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(VerbosityDebug))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(VerbosityAll+3))
	assert.True(t, ShouldLogTrace(VerbosityTrace))
	assert.False(t, ShouldLogAll(VerbosityTrace))
	assert.Equal(t, "All (-vvvv+)", LevelName(9))
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	require.NotNil(t, l)
	l.Infow("does not panic")

	core, _ := observer.New(zapcore.InfoLevel)
	given := zap.New(core).Sugar()
	assert.Same(t, given, OrNop(given))
}

func TestWithContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core).Sugar()

	ctx := WithRequestID(context.Background(), "req-42")
	ctx = WithComponent(ctx, "storage")

	WithContext(ctx, base).Debugw("Executing statement", FieldTable, "posts")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields[FieldRequestID])
	assert.Equal(t, "storage", fields[FieldComponent])
	assert.Equal(t, "posts", fields[FieldTable])
}

func TestWithContext_NoFields(t *testing.T) {
	base := zap.NewNop().Sugar()
	assert.Same(t, base, WithContext(context.Background(), base))
	assert.Empty(t, FieldsFromContext(context.Background()))
}
