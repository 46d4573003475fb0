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

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(" warning "))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nope"))
}

func TestFrom_FallsBackToSingleton(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := Replace(zap.New(core))
	defer restore()

	From(context.Background()).Info("hello", CourseID("c1"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "c1", logs.All()[0].ContextMap()["course_id"])
}

func TestToContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	scoped := zap.New(core).With(RequestID("r-1"))
	ctx := ToContext(context.Background(), scoped)

	From(ctx).Info("x", Action("COURSE_REGISTER"))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "r-1", fields["request_id"])
	assert.Equal(t, "COURSE_REGISTER", fields["action"])
}

func TestFieldAlias(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	fields := []Field{Component("session"), Key("session-revoked:u1"), Count(2)}

	zap.New(core).Info("x", fields...)
	require.Equal(t, 1, logs.Len())
	got := logs.All()[0].ContextMap()
	assert.Equal(t, "session", got["component"])
	assert.Equal(t, "session-revoked:u1", got["key"])
	assert.EqualValues(t, 2, got["count"])
}
