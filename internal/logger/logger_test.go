package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	l, err := New("warn", false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	dev, err := New("error", true)
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	_, err = New("loud", false)
	assert.Error(t, err)
}

func TestWithKeepsWrapper(t *testing.T) {
	l := NewNop().With(zap.String("family_id", "7")).Named("insights")
	require.NotNil(t, l.Logger)
	l.Info("computed")
}
