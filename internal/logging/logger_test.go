package logging_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/wasm2native/wasm2nativec/internal/logging"
)

func TestNew_VerbosityToLevel(t *testing.T) {
	cases := []struct {
		verbosity int
		enabled   zapcore.Level
	}{
		{0, zapcore.PanicLevel},
		{2, zapcore.WarnLevel},
		{3, zapcore.InfoLevel},
		{5, zapcore.DebugLevel},
	}
	for _, c := range cases {
		l, err := logging.New(c.verbosity)
		require.NoError(t, err)
		require.True(t, l.Core().Enabled(c.enabled))
	}
}
