// Package logging constructs the zap logger every driver-facing package
// (internal/frontend.Compiler, internal/backend, cmd/wasm2nativec) takes
// by reference, grounded on wippyai-wasm-runtime's choice of
// go.uber.org/zap for a Wasm-adjacent Go project's structured logging.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger from spec.md section 6's -v=0..5 verbosity
// flag. Levels 4 and 5 both map to DebugLevel, which also enables
// per-instruction trace logging in the frontend's opcode dispatch loop
// (opcode_dispatch.go calls Logger.Check(zap.DebugLevel, ...) before
// formatting a trace line).
func New(verbosity int) (*zap.Logger, error) {
	level := levelForVerbosity(verbosity)

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = ""

	return cfg.Build()
}

func levelForVerbosity(v int) zapcore.Level {
	switch {
	case v <= 0:
		return zapcore.PanicLevel
	case v == 1:
		return zapcore.ErrorLevel
	case v == 2:
		return zapcore.WarnLevel
	case v == 3:
		return zapcore.InfoLevel
	default: // 4, 5
		return zapcore.DebugLevel
	}
}
