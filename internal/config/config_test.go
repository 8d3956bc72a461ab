package config_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasm2native/wasm2nativec/internal/config"
)

func TestParseFlags_Defaults(t *testing.T) {
	var stdErr bytes.Buffer
	cfg, err := config.ParseFlags([]string{"-o", "out.o", "in.wasm"}, &stdErr)
	require.NoError(t, err)
	require.Equal(t, "out.o", cfg.Output)
	require.Equal(t, "in.wasm", cfg.WasmPath)
	require.Equal(t, "gnu", cfg.TargetABI)
	require.Equal(t, 3, cfg.OptLevel)
	require.Equal(t, 3, cfg.SizeLevel)
	require.Equal(t, config.FormatObject, cfg.Format)
	require.Equal(t, 2, cfg.Verbosity)
	require.False(t, cfg.NoSandboxMode)
	require.False(t, cfg.EnableAuxStackCheck)
}

func TestParseFlags_MissingOutput(t *testing.T) {
	var stdErr bytes.Buffer
	_, err := config.ParseFlags([]string{"in.wasm"}, &stdErr)
	require.Error(t, err)
}

func TestParseFlags_MissingWasmPath(t *testing.T) {
	var stdErr bytes.Buffer
	_, err := config.ParseFlags([]string{"-o", "out.o"}, &stdErr)
	require.Error(t, err)
}

func TestParseFlags_UnrecognizedFormat(t *testing.T) {
	var stdErr bytes.Buffer
	_, err := config.ParseFlags([]string{"-o", "out.o", "--format=bogus", "in.wasm"}, &stdErr)
	require.Error(t, err)
}

func TestParseFlags_NoSandboxModeRejectsHeapSize(t *testing.T) {
	var stdErr bytes.Buffer
	_, err := config.ParseFlags([]string{"-o", "out.o", "--no-sandbox-mode", "--heap-size=65536", "in.wasm"}, &stdErr)
	require.Error(t, err)
}

func TestParseFlags_TargetHelpReturnsErrHelp(t *testing.T) {
	var stdErr bytes.Buffer
	_, err := config.ParseFlags([]string{"-o", "out.o", "--target=help", "in.wasm"}, &stdErr)
	require.ErrorIs(t, err, config.ErrHelp)
}

func TestParseFlags_Version(t *testing.T) {
	var stdErr bytes.Buffer
	_, err := config.ParseFlags([]string{"--version"}, &stdErr)
	require.ErrorIs(t, err, config.ErrVersion)
}

func TestParseFlags_EnableAuxStackCheck(t *testing.T) {
	var stdErr bytes.Buffer
	cfg, err := config.ParseFlags([]string{"-o", "out.o", "--enable-aux-stack-check", "in.wasm"}, &stdErr)
	require.NoError(t, err)
	require.True(t, cfg.EnableAuxStackCheck)
}

func TestParseFlags_OptLevelOutOfRange(t *testing.T) {
	var stdErr bytes.Buffer
	_, err := config.ParseFlags([]string{"-o", "out.o", "--opt-level=4", "in.wasm"}, &stdErr)
	require.Error(t, err)
}

func TestNoDecoderAvailable_AlwaysFails(t *testing.T) {
	_, err := (config.NoDecoderAvailable{}).Decode("anything.wasm")
	require.ErrorIs(t, err, config.ErrDecoderUnavailable)
}
