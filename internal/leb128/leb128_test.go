package leb128_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasm2native/wasm2nativec/internal/leb128"
)

func TestLoadUint32(t *testing.T) {
	v, n, err := leb128.LoadUint32([]byte{0xe5, 0x8e, 0x26})
	require.NoError(t, err)
	require.EqualValues(t, 624485, v)
	require.EqualValues(t, 3, n)
}

func TestLoadInt32_Negative(t *testing.T) {
	// -624485 encoded as SLEB128.
	v, n, err := leb128.LoadInt32([]byte{0x9b, 0xf1, 0x59})
	require.NoError(t, err)
	require.EqualValues(t, -624485, v)
	require.EqualValues(t, 3, n)
}

func TestLoadInt32_SmallValues(t *testing.T) {
	for _, tc := range []struct {
		bytes []byte
		want  int32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, -1},
		{[]byte{0x3f}, 63},
		{[]byte{0x40}, -64},
	} {
		v, _, err := leb128.LoadInt32(tc.bytes)
		require.NoError(t, err)
		require.Equal(t, tc.want, v)
	}
}

func encodeSLEB64(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			out = append(out, b)
			break
		}
		out = append(out, b|0x80)
	}
	return out
}

func TestLoadInt64_RoundTrip(t *testing.T) {
	for _, want := range []int64{0, 1, -1, 127, -128, 1 << 40, -(1 << 40), -9223372036854775808, 9223372036854775807} {
		v, n, err := leb128.LoadInt64(encodeSLEB64(want))
		require.NoError(t, err)
		require.Equal(t, want, v)
		require.EqualValues(t, len(encodeSLEB64(want)), n)
	}
}

func TestLoadUint32_TooShort(t *testing.T) {
	_, _, err := leb128.LoadUint32([]byte{0x80})
	require.Error(t, err)
}
