package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseUint64orHex(t *testing.T) {
	tests := []struct {
		name    string
		input   *string
		want    uint64
		wantErr bool
	}{
		{name: "nil input", input: nil, want: 0},
		{name: "decimal string", input: strPtr("12345"), want: 12345},
		{name: "hex string", input: strPtr("0x1a2b"), want: 0x1a2b},
		{name: "upper case prefix", input: strPtr("0XFF"), want: 0xff},
		{name: "surrounding spaces", input: strPtr(" 42 "), want: 42},
		{name: "invalid decimal", input: strPtr("12abc"), wantErr: true},
		{name: "invalid hex", input: strPtr("0xGHIJK"), wantErr: true},
		{name: "empty string", input: strPtr(""), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUint64orHex(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExponentialBackoff(t *testing.T) {
	initial := 100 * time.Millisecond
	maxBackoff := time.Second

	require.Zero(t, ExponentialBackoff(1, initial, maxBackoff, 2))

	second := ExponentialBackoff(2, initial, maxBackoff, 2)
	require.GreaterOrEqual(t, second, 75*time.Millisecond)
	require.LessOrEqual(t, second, 125*time.Millisecond)

	third := ExponentialBackoff(3, initial, maxBackoff, 2)
	require.GreaterOrEqual(t, third, 150*time.Millisecond)
	require.LessOrEqual(t, third, 250*time.Millisecond)

	capped := ExponentialBackoff(20, initial, maxBackoff, 2)
	require.LessOrEqual(t, capped, 1250*time.Millisecond)
	require.GreaterOrEqual(t, capped, 750*time.Millisecond)
}

func TestToLowerWithTrim(t *testing.T) {
	require.Equal(t, "debug", ToLowerWithTrim("  DEBUG "))
}

func strPtr(s string) *string {
	return &s
}
