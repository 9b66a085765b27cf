package crypto

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKey(t *testing.T) {
	valid := strings.Repeat("ab", KeySize)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid key", input: valid},
		{name: "valid key with surrounding spaces", input: "  " + valid + "\n"},
		{name: "upper case hex", input: strings.ToUpper(valid)},
		{name: "empty", input: "", wantErr: true},
		{name: "too short", input: valid[:62], wantErr: true},
		{name: "too long", input: valid + "00", wantErr: true},
		{name: "not hex", input: strings.Repeat("zz", KeySize), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ResolveKey(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrConfiguration)
				assert.Equal(t, Key{}, key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, byte(0xab), key[0])
			assert.Equal(t, byte(0xab), key[KeySize-1])
		})
	}
}

func TestResolveKey_ErrorDoesNotLeakValue(t *testing.T) {
	secret := strings.Repeat("zq", KeySize)
	_, err := ResolveKey(secret)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), secret)
}

func TestGenerateKey(t *testing.T) {
	first, err := GenerateKey()
	require.NoError(t, err)
	second, err := GenerateKey()
	require.NoError(t, err)

	assert.Len(t, first, 2*KeySize)
	assert.NotEqual(t, first, second)

	_, err = ResolveKey(first)
	assert.NoError(t, err)
}

func TestKey_IsRedacted(t *testing.T) {
	key, err := ResolveKey(strings.Repeat("11", KeySize))
	require.NoError(t, err)

	for _, out := range []string{fmt.Sprint(key), fmt.Sprintf("%v", key), fmt.Sprintf("%#v", key)} {
		assert.NotContains(t, out, "11111111")
		assert.Contains(t, out, "REDACTED")
	}
}
