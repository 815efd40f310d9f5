package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinCodesRoundTrip(t *testing.T) {
	codes, err := NewJoinCodeGenerator("test salt")
	require.NoError(t, err)

	seen := map[string]bool{}
	for id := uint(1); id <= 200; id++ {
		code, err := codes.Encode(id)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(code), joinCodeLength)
		require.Equal(t, strings.ToUpper(code), code)
		require.NotContains(t, code, "O")
		require.NotContains(t, code, "0")
		require.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true

		decoded, err := codes.Decode(code)
		require.NoError(t, err)
		require.Equal(t, id, decoded)
	}
}

func TestJoinCodeDecodeRejectsGarbage(t *testing.T) {
	codes, err := NewJoinCodeGenerator("test salt")
	require.NoError(t, err)

	_, err = codes.Decode("")
	require.ErrorIs(t, err, ErrJoinCodeInvalid)

	_, err = codes.Decode("not-a-code")
	require.ErrorIs(t, err, ErrJoinCodeInvalid)

	other, err := NewJoinCodeGenerator("another salt")
	require.NoError(t, err)
	code, err := other.Encode(42)
	require.NoError(t, err)
	decoded, err := codes.Decode(code)
	if err == nil {
		require.NotEqual(t, uint(42), decoded)
	}
}

func TestUsernamesArePrefixed(t *testing.T) {
	usernames, err := NewUsernameGenerator("test salt")
	require.NoError(t, err)
	codes, err := NewJoinCodeGenerator("test salt")
	require.NoError(t, err)

	username, err := usernames.Encode(7)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(username, usernamePrefix))
	require.Equal(t, strings.ToLower(username), username)

	joinCode, err := codes.Encode(7)
	require.NoError(t, err)
	require.False(t, strings.HasPrefix(joinCode, usernamePrefix))

	id, err := usernames.Decode(username)
	require.NoError(t, err)
	require.Equal(t, uint(7), id)

	_, err = usernames.Decode(strings.TrimPrefix(username, usernamePrefix))
	require.ErrorIs(t, err, ErrJoinCodeInvalid)
}
