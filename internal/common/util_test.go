package common

import (
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------- MakeRandURLString ----------

func TestMakeRandURLString_DecodesToRequestedSize(t *testing.T) {
	for _, n := range []int{64, 128} {
		s, err := MakeRandURLString(n)
		require.NoError(t, err)

		raw, err := base64.URLEncoding.DecodeString(s)
		require.NoError(t, err)
		assert.Len(t, raw, n)
		assert.NotContains(t, s, "+")
		assert.NotContains(t, s, "/")
	}
}

func TestMakeRandURLString_EntropyHint(t *testing.T) {
	a, err := MakeRandURLString(32)
	require.NoError(t, err)
	b, err := MakeRandURLString(32)
	require.NoError(t, err)

	if a == b {
		t.Logf("warning: two MakeRandURLString(32) results are identical; extremely unlikely")
	}
}

// ---------- WipeByteArray ----------

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	assert.Equal(t, []byte{0, 0, 0, 0, 0}, buf)
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

// ---------- KindError ----------

func TestKindError_MatchesKindAndKeepsMessage(t *testing.T) {
	e := NewError(ErrAlreadyExists, "User name or email is already exist")
	wrapped := fmt.Errorf("register: %w", e)

	assert.True(t, errors.Is(wrapped, ErrAlreadyExists))
	assert.True(t, errors.Is(wrapped, e))
	assert.False(t, errors.Is(wrapped, ErrValidation))
	assert.Equal(t, "User name or email is already exist", Message(wrapped, "fallback"))
}

func TestMessage_Fallback(t *testing.T) {
	assert.Equal(t, "fallback", Message(errors.New("db down"), "fallback"))
	assert.Equal(t, "fallback", Message(nil, "fallback"))
}
