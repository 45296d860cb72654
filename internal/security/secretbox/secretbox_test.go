package secretbox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey() string {
	key := make([]byte, keySize)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestSealOpen(t *testing.T) {
	box, err := New(testKey())
	require.NoError(t, err)

	sealed, err := box.Seal("refresh-token-value")
	require.NoError(t, err)
	require.NotContains(t, sealed, "refresh-token-value")

	plain, err := box.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "refresh-token-value", plain)
}

func TestOpenRejectsTampering(t *testing.T) {
	box, err := New(testKey())
	require.NoError(t, err)

	sealed, err := box.Seal("secret")
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff

	_, err = box.Open(base64.StdEncoding.EncodeToString(raw))
	require.ErrorIs(t, err, ErrOpen)
}

func TestNewValidatesKey(t *testing.T) {
	_, err := New("")
	require.Error(t, err)

	_, err = New(base64.StdEncoding.EncodeToString([]byte("short")))
	require.Error(t, err)
}
