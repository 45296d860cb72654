package sqlite_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-marketplace-client/credentials"
	"github.com/jrsteele09/go-marketplace-client/credentials/sqlite"
	"github.com/jrsteele09/go-marketplace-client/internal/security/secretbox"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string, options ...sqlite.Option) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(path, options...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, filepath.Join(t.TempDir(), "creds", "credentials.db"))

	require.NoError(t, s.SetMany(ctx, map[string]string{
		credentials.KeyAccessToken:  "a",
		credentials.KeyRefreshToken: "r",
		credentials.KeyUser:         `{"id":1}`,
	}))

	got, err := s.GetMany(ctx, credentials.Keys...)
	require.NoError(t, err)
	require.Equal(t, "a", got[credentials.KeyAccessToken])
	require.Equal(t, "r", got[credentials.KeyRefreshToken])
	require.Equal(t, `{"id":1}`, got[credentials.KeyUser])

	require.NoError(t, s.SetMany(ctx, map[string]string{credentials.KeyAccessToken: "b"}))
	got, err = s.GetMany(ctx, credentials.KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, "b", got[credentials.KeyAccessToken])

	require.NoError(t, s.Delete(ctx, credentials.Keys...))
	got, err = s.GetMany(ctx, credentials.Keys...)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.db")

	s, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, s.SetMany(ctx, map[string]string{credentials.KeyRefreshToken: "r"}))
	require.NoError(t, s.Close())

	reopened := openStore(t, path)
	got, err := reopened.GetMany(ctx, credentials.KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "r", got[credentials.KeyRefreshToken])
}

func TestStore_Sealed(t *testing.T) {
	ctx := context.Background()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	box, err := secretbox.New(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "credentials.db")
	sealed := openStore(t, path, sqlite.WithSealer(box))
	require.NoError(t, sealed.SetMany(ctx, map[string]string{credentials.KeyAccessToken: "secret-access"}))

	got, err := sealed.GetMany(ctx, credentials.KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, "secret-access", got[credentials.KeyAccessToken])

	// Without the key the stored value is ciphertext.
	plain := openStore(t, path)
	raw, err := plain.GetMany(ctx, credentials.KeyAccessToken)
	require.NoError(t, err)
	require.NotEqual(t, "secret-access", raw[credentials.KeyAccessToken])
}

func TestStore_WorksAsCredentialsRepo(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, filepath.Join(t.TempDir(), "credentials.db"))
	store := credentials.NewStore(s)

	require.NoError(t, store.Save(ctx, credentials.Credentials{AccessToken: "a", RefreshToken: "r", User: []byte(`{"id":3,"username":"bob"}`)}))
	require.NoError(t, store.Clear(ctx))

	fresh := credentials.NewStore(s)
	_, ok := fresh.Current(ctx)
	require.False(t, ok)
}
