package credentials_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jrsteele09/go-marketplace-client/credentials"
	credentialsrepofake "github.com/jrsteele09/go-marketplace-client/credentials/repofake"
	internalerrors "github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/jrsteele09/go-marketplace-client/users"
	"github.com/stretchr/testify/require"
)

const (
	testAccess  = "access-1"
	testRefresh = "refresh-1"
)

type testFixture struct {
	repo  *credentialsrepofake.FakeCredentialsRepo
	store *credentials.Store
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	repo := credentialsrepofake.NewFakeCredentialsRepo()
	return &testFixture{
		repo:  repo,
		store: credentials.NewStore(repo),
	}
}

func testCredentials(t *testing.T) credentials.Credentials {
	t.Helper()
	raw, err := json.Marshal(users.User{ID: 7, Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	return credentials.Credentials{AccessToken: testAccess, RefreshToken: testRefresh, User: raw}
}

func TestStore_SaveAndReload(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Save(ctx, testCredentials(t)))
	require.Equal(t, 3, f.repo.Len())

	// A fresh store over the same repo sees the persisted state.
	reloaded := credentials.NewStore(f.repo)
	c, ok := reloaded.Current(ctx)
	require.True(t, ok)
	require.Equal(t, testAccess, c.AccessToken)
	require.Equal(t, testRefresh, c.RefreshToken)

	u, err := reloaded.User(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(7), u.ID)
	require.Equal(t, "alice", u.Username)
}

func TestStore_SaveRejectsPartial(t *testing.T) {
	f := setupTestFixture(t)
	err := f.store.Save(context.Background(), credentials.Credentials{AccessToken: testAccess})
	require.ErrorIs(t, err, internalerrors.ErrPartialCredentials)
	require.Zero(t, f.repo.Len())
}

func TestStore_PartialStateIsUnauthenticated(t *testing.T) {
	f := setupTestFixture(t)
	f.repo.Put(credentials.KeyAccessToken, testAccess)

	_, ok := f.store.Current(context.Background())
	require.False(t, ok)
	require.Empty(t, f.store.AccessToken(context.Background()))

	c, err := f.store.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, testAccess, c.AccessToken)
}

func TestStore_Rotate(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, testCredentials(t)))

	require.NoError(t, f.store.Rotate(ctx, "access-2", ""))
	require.Equal(t, "access-2", f.store.AccessToken(ctx))
	require.Equal(t, testRefresh, f.store.RefreshToken(ctx))

	require.NoError(t, f.store.Rotate(ctx, "access-3", "refresh-3"))
	reloaded := credentials.NewStore(f.repo)
	require.Equal(t, "access-3", reloaded.AccessToken(ctx))
	require.Equal(t, "refresh-3", reloaded.RefreshToken(ctx))

	require.ErrorIs(t, f.store.Rotate(ctx, "", ""), internalerrors.ErrEmptyAccess)
}

func TestStore_RotateAfterClear(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, testCredentials(t)))
	require.NoError(t, f.store.Clear(ctx))

	err := f.store.Rotate(ctx, "access-2", "")
	require.ErrorIs(t, err, internalerrors.ErrNoCredentials)
	require.Zero(t, f.repo.Len())
}

func TestStore_RotateKeepsOldOnWriteFailure(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, testCredentials(t)))

	f.repo.SetErr = errors.New("disk full")
	require.Error(t, f.store.Rotate(ctx, "access-2", ""))
	require.Equal(t, testAccess, f.store.AccessToken(ctx))
}

func TestStore_UpdateUser(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, testCredentials(t)))

	require.NoError(t, f.store.UpdateUser(ctx, &users.User{ID: 7, Username: "alice", Location: "Leeds"}))
	u, err := f.store.User(ctx)
	require.NoError(t, err)
	require.Equal(t, "Leeds", u.Location)
	require.Equal(t, testAccess, f.store.AccessToken(ctx))
}

func TestStore_ClearAlwaysClearsMemory(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, testCredentials(t)))

	f.repo.DeleteErr = errors.New("locked")
	require.Error(t, f.store.Clear(ctx))

	_, ok := f.store.Current(ctx)
	require.False(t, ok)
	_, err := f.store.User(ctx)
	require.ErrorIs(t, err, internalerrors.ErrNoCredentials)
}
