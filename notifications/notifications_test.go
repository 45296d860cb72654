package notifications_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-marketplace-client/apiclient"
	"github.com/jrsteele09/go-marketplace-client/apierror"
	"github.com/jrsteele09/go-marketplace-client/credentials"
	credentialsrepofake "github.com/jrsteele09/go-marketplace-client/credentials/repofake"
	"github.com/jrsteele09/go-marketplace-client/internal/fakebackend"
	"github.com/jrsteele09/go-marketplace-client/notifications"
	"github.com/jrsteele09/go-marketplace-client/refresh"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	backend *fakebackend.Backend
	store   *credentials.Store
	service *notifications.Service
	userID  int64
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := fakebackend.New()
	t.Cleanup(backend.Close)

	userID := backend.CreateUser("alice", "password123")
	access, refreshToken := backend.IssueTokens(userID)
	store := credentials.NewStore(credentialsrepofake.NewFakeCredentialsRepo())
	require.NoError(t, store.Save(context.Background(), credentials.Credentials{
		AccessToken:  access,
		RefreshToken: refreshToken,
		User:         backend.UserJSON(userID),
	}))

	coordinator := refresh.NewCoordinator(store, refresh.NewHTTPRefresher(backend.URL(), backend.Client()))
	dispatcher := apiclient.New(backend.URL(), store, coordinator, apiclient.WithHTTPClient(backend.Client()))

	return &testFixture{
		backend: backend,
		store:   store,
		service: notifications.NewService(dispatcher),
		userID:  userID,
	}
}

func TestService_ListAndUnreadCount(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.backend.AddNotification(f.userID, notifications.KindSystem, "Welcome")
	f.backend.AddNotification(f.userID, notifications.KindMessage, "New message")
	other := f.backend.CreateUser("bob", "password123")
	f.backend.AddNotification(other, notifications.KindSystem, "Not yours")

	page, err := f.service.List(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, page.Count)
	require.Equal(t, "New message", page.Results[0].Title)
	require.Equal(t, notifications.KindMessage, page.Results[0].Kind)
	require.False(t, page.Results[0].IsRead)
	require.False(t, page.HasNext())

	count, err := f.service.UnreadCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestService_MarkRead(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	first := f.backend.AddNotification(f.userID, notifications.KindSystem, "Welcome")
	f.backend.AddNotification(f.userID, notifications.KindFavorite, "Someone liked your listing")

	require.NoError(t, f.service.MarkRead(ctx, first))
	count, err := f.service.UnreadCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	require.NoError(t, f.service.MarkAllRead(ctx))
	count, err = f.service.UnreadCount(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestService_MarkReadUnknown(t *testing.T) {
	f := setupTestFixture(t)

	err := f.service.MarkRead(context.Background(), 9999)
	require.Equal(t, http.StatusNotFound, apierror.StatusCode(err))
}

func TestService_SignedOut(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Clear(context.Background()))

	_, err := f.service.UnreadCount(context.Background())
	require.True(t, apierror.IsAuthRequired(err))
	require.Zero(t, f.backend.RefreshCalls())
}

func TestService_ExpiredAccessRefreshesOnce(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.AddNotification(f.userID, notifications.KindSystem, "Welcome")
	f.backend.ExpireAccessTokens()

	page, err := f.service.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	require.Equal(t, int64(1), f.backend.RefreshCalls())
}
