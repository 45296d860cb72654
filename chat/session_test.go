package chat_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jrsteele09/go-marketplace-client/apiclient"
	"github.com/jrsteele09/go-marketplace-client/apierror"
	"github.com/jrsteele09/go-marketplace-client/chat"
	"github.com/jrsteele09/go-marketplace-client/credentials"
	credentialsrepofake "github.com/jrsteele09/go-marketplace-client/credentials/repofake"
	"github.com/jrsteele09/go-marketplace-client/endpoint"
	internalerrors "github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/jrsteele09/go-marketplace-client/internal/fakebackend"
	"github.com/jrsteele09/go-marketplace-client/refresh"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type testFixture struct {
	backend  *fakebackend.Backend
	store    *credentials.Store
	api      *chat.API
	manager  *chat.Manager
	buyerID  int64
	sellerID int64
	roomID   int64
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := fakebackend.New()
	t.Cleanup(backend.Close)

	sellerID := backend.CreateUser("seller", "password123")
	buyerID := backend.CreateUser("buyer", "password123")
	categoryID := backend.CreateCategory("Electronics")
	listingID := backend.CreateListing(sellerID, categoryID, "Phone", 120)
	roomID := backend.CreateRoom(listingID, buyerID)

	access, refreshToken := backend.IssueTokens(buyerID)
	store := credentials.NewStore(credentialsrepofake.NewFakeCredentialsRepo())
	require.NoError(t, store.Save(context.Background(), credentials.Credentials{
		AccessToken:  access,
		RefreshToken: refreshToken,
		User:         backend.UserJSON(buyerID),
	}))

	coordinator := refresh.NewCoordinator(store, refresh.NewHTTPRefresher(backend.URL(), backend.Client()))
	dispatcher := apiclient.New(backend.URL(), store, coordinator, apiclient.WithHTTPClient(backend.Client()))
	api := chat.NewAPI(dispatcher)
	dialer := chat.NewWebSocketDialer(backend.WSURL(), chat.WithDialTimeout(time.Second))

	return &testFixture{
		backend:  backend,
		store:    store,
		api:      api,
		manager:  chat.NewManager(api, dialer, store),
		buyerID:  buyerID,
		sellerID: sellerID,
		roomID:   roomID,
	}
}

func (f *testFixture) open(t *testing.T) *chat.Session {
	t.Helper()
	s, err := f.manager.Open(context.Background(), f.roomID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func waitOpen(t *testing.T, s *chat.Session) {
	t.Helper()
	require.Eventually(t, func() bool { return s.State() == chat.Open }, waitFor, 5*time.Millisecond)
}

func next(t *testing.T, s *chat.Session) chat.Message {
	t.Helper()
	select {
	case m, ok := <-s.Stream():
		require.True(t, ok, "stream closed")
		return m
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for a message")
	}
	return chat.Message{}
}

func requireQuiet(t *testing.T, s *chat.Session, d time.Duration) {
	t.Helper()
	select {
	case m, ok := <-s.Stream():
		if ok {
			t.Fatalf("unexpected message %d %q", m.ID, m.Content)
		}
	case <-time.After(d):
	}
}

func TestSession_OpenLoadsHistoryAndMarksRead(t *testing.T) {
	f := setupTestFixture(t)
	first := f.backend.AddMessage(f.roomID, f.sellerID, "Still available?")
	second := f.backend.AddMessage(f.roomID, f.buyerID, "Yes")

	s := f.open(t)

	require.Equal(t, first, next(t, s).ID)
	require.Equal(t, second, next(t, s).ID)
	require.Len(t, s.Messages(), 2)
	require.Equal(t, chat.DeliveryConfirmed, s.Messages()[0].Delivery)
	require.Equal(t, "Phone", s.Room().Listing.Title)
	require.Equal(t, 1, f.backend.CountRequests(http.MethodPost, endpoint.ChatRoomMarkRead(f.roomID)))

	waitOpen(t, s)
}

func TestSession_ChannelSendAppearsOnceViaEcho(t *testing.T) {
	f := setupTestFixture(t)
	s := f.open(t)
	waitOpen(t, s)

	receipt, err := s.Send(context.Background(), "Hello")
	require.NoError(t, err)
	require.Equal(t, chat.ViaChannel, receipt.Via)
	require.Equal(t, chat.DeliverySent, receipt.Delivery)
	require.Nil(t, receipt.Message)

	m := next(t, s)
	require.Equal(t, "Hello", m.Content)
	require.Equal(t, f.buyerID, m.Sender.ID)
	require.Equal(t, chat.DeliveryConfirmed, m.Delivery)
	require.Len(t, s.Messages(), 1)
}

func TestSession_DuplicateFramesAreMergedOnce(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.SetDuplicateFrames(true)
	s := f.open(t)
	waitOpen(t, s)

	id := f.backend.Broadcast(f.roomID, f.sellerID, "Offer?")
	require.Equal(t, id, next(t, s).ID)
	requireQuiet(t, s, 100*time.Millisecond)
	require.Len(t, s.Messages(), 1)
}

func TestSession_FrameForHistoryMessageIsIgnored(t *testing.T) {
	f := setupTestFixture(t)
	id := f.backend.AddMessage(f.roomID, f.sellerID, "From history")
	s := f.open(t)
	require.Equal(t, id, next(t, s).ID)
	waitOpen(t, s)

	f.backend.PushExisting(f.roomID, id)
	requireQuiet(t, s, 100*time.Millisecond)
	require.Len(t, s.Messages(), 1)
}

func TestSession_ClosedChannelFallsBackToREST(t *testing.T) {
	f := setupTestFixture(t)
	s := f.open(t)
	waitOpen(t, s)

	f.backend.DropSockets(f.roomID)
	require.Eventually(t, func() bool { return s.State() == chat.Closed }, waitFor, 5*time.Millisecond)

	receipt, err := s.Send(context.Background(), "Over REST")
	require.NoError(t, err)
	require.Equal(t, chat.ViaREST, receipt.Via)
	require.Equal(t, chat.DeliveryConfirmed, receipt.Delivery)
	require.NotNil(t, receipt.Message)

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, receipt.Message.ID, msgs[0].ID)
	require.Equal(t, receipt.Message.ID, next(t, s).ID)
	require.Equal(t, chat.Closed, s.State())
}

func TestSession_RESTNetworkErrorSurfaces(t *testing.T) {
	f := setupTestFixture(t)
	f.manager = chat.NewManager(f.api, chat.NewWebSocketDialer("ws://127.0.0.1:1"), f.store)
	s := f.open(t)
	require.Eventually(t, func() bool { return s.State() == chat.Closed }, waitFor, 5*time.Millisecond)

	f.backend.Close()
	_, err := s.Send(context.Background(), "lost")
	require.True(t, apierror.IsNetwork(err), "got %v", err)
	require.Equal(t, chat.Closed, s.State())
}

func TestSession_RejectedHandshakeStillSendsOverREST(t *testing.T) {
	f := setupTestFixture(t)
	f.manager = chat.NewManager(f.api, chat.NewWebSocketDialer(f.backend.WSURL()), staticToken("not-a-token"))
	s := f.open(t)

	require.Eventually(t, func() bool { return s.State() == chat.Closed }, waitFor, 5*time.Millisecond)
	receipt, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, chat.ViaREST, receipt.Via)
}

func TestSession_CloseStopsStream(t *testing.T) {
	f := setupTestFixture(t)
	s := f.open(t)
	waitOpen(t, s)

	require.NoError(t, s.Close())
	require.Equal(t, chat.Closed, s.State())

	f.backend.Broadcast(f.roomID, f.sellerID, "too late")
	for range s.Stream() {
		t.Fatal("no message expected after Close")
	}
	_, err := s.Send(context.Background(), "x")
	require.ErrorIs(t, err, internalerrors.ErrSessionClosed)
	require.NoError(t, s.Close())
}

func TestSession_EmptyMessageRejected(t *testing.T) {
	f := setupTestFixture(t)
	s := f.open(t)
	_, err := s.Send(context.Background(), "   ")
	require.ErrorIs(t, err, internalerrors.ErrEmptyMessage)
}

func TestManager_OpenUnknownRoom(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.manager.Open(context.Background(), 9999)
	require.Equal(t, http.StatusNotFound, apierror.StatusCode(err))
}

type staticToken string

func (s staticToken) AccessToken(context.Context) string { return string(s) }

func TestSession_LongHistoryDoesNotBlockOpen(t *testing.T) {
	f := setupTestFixture(t)
	for i := 0; i < 300; i++ {
		f.backend.AddMessage(f.roomID, f.sellerID, "hello")
	}

	s := f.open(t)
	require.Len(t, s.Messages(), 300)

	received := 0
	for received < 300 {
		select {
		case <-s.Stream():
			received++
		case <-time.After(waitFor):
			t.Fatalf("stream delivered %d of 300 messages", received)
		}
	}
}
