// Package fakebackend is an in-process emulation of the marketplace REST and
// chat backend, used by package tests. It issues real HS256 JWTs, rotates
// refresh tokens and serves the chat push channel over websockets.
package fakebackend

import (
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const apiPrefix = "/api"

// RecordedRequest is one request as the backend saw it.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type Backend struct {
	server *httptest.Server
	secret []byte

	mu            sync.Mutex
	nextID        int64
	users         map[int64]*user
	categories    []*category
	listings      map[int64]*listing
	favorites     []*favorite
	rooms         map[int64]*room
	notifications []*notification
	liveAccess    map[string]int64
	liveRefresh   map[string]int64
	sockets       map[int64]map[*websocket.Conn]struct{}
	requests      []RecordedRequest

	accessTTL       time.Duration
	rotateRefresh   bool
	rejectRefresh   bool
	refreshDelay    time.Duration
	logoutStatus    int
	logoutDelay     time.Duration
	duplicateFrames bool

	refreshCalls atomic.Int64
}

type Option func(*Backend)

// WithAccessTTL sets the exp claim of issued access tokens.
func WithAccessTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		b.accessTTL = ttl
	}
}

// New starts a backend on a loopback port. Close it when done.
func New(options ...Option) *Backend {
	b := &Backend{
		secret:        make([]byte, 32),
		users:         make(map[int64]*user),
		listings:      make(map[int64]*listing),
		rooms:         make(map[int64]*room),
		liveAccess:    make(map[string]int64),
		liveRefresh:   make(map[string]int64),
		sockets:       make(map[int64]map[*websocket.Conn]struct{}),
		accessTTL:     time.Hour,
		rotateRefresh: true,
	}
	if _, err := rand.Read(b.secret); err != nil {
		panic(err)
	}
	for _, opt := range options {
		opt(b)
	}
	b.server = httptest.NewServer(b.routes())
	return b
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/ws/chat/{roomID}/", b.handleChatSocket)

	r.Route(apiPrefix, func(r chi.Router) {
		r.Use(b.authenticate)

		r.Post("/auth/register/", b.handleRegister)
		r.Post("/auth/login/", b.handleLogin)
		r.Post("/auth/token/refresh/", b.handleRefresh)
		r.With(requireUser).Post("/auth/logout/", b.handleLogout)
		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/auth/profile/", b.handleGetProfile)
			r.Put("/auth/profile/", b.handleUpdateProfile)
			r.Patch("/auth/profile/", b.handleUpdateProfile)
		})

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", b.handleListListings)
			r.Get("/categories/", b.handleListCategories)
			r.Get("/categories/{id}/", b.handleGetCategory)
			r.Get("/{id}/", b.handleGetListing)
			r.Get("/{id}/similar/", b.handleSimilarListings)
			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Post("/", b.handleCreateListing)
				r.Get("/favorites/", b.handleFavorites)
				r.Get("/my_listings/", b.handleMyListings)
				r.Put("/{id}/", b.handleUpdateListing)
				r.Patch("/{id}/", b.handleUpdateListing)
				r.Delete("/{id}/", b.handleDeleteListing)
				r.Post("/{id}/favorite/", b.handleFavorite)
				r.Delete("/{id}/favorite/", b.handleFavorite)
				r.Post("/{id}/report/", b.handleReport)
			})
		})

		r.Route("/chat/rooms", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/", b.handleListRooms)
			r.Post("/create_or_get/", b.handleCreateOrGetRoom)
			r.Get("/{id}/", b.handleGetRoom)
			r.Post("/{id}/send_message/", b.handleSendMessage)
			r.Post("/{id}/mark_read/", b.handleMarkRoomRead)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/", b.handleListNotifications)
			r.Get("/unread_count/", b.handleUnreadCount)
			r.Post("/mark_all_read/", b.handleMarkAllNotificationsRead)
			r.Post("/{id}/mark_read/", b.handleMarkNotificationRead)
		})
	})
	return r
}

// URL is the REST base, e.g. http://127.0.0.1:1234/api.
func (b *Backend) URL() string {
	return b.server.URL + apiPrefix
}

// WSURL is the push channel base, e.g. ws://127.0.0.1:1234.
func (b *Backend) WSURL() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http")
}

// Client returns an http.Client wired to the test server.
func (b *Backend) Client() *http.Client {
	return b.server.Client()
}

func (b *Backend) Close() {
	b.mu.Lock()
	var conns []*websocket.Conn
	for _, room := range b.sockets {
		for c := range room {
			conns = append(conns, c)
		}
	}
	b.mu.Unlock()
	for _, c := range conns {
		_ = c.Close(websocket.StatusGoingAway, "server shutting down")
	}
	b.server.Close()
}

// ExpireAccessTokens invalidates every access token issued so far.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.liveAccess = make(map[string]int64)
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (b *Backend) RevokeRefreshTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.liveRefresh = make(map[string]int64)
}

// SetRejectRefresh makes the refresh endpoint answer 401.
func (b *Backend) SetRejectRefresh(reject bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectRefresh = reject
}

// SetRefreshDelay holds every refresh response for d.
func (b *Backend) SetRefreshDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshDelay = d
}

// SetRotateRefresh controls whether refresh responses carry a new refresh token.
func (b *Backend) SetRotateRefresh(rotate bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rotateRefresh = rotate
}

// SetLogoutFailure makes logout answer status after delay. Zero status restores normal behaviour.
func (b *Backend) SetLogoutFailure(status int, delay time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logoutStatus = status
	b.logoutDelay = delay
}

// SetDuplicateFrames makes the push channel deliver every frame twice.
func (b *Backend) SetDuplicateFrames(dup bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.duplicateFrames = dup
}

// RefreshCalls counts requests to the refresh endpoint.
func (b *Backend) RefreshCalls() int64 {
	return b.refreshCalls.Load()
}

// Requests returns every REST request received, in arrival order.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RecordedRequest(nil), b.requests...)
}

// CountRequests counts REST requests matching method and path (path without /api).
func (b *Backend) CountRequests(method, path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, RecordedRequest{
		Method:        r.Method,
		Path:          strings.TrimPrefix(r.URL.Path, apiPrefix),
		Authorization: r.Header.Get("Authorization"),
		RequestID:     r.Header.Get("X-Request-ID"),
	})
}

// id must be called with b.mu held.
func (b *Backend) id() int64 {
	b.nextID++
	return b.nextID
}
