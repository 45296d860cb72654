// Package session assembles one signed-in user's client: credential storage,
// refresh coordination, the request dispatcher and the feature services. There
// is no package-level state; two Sessions over two databases are independent.
package session

import (
	"context"
	"io"
	"net/http"

	"github.com/jrsteele09/go-marketplace-client/apiclient"
	"github.com/jrsteele09/go-marketplace-client/auth"
	"github.com/jrsteele09/go-marketplace-client/chat"
	"github.com/jrsteele09/go-marketplace-client/credentials"
	"github.com/jrsteele09/go-marketplace-client/credentials/sqlite"
	"github.com/jrsteele09/go-marketplace-client/internal/config"
	"github.com/jrsteele09/go-marketplace-client/internal/security/secretbox"
	"github.com/jrsteele09/go-marketplace-client/listings"
	"github.com/jrsteele09/go-marketplace-client/media"
	"github.com/jrsteele09/go-marketplace-client/notifications"
	"github.com/jrsteele09/go-marketplace-client/refresh"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Session struct {
	Credentials   *credentials.Store
	Refresh       *refresh.Coordinator
	API           *apiclient.Dispatcher
	Auth          *auth.Service
	Listings      *listings.Service
	Notifications *notifications.Service
	Rooms         *chat.API
	Chat          *chat.Manager
	Media         *media.Uploader

	closer io.Closer
}

type Option func(*options)

type options struct {
	logger     zerolog.Logger
	httpClient *http.Client
	repo       credentials.Repo
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHTTPClient replaces the client used for REST calls, refreshes and the
// push channel handshake.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithRepo stores credentials in repo instead of the configured SQLite file.
// The caller keeps ownership of repo.
func WithRepo(repo credentials.Repo) Option {
	return func(o *options) {
		o.repo = repo
	}
}

// Open builds a Session from cfg. Stored credentials are loaded lazily on first use.
func Open(cfg config.Config, opts ...Option) (*Session, error) {
	o := &options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{}
	}

	s := &Session{}
	repo := o.repo
	if repo == nil {
		db, err := openRepo(cfg)
		if err != nil {
			return nil, err
		}
		repo = db
		s.closer = db
	}

	logger := o.logger
	s.Credentials = credentials.NewStore(repo, credentials.WithLogger(logger.With().Str("component", "credentials").Logger()))
	s.Refresh = refresh.NewCoordinator(s.Credentials,
		refresh.NewHTTPRefresher(cfg.GetAPIBaseURL(), o.httpClient),
		refresh.WithTimeout(cfg.GetRequestTimeout()),
		refresh.WithLogger(logger.With().Str("component", "refresh").Logger()),
	)
	s.API = apiclient.New(cfg.GetAPIBaseURL(), s.Credentials, s.Refresh,
		apiclient.WithHTTPClient(o.httpClient),
		apiclient.WithTimeout(cfg.GetRequestTimeout()),
		apiclient.WithLogger(logger.With().Str("component", "apiclient").Logger()),
	)
	s.Auth = auth.NewService(s.API, s.Credentials,
		auth.WithLogoutTimeout(cfg.GetLogoutTimeout()),
		auth.WithLogger(logger.With().Str("component", "auth").Logger()),
	)
	s.Listings = listings.NewService(s.API)
	s.Notifications = notifications.NewService(s.API)
	s.Rooms = chat.NewAPI(s.API)
	s.Chat = chat.NewManager(s.Rooms,
		chat.NewWebSocketDialer(cfg.GetWSBaseURL(),
			chat.WithDialTimeout(cfg.GetDialTimeout()),
			chat.WithDialHTTPClient(o.httpClient),
			chat.WithDialLogger(logger.With().Str("component", "chat").Logger()),
		),
		s.Credentials,
		chat.WithLogger(logger.With().Str("component", "chat").Logger()),
	)
	s.Media = media.NewUploader(cfg.GetCloudinaryCloudName(), cfg.GetCloudinaryUploadPreset(),
		media.WithLogger(logger.With().Str("component", "media").Logger()),
	)
	return s, nil
}

func openRepo(cfg config.Config) (*sqlite.Store, error) {
	var storeOpts []sqlite.Option
	if key := cfg.GetCredentialsKey(); key != "" {
		box, err := secretbox.New(key)
		if err != nil {
			return nil, errors.Wrap(err, "session.Open credentials key")
		}
		storeOpts = append(storeOpts, sqlite.WithSealer(box))
	}
	db, err := sqlite.New(cfg.GetCredentialsDB(), storeOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "session.Open credentials store")
	}
	return db, nil
}

// SignedIn reports whether complete credentials are stored.
func (s *Session) SignedIn(ctx context.Context) bool {
	return s.Auth.IsAuthenticated(ctx)
}

// Close releases the credential database when the Session opened it.
// Open chat sessions are owned by their callers and must be closed first.
func (s *Session) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
