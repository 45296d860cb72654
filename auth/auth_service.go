// Package auth signs the local user in and out and keeps the cached profile in
// step with the backend.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-marketplace-client/apiclient"
	"github.com/jrsteele09/go-marketplace-client/credentials"
	"github.com/jrsteele09/go-marketplace-client/endpoint"
	"github.com/jrsteele09/go-marketplace-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultLogoutTimeout = 5 * time.Second

// Doer is the typed half of the request dispatcher.
type Doer interface {
	Do(ctx context.Context, method, path string, in, out any) error
	DoRequest(ctx context.Context, req *apiclient.Request, out any) error
}

// CredentialStore is the part of the credential store auth writes to.
type CredentialStore interface {
	Current(ctx context.Context) (credentials.Credentials, bool)
	RefreshToken(ctx context.Context) string
	Save(ctx context.Context, c credentials.Credentials) error
	UpdateUser(ctx context.Context, u *users.User) error
	User(ctx context.Context) (*users.User, error)
	Clear(ctx context.Context) error
}

// authResponse is what login and register return.
type authResponse struct {
	User    *users.User `json:"user"`
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
}

type Service struct {
	doer          Doer
	store         CredentialStore
	logger        zerolog.Logger
	logoutTimeout time.Duration
}

type ServiceOption func(*Service)

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithLogoutTimeout bounds the server half of Logout.
func WithLogoutTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.logoutTimeout = d
		}
	}
}

func NewService(doer Doer, store CredentialStore, options ...ServiceOption) *Service {
	s := &Service{
		doer:          doer,
		store:         store,
		logger:        zerolog.Nop(),
		logoutTimeout: defaultLogoutTimeout,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, reg users.Registration) (*users.User, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return s.authenticate(ctx, endpoint.RouteRegister, reg)
}

// Login exchanges a username and password for tokens and persists them with
// the profile.
func (s *Service) Login(ctx context.Context, username, password string) (*users.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, MissingCredentialsErr
	}
	in := map[string]string{"username": username, "password": password}
	return s.authenticate(ctx, endpoint.RouteLogin, in)
}

func (s *Service) authenticate(ctx context.Context, path string, in any) (*users.User, error) {
	req, err := apiclient.NewJSONRequest(http.MethodPost, path, in)
	if err != nil {
		return nil, err
	}
	// Login and register take no bearer, and their 401 means bad credentials,
	// not an expired token.
	req.Public = true
	req.NoRetry = true

	var out authResponse
	if err := s.doer.DoRequest(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.User == nil || out.Access == "" || out.Refresh == "" {
		return nil, IncompleteAuthResponseErr
	}

	raw, err := users.Marshal(out.User)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, credentials.Credentials{
		AccessToken:  out.Access,
		RefreshToken: out.Refresh,
		User:         raw,
	}); err != nil {
		return nil, errors.Wrap(err, "Service.authenticate Save")
	}
	s.logger.Info().Int64("user_id", out.User.ID).Str("username", out.User.Username).Msg("signed in")
	return out.User, nil
}

// Logout tells the backend to blacklist the refresh token, best effort and
// bounded by the logout timeout, then clears local credentials whatever the
// server said. Only a failure to clear is returned.
func (s *Service) Logout(ctx context.Context) error {
	if refreshToken := s.store.RefreshToken(ctx); refreshToken != "" {
		callCtx, cancel := context.WithTimeout(ctx, s.logoutTimeout)
		err := s.doer.Do(callCtx, http.MethodPost, endpoint.RouteLogout, map[string]string{"refresh": refreshToken}, nil)
		cancel()
		if err != nil {
			s.logger.Warn().Err(err).Msg("logout call failed, clearing local credentials anyway")
		}
	}

	// The caller's deadline may already have been spent on the server call.
	if err := s.store.Clear(context.WithoutCancel(ctx)); err != nil {
		return errors.Wrap(err, "Service.Logout Clear")
	}
	s.logger.Info().Msg("signed out")
	return nil
}

// Profile fetches the profile from the backend and refreshes the cached copy.
func (s *Service) Profile(ctx context.Context) (*users.User, error) {
	var u users.User
	if err := s.doer.Do(ctx, http.MethodGet, endpoint.RouteProfile, nil, &u); err != nil {
		return nil, err
	}
	s.cache(ctx, &u)
	return &u, nil
}

// UpdateProfile sends the non-nil fields of upd and caches the result.
func (s *Service) UpdateProfile(ctx context.Context, upd users.ProfileUpdate) (*users.User, error) {
	var u users.User
	if err := s.doer.Do(ctx, http.MethodPut, endpoint.RouteProfile, upd, &u); err != nil {
		return nil, err
	}
	s.cache(ctx, &u)
	return &u, nil
}

func (s *Service) cache(ctx context.Context, u *users.User) {
	if err := s.store.UpdateUser(ctx, u); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache profile")
	}
}

// CurrentUser returns the cached profile without a network call.
func (s *Service) CurrentUser(ctx context.Context) (*users.User, error) {
	if _, ok := s.store.Current(ctx); !ok {
		return nil, NotAuthenticatedErr
	}
	return s.store.User(ctx)
}

// IsAuthenticated reports whether a complete credential set is stored.
func (s *Service) IsAuthenticated(ctx context.Context) bool {
	_, ok := s.store.Current(ctx)
	return ok
}
