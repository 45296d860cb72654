// Package credentials owns the access token, refresh token and cached profile of
// the local user.
package credentials

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/jrsteele09/go-marketplace-client/users"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Store caches the persisted credentials in memory. It loads lazily on first
// use and every write goes through the repo before it becomes visible.
type Store struct {
	repo   Repo
	logger zerolog.Logger

	mu      sync.RWMutex
	loaded  bool
	current Credentials
}

type StoreOption func(*Store)

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(repo Repo, options ...StoreOption) *Store {
	s := &Store{
		repo:   repo,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Get returns whatever is stored, partial or not.
func (s *Store) Get(ctx context.Context) (Credentials, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return Credentials{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

// Current returns the credentials only when they are complete.
func (s *Store) Current(ctx context.Context) (Credentials, bool) {
	c, err := s.Get(ctx)
	if err != nil || !c.Complete() {
		return Credentials{}, false
	}
	return c, true
}

// AccessToken returns the bearer credential, or "" when unauthenticated.
func (s *Store) AccessToken(ctx context.Context) string {
	c, _ := s.Current(ctx)
	return c.AccessToken
}

// RefreshToken returns the refresh credential, or "" when unauthenticated.
func (s *Store) RefreshToken(ctx context.Context) string {
	c, _ := s.Current(ctx)
	return c.RefreshToken
}

// User decodes the cached profile.
func (s *Store) User(ctx context.Context) (*users.User, error) {
	c, ok := s.Current(ctx)
	if !ok {
		return nil, errors.ErrNoCredentials
	}
	return users.Unmarshal(c.User)
}

// Save persists a complete credential set.
func (s *Store) Save(ctx context.Context, c Credentials) error {
	if !c.Complete() {
		return errors.ErrPartialCredentials
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.SetMany(ctx, c.entries()); err != nil {
		return pkgerrors.Wrap(err, "Store.Save SetMany")
	}
	s.current = c
	s.loaded = true
	return nil
}

// Rotate replaces the access token, and the refresh token when one is given,
// keeping the profile. The write lock is held until the new values are durable,
// so no reader sees the old token after Rotate returns and none sees the new one
// before it is persisted.
func (s *Store) Rotate(ctx context.Context, access, refresh string) error {
	if access == "" {
		return errors.ErrEmptyAccess
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.Complete() {
		// Cleared (logout) while the refresh was on the wire.
		return errors.ErrNoCredentials
	}
	next := s.current
	next.AccessToken = access
	if refresh != "" {
		next.RefreshToken = refresh
	}
	if err := s.repo.SetMany(ctx, next.entries()); err != nil {
		return pkgerrors.Wrap(err, "Store.Rotate SetMany")
	}
	s.current = next
	return nil
}

// UpdateUser replaces the cached profile, keeping the tokens.
func (s *Store) UpdateUser(ctx context.Context, u *users.User) error {
	raw, err := users.Marshal(u)
	if err != nil {
		return err
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.Complete() {
		return errors.ErrNoCredentials
	}
	next := s.current
	next.User = raw
	if err := s.repo.SetMany(ctx, next.entries()); err != nil {
		return pkgerrors.Wrap(err, "Store.UpdateUser SetMany")
	}
	s.current = next
	return nil
}

// Clear removes all three entries. Memory is cleared even if the repo fails:
// an empty store is what "logged out" means locally.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Credentials{}
	s.loaded = true
	if err := s.repo.Delete(ctx, Keys...); err != nil {
		s.logger.Error().Err(err).Msg("failed to remove persisted credentials")
		return pkgerrors.Wrap(err, "Store.Clear Delete")
	}
	return nil
}

func (s *Store) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}

	entries, err := s.repo.GetMany(ctx, Keys...)
	if err != nil {
		return pkgerrors.Wrap(err, "Store.load GetMany")
	}
	c := fromEntries(entries)
	if !c.Empty() && !c.Complete() {
		s.logger.Warn().
			Bool("access", c.AccessToken != "").
			Bool("refresh", c.RefreshToken != "").
			Bool("user", len(c.User) > 0).
			Msg("partial credentials found, treating session as unauthenticated")
	}
	s.current = c
	s.loaded = true
	return nil
}
