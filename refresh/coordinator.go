// Package refresh renews the access token when the backend rejects it. However
// many requests hit a 401 together, one refresh call goes out and every caller
// shares its outcome.
package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	internalerrors "github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrRefreshFailed is returned to every waiter of a failed refresh. Credentials
// have been cleared by the time it is seen.
var ErrRefreshFailed = errors.New("token refresh failed")

const (
	flightKey             = "refresh"
	defaultRefreshTimeout = 15 * time.Second
)

// State of the coordinator's machine: Idle -> Refreshing -> (Idle | Failed -> Idle).
type State int32

const (
	StateIdle State = iota
	StateRefreshing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRefreshing:
		return "refreshing"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// TokenStore is the part of the credential store the coordinator needs.
type TokenStore interface {
	AccessToken(ctx context.Context) string
	RefreshToken(ctx context.Context) string
	Rotate(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error
}

// Tokens is what a refresh call yields. Refresh is empty unless the backend rotated it.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Refresher exchanges a refresh token for new tokens.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
}

// Coordinator serialises refreshes for one session.
type Coordinator struct {
	store     TokenStore
	refresher Refresher
	logger    zerolog.Logger
	timeout   time.Duration

	group singleflight.Group
	state atomic.Int32
	calls atomic.Int64
}

type CoordinatorOption func(*Coordinator)

func WithLogger(logger zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithTimeout bounds the refresh call. It is independent of any single caller's
// context so one caller giving up does not fail the others.
func WithTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewCoordinator(store TokenStore, refresher Refresher, options ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:     store,
		refresher: refresher,
		logger:    zerolog.Nop(),
		timeout:   defaultRefreshTimeout,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Calls returns how many refresh calls reached the refresher.
func (c *Coordinator) Calls() int64 {
	return c.calls.Load()
}

// Refresh returns a fresh access token. staleAccess is the token the caller's
// request was rejected with; if the store already holds a different one, that is
// returned without another network call.
func (c *Coordinator) Refresh(ctx context.Context, staleAccess string) (string, error) {
	ch := c.group.DoChan(flightKey, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx), staleAccess)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Coordinator) refresh(ctx context.Context, staleAccess string) (string, error) {
	if current := c.store.AccessToken(ctx); current != "" && current != staleAccess {
		return current, nil
	}

	c.state.Store(int32(StateRefreshing))
	c.logger.Debug().Msg("refreshing access token")

	refreshToken := c.store.RefreshToken(ctx)
	if refreshToken == "" {
		return "", c.fail(ctx, internalerrors.ErrNoRefreshToken)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.calls.Add(1)
	tokens, err := c.refresher.Refresh(callCtx, refreshToken)
	if err != nil {
		return "", c.fail(ctx, err)
	}
	if tokens.Access == "" {
		return "", c.fail(ctx, internalerrors.ErrEmptyAccess)
	}
	if err := c.store.Rotate(ctx, tokens.Access, tokens.Refresh); err != nil {
		return "", c.fail(ctx, err)
	}

	c.state.Store(int32(StateIdle))
	c.logger.Debug().Bool("rotated", tokens.Refresh != "").Msg("access token refreshed")
	return tokens.Access, nil
}

func (c *Coordinator) fail(ctx context.Context, cause error) error {
	c.state.Store(int32(StateFailed))
	c.logger.Warn().Err(cause).Msg("token refresh failed, clearing credentials")
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error().Err(err).Msg("failed to clear credentials after refresh failure")
	}
	c.state.Store(int32(StateIdle))
	return internalerrors.Wrapf(ErrRefreshFailed, "%v", cause)
}
