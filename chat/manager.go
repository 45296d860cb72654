package chat

import (
	"context"

	"github.com/rs/zerolog"
)

// TokenSource yields the access token used to authenticate the push channel.
type TokenSource interface {
	AccessToken(ctx context.Context) string
}

// RoomAPI is the REST surface a session falls back to.
type RoomAPI interface {
	Room(ctx context.Context, roomID int64) (*Room, error)
	SendMessage(ctx context.Context, roomID int64, content string) (*Message, error)
	MarkRead(ctx context.Context, roomID int64) error
}

var _ RoomAPI = (*API)(nil)

// Manager opens chat sessions.
type Manager struct {
	api    RoomAPI
	dialer Dialer
	tokens TokenSource
	logger zerolog.Logger
}

type ManagerOption func(*Manager)

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func NewManager(api RoomAPI, dialer Dialer, tokens TokenSource, options ...ManagerOption) *Manager {
	m := &Manager{
		api:    api,
		dialer: dialer,
		tokens: tokens,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Open starts the push channel handshake and, concurrently, loads the room's
// history and marks it read. It returns once history is in the timeline; the
// channel may still be Connecting. The caller must Close the session.
func (m *Manager) Open(ctx context.Context, roomID int64) (*Session, error) {
	logger := m.logger.With().Int64("room_id", roomID).Logger()

	channel, err := m.dialer.Dial(ctx, roomID, m.tokens.AccessToken(ctx))
	if err != nil {
		return nil, err
	}

	s := newSession(roomID, m.api, channel, logger)
	room, err := m.api.Room(ctx, roomID)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.setRoom(room)
	if err := s.submit(ctx, room.Messages); err != nil {
		_ = s.Close()
		return nil, err
	}

	if err := m.api.MarkRead(ctx, roomID); err != nil {
		logger.Warn().Err(err).Msg("failed to mark room read")
	}
	return s, nil
}
