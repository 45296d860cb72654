package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/rs/zerolog"
)

const streamBuffer = 256

type batch struct {
	messages []Message
	merged   chan struct{}
}

// Session is one open room. A single pump goroutine merges every source
// (history loads, REST refetches, channel frames) into the timeline, so the
// order messages are emitted on Stream is the order they were merged.
type Session struct {
	roomID  int64
	api     RoomAPI
	channel Channel
	logger  zerolog.Logger

	timeline *Timeline
	stream   chan Message
	batches  chan batch

	mu   sync.RWMutex
	room *Room

	closing   chan struct{}
	pumpDone  chan struct{}
	closeOnce sync.Once
}

func newSession(roomID int64, api RoomAPI, channel Channel, logger zerolog.Logger) *Session {
	s := &Session{
		roomID:   roomID,
		api:      api,
		channel:  channel,
		logger:   logger,
		timeline: NewTimeline(),
		stream:   make(chan Message, streamBuffer),
		batches:  make(chan batch),
		closing:  make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *Session) pump() {
	defer close(s.pumpDone)
	defer close(s.stream)

	frames := s.channel.Messages()
	// Merged but not yet delivered on Stream; merging never waits on the reader.
	var pending []Message
	for {
		var out chan<- Message
		var next Message
		if len(pending) > 0 {
			out = s.stream
			next = pending[0]
		}

		select {
		case <-s.closing:
			return
		case out <- next:
			pending = pending[1:]
		case b := <-s.batches:
			pending = append(pending, s.timeline.MergeAll(b.messages)...)
			close(b.merged)
		case m, ok := <-frames:
			if !ok {
				frames = nil
				s.logger.Debug().Err(s.channel.Err()).Msg("chat channel closed, sends fall back to REST")
				continue
			}
			if s.timeline.Merge(m) {
				pending = append(pending, m)
			}
		}
	}
}

// submit hands a batch to the pump and waits until it is merged.
func (s *Session) submit(ctx context.Context, messages []Message) error {
	b := batch{messages: messages, merged: make(chan struct{})}
	select {
	case s.batches <- b:
	case <-s.closing:
		return errors.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-b.merged:
		return nil
	case <-s.closing:
		return errors.ErrSessionClosed
	}
}

func (s *Session) setRoom(r *Room) {
	meta := *r
	meta.Messages = nil
	s.mu.Lock()
	s.room = &meta
	s.mu.Unlock()
}

func (s *Session) RoomID() int64 {
	return s.roomID
}

// Room returns the room details from the last history load, without messages.
func (s *Session) Room() Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.room == nil {
		return Room{ID: s.roomID}
	}
	return *s.room
}

// State is the push channel's state.
func (s *Session) State() ChannelState {
	return s.channel.State()
}

// Stream yields each message once, in timeline order, starting with history.
// It is closed by Close.
func (s *Session) Stream() <-chan Message {
	return s.stream
}

// Messages returns a snapshot of the timeline.
func (s *Session) Messages() []Message {
	return s.timeline.Snapshot()
}

// Send delivers content over the channel when it is Open and over REST
// otherwise. A channel send is not inserted locally; it shows up when the
// server echoes it. A REST send re-fetches history before returning, so the
// message is in Messages() by then.
func (s *Session) Send(ctx context.Context, content string) (Receipt, error) {
	if strings.TrimSpace(content) == "" {
		return Receipt{}, errors.ErrEmptyMessage
	}
	if s.isClosed() {
		return Receipt{}, errors.ErrSessionClosed
	}

	if s.channel.State() == Open {
		err := s.channel.Send(ctx, content)
		if err == nil {
			return Receipt{Via: ViaChannel, Delivery: DeliverySent}, nil
		}
		s.logger.Warn().Err(err).Msg("channel send failed, falling back to REST")
	}

	m, err := s.api.SendMessage(ctx, s.roomID, content)
	if err != nil {
		return Receipt{}, err
	}
	if err := s.Reload(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("history refetch after send failed")
		if err := s.submit(ctx, []Message{*m}); err != nil {
			return Receipt{}, err
		}
	}
	return Receipt{Via: ViaREST, Delivery: DeliveryConfirmed, Message: m}, nil
}

// Reload re-fetches history and merges anything new.
func (s *Session) Reload(ctx context.Context) error {
	room, err := s.api.Room(ctx, s.roomID)
	if err != nil {
		return err
	}
	s.setRoom(room)
	return s.submit(ctx, room.Messages)
}

// MarkRead marks the room read on the server.
func (s *Session) MarkRead(ctx context.Context) error {
	return s.api.MarkRead(ctx, s.roomID)
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}

// Close closes the channel and stops the pump. No message is emitted after it
// returns and Stream is closed.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closing)
		err = s.channel.Close()
		<-s.pumpDone
	})
	return err
}
