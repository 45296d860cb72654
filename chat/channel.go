package chat

import "context"

// ChannelState is the lifecycle of a push channel: Connecting -> Open -> Closed,
// or Connecting -> Closed when the handshake fails. Closed is final.
type ChannelState int32

const (
	Connecting ChannelState = iota
	Open
	Closed
)

func (s ChannelState) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "connecting"
	}
}

// Channel is a live, per-room push connection.
type Channel interface {
	State() ChannelState
	// Messages yields inbound frames; it is closed when the channel closes.
	Messages() <-chan Message
	// Send writes one outbound frame. It fails unless the channel is Open.
	Send(ctx context.Context, content string) error
	// Close is idempotent and returns once the channel has stopped.
	Close() error
	// Done is closed once the channel reaches Closed.
	Done() <-chan struct{}
	// Err is why the channel closed, nil for a local Close.
	Err() error
}

// Dialer opens channels. Dial returns immediately with a Connecting channel;
// the handshake continues in the background.
type Dialer interface {
	Dial(ctx context.Context, roomID int64, accessToken string) (Channel, error)
}
