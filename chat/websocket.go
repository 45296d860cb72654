package chat

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jrsteele09/go-marketplace-client/endpoint"
	"github.com/jrsteele09/go-marketplace-client/internal/errors"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	defaultDialTimeout = 10 * time.Second
	inboundBuffer      = 64
)

var _ Dialer = (*WebSocketDialer)(nil)

// WebSocketDialer connects to {base}/ws/chat/{room}/?token=<access>.
type WebSocketDialer struct {
	baseURL     string
	dialTimeout time.Duration
	httpClient  *http.Client
	logger      zerolog.Logger
}

type DialerOption func(*WebSocketDialer)

func WithDialTimeout(d time.Duration) DialerOption {
	return func(w *WebSocketDialer) {
		if d > 0 {
			w.dialTimeout = d
		}
	}
}

func WithDialHTTPClient(client *http.Client) DialerOption {
	return func(w *WebSocketDialer) {
		w.httpClient = client
	}
}

func WithDialLogger(logger zerolog.Logger) DialerOption {
	return func(w *WebSocketDialer) {
		w.logger = logger
	}
}

func NewWebSocketDialer(baseURL string, options ...DialerOption) *WebSocketDialer {
	w := &WebSocketDialer{
		baseURL:     strings.TrimRight(baseURL, "/"),
		dialTimeout: defaultDialTimeout,
		logger:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func (w *WebSocketDialer) url(roomID int64, accessToken string) (string, error) {
	u, err := url.Parse(w.baseURL + endpoint.ChatSocket(roomID))
	if err != nil {
		return "", pkgerrors.Wrap(err, "WebSocketDialer.url Parse")
	}
	q := u.Query()
	q.Set("token", accessToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial starts the handshake and returns at once. The handshake is bounded by
// the dial timeout and by ctx.
func (w *WebSocketDialer) Dial(ctx context.Context, roomID int64, accessToken string) (Channel, error) {
	target, err := w.url(roomID, accessToken)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &wsChannel{
		roomID:   roomID,
		messages: make(chan Message, inboundBuffer),
		done:     make(chan struct{}),
		cancel:   cancel,
		logger:   w.logger.With().Int64("room_id", roomID).Logger(),
	}

	dialCtx, dialCancel := context.WithTimeout(runCtx, w.dialTimeout)
	stop := context.AfterFunc(ctx, dialCancel)
	go func() {
		defer stop()
		defer dialCancel()
		c.run(runCtx, dialCtx, target, w.httpClient)
	}()
	return c, nil
}

type outboundFrame struct {
	Content string `json:"content"`
	Message string `json:"message"`
}

type wsChannel struct {
	roomID   int64
	state    atomic.Int32
	messages chan Message
	done     chan struct{}
	cancel   context.CancelFunc
	logger   zerolog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	err       error
	closed    bool
	closeOnce sync.Once
}

func (c *wsChannel) run(runCtx, dialCtx context.Context, target string, client *http.Client) {
	defer close(c.done)
	defer close(c.messages)
	defer c.state.Store(int32(Closed))

	conn, _, err := websocket.Dial(dialCtx, target, &websocket.DialOptions{HTTPClient: client})
	if err != nil {
		c.setErr(err)
		c.logger.Debug().Err(err).Msg("chat channel handshake failed")
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
		return
	}
	c.conn = conn
	c.state.Store(int32(Open))
	c.mu.Unlock()
	c.logger.Debug().Str("state", Open.String()).Msg("chat channel open")

	for {
		var m Message
		if err := wsjson.Read(runCtx, conn, &m); err != nil {
			c.setErr(err)
			c.logger.Debug().Err(err).Str("state", Closed.String()).Msg("chat channel closed")
			return
		}
		select {
		case c.messages <- m:
		case <-runCtx.Done():
			return
		}
	}
}

func (c *wsChannel) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed && c.err == nil {
		c.err = err
	}
}

func (c *wsChannel) State() ChannelState {
	return ChannelState(c.state.Load())
}

func (c *wsChannel) Messages() <-chan Message {
	return c.messages
}

func (c *wsChannel) Done() <-chan struct{} {
	return c.done
}

func (c *wsChannel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *wsChannel) Send(ctx context.Context, content string) error {
	if c.State() != Open {
		return errors.ErrChannelNotOpen
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.ErrChannelNotOpen
	}
	if err := wsjson.Write(ctx, conn, outboundFrame{Content: content, Message: content}); err != nil {
		return pkgerrors.Wrap(err, "wsChannel.Send Write")
	}
	return nil
}

func (c *wsChannel) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		conn := c.conn
		c.mu.Unlock()

		c.state.Store(int32(Closed))
		if conn != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "room closed")
		}
		c.cancel()
	})
	<-c.done
	return nil
}
