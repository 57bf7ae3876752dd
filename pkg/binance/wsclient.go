package binance

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	ErrNotConnected    = errors.New("not connected")
	ErrSessionClosed   = errors.New("session closed")
	ErrSendQueueFull   = errors.New("send queue full")
	ErrStaleConnection = errors.New("connection stale (no frames received)")
)

const sendQueueSize = 16

// Callbacks receive the lifecycle of one Session. They are invoked from the
// session's own goroutines and must not block for long.
//
// A failed dial reports only OnError. A server-initiated normal close reports
// only OnDisconnected. Any other read or write failure reports OnError once,
// followed by OnDisconnected.
type Callbacks struct {
	OnConnected    func()
	OnMessage      func(data []byte)
	OnError        func(err error)
	OnDisconnected func()
}

func (cb Callbacks) withDefaults() Callbacks {
	if cb.OnConnected == nil {
		cb.OnConnected = func() {}
	}
	if cb.OnMessage == nil {
		cb.OnMessage = func([]byte) {}
	}
	if cb.OnError == nil {
		cb.OnError = func(error) {}
	}
	if cb.OnDisconnected == nil {
		cb.OnDisconnected = func() {}
	}
	return cb
}

type WSOptions struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration // 0 disables stale detection
}

// WSClient opens websocket sessions against the Binance stream endpoint.
// It holds no connection itself; every Open produces an independent Session.
type WSClient struct {
	dialer       *websocket.Dialer
	writeTimeout time.Duration
	readTimeout  time.Duration
	logger       *zap.Logger
}

// NewWSClient creates a new WebSocket client with the given options and logger.
func NewWSClient(opts WSOptions, logger *zap.Logger) *WSClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &WSClient{
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		writeTimeout: opts.WriteTimeout,
		readTimeout:  opts.ReadTimeout,
		logger:       logger,
	}
}

// Session is a single websocket connection attempt and, once dialed, the
// connection itself.
type Session struct {
	ID uuid.UUID

	client *WSClient
	url    string
	cb     Callbacks
	logger *zap.Logger

	outbound  chan []byte
	done      chan struct{} // closed by Close
	closeOnce sync.Once
	errOnce   sync.Once
	cancel    context.CancelFunc

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// Open starts dialing url in the background and returns immediately.
// Progress is reported through cb.
func (c *WSClient) Open(ctx context.Context, url string, cb Callbacks) *Session {
	sctx, cancel := context.WithCancel(ctx)
	id := uuid.New()

	s := &Session{
		ID:       id,
		client:   c,
		url:      url,
		cb:       cb.withDefaults(),
		logger:   c.logger.With(zap.String("session", id.String())),
		outbound: make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
		cancel:   cancel,
	}

	go s.run(sctx)
	return s
}

// IsConnected returns whether the handshake completed and the socket is still up.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Send queues a text frame for writing. It never blocks; write failures are
// reported through OnError.
func (s *Session) Send(data []byte) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if !s.IsConnected() {
		return ErrNotConnected
	}

	select {
	case s.outbound <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close aborts a pending dial or sends a close frame and tears down the
// socket. It is idempotent; callbacks stop once it returns.
func (s *Session) Close(code int, reason string) error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.cancel()

		s.mu.Lock()
		conn := s.conn
		s.connected = false
		s.mu.Unlock()

		if conn != nil {
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(code, reason),
				time.Now().Add(time.Second),
			)
			err = conn.Close()
		}
		s.logger.Debug("session closed", zap.Int("code", code), zap.String("reason", reason))
	})
	return err
}

func (s *Session) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Session) run(ctx context.Context) {
	conn, _, err := s.client.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		if !s.isClosed() {
			s.logger.Warn("Failed to connect to WebSocket", zap.String("url", s.url), zap.Error(err))
			s.reportError(err)
		}
		return
	}

	s.mu.Lock()
	if s.isClosed() {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	s.extendReadDeadline(conn)
	conn.SetPingHandler(func(data string) error {
		s.extendReadDeadline(conn)
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(s.client.writeTimeout))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil
		}
		return err
	})

	s.logger.Info("WebSocket connected", zap.String("url", s.url))
	s.cb.OnConnected()

	stopped := make(chan struct{})
	go s.writeLoop(conn, stopped)
	s.readLoop(conn)
	close(stopped)
}

func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			s.connected = false
			s.mu.Unlock()
			_ = conn.Close()

			if s.isClosed() {
				return
			}

			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Info("WebSocket closed by server", zap.Error(err))
			} else {
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					err = ErrStaleConnection
				}
				s.logger.Warn("WebSocket read error", zap.Error(err))
				s.reportError(err)
			}
			s.cb.OnDisconnected()
			return
		}

		s.extendReadDeadline(conn)
		if s.isClosed() {
			return
		}
		s.cb.OnMessage(data)
	}
}

func (s *Session) writeLoop(conn *websocket.Conn, stopped <-chan struct{}) {
	for {
		select {
		case <-s.done:
			return
		case <-stopped:
			return
		case data := <-s.outbound:
			_ = conn.SetWriteDeadline(time.Now().Add(s.client.writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				if !s.isClosed() {
					s.logger.Warn("WebSocket write error", zap.Error(err))
					s.reportError(err)
				}
				// unblocks readLoop, which reports the disconnect
				_ = conn.Close()
				return
			}
		}
	}
}

// reportError forwards at most one error per session.
func (s *Session) reportError(err error) {
	s.errOnce.Do(func() {
		s.cb.OnError(err)
	})
}

func (s *Session) extendReadDeadline(conn *websocket.Conn) {
	if s.client.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.client.readTimeout))
	}
}
