package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(server.Close)

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// recorder collects callbacks as an ordered event log.
type recorder struct {
	mu     sync.Mutex
	events []string
	frames []string
	errs   []error
	signal chan struct{}
}

func newRecorder() *recorder {
	return &recorder{signal: make(chan struct{}, 64)}
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.signal <- struct{}{}
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnConnected: func() { r.add("connected") },
		OnMessage: func(data []byte) {
			r.mu.Lock()
			r.frames = append(r.frames, string(data))
			r.mu.Unlock()
			r.add("message")
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
			r.add("error")
		},
		OnDisconnected: func() { r.add("disconnected") },
	}
}

func (r *recorder) waitFor(t *testing.T, ev string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		r.mu.Lock()
		for _, e := range r.events {
			if e == ev {
				r.mu.Unlock()
				return
			}
		}
		r.mu.Unlock()

		select {
		case <-r.signal:
		case <-deadline:
			t.Fatalf("timeout waiting for %q, got %v", ev, r.snapshot())
		}
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func testOptions() WSOptions {
	return WSOptions{
		HandshakeTimeout: time.Second,
		WriteTimeout:     time.Second,
	}
}

// go test -v --run TestSessionSubscribeAndReceive
func TestSessionSubscribeAndReceive(t *testing.T) {
	got := make(chan string, 1)
	server := mockWSServer(t, func(conn *websocket.Conn) {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		got <- string(msg)
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"e":"24hrMiniTicker","c":"30.12"}`))
		// keep the connection open until the client leaves
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	rec := newRecorder()
	client := NewWSClient(testOptions(), nil)
	s := client.Open(context.Background(), wsURL(server), rec.callbacks())
	defer s.Close(websocket.CloseNormalClosure, "test done")

	rec.waitFor(t, "connected")
	assert.True(t, s.IsConnected())

	req, err := NewSubscribeRequest("zecusdt@miniTicker").Encode()
	require.NoError(t, err)
	require.NoError(t, s.Send(req))

	select {
	case msg := <-got:
		assert.Equal(t, `{"method":"SUBSCRIBE","params":["zecusdt@miniTicker"],"id":1}`, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive subscription")
	}

	rec.waitFor(t, "message")
	rec.mu.Lock()
	assert.Equal(t, []string{`{"e":"24hrMiniTicker","c":"30.12"}`}, rec.frames)
	rec.mu.Unlock()
}

// go test -v --run TestSessionDialFailure
func TestSessionDialFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(server)
	server.Close()

	rec := newRecorder()
	s := NewWSClient(testOptions(), nil).Open(context.Background(), url, rec.callbacks())
	defer s.Close(websocket.CloseNormalClosure, "")

	rec.waitFor(t, "error")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"error"}, rec.snapshot())
	assert.False(t, s.IsConnected())
	assert.ErrorIs(t, s.Send([]byte("x")), ErrNotConnected)
}

// go test -v --run TestSessionServerNormalClose
func TestSessionServerNormalClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(time.Second))
		time.Sleep(100 * time.Millisecond)
	})

	rec := newRecorder()
	s := NewWSClient(testOptions(), nil).Open(context.Background(), wsURL(server), rec.callbacks())
	defer s.Close(websocket.CloseNormalClosure, "")

	rec.waitFor(t, "disconnected")
	assert.Equal(t, []string{"connected", "disconnected"}, rec.snapshot())
}

// go test -v --run TestSessionAbruptDrop
func TestSessionAbruptDrop(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// drop the TCP connection without a close frame
		_ = conn.UnderlyingConn().Close()
	})

	rec := newRecorder()
	s := NewWSClient(testOptions(), nil).Open(context.Background(), wsURL(server), rec.callbacks())
	defer s.Close(websocket.CloseNormalClosure, "")

	rec.waitFor(t, "disconnected")
	assert.Equal(t, []string{"connected", "error", "disconnected"}, rec.snapshot())
}

// go test -v --run TestSessionStaleConnection
func TestSessionStaleConnection(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		time.Sleep(time.Second)
	})

	opts := testOptions()
	opts.ReadTimeout = 100 * time.Millisecond

	rec := newRecorder()
	s := NewWSClient(opts, nil).Open(context.Background(), wsURL(server), rec.callbacks())
	defer s.Close(websocket.CloseNormalClosure, "")

	rec.waitFor(t, "disconnected")
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], ErrStaleConnection)
}

// go test -v --run TestSessionCloseIsQuiet
func TestSessionCloseIsQuiet(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	rec := newRecorder()
	s := NewWSClient(testOptions(), nil).Open(context.Background(), wsURL(server), rec.callbacks())
	rec.waitFor(t, "connected")

	require.NoError(t, s.Close(websocket.CloseNormalClosure, "Widget closing"))
	// second close is a no-op
	require.NoError(t, s.Close(websocket.CloseNormalClosure, "again"))
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, []string{"connected"}, rec.snapshot())
	assert.ErrorIs(t, s.Send([]byte("x")), ErrSessionClosed)
}
