package ticker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tickerfeed/internal/binance/stream"

	"go.uber.org/zap"
)

// websocket close code for a normal closure
const closeNormal = 1000

const defaultQueueSize = 256

// maximum frame excerpt written to logs
const maxLoggedFrame = 100

var ErrNoTransport = errors.New("no open transport for session")

// Listener receives the callbacks of one transport connection.
type Listener interface {
	OnConnected()
	OnMessage(data []byte)
	OnError(err error)
	OnDisconnected()
}

// Conn is an open (or opening) transport connection.
type Conn interface {
	Send(data []byte) error
	Close(code int, reason string) error
}

// Transport opens connections. Open must not block; progress is reported
// to l from any goroutine.
type Transport interface {
	Open(ctx context.Context, url string, l Listener) Conn
}

// Observer receives every published Snapshot.
type Observer interface {
	Publish(s Snapshot)
}

type Option func(*Runner)

// WithEffectHook registers fn to be called, on the runner goroutine, after
// each effect is carried out.
func WithEffectHook(fn func(Effect)) Option {
	return func(r *Runner) {
		r.hooks = append(r.hooks, fn)
	}
}

// WithQueueSize sets the capacity of the inbound event queue.
func WithQueueSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.events = make(chan Event, n)
		}
	}
}

// Runner is the single actor that owns a Machine, its transport connection
// and its reconnect timer. Transport callbacks, timer expiries and
// Start/Stop are queued and handled one at a time on the Run goroutine.
type Runner struct {
	url       string
	machine   *Machine
	transport Transport
	observer  Observer
	logger    *zap.Logger
	hooks     []func(Effect)

	events chan Event
	done   chan struct{}

	// owned by the Run goroutine
	ctx         context.Context
	conn        Conn
	connSession uint64
	timer       *time.Timer
}

func NewRunner(url string, cfg Config, transport Transport, observer Observer, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = Observers(nil)
	}

	r := &Runner{
		url:       url,
		machine:   NewMachine(cfg),
		transport: transport,
		observer:  observer,
		logger:    logger,
		events:    make(chan Event, defaultQueueSize),
		done:      make(chan struct{}),
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start requests the first connection. It may be called before Run.
func (r *Runner) Start() { r.post(Start{}) }

// Stop requests shutdown. It is idempotent and safe from any goroutine;
// Run returns once the stop has been handled.
func (r *Runner) Stop() { r.post(Stop{}) }

// Done is closed when Run has returned.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Run processes events until Stop is handled, returning nil, or until ctx
// is cancelled, returning ctx.Err() after performing the same shutdown.
func (r *Runner) Run(ctx context.Context) error {
	r.ctx = ctx
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			r.dispatch(Stop{})
			return ctx.Err()
		case ev := <-r.events:
			r.dispatch(ev)
			if r.machine.Stopped() {
				return nil
			}
		}
	}
}

func (r *Runner) post(ev Event) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

func (r *Runner) dispatch(ev Event) {
	effects := r.machine.Handle(ev)
	// effects may grow when carrying one out feeds an event back
	for i := 0; i < len(effects); i++ {
		if follow := r.apply(effects[i]); follow != nil {
			effects = append(effects, r.machine.Handle(follow)...)
		}
	}
}

func (r *Runner) apply(e Effect) Event {
	var follow Event

	switch e := e.(type) {
	case OpenTransport:
		r.logger.Info("connecting", zap.String("url", r.url), zap.Uint64("session", e.Session))
		r.conn = r.transport.Open(r.ctx, r.url, &sessionListener{runner: r, session: e.Session})
		r.connSession = e.Session

	case SendFrame:
		if r.conn == nil || r.connSession != e.Session {
			follow = TransportError{Session: e.Session, Err: ErrNoTransport}
			break
		}
		if err := r.conn.Send(e.Payload); err != nil {
			r.logger.Warn("Failed to send subscription", zap.Uint64("session", e.Session), zap.Error(err))
			follow = TransportError{Session: e.Session, Err: fmt.Errorf("send subscription: %w", err)}
			break
		}
		r.logger.Info("subscribed", zap.ByteString("request", e.Payload))

	case CloseTransport:
		if r.conn != nil && r.connSession == e.Session {
			if err := r.conn.Close(closeNormal, e.Reason); err != nil {
				r.logger.Debug("close transport", zap.Error(err))
			}
			r.conn = nil
		}

	case ArmTimer:
		if r.timer != nil {
			r.timer.Stop()
		}
		seq := e.Seq
		r.timer = time.AfterFunc(e.Delay, func() { r.post(TimerFired{Seq: seq}) })
		r.logger.Info("Scheduling reconnect", zap.Duration("delay", e.Delay))

	case CancelTimer:
		if r.timer != nil {
			r.timer.Stop()
			r.timer = nil
		}

	case Publish:
		r.observer.Publish(e.Snapshot)

	case DropFrame:
		r.logDrop(e)
	}

	for _, h := range r.hooks {
		h(e)
	}
	return follow
}

func (r *Runner) logDrop(e DropFrame) {
	excerpt := e.Frame
	if len(excerpt) > maxLoggedFrame {
		excerpt = excerpt[:maxLoggedFrame]
	}

	fields := []zap.Field{
		zap.Stringer("reason", e.Reason),
		zap.ByteString("frame", excerpt),
		zap.Error(e.Err),
	}
	if e.Reason == stream.Irrelevant {
		r.logger.Debug("ignoring frame", fields...)
		return
	}
	r.logger.Warn("dropping frame", fields...)
}

// sessionListener tags callbacks with the session they belong to.
type sessionListener struct {
	runner  *Runner
	session uint64
}

func (l *sessionListener) OnConnected() {
	l.runner.post(TransportConnected{Session: l.session})
}

func (l *sessionListener) OnMessage(data []byte) {
	l.runner.post(TransportMessage{Session: l.session, Data: data})
}

func (l *sessionListener) OnError(err error) {
	l.runner.post(TransportError{Session: l.session, Err: err})
}

func (l *sessionListener) OnDisconnected() {
	l.runner.post(TransportDisconnected{Session: l.session})
}
