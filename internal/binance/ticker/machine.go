package ticker

import (
	"time"

	"tickerfeed/internal/binance/backoff"
	"tickerfeed/internal/binance/stream"
)

// Close reasons sent with CloseTransport.
const (
	reasonShutdown = "Widget closing"
	reasonError    = "transport error"
	reasonDropped  = "disconnected"
)

// Config is fixed for the lifetime of a Machine.
type Config struct {
	Subscription []byte         // handshake frame sent once per connection
	Decoder      stream.Decoder // expected event type
	Backoff      backoff.State  // initial reconnect policy
	Format       Formatter      // nil uses NewPriceFormatter("")
}

// Machine is the connection lifecycle as a pure transition function. It
// performs no I/O: Handle applies one event and returns the effects the
// driver must carry out, in order. It is not safe for concurrent use.
type Machine struct {
	cfg Config

	state   ConnectionState
	backoff backoff.State

	session       uint64 // current transport session, 0 before the first open
	transportOpen bool
	confirmed     bool // a valid update arrived since the last connect

	timerSeq   uint64
	timerArmed bool
	retryIn    time.Duration // mirrored into snapshots

	stopped bool
	snap    Snapshot
}

func NewMachine(cfg Config) *Machine {
	if cfg.Format == nil {
		cfg.Format = NewPriceFormatter("")
	}
	if cfg.Backoff == (backoff.State{}) {
		cfg.Backoff = backoff.Default()
	}

	return &Machine{
		cfg:     cfg,
		state:   Disconnected,
		backoff: cfg.Backoff,
		snap: Snapshot{
			State:  Disconnected,
			Price:  placeholder(PlaceholderLoading),
			Status: StatusReport{Label: LabelDisconnected, Severity: Info},
		},
	}
}

// State is the current connection state.
func (m *Machine) State() ConnectionState { return m.state }

// Snapshot is the last published snapshot.
func (m *Machine) Snapshot() Snapshot { return m.snap }

// TimerArmed reports whether a reconnect timer is pending.
func (m *Machine) TimerArmed() bool { return m.timerArmed }

// Session is the number of the current transport session, 0 before Start.
func (m *Machine) Session() uint64 { return m.session }

// TimerSeq is the sequence number of the most recently armed timer.
func (m *Machine) TimerSeq() uint64 { return m.timerSeq }

func (m *Machine) Stopped() bool { return m.stopped }

// Backoff is the policy state the next reconnect delay is taken from.
func (m *Machine) Backoff() backoff.State { return m.backoff }

// Handle applies ev and returns the resulting effects. After Stop every
// event is ignored.
func (m *Machine) Handle(ev Event) []Effect {
	if m.stopped {
		return nil
	}

	switch ev := ev.(type) {
	case Start:
		return m.onStart()
	case Stop:
		return m.onStop()
	case TimerFired:
		return m.onTimer(ev.Seq)
	case TransportConnected:
		if ev.Session == m.session {
			return m.onConnected()
		}
	case TransportMessage:
		if ev.Session == m.session {
			return m.onMessage(ev.Data)
		}
	case TransportError:
		if ev.Session == m.session {
			return m.onError(ev.Err)
		}
	case TransportDisconnected:
		if ev.Session == m.session {
			return m.onDisconnected()
		}
	}
	return nil
}

func (m *Machine) onStart() []Effect {
	if m.state != Disconnected {
		return nil
	}
	return m.open()
}

func (m *Machine) onTimer(seq uint64) []Effect {
	if !m.timerArmed || seq != m.timerSeq {
		return nil
	}
	m.timerArmed = false
	m.retryIn = 0

	if m.state != ReconnectScheduled {
		return nil
	}
	return m.open()
}

func (m *Machine) open() []Effect {
	m.session++
	m.transportOpen = true
	m.confirmed = false
	m.state = Connecting
	m.setStatus(LabelConnecting, Info)

	return []Effect{
		OpenTransport{Session: m.session},
		m.publish(),
	}
}

func (m *Machine) onConnected() []Effect {
	if m.state != Connecting {
		return nil
	}
	m.state = Connected
	m.confirmed = false
	// Ok waits for the first valid update
	m.setStatus(LabelConnected, Info)

	return []Effect{
		SendFrame{Session: m.session, Payload: m.cfg.Subscription},
		m.publish(),
	}
}

func (m *Machine) onMessage(data []byte) []Effect {
	if m.state != Connected {
		return nil
	}

	update, err := m.cfg.Decoder.Decode(data)
	if err != nil {
		return []Effect{DropFrame{Reason: stream.Reason(err), Err: err, Frame: data}}
	}

	m.snap.Price = PriceValue{
		Raw:       update.Price,
		Formatted: m.cfg.Format(update.Price),
		Valid:     true,
	}
	if !m.confirmed {
		m.confirmed = true
		m.backoff = m.backoff.Reset()
		m.setStatus(LabelConnected, Ok)
	}

	return []Effect{m.publish()}
}

func (m *Machine) onError(err error) []Effect {
	if m.state != Connecting && m.state != Connected {
		return nil
	}

	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}

	var effects []Effect
	if c, ok := m.close(reasonError); ok {
		effects = append(effects, c)
	}

	m.state = ReconnectScheduled
	m.confirmed = false
	m.setStatus(errorLabelPrefix+detail, Error)
	if t, ok := m.armTimer(); ok {
		effects = append(effects, t)
	}

	return append(effects, m.publish())
}

func (m *Machine) onDisconnected() []Effect {
	if m.state != Connecting && m.state != Connected {
		return nil
	}
	// a disconnect following an error that already scheduled the retry
	if m.timerArmed {
		return nil
	}

	var effects []Effect
	if c, ok := m.close(reasonDropped); ok {
		effects = append(effects, c)
	}

	m.state = ReconnectScheduled
	m.confirmed = false
	m.snap.Price = placeholder(PlaceholderNA)
	m.setStatus(LabelDisconnected, Error)
	if t, ok := m.armTimer(); ok {
		effects = append(effects, t)
	}

	return append(effects, m.publish())
}

func (m *Machine) onStop() []Effect {
	var effects []Effect

	if m.timerArmed {
		effects = append(effects, CancelTimer{Seq: m.timerSeq})
		m.timerArmed = false
		m.retryIn = 0
	}
	if c, ok := m.close(reasonShutdown); ok {
		effects = append(effects, c)
	}

	m.state = Disconnected
	m.confirmed = false
	m.stopped = true
	m.setStatus(LabelStopped, Info)

	return append(effects, m.publish())
}

func (m *Machine) close(reason string) (Effect, bool) {
	if !m.transportOpen {
		return nil, false
	}
	m.transportOpen = false
	return CloseTransport{Session: m.session, Reason: reason}, true
}

// armTimer is the only place a timer is armed.
func (m *Machine) armTimer() (Effect, bool) {
	if m.timerArmed {
		return nil, false
	}

	var delay time.Duration
	m.backoff, delay = m.backoff.Next()
	m.timerSeq++
	m.timerArmed = true
	m.retryIn = delay

	return ArmTimer{Seq: m.timerSeq, Delay: delay}, true
}

func (m *Machine) setStatus(label string, sev Severity) {
	m.snap.Status = StatusReport{Label: label, Severity: sev}
}

func (m *Machine) publish() Effect {
	m.snap.State = m.state
	m.snap.Session = m.session
	m.snap.RetryIn = m.retryIn
	return Publish{Snapshot: m.snap}
}
