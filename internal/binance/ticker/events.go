package ticker

import (
	"time"

	"tickerfeed/internal/binance/stream"
)

// Event is an input to the Machine.
type Event interface {
	isEvent()
}

type (
	Start struct{}
	Stop  struct{}

	// Transport events carry the session they were reported for; the Machine
	// drops events from any session other than the current one.
	TransportConnected struct {
		Session uint64
	}
	TransportMessage struct {
		Session uint64
		Data    []byte
	}
	TransportError struct {
		Session uint64
		Err     error
	}
	TransportDisconnected struct {
		Session uint64
	}

	// TimerFired carries the sequence number of the ArmTimer that produced it.
	TimerFired struct {
		Seq uint64
	}
)

func (Start) isEvent()                 {}
func (Stop) isEvent()                  {}
func (TransportConnected) isEvent()    {}
func (TransportMessage) isEvent()      {}
func (TransportError) isEvent()        {}
func (TransportDisconnected) isEvent() {}
func (TimerFired) isEvent()            {}

// Effect is an instruction from the Machine to its driver.
type Effect interface {
	isEffect()
}

type (
	OpenTransport struct {
		Session uint64
	}
	SendFrame struct {
		Session uint64
		Payload []byte
	}
	CloseTransport struct {
		Session uint64
		Reason  string
	}
	ArmTimer struct {
		Seq   uint64
		Delay time.Duration
	}
	CancelTimer struct {
		Seq uint64
	}
	Publish struct {
		Snapshot Snapshot
	}
	DropFrame struct {
		Reason stream.RejectReason
		Err    error
		Frame  []byte
	}
)

func (OpenTransport) isEffect()  {}
func (SendFrame) isEffect()      {}
func (CloseTransport) isEffect() {}
func (ArmTimer) isEffect()       {}
func (CancelTimer) isEffect()    {}
func (Publish) isEffect()        {}
func (DropFrame) isEffect()      {}
