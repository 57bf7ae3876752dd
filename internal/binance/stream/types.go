package stream

import (
	"errors"

	"github.com/shopspring/decimal"
)

// TickerUpdate is the only payload the feed cares about: the latest close price.
type TickerUpdate struct {
	Price decimal.Decimal
}

// RejectReason classifies why a frame did not yield a TickerUpdate.
type RejectReason int

const (
	Accepted   RejectReason = iota // not a rejection; returned by Reason(nil)
	Malformed                      // not a JSON object
	Irrelevant                     // another event type, or no close-price field
	BadPrice                       // close price present but not a decimal string
)

func (r RejectReason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Malformed:
		return "malformed"
	case Irrelevant:
		return "irrelevant"
	case BadPrice:
		return "bad_price"
	default:
		return "unknown"
	}
}

var (
	ErrMalformed  = errors.New("malformed frame")
	ErrIrrelevant = errors.New("irrelevant frame")
	ErrBadPrice   = errors.New("bad price")
)

// Reason maps a Decode error to its RejectReason.
// Errors that did not come from Decode map to Malformed.
func Reason(err error) RejectReason {
	switch {
	case err == nil:
		return Accepted
	case errors.Is(err, ErrIrrelevant):
		return Irrelevant
	case errors.Is(err, ErrBadPrice):
		return BadPrice
	default:
		return Malformed
	}
}
