package stream

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	eventTypeField  = "e"
	closePriceField = "c"
)

// Prices with a decimal exponent below this are rejected; converting them
// to float scales with the exponent.
const minPriceExponent = -64

// Decoder turns raw ticker frames into TickerUpdates. It holds no state and
// is safe for concurrent use.
type Decoder struct {
	EventType string // expected value of the "e" field, e.g. "24hrMiniTicker"
}

// Decode validates a single frame. The returned error wraps ErrMalformed,
// ErrIrrelevant or ErrBadPrice; use Reason to classify it.
func (d Decoder) Decode(frame []byte) (TickerUpdate, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(frame, &doc); err != nil {
		return TickerUpdate{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	// "null" decodes without error into a nil map
	if doc == nil {
		return TickerUpdate{}, fmt.Errorf("%w: not an object", ErrMalformed)
	}

	rawEvent, ok := doc[eventTypeField]
	if !ok {
		return TickerUpdate{}, fmt.Errorf("%w: no %q field", ErrIrrelevant, eventTypeField)
	}
	var event string
	if err := json.Unmarshal(rawEvent, &event); err != nil || event != d.EventType {
		return TickerUpdate{}, fmt.Errorf("%w: event type %s", ErrIrrelevant, rawEvent)
	}

	rawPrice, ok := doc[closePriceField]
	if !ok {
		return TickerUpdate{}, fmt.Errorf("%w: no %q field", ErrIrrelevant, closePriceField)
	}
	var priceStr string
	if err := json.Unmarshal(rawPrice, &priceStr); err != nil {
		return TickerUpdate{}, fmt.Errorf("%w: %s is not a string", ErrBadPrice, rawPrice)
	}
	// must be a finite float64 before it becomes a decimal
	f, err := strconv.ParseFloat(priceStr, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return TickerUpdate{}, fmt.Errorf("%w: %q", ErrBadPrice, priceStr)
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil || price.Exponent() < minPriceExponent {
		return TickerUpdate{}, fmt.Errorf("%w: %q", ErrBadPrice, priceStr)
	}

	return TickerUpdate{Price: price}, nil
}
