package binance

import "fmt"

// StreamType is the stream name suffix used in subscriptions, e.g. "miniTicker".
type StreamType string

// StreamTypeMeta holds what the client needs to know about a stream type.
type StreamTypeMeta struct {
	Name      string // stream suffix after '@'
	EventType string // value of the "e" field on frames of this stream
}

const (
	StreamMiniTicker StreamType = "miniTicker"
	StreamTicker     StreamType = "ticker"
)

// Only streams whose payload carries a "c" close price belong here.
var validStreamTypes = map[StreamType]StreamTypeMeta{
	StreamMiniTicker: {Name: "miniTicker", EventType: "24hrMiniTicker"},
	StreamTicker:     {Name: "ticker", EventType: "24hrTicker"},
}

// IsValid checks if the StreamType is a supported stream.
func (s StreamType) IsValid() bool {
	_, ok := validStreamTypes[s]
	return ok
}

// ParseStreamType parses a string into a supported StreamTypeMeta.
func ParseStreamType(s string) (StreamTypeMeta, error) {
	meta, ok := validStreamTypes[StreamType(s)]
	if !ok {
		return StreamTypeMeta{}, fmt.Errorf("invalid StreamType: %s", s)
	}
	return meta, nil
}

// StreamName joins a lower-case pair and a stream type, e.g. "zecusdt@miniTicker".
func StreamName(pair string, stream StreamType) string {
	return fmt.Sprintf("%s@%s", pair, stream)
}
