package binance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestParseStreamType
func TestParseStreamType(t *testing.T) {
	meta, err := ParseStreamType("miniTicker")
	require.NoError(t, err)
	assert.Equal(t, "24hrMiniTicker", meta.EventType)

	meta, err = ParseStreamType("ticker")
	require.NoError(t, err)
	assert.Equal(t, "24hrTicker", meta.EventType)

	_, err = ParseStreamType("kline_1m")
	assert.Error(t, err)
	assert.False(t, StreamType("depth").IsValid())
}

// go test -v --run TestSubscribeRequestEncode
func TestSubscribeRequestEncode(t *testing.T) {
	data, err := NewSubscribeRequest(StreamName("zecusdt", StreamMiniTicker)).Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"method":"SUBSCRIBE","params":["zecusdt@miniTicker"],"id":1}`, string(data))
}
