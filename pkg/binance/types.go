package binance

import "encoding/json"

// SubscribeRequest is the one-time handshake sent after a connection opens.
// Field order is the wire order: {"method":"SUBSCRIBE","params":[...],"id":1}.
type SubscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

// NewSubscribeRequest builds the SUBSCRIBE request for the given streams.
func NewSubscribeRequest(streams ...string) SubscribeRequest {
	return SubscribeRequest{
		Method: "SUBSCRIBE",
		Params: streams,
		ID:     1,
	}
}

// Encode renders the request as a compact JSON text frame.
func (r SubscribeRequest) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// ErrorResponse is the body Binance returns on non-2xx REST responses.
type ErrorResponse struct {
	Code int    `json:"code"` // negative error code, e.g. -1121 for an invalid symbol
	Msg  string `json:"msg"`
}

type ExchangeInfoResponse struct {
	Timezone   string `json:"timezone"`
	ServerTime int64  `json:"serverTime"`
	Symbols    []struct {
		Symbol     string `json:"symbol"`     // e.g. "ZECUSDT"
		Status     string `json:"status"`     // e.g. "TRADING"
		BaseAsset  string `json:"baseAsset"`  // e.g. "ZEC"
		QuoteAsset string `json:"quoteAsset"` // e.g. "USDT"
		// ... extra
	} `json:"symbols"`
}
