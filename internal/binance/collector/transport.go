package collector

import (
	"context"

	"tickerfeed/internal/binance/ticker"
	"tickerfeed/pkg/binance"
)

// wsTransport adapts binance.WSClient to ticker.Transport.
type wsTransport struct {
	client *binance.WSClient
}

func (t wsTransport) Open(ctx context.Context, url string, l ticker.Listener) ticker.Conn {
	return t.client.Open(ctx, url, binance.Callbacks{
		OnConnected:    l.OnConnected,
		OnMessage:      l.OnMessage,
		OnError:        l.OnError,
		OnDisconnected: l.OnDisconnected,
	})
}
