package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnknownSymbol is returned when the exchange does not list the symbol.
var ErrUnknownSymbol = errors.New("unknown symbol")

// Binance error code for an invalid symbol on exchangeInfo.
const codeInvalidSymbol = -1121

type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *RESTClient) HTTPClient() *http.Client {
	return c.httpClient
}

// SymbolStatus returns the trading status (e.g. "TRADING") of a symbol.
// ErrUnknownSymbol is returned when the exchange rejects or omits it.
func (c *RESTClient) SymbolStatus(ctx context.Context, symbol string) (string, error) {
	symbol = strings.ToUpper(symbol)
	endpoint := c.baseURL + "/api/v3/exchangeInfo?symbol=" + url.QueryEscape(symbol)

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var apiErr ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Code == codeInvalidSymbol {
			return "", fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
		}
		return "", fmt.Errorf("binance error: status %d: %s", resp.StatusCode, body)
	}

	var info ExchangeInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	for _, s := range info.Symbols {
		if s.Symbol == symbol {
			return s.Status, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
}
