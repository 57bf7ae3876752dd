package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"tickerfeed/internal/binance/ticker"
	"tickerfeed/pkg/storage/postgres"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// liveClient connects to the server named by TICKER_TEST_POSTGRES_DSN.
func liveClient(t *testing.T) *postgres.PostgresClient {
	t.Helper()

	dsn := os.Getenv("TICKER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TICKER_TEST_POSTGRES_DSN not set")
	}

	client, err := postgres.NewClient(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.AutoMigrate())
	return client
}

// go test -v --run ^TestPostgresInvalidDSN$
func TestPostgresInvalidDSN(t *testing.T) {
	invalidDSN := "host=127.0.0.1 port=1 user=fail password=fail dbname=fail sslmode=disable connect_timeout=2"

	_, err := postgres.NewClient(invalidDSN)
	assert.Error(t, err)
}

// go test -v --run ^TestPostgresHealthy$
func TestPostgresHealthy(t *testing.T) {
	client := liveClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	assert.True(t, client.IsHealthy(ctx))
}

// go test -v --run ^TestUpsertSnapshot$
func TestUpsertSnapshot(t *testing.T) {
	client := liveClient(t)
	ctx := context.Background()
	stream := "test@" + time.Now().Format("150405.000000")

	first := postgres.ToSnapshotRecord(stream, ticker.Snapshot{
		State:   ticker.Connected,
		Price:   ticker.PriceValue{Raw: decimal.RequireFromString("30.12"), Formatted: "30.12 USDT", Valid: true},
		Status:  ticker.StatusReport{Label: ticker.LabelConnected, Severity: ticker.Ok},
		Session: 1,
	}, time.Now())
	require.NoError(t, client.UpsertSnapshot(ctx, first))

	second := postgres.ToSnapshotRecord(stream, ticker.Snapshot{
		State:   ticker.ReconnectScheduled,
		Price:   ticker.PriceValue{Formatted: ticker.PlaceholderNA},
		Status:  ticker.StatusReport{Label: ticker.LabelDisconnected, Severity: ticker.Error},
		RetryIn: 5 * time.Second,
		Session: 1,
	}, time.Now())
	require.NoError(t, client.UpsertSnapshot(ctx, second))

	got, err := client.GetSnapshot(ctx, stream)
	require.NoError(t, err)
	assert.Equal(t, "N/A", got.Formatted)
	assert.False(t, got.Price.Valid)
	assert.Equal(t, "reconnect_scheduled", got.State)
	assert.EqualValues(t, 5000, got.RetryInMs)

	var rows int64
	require.NoError(t, client.DB.Model(&postgres.TickerSnapshotRecord{}).Where("stream = ?", stream).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}
