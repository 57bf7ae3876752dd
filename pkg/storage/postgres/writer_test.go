package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tickerfeed/internal/binance/ticker"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpserter struct {
	gate chan struct{} // each upsert waits for one token when non-nil
	err  error

	mu      sync.Mutex
	records []*TickerSnapshotRecord
}

func (f *fakeUpserter) UpsertSnapshot(ctx context.Context, record *TickerSnapshotRecord) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return f.err
}

func (f *fakeUpserter) all() []*TickerSnapshotRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*TickerSnapshotRecord(nil), f.records...)
}

func priceSnapshot(p string) ticker.Snapshot {
	d := decimal.RequireFromString(p)
	return ticker.Snapshot{
		State:  ticker.Connected,
		Price:  ticker.PriceValue{Raw: d, Formatted: p + " USDT", Valid: true},
		Status: ticker.StatusReport{Label: ticker.LabelConnected, Severity: ticker.Ok},
	}
}

// go test -v --run TestToSnapshotRecord
func TestToSnapshotRecord(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("KST", 9*3600))

	rec := ToSnapshotRecord("zecusdt@miniTicker", ticker.Snapshot{
		State:   ticker.ReconnectScheduled,
		Price:   ticker.PriceValue{Formatted: ticker.PlaceholderNA},
		Status:  ticker.StatusReport{Label: ticker.LabelDisconnected, Severity: ticker.Error},
		RetryIn: 10 * time.Second,
		Session: 3,
	}, at)

	assert.Equal(t, "zecusdt@miniTicker", rec.Stream)
	assert.False(t, rec.Price.Valid)
	assert.Equal(t, "N/A", rec.Formatted)
	assert.Equal(t, "reconnect_scheduled", rec.State)
	assert.Equal(t, "Disconnected", rec.Status)
	assert.Equal(t, "error", rec.Severity)
	assert.EqualValues(t, 3, rec.Session)
	assert.EqualValues(t, 10000, rec.RetryInMs)
	assert.Equal(t, time.UTC, rec.ObservedAt.Location())

	rec = ToSnapshotRecord("zecusdt@miniTicker", priceSnapshot("30.12"), at)
	assert.True(t, rec.Price.Valid)
	assert.True(t, rec.Price.Decimal.Equal(decimal.RequireFromString("30.12")))
}

// go test -v --run TestSnapshotWriterLatestWins
func TestSnapshotWriterLatestWins(t *testing.T) {
	store := &fakeUpserter{gate: make(chan struct{})}
	w := NewSnapshotWriter(store, "zecusdt@miniTicker", nil)
	w.StartWorker()

	w.Publish(priceSnapshot("1"))
	// wait until the worker holds the first record, so the queue is empty
	require.Eventually(t, func() bool { return len(w.pending) == 0 }, time.Second, time.Millisecond)

	w.Publish(priceSnapshot("2"))
	w.Publish(priceSnapshot("3"))
	w.Publish(priceSnapshot("4"))

	close(store.gate)
	w.Close()

	records := store.all()
	require.Len(t, records, 2)
	assert.Equal(t, "1 USDT", records[0].Formatted)
	assert.Equal(t, "4 USDT", records[1].Formatted)
	assert.EqualValues(t, 2, w.Written())
	assert.EqualValues(t, 2, w.Replaced())
}

// go test -v --run TestSnapshotWriterErrorsAreLogged
func TestSnapshotWriterErrorsAreLogged(t *testing.T) {
	store := &fakeUpserter{err: errors.New("db down")}
	w := NewSnapshotWriter(store, "zecusdt@miniTicker", nil)
	w.StartWorker()

	w.Publish(priceSnapshot("1"))
	w.Close()
	w.Close()

	assert.Len(t, store.all(), 1)
	assert.Zero(t, w.Written())

	// ignored once closed
	w.Publish(priceSnapshot("2"))
	assert.Len(t, store.all(), 1)
}
