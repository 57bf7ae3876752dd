package postgres

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"tickerfeed/internal/binance/ticker"

	"go.uber.org/zap"
)

const defaultWriteTimeout = 2 * time.Second

// SnapshotUpserter is the storage a SnapshotWriter writes through.
type SnapshotUpserter interface {
	UpsertSnapshot(ctx context.Context, record *TickerSnapshotRecord) error
}

// SnapshotWriter is a ticker.Observer that persists the latest snapshot on
// its own goroutine. Publish never blocks: a snapshot still waiting to be
// written is replaced by the newer one. Publish must be called from a
// single goroutine.
type SnapshotWriter struct {
	store   SnapshotUpserter
	stream  string
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time

	pending chan *TickerSnapshotRecord
	closed  atomic.Bool
	wg      sync.WaitGroup

	written  atomic.Uint64
	replaced atomic.Uint64
}

func NewSnapshotWriter(store SnapshotUpserter, stream string, logger *zap.Logger) *SnapshotWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotWriter{
		store:   store,
		stream:  stream,
		timeout: defaultWriteTimeout,
		logger:  logger.With(zap.String("stream", stream)),
		now:     time.Now,
		pending: make(chan *TickerSnapshotRecord, 1),
	}
}

// StartWorker starts the goroutine draining pending snapshots.
func (w *SnapshotWriter) StartWorker() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for record := range w.pending {
			w.write(record)
		}
	}()
}

func (w *SnapshotWriter) Publish(s ticker.Snapshot) {
	if w.closed.Load() {
		return
	}
	record := ToSnapshotRecord(w.stream, s, w.now())

	select {
	case w.pending <- record:
		return
	default:
	}

	// latest wins
	select {
	case <-w.pending:
		w.replaced.Add(1)
	default:
	}
	select {
	case w.pending <- record:
	default:
		w.replaced.Add(1)
	}
}

// Close stops accepting snapshots and waits until the last pending one is
// written.
func (w *SnapshotWriter) Close() {
	if w.closed.Swap(true) {
		return
	}
	close(w.pending)
	w.wg.Wait()
}

// Written and Replaced count stored and superseded snapshots.
func (w *SnapshotWriter) Written() uint64  { return w.written.Load() }
func (w *SnapshotWriter) Replaced() uint64 { return w.replaced.Load() }

func (w *SnapshotWriter) write(record *TickerSnapshotRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.store.UpsertSnapshot(ctx, record); err != nil {
		w.logger.Warn("failed to upsert snapshot", zap.String("state", record.State), zap.Error(err))
		return
	}
	w.written.Add(1)
}
