package memorystore

import (
	"sync"

	"tickerfeed/internal/binance/ticker"
)

// SnapshotStore keeps the most recent snapshot published by the runner.
// Readers on other goroutines see the three observer outputs through it.
type SnapshotStore struct {
	mu      sync.RWMutex
	latest  ticker.Snapshot
	updates uint64
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		latest: ticker.NewMachine(ticker.Config{}).Snapshot(),
	}
}

func (s *SnapshotStore) Publish(snap ticker.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = snap
	s.updates++
}

func (s *SnapshotStore) Current() ticker.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// CurrentValue is the formatted price or a placeholder.
func (s *SnapshotStore) CurrentValue() string {
	return s.Current().Value()
}

func (s *SnapshotStore) Status() ticker.StatusReport {
	return s.Current().Status
}

func (s *SnapshotStore) Severity() ticker.Severity {
	return s.Current().Status.Severity
}

// Updates returns how many snapshots have been published so far.
func (s *SnapshotStore) Updates() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates
}
