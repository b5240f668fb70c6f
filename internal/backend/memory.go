package backend

import (
	"context"
	"sync"

	"moneytracker/internal/core"
	"moneytracker/internal/ledger"
)

// Memory keeps the last saved snapshot in process memory. Nothing survives a
// restart.
type Memory struct {
	mu   sync.Mutex
	snap core.Snapshot
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(ctx context.Context) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Round-trip through a store to hand out a deep copy.
	return ledger.NewStore(m.snap).Snapshot(), nil
}

func (m *Memory) Save(ctx context.Context, snap core.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	copied := ledger.NewStore(snap).Snapshot()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = copied
	return nil
}

func (m *Memory) Close() error { return nil }
