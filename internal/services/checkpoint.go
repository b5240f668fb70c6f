package services

import (
	"context"
	"fmt"
	"sync"

	"moneytracker/internal/core"
	"moneytracker/internal/ledger"
	"moneytracker/internal/log"
)

// SnapshotSaver persists a full ledger snapshot.
type SnapshotSaver interface {
	Save(ctx context.Context, snap core.Snapshot) error
}

// Checkpointer saves the store to a backend whenever its revision has moved
// since the last successful save.
type Checkpointer struct {
	store  *ledger.Store
	saver  SnapshotSaver
	logger *log.Logger

	mu      sync.Mutex
	lastRev uint64
}

// NewCheckpointer treats the store's current revision as already persisted.
func NewCheckpointer(store *ledger.Store, saver SnapshotSaver, logger *log.Logger) *Checkpointer {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Checkpointer{
		store:   store,
		saver:   saver,
		logger:  logger.WithComponent(log.ComponentStorage),
		lastRev: store.Revision(),
	}
}

// Checkpoint saves the store if it changed. It reports whether a save happened.
func (c *Checkpointer) Checkpoint(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, rev := c.store.RevisionSnapshot()
	if rev == c.lastRev {
		return false, nil
	}

	if err := c.saver.Save(ctx, snap); err != nil {
		return false, fmt.Errorf("checkpoint revision %d: %w", rev, err)
	}
	c.lastRev = rev
	c.logger.DebugContext(ctx, "Checkpoint saved", log.FieldRevision, rev)
	return true, nil
}
