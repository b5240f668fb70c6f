package memory

import (
	"context"
	"slices"
	"sync"
)

// Store is an in-process export sheet, used when no spreadsheet is configured
// and in tests.
type Store struct {
	mu     sync.Mutex
	rows   [][]string
	writes int
}

func New() *Store {
	return &Store{}
}

// WriteRows replaces the stored rows.
func (s *Store) WriteRows(ctx context.Context, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = cloneRows(rows)
	s.writes++
	return nil
}

// Rows returns a copy of the last written rows.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRows(s.rows)
}

// Writes counts WriteRows calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func cloneRows(in [][]string) [][]string {
	if in == nil {
		return nil
	}
	out := make([][]string, len(in))
	for i, r := range in {
		out[i] = slices.Clone(r)
	}
	return out
}
