package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/core"
)

func TestStore_MissingFileIsEmpty(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "nested", "ledger.json"))
	require.NoError(t, err)

	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.IsEmpty())
}

func TestStore_SaveLoad(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "ledger.json"))
	require.NoError(t, err)
	ctx := context.Background()

	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	want := core.Snapshot{
		Accounts:   []core.Account{{ID: "a1", Name: "M-Pesa", Type: core.AccountMpesa, Balance: decimal.RequireFromString("250.75"), Currency: core.KES}},
		Categories: core.DefaultCategories(),
		RecurringTransactions: []core.RecurringTransaction{
			{ID: "r1", Name: "Internet", Amount: decimal.RequireFromString("3000"), Type: core.Expense,
				Frequency: core.Monthly, StartDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), EndDate: &end, IsActive: true},
		},
	}
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Categories, got.Categories)
	require.Len(t, got.Accounts, 1)
	assert.True(t, got.Accounts[0].Balance.Equal(want.Accounts[0].Balance))
	require.Len(t, got.RecurringTransactions, 1)
	require.NotNil(t, got.RecurringTransactions[0].EndDate)
	assert.True(t, got.RecurringTransactions[0].EndDate.Equal(end))

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := New(path)
	require.NoError(t, err)
	_, err = s.Load(context.Background())
	assert.Error(t, err)
}

func TestNew_EmptyPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
