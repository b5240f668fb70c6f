package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "ledger.db")
	repo, err := NewSQLiteRepository(path, log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func sampleSnapshot() core.Snapshot {
	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 3, 1, 6, 30, 0, 123, time.UTC)
	target := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	return core.Snapshot{
		Accounts: []core.Account{
			{ID: "bank", Name: "KCB", Type: core.AccountKCBBank, Balance: decimal.RequireFromString("1500.25"),
				Currency: core.KES, IsActive: true, CreatedAt: created},
			{ID: "btc", Name: "Cold wallet", Type: core.AccountCrypto, Balance: decimal.RequireFromString("0.00150000"),
				Currency: core.BTC, IsActive: false, CreatedAt: created},
		},
		Categories: core.DefaultCategories()[:3],
		Transactions: []core.Transaction{
			{ID: "t1", Date: created, Amount: decimal.RequireFromString("99.99"), Type: core.Expense,
				CategoryID: "3", FromAccountID: "bank", Notes: "March rent", Tags: []string{"home", "fixed"}, CreatedAt: created},
			{ID: "t2", Date: last, Amount: decimal.RequireFromString("5000"), Type: core.Income,
				CategoryID: "1", ToAccountID: "bank", CreatedAt: last},
		},
		Projects: []core.Project{
			{ID: "p1", Name: "Car", Type: core.ProjectCarPurchase, TargetAmount: decimal.RequireFromString("1200000"),
				CurrentAmount: decimal.RequireFromString("300000"), TargetDate: &target, Priority: core.PriorityHigh,
				LinkedAccountID: "bank", CreatedAt: created},
			{ID: "p2", Name: "Farm", Type: core.ProjectFarming, TargetAmount: decimal.Zero,
				CurrentAmount: decimal.Zero, Priority: core.PriorityLow, CreatedAt: created},
		},
		RecurringTransactions: []core.RecurringTransaction{
			{ID: "r1", Name: "Rent", Amount: decimal.RequireFromString("25000"), Type: core.Expense, CategoryID: "3",
				FromAccountID: "bank", Frequency: core.Monthly, StartDate: created, EndDate: &end, IsActive: true,
				LastProcessed: &last, CreatedAt: created},
			{ID: "r2", Name: "Bundles", Amount: decimal.RequireFromString("50"), Type: core.Expense, CategoryID: "14",
				FromAccountID: "bank", Frequency: core.Daily, StartDate: created, IsActive: false, CreatedAt: created},
		},
	}
}

func TestSQLiteRepository_EmptyDatabase(t *testing.T) {
	repo, path := newTestRepo(t)

	snap, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.IsEmpty())

	version, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestSQLiteRepository_SaveLoad(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	want := sampleSnapshot()

	require.NoError(t, repo.Save(ctx, want))
	got, err := repo.Load(ctx)
	require.NoError(t, err)

	assertSameSnapshot(t, want, got)
	assert.Equal(t, "0.0015", got.Accounts[1].Balance.String())
}

func TestSQLiteRepository_SaveReplacesContent(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleSnapshot()))

	smaller := sampleSnapshot()
	smaller.Transactions = smaller.Transactions[1:]
	smaller.Projects = nil
	require.NoError(t, repo.Save(ctx, smaller))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Transactions, 1)
	assert.Equal(t, "t2", got.Transactions[0].ID)
	assert.Empty(t, got.Projects)
}

func TestSQLiteRepository_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(path, log.Discard())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, sampleSnapshot()))
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(path, log.Discard())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.RecurringTransactions, 2)
}

func TestSQLiteRepository_DuplicateIDRollsBack(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, sampleSnapshot()))

	broken := sampleSnapshot()
	broken.Transactions = append(broken.Transactions, broken.Transactions[0])
	require.Error(t, repo.Save(ctx, broken))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Transactions, 2, "failed save leaves the previous snapshot intact")
}

// assertSameSnapshot compares through JSON so decimals with different
// exponents but equal values compare equal.
func assertSameSnapshot(t *testing.T, want, got core.Snapshot) {
	t.Helper()
	w, err := json.Marshal(want)
	require.NoError(t, err)
	g, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(w), string(g))
}
