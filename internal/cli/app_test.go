package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/config"
	"moneytracker/internal/core"
	"moneytracker/internal/ledger"
	"moneytracker/internal/log"
	"moneytracker/internal/services"
)

func fileConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Load()
	cfg.DataBackend = config.BackendFile
	cfg.DataFile = filepath.Join(t.TempDir(), "ledger.json")
	cfg.Timezone = "UTC"
	return cfg
}

func TestBootstrap_SeedsEmptyLedger(t *testing.T) {
	ctx := context.Background()
	app, err := Bootstrap(ctx, fileConfig(t), log.Discard())
	require.NoError(t, err)
	defer app.Close(ctx)

	assert.Len(t, app.Store.Categories(), len(core.DefaultCategories()))
	assert.Equal(t, time.UTC, app.Stats.Location())
}

func TestBootstrap_ProcessAndSavePersists(t *testing.T) {
	ctx := context.Background()
	cfg := fileConfig(t)

	app, err := Bootstrap(ctx, cfg, log.Discard(), WithPublishing())
	require.NoError(t, err)
	require.NoError(t, app.Store.AddRecurringTransaction(core.RecurringTransaction{
		ID: "r1", Name: "Internet", Amount: decimal.NewFromInt(3000), Type: core.Expense,
		CategoryID: "13", FromAccountID: "bank", Frequency: core.Daily,
		StartDate: time.Now().AddDate(0, 0, -2), IsActive: true,
	}))

	res, err := app.ProcessAndSave(ctx)
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	require.NoError(t, app.Close(ctx))

	reopened, err := Bootstrap(ctx, cfg, log.Discard())
	require.NoError(t, err)
	defer reopened.Close(ctx)

	txs := reopened.Store.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, "Auto: Internet", txs[0].Notes)
	r, ok := reopened.Store.RecurringTransaction("r1")
	require.True(t, ok)
	assert.NotNil(t, r.LastProcessed)
}

func TestProcessAndSave_PartialPassIsPersisted(t *testing.T) {
	ctx := context.Background()
	app, err := Bootstrap(ctx, fileConfig(t), log.Discard())
	require.NoError(t, err)
	start := time.Now().AddDate(0, 0, -2)
	for _, id := range []string{"r1", "r2"} {
		require.NoError(t, app.Store.AddRecurringTransaction(core.RecurringTransaction{
			ID: id, Name: id, Amount: decimal.NewFromInt(100), Type: core.Expense,
			CategoryID: "13", FromAccountID: "bank", Frequency: core.Daily,
			StartDate: start, IsActive: true,
		}))
	}
	app.Processor = services.NewRecurringProcessor(app.Store,
		services.WithIDGenerator(func() string { return "same" }),
		services.WithLogger(log.Discard()))

	res, err := app.ProcessAndSave(ctx)
	require.ErrorIs(t, err, ledger.ErrDuplicateID)
	require.Len(t, res.Created, 1)

	snap, err := app.Backend.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, "same", snap.Transactions[0].ID)
	require.NoError(t, app.Close(ctx))
}

func TestBootstrap_InvalidBackend(t *testing.T) {
	cfg := fileConfig(t)
	cfg.DataBackend = "postgres"

	_, err := Bootstrap(context.Background(), cfg, log.Discard())
	assert.Error(t, err)
}

func TestSheetsWriter_RequiresSpreadsheet(t *testing.T) {
	ctx := context.Background()
	cfg := fileConfig(t)
	cfg.DataBackend = config.BackendMemory

	app, err := Bootstrap(ctx, cfg, log.Discard())
	require.NoError(t, err)
	defer app.Close(ctx)

	_, err = app.SheetsWriter(ctx)
	assert.ErrorContains(t, err, "GOOGLE_SPREADSHEET_ID")
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Load()
	cfg.LogLevel = "warn"

	logger := SetupLogger(cfg, &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "component=app")
}
