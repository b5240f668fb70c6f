package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytracker/internal/backend"
	"moneytracker/internal/cache"
	"moneytracker/internal/core"
	"moneytracker/internal/ledger"
	"moneytracker/internal/log"
	"moneytracker/internal/middleware/ratelimit"
	"moneytracker/internal/services"
	"moneytracker/internal/transfer"
)

var testNow = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	srv   *Server
	store *ledger.Store
	saved *backend.Memory
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestEnv(t *testing.T, limiter *ratelimit.Limiter, opts ...func(*Config)) *testEnv {
	t.Helper()
	store := ledger.NewStore(core.Snapshot{
		Accounts: []core.Account{
			{ID: "bank", Name: "KCB", Type: core.AccountKCBBank, Balance: dec("1000"), Currency: core.KES, IsActive: true},
		},
		Categories: core.DefaultCategories(),
		Transactions: []core.Transaction{
			{ID: "t1", Date: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), Amount: dec("5000"), Type: core.Income, CategoryID: "1", ToAccountID: "bank"},
			{ID: "t2", Date: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), Amount: dec("1500"), Type: core.Expense, CategoryID: "3", FromAccountID: "bank"},
			{ID: "t3", Date: time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC), Amount: dec("200"), Type: core.Expense, CategoryID: "4", FromAccountID: "bank"},
		},
		RecurringTransactions: []core.RecurringTransaction{
			{ID: "r1", Name: "Internet", Amount: dec("3000"), Type: core.Expense, CategoryID: "13", FromAccountID: "bank",
				Frequency: core.Monthly, StartDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), IsActive: true},
		},
	})
	saved := backend.NewMemory()
	clock := core.FixedClock(testNow)
	ids := 0
	newID := func() string {
		ids++
		return "gen-" + string(rune('0'+ids))
	}

	cfg := Config{
		Store: store,
		Stats: ledger.NewStats(store, time.UTC),
		Processor: services.NewRecurringProcessor(store,
			services.WithClock(clock),
			services.WithIDGenerator(newID),
			services.WithLogger(log.Discard())),
		Checkpointer: services.NewCheckpointer(store, saved, log.Discard()),
		StatsCache:   cache.NewRevisionCache[core.MonthlyStats](16, time.Hour),
		Limiter:      limiter,
		Clock:        clock,
		NewID:        newID,
		Logger:       log.Discard(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &testEnv{srv: New(cfg), store: store, saved: saved}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return e.doWith(t, method, target, body, nil)
}

func (e *testEnv) doWith(t *testing.T, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func savedSnapshot(t *testing.T, m *backend.Memory) core.Snapshot {
	t.Helper()
	snap, err := m.Load(context.Background())
	require.NoError(t, err)
	return snap
}

func savedTransactions(t *testing.T, m *backend.Memory) []core.Transaction {
	t.Helper()
	return savedSnapshot(t, m).Transactions
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestAccountBalance(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/accounts/bank/balance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[balanceResponse](t, rec)
	// 1000 + 5000 - 1500 - 200
	assert.True(t, got.Balance.Equal(dec("4300")), "balance %s", got.Balance)

	rec = env.do(t, http.MethodGet, "/api/accounts/nope/balance", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNetWorth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/networth", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[map[string]decimal.Decimal](t, rec)
	assert.True(t, got["netWorth"].Equal(dec("4300")))
}

func TestMonthlyStats_CacheHitAndInvalidation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/stats/monthly?year=2024&month=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	ms := decodeBody[core.MonthlyStats](t, rec)
	assert.True(t, ms.Income.Equal(dec("5000")))
	assert.True(t, ms.Expenses.Equal(dec("1500")))

	rec = env.do(t, http.MethodGet, "/api/stats/monthly?year=2024&month=3", "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	rec = env.do(t, http.MethodPost, "/api/transactions",
		`{"date":"2024-03-10","amount":"250","type":"expense","categoryId":"4","fromAccountId":"bank"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/stats/monthly?year=2024&month=3", "")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	ms = decodeBody[core.MonthlyStats](t, rec)
	assert.True(t, ms.Expenses.Equal(dec("1750")), "expenses %s", ms.Expenses)
}

func TestMonthlyStats_DefaultsToCurrentMonth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/stats/monthly", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ms := decodeBody[core.MonthlyStats](t, rec)
	assert.Equal(t, 2024, ms.Year)
	assert.Equal(t, 3, ms.Month)
}

func TestBadQueryParams(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		target string
	}{
		{"month out of range", "/api/stats/monthly?month=13"},
		{"year not a number", "/api/stats/monthly?year=abc"},
		{"unknown period", "/api/stats/period?period=yearly"},
		{"bad date", "/api/stats/period?date=20-03-2024"},
		{"trend months zero", "/api/stats/trend?months=0"},
		{"range reversed", "/api/transactions?from=2024-03-10&to=2024-03-01"},
		{"csv bad from", "/api/export/transactions.csv?from=yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeBody[errorResponse](t, rec).Error)
		})
	}
}

func TestPeriodStatsAndCategories(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/stats/period?period=monthly&date=2024-02-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ps := decodeBody[core.PeriodStats](t, rec)
	assert.True(t, ps.Expenses.Equal(dec("200")))
	assert.True(t, ps.Net.Equal(dec("-200")))

	rec = env.do(t, http.MethodGet, "/api/stats/categories?period=monthly&date=2024-03-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decodeBody[[]core.CategoryAmount](t, rec)
	require.Len(t, cats, 1)
	assert.Equal(t, "Rent", cats[0].Name)

	rec = env.do(t, http.MethodGet, "/api/stats/categories?period=daily&date=2024-01-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestTrend(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/stats/trend?months=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	points := decodeBody[[]core.TrendPoint](t, rec)
	require.Len(t, points, 3)
	assert.Equal(t, 3, points[2].Month)
}

func TestListTransactions(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	txs := decodeBody[[]core.Transaction](t, rec)
	require.Len(t, txs, 2)
	assert.Equal(t, "t2", txs[0].ID)
	assert.Equal(t, "t1", txs[1].ID)

	rec = env.do(t, http.MethodGet, "/api/transactions?from=2023-01-01&to=2023-12-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestCreateTransaction(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/transactions",
		`{"amount":"99.50","type":"Income","categoryId":"2","toAccountId":"bank","notes":"  side\u0007 gig ","tags":["freelance"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decodeBody[core.Transaction](t, rec)
	assert.Equal(t, "gen-1", got.ID)
	assert.Equal(t, core.Income, got.Type)
	assert.True(t, got.Date.Equal(testNow))
	assert.Equal(t, "side gig", got.Notes)

	stored, ok := env.store.Transaction("gen-1")
	require.True(t, ok)
	assert.True(t, stored.Amount.Equal(dec("99.5")))

	saved := savedTransactions(t, env.saved)
	assert.Len(t, saved, 4)
}

func TestCreateTransaction_Rejected(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty body", ``, http.StatusBadRequest},
		{"malformed json", `{"amount":`, http.StatusBadRequest},
		{"unknown field", `{"amount":"1","kind":"x"}`, http.StatusBadRequest},
		{"missing amount", `{"type":"expense","categoryId":"4","fromAccountId":"bank"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"amount":"-5","type":"expense","categoryId":"4","fromAccountId":"bank"}`, http.StatusUnprocessableEntity},
		{"missing category", `{"amount":"5","type":"expense","fromAccountId":"bank"}`, http.StatusUnprocessableEntity},
		{"expense without source", `{"amount":"5","type":"expense","categoryId":"4"}`, http.StatusUnprocessableEntity},
		{"transfer without destination", `{"amount":"5","type":"transfer","categoryId":"9","fromAccountId":"bank"}`, http.StatusUnprocessableEntity},
		{"unknown type", `{"amount":"5","type":"gift","categoryId":"4","fromAccountId":"bank"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"date":"03/10/2024","amount":"5","type":"expense","categoryId":"4","fromAccountId":"bank"}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			rec := env.do(t, http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Len(t, env.store.Transactions(), 3)
		})
	}
}

func TestDeleteTransaction(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodDelete, "/api/transactions/t2", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, ok := env.store.Transaction("t2")
	assert.False(t, ok)
	assert.Len(t, savedTransactions(t, env.saved), 2)

	rec = env.do(t, http.MethodDelete, "/api/transactions/t2", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListRecurring(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/recurring", "")
	require.Equal(t, http.StatusOK, rec.Code)

	views := decodeBody[[]recurringView](t, rec)
	require.Len(t, views, 1)
	require.NotNil(t, views[0].NextDue)
	assert.True(t, views[0].NextDue.Equal(time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)), "next due %s", views[0].NextDue)
}

func TestPatchRecurring(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPatch, "/api/recurring/r1", `{"isActive":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rt, ok := env.store.RecurringTransaction("r1")
	require.True(t, ok)
	assert.False(t, rt.IsActive)

	assert.False(t, savedSnapshot(t, env.saved).RecurringTransactions[0].IsActive)

	rec = env.do(t, http.MethodPatch, "/api/recurring/r1", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/recurring/r1", `{"frequency":"yearly"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rt, _ = env.store.RecurringTransaction("r1")
	assert.Equal(t, core.Monthly, rt.Frequency)

	rec = env.do(t, http.MethodPatch, "/api/recurring/r1", `{"isActive":"yes"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/recurring/missing", `{"isActive":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProcessRecurring(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/recurring/process", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[services.Result](t, rec)
	require.Len(t, res.Created, 1)
	assert.True(t, res.Created[0].HasTag(core.RecurringTag))
	assert.Len(t, savedTransactions(t, env.saved), 4)

	// Already processed today.
	rec = env.do(t, http.MethodPost, "/api/recurring/process", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res = decodeBody[services.Result](t, rec)
	assert.Empty(t, res.Created)
}

func TestProcessRecurring_PartialFailureIsSaved(t *testing.T) {
	env := newTestEnv(t, nil)
	// The pass hands out gen-1 then gen-2; the second collides.
	require.NoError(t, env.store.AddTransaction(core.Transaction{
		ID: "gen-2", Date: testNow, Amount: dec("1"), Type: core.Expense, CategoryID: "3", FromAccountID: "bank",
	}))
	require.NoError(t, env.store.AddRecurringTransaction(core.RecurringTransaction{
		ID: "r2", Name: "Gym", Amount: dec("2000"), Type: core.Expense, CategoryID: "4", FromAccountID: "bank",
		Frequency: core.Monthly, StartDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), IsActive: true,
	}))

	rec := env.do(t, http.MethodPost, "/api/recurring/process", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	saved := savedTransactions(t, env.saved)
	require.Len(t, saved, 5)
	assert.Equal(t, "gen-1", saved[4].ID)
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/export/transactions.csv?from=2024-03-01&to=2024-03-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "transactions-2024-03-01-2024-03-31.csv")

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, transfer.CSVHeader, records[0])
}

func TestExportBackup(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/api/export/backup.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "moneytracker-backup-2024-03-20.json")

	b, err := transfer.ReadBackup(rec.Body)
	require.NoError(t, err)
	assert.Len(t, b.Transactions, 3)
	assert.Len(t, b.RecurringTransactions, 1)
}

func TestMutationsAreRateLimited(t *testing.T) {
	env := newTestEnv(t, ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1}))

	rec := env.do(t, http.MethodDelete, "/api/transactions/t1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/transactions/t2", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Reads are not limited.
	rec = env.do(t, http.MethodGet, "/api/networth", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_ForwardedForIgnoredByDefault(t *testing.T) {
	env := newTestEnv(t, ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1}))

	rec := env.doWith(t, http.MethodDelete, "/api/transactions/t1", "",
		http.Header{"X-Forwarded-For": {"10.0.0.1"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	for _, ip := range []string{"10.0.0.2", "10.0.0.3"} {
		rec = env.doWith(t, http.MethodDelete, "/api/transactions/t2", "",
			http.Header{"X-Forwarded-For": {ip}, "X-Real-Ip": {ip}})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code, ip)
	}
}

func TestRateLimit_TrustedProxyHeaders(t *testing.T) {
	env := newTestEnv(t, ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 1}),
		func(c *Config) { c.TrustProxyHeaders = true })

	rec := env.doWith(t, http.MethodDelete, "/api/transactions/t1", "",
		http.Header{"X-Forwarded-For": {"10.0.0.1"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.doWith(t, http.MethodDelete, "/api/transactions/t2", "",
		http.Header{"X-Forwarded-For": {"10.0.0.2"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.doWith(t, http.MethodDelete, "/api/transactions/t3", "",
		http.Header{"X-Forwarded-For": {"10.0.0.1"}})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCreateTransaction_DuplicateID(t *testing.T) {
	env := newTestEnv(t, nil)
	env.srv.newID = func() string { return "t1" }

	rec := env.do(t, http.MethodPost, "/api/transactions",
		`{"amount":"5","type":"expense","categoryId":"4","fromAccountId":"bank"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, env.store.Transactions(), 3)
}

func TestAccountCRUD(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/accounts", `{"name":" M-Pesa ","type":"mpesa","balance":"250"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[core.Account](t, rec)
	assert.Equal(t, "gen-1", created.ID)
	assert.Equal(t, "M-Pesa", created.Name)
	assert.Equal(t, core.KES, created.Currency)
	assert.True(t, created.IsActive)
	assert.True(t, created.CreatedAt.Equal(testNow))
	assert.Len(t, savedSnapshot(t, env.saved).Accounts, 2)

	rec = env.do(t, http.MethodGet, "/api/accounts/gen-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/accounts/gen-1", `{"name":"Mpesa","isActive":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decodeBody[core.Account](t, rec)
	assert.Equal(t, "Mpesa", patched.Name)
	assert.False(t, patched.IsActive)
	assert.True(t, patched.Balance.Equal(dec("250")))

	rec = env.do(t, http.MethodPatch, "/api/accounts/gen-1", `{"currency":"EUR"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	acc, _ := env.store.Account("gen-1")
	assert.Equal(t, core.KES, acc.Currency)

	rec = env.do(t, http.MethodDelete, "/api/accounts/gen-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, savedSnapshot(t, env.saved).Accounts, 1)

	rec = env.do(t, http.MethodGet, "/api/accounts/gen-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/accounts/gen-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCreateEntity_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"duplicate account", "/api/accounts", `{"id":"bank","name":"Again","type":"cash"}`, http.StatusConflict},
		{"duplicate category", "/api/categories", `{"id":"1","name":"Again","type":"income","group":"wealth"}`, http.StatusConflict},
		{"duplicate recurring", "/api/recurring", `{"id":"r1","name":"Again","amount":"1","type":"expense","categoryId":"3","frequency":"weekly"}`, http.StatusConflict},
		{"account type", "/api/accounts", `{"name":"X","type":"vault"}`, http.StatusUnprocessableEntity},
		{"category group", "/api/categories", `{"name":"Gym","type":"expense"}`, http.StatusUnprocessableEntity},
		{"project amount", "/api/projects", `{"name":"Car","targetAmount":"-1"}`, http.StatusUnprocessableEntity},
		{"recurring transfer", "/api/recurring", `{"name":"Move","amount":"1","type":"transfer","categoryId":"3","frequency":"weekly"}`, http.StatusUnprocessableEntity},
		{"unknown field", "/api/projects", `{"name":"Car","progress":"1"}`, http.StatusBadRequest},
		{"malformed", "/api/categories", `{"name":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			before := env.store.Revision()

			rec := env.do(t, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Equal(t, before, env.store.Revision())
		})
	}
}

func TestCategoryCRUD(t *testing.T) {
	env := newTestEnv(t, nil)
	n := len(env.store.Categories())

	rec := env.do(t, http.MethodPost, "/api/categories", `{"name":"Gym","type":"expense","group":"want","color":"#ff0000"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[core.Category](t, rec)

	rec = env.do(t, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]core.Category](t, rec), n+1)

	rec = env.do(t, http.MethodPatch, "/api/categories/"+created.ID, `{"group":"need"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c, _ := env.store.Category(created.ID)
	assert.Equal(t, core.GroupNeed, c.Group)
	assert.Equal(t, "#ff0000", c.Color)

	rec = env.do(t, http.MethodPatch, "/api/categories/missing", `{"group":"need"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Transactions keep the dangling reference.
	rec = env.do(t, http.MethodDelete, "/api/categories/3", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	tx, _ := env.store.Transaction("t2")
	assert.Equal(t, "3", tx.CategoryID)
	assert.Len(t, savedSnapshot(t, env.saved).Categories, n)
}

func TestProjectCRUD(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/projects",
		`{"name":"Car","type":"car_purchase","targetAmount":"1000","currentAmount":"250","targetDate":"2025-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[projectView](t, rec)
	assert.Equal(t, core.PriorityMedium, created.Priority)
	assert.True(t, created.Progress.Equal(dec("0.25")), created.Progress.String())
	assert.Len(t, savedSnapshot(t, env.saved).Projects, 1)

	rec = env.do(t, http.MethodPatch, "/api/projects/"+created.ID, `{"currentAmount":"1500","clearTargetDate":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decodeBody[projectView](t, rec)
	assert.True(t, patched.Progress.Equal(dec("1.5")))
	assert.Nil(t, patched.TargetDate)

	rec = env.do(t, http.MethodPatch, "/api/projects/"+created.ID, `{"priority":"urgent"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/projects", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]projectView](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, core.PriorityMedium, list[0].Priority)
	assert.True(t, list[0].Progress.Equal(dec("1.5")))

	rec = env.do(t, http.MethodGet, "/api/projects/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/projects/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, savedSnapshot(t, env.saved).Projects)

	rec = env.do(t, http.MethodGet, "/api/projects", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRecurringCRUD(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/recurring",
		`{"name":"Rent","amount":"20000","type":"expense","categoryId":"3","fromAccountId":"bank","frequency":"monthly","startDate":"2024-04-01T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[recurringView](t, rec)
	assert.True(t, created.IsActive)
	assert.NotNil(t, created.NextDue)

	rec = env.do(t, http.MethodPatch, "/api/recurring/"+created.ID, `{"amount":"21000"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rt, _ := env.store.RecurringTransaction(created.ID)
	assert.True(t, rt.Amount.Equal(dec("21000")))
	assert.Len(t, savedSnapshot(t, env.saved).RecurringTransactions, 2)

	rec = env.do(t, http.MethodGet, "/api/recurring/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/recurring/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, savedSnapshot(t, env.saved).RecurringTransactions, 1)
}

func TestPatchTransaction(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPatch, "/api/transactions/t2", `{"notes":"groceries","amount":"1750"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tx, _ := env.store.Transaction("t2")
	assert.Equal(t, "groceries", tx.Notes)
	assert.True(t, tx.Amount.Equal(dec("1750")))
	assert.Equal(t, "groceries", savedTransactions(t, env.saved)[1].Notes)

	rec = env.do(t, http.MethodGet, "/api/accounts/bank/balance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[balanceResponse](t, rec).Balance.Equal(dec("4050")))

	// A transfer needs a destination account.
	rec = env.do(t, http.MethodPatch, "/api/transactions/t2", `{"type":"transfer"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	tx, _ = env.store.Transaction("t2")
	assert.Equal(t, core.Expense, tx.Type)

	rec = env.do(t, http.MethodPatch, "/api/transactions/missing", `{"notes":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/transactions/t2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "groceries", decodeBody[core.Transaction](t, rec).Notes)
}
