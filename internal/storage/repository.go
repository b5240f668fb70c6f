package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"moneytracker/internal/core"
	"moneytracker/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists ledger snapshots in a SQLite database. Save
// replaces the whole content inside one database transaction.
type SQLiteRepository struct {
	db     *sql.DB
	path   string
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		path:   dbPath,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load reads the full snapshot, each collection in insertion order.
func (r *SQLiteRepository) Load(ctx context.Context) (core.Snapshot, error) {
	var (
		snap core.Snapshot
		err  error
	)
	if snap.Accounts, err = r.loadAccounts(ctx); err != nil {
		return core.Snapshot{}, err
	}
	if snap.Categories, err = r.loadCategories(ctx); err != nil {
		return core.Snapshot{}, err
	}
	if snap.Transactions, err = r.loadTransactions(ctx); err != nil {
		return core.Snapshot{}, err
	}
	if snap.Projects, err = r.loadProjects(ctx); err != nil {
		return core.Snapshot{}, err
	}
	if snap.RecurringTransactions, err = r.loadRecurring(ctx); err != nil {
		return core.Snapshot{}, err
	}

	r.logger.DebugContext(ctx, "Snapshot loaded from SQLite",
		"db_path", r.path,
		"accounts", len(snap.Accounts),
		"transactions", len(snap.Transactions))
	return snap, nil
}

// Save replaces the stored snapshot with snap.
func (r *SQLiteRepository) Save(ctx context.Context, snap core.Snapshot) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, table := range []string{"accounts", "categories", "transactions", "projects", "recurring_transactions"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err = saveAccounts(ctx, tx, snap.Accounts); err != nil {
		return err
	}
	if err = saveCategories(ctx, tx, snap.Categories); err != nil {
		return err
	}
	if err = saveTransactions(ctx, tx, snap.Transactions); err != nil {
		return err
	}
	if err = saveProjects(ctx, tx, snap.Projects); err != nil {
		return err
	}
	if err = saveRecurring(ctx, tx, snap.RecurringTransactions); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	r.logger.DebugContext(ctx, "Snapshot saved to SQLite",
		"db_path", r.path,
		"transactions", len(snap.Transactions))
	return nil
}

func (r *SQLiteRepository) loadAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, type, balance, currency, is_active, created_at
		FROM accounts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var (
			a                  core.Account
			balance, createdAt string
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &balance, &a.Currency, &a.IsActive, &createdAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if a.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("account %s balance: %w", a.ID, err)
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("account %s created_at: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, type, category_group, color
		FROM categories ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Group, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, date, amount, type, category_id, from_account_id,
		to_account_id, notes, tags, created_at FROM transactions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t                             core.Transaction
			date, amount, tags, createdAt string
		)
		if err := rows.Scan(&t.ID, &date, &amount, &t.Type, &t.CategoryID, &t.FromAccountID,
			&t.ToAccountID, &t.Notes, &tags, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Date, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("transaction %s date: %w", t.ID, err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %s amount: %w", t.ID, err)
		}
		if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
			return nil, fmt.Errorf("transaction %s tags: %w", t.ID, err)
		}
		if len(t.Tags) == 0 {
			t.Tags = nil
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("transaction %s created_at: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, type, target_amount, current_amount, target_date,
		priority, linked_account_id, created_at FROM projects ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var out []core.Project
	for rows.Next() {
		var (
			p                          core.Project
			target, current, createdAt string
			targetDate                 sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &target, &current, &targetDate,
			&p.Priority, &p.LinkedAccountID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if p.TargetAmount, err = decimal.NewFromString(target); err != nil {
			return nil, fmt.Errorf("project %s target: %w", p.ID, err)
		}
		if p.CurrentAmount, err = decimal.NewFromString(current); err != nil {
			return nil, fmt.Errorf("project %s current: %w", p.ID, err)
		}
		if p.TargetDate, err = parseNullTime(targetDate); err != nil {
			return nil, fmt.Errorf("project %s target_date: %w", p.ID, err)
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("project %s created_at: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadRecurring(ctx context.Context) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, amount, type, category_id, from_account_id,
		to_account_id, frequency, start_date, end_date, is_active, last_processed, created_at
		FROM recurring_transactions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query recurring transactions: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTransaction
	for rows.Next() {
		var (
			rt                       core.RecurringTransaction
			amount, start, createdAt string
			endDate, lastProcessed   sql.NullString
		)
		if err := rows.Scan(&rt.ID, &rt.Name, &amount, &rt.Type, &rt.CategoryID, &rt.FromAccountID,
			&rt.ToAccountID, &rt.Frequency, &start, &endDate, &rt.IsActive, &lastProcessed, &createdAt); err != nil {
			return nil, fmt.Errorf("scan recurring transaction: %w", err)
		}
		if rt.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("recurring %s amount: %w", rt.ID, err)
		}
		if rt.StartDate, err = parseTime(start); err != nil {
			return nil, fmt.Errorf("recurring %s start_date: %w", rt.ID, err)
		}
		if rt.EndDate, err = parseNullTime(endDate); err != nil {
			return nil, fmt.Errorf("recurring %s end_date: %w", rt.ID, err)
		}
		if rt.LastProcessed, err = parseNullTime(lastProcessed); err != nil {
			return nil, fmt.Errorf("recurring %s last_processed: %w", rt.ID, err)
		}
		if rt.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("recurring %s created_at: %w", rt.ID, err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func saveAccounts(ctx context.Context, tx *sql.Tx, accounts []core.Account) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO accounts
		(id, position, name, type, balance, currency, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare account insert: %w", err)
	}
	defer stmt.Close()

	for i, a := range accounts {
		if _, err := stmt.ExecContext(ctx, a.ID, i, a.Name, a.Type, a.Balance.String(), a.Currency,
			a.IsActive, formatTime(a.CreatedAt)); err != nil {
			return fmt.Errorf("insert account %s: %w", a.ID, err)
		}
	}
	return nil
}

func saveCategories(ctx context.Context, tx *sql.Tx, categories []core.Category) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO categories
		(id, position, name, type, category_group, color) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare category insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range categories {
		if _, err := stmt.ExecContext(ctx, c.ID, i, c.Name, c.Type, c.Group, c.Color); err != nil {
			return fmt.Errorf("insert category %s: %w", c.ID, err)
		}
	}
	return nil
}

func saveTransactions(ctx context.Context, tx *sql.Tx, txs []core.Transaction) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions
		(id, position, date, amount, type, category_id, from_account_id, to_account_id, notes, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare transaction insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range txs {
		tags := t.Tags
		if tags == nil {
			tags = []string{}
		}
		encoded, err := json.Marshal(tags)
		if err != nil {
			return fmt.Errorf("encode tags of %s: %w", t.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, t.ID, i, formatTime(t.Date), t.Amount.String(), t.Type,
			t.CategoryID, t.FromAccountID, t.ToAccountID, t.Notes, string(encoded), formatTime(t.CreatedAt)); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

func saveProjects(ctx context.Context, tx *sql.Tx, projects []core.Project) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO projects
		(id, position, name, type, target_amount, current_amount, target_date, priority, linked_account_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare project insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range projects {
		if _, err := stmt.ExecContext(ctx, p.ID, i, p.Name, p.Type, p.TargetAmount.String(), p.CurrentAmount.String(),
			nullTime(p.TargetDate), p.Priority, p.LinkedAccountID, formatTime(p.CreatedAt)); err != nil {
			return fmt.Errorf("insert project %s: %w", p.ID, err)
		}
	}
	return nil
}

func saveRecurring(ctx context.Context, tx *sql.Tx, templates []core.RecurringTransaction) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO recurring_transactions
		(id, position, name, amount, type, category_id, from_account_id, to_account_id, frequency,
		 start_date, end_date, is_active, last_processed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare recurring insert: %w", err)
	}
	defer stmt.Close()

	for i, rt := range templates {
		if _, err := stmt.ExecContext(ctx, rt.ID, i, rt.Name, rt.Amount.String(), rt.Type, rt.CategoryID,
			rt.FromAccountID, rt.ToAccountID, rt.Frequency, formatTime(rt.StartDate), nullTime(rt.EndDate),
			rt.IsActive, nullTime(rt.LastProcessed), formatTime(rt.CreatedAt)); err != nil {
			return fmt.Errorf("insert recurring %s: %w", rt.ID, err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
