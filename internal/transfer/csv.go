package transfer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"moneytracker/internal/core"
	"moneytracker/internal/ledger"
)

// CSVHeader is the column layout of exported transactions.
var CSVHeader = []string{"Date", "Type", "Amount", "Category", "Notes"}

const csvDateLayout = time.DateOnly

// TransactionRows returns one row per transaction dated within [start, end],
// in store order, laid out as CSVHeader. Dates are rendered in loc and
// categories that no longer resolve read "Unknown".
func TransactionRows(store *ledger.Store, start, end time.Time, loc *time.Location) [][]string {
	if loc == nil {
		loc = time.Local
	}
	var rows [][]string
	store.View(func(tx *ledger.Tx) {
		tx.EachTransaction(func(t *core.Transaction) {
			if t.Date.Before(start) || t.Date.After(end) {
				return
			}
			rows = append(rows, []string{
				t.Date.In(loc).Format(csvDateLayout),
				string(t.Type),
				t.Amount.String(),
				tx.CategoryName(t.CategoryID),
				t.Notes,
			})
		})
	})
	return rows
}

// WriteTransactionsCSV writes the header and the rows of TransactionRows.
func WriteTransactionsCSV(w io.Writer, store *ledger.Store, start, end time.Time, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(TransactionRows(store, start, end, loc)); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// CSVOptions controls how imported rows become transactions.
type CSVOptions struct {
	// Categories resolves the Category column by name, case-insensitively.
	// Names that do not resolve leave CategoryID empty.
	Categories []core.Category
	// AccountID is used as the source of expenses and the destination of
	// income. Empty leaves the legs unset.
	AccountID string
	Location  *time.Location
	NewID     func() string
	Now       time.Time
}

// ReadTransactionsCSV parses a transaction CSV. Columns are located by header
// name; Date and Amount are required. Without a Type column, negative amounts
// are expenses and the rest income.
func ReadTransactionsCSV(r io.Reader, opts CSVOptions) ([]core.Transaction, error) {
	if opts.NewID == nil {
		return nil, errors.New("csv import: NewID is required")
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformed, err)
	}
	cols := locateColumns(header)
	if cols.date < 0 || cols.amount < 0 {
		return nil, fmt.Errorf("%w: could not find date or amount columns", ErrMalformed)
	}

	byName := make(map[string]string, len(opts.Categories))
	for _, c := range opts.Categories {
		byName[strings.ToLower(strings.TrimSpace(c.Name))] = c.ID
	}

	var out []core.Transaction
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		if blank(rec) {
			continue
		}

		t, err := cols.transaction(rec, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		t.ID = opts.NewID()
		t.CreatedAt = opts.Now
		t.CategoryID = byName[strings.ToLower(field(rec, cols.category))]
		switch t.Type {
		case core.Expense:
			t.FromAccountID = opts.AccountID
		case core.Income:
			t.ToAccountID = opts.AccountID
		}
		out = append(out, t)
	}
	return out, nil
}

type csvColumns struct {
	date, typ, amount, category, notes int
}

func locateColumns(header []string) csvColumns {
	cols := csvColumns{-1, -1, -1, -1, -1}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case cols.date < 0 && strings.Contains(h, "date"):
			cols.date = i
		case cols.amount < 0 && strings.Contains(h, "amount"):
			cols.amount = i
		case cols.typ < 0 && h == "type":
			cols.typ = i
		case cols.category < 0 && strings.Contains(h, "category"):
			cols.category = i
		case cols.notes < 0 && (strings.Contains(h, "note") || strings.Contains(h, "description")):
			cols.notes = i
		}
	}
	return cols
}

func (c csvColumns) transaction(rec []string, loc *time.Location) (core.Transaction, error) {
	var t core.Transaction

	date, err := time.ParseInLocation(csvDateLayout, field(rec, c.date), loc)
	if err != nil {
		return t, fmt.Errorf("date %q: %v", field(rec, c.date), err)
	}
	t.Date = date

	amount, err := core.ParseSignedAmount(field(rec, c.amount))
	if err != nil {
		return t, fmt.Errorf("amount %q: %v", field(rec, c.amount), err)
	}

	if typ := core.TransactionType(strings.ToLower(field(rec, c.typ))); typ != "" {
		if !typ.IsValid() {
			return t, fmt.Errorf("type %q: %v", typ, core.ErrInvalidType)
		}
		t.Type = typ
	} else if amount.IsNegative() {
		t.Type = core.Expense
	} else {
		t.Type = core.Income
	}
	t.Amount = amount.Abs()
	t.Notes = field(rec, c.notes)
	return t, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
