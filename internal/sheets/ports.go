package sheets

import (
	"context"
	"time"

	"moneytracker/internal/ledger"
	"moneytracker/internal/transfer"
)

// Ports for outbound adapters.
type (
	// RowWriter replaces the content of the export sheet with rows. The first
	// row is the header.
	RowWriter interface {
		WriteRows(ctx context.Context, rows [][]string) error
	}
)

// ExportTransactions writes the transactions dated within [start, end] to w
// using the CSV export layout.
func ExportTransactions(ctx context.Context, w RowWriter, store *ledger.Store, start, end time.Time, loc *time.Location) (int, error) {
	body := transfer.TransactionRows(store, start, end, loc)
	rows := make([][]string, 0, len(body)+1)
	rows = append(rows, transfer.CSVHeader)
	rows = append(rows, body...)
	if err := w.WriteRows(ctx, rows); err != nil {
		return 0, err
	}
	return len(body), nil
}
