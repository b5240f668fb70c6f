package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"moneytracker/internal/cli"
	"moneytracker/internal/ledger"
	"moneytracker/internal/log"
	"moneytracker/internal/sheets"
	"moneytracker/internal/transfer"
)

func exportCmd() *cobra.Command {
	var format, from, to, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions or a full backup",
		Long: `Export transactions dated within --from and --to (inclusive, default the
current month) as CSV or to the configured Google Sheet, or write a full JSON
backup of the ledger.`,
		Example: `  # CSV for the first quarter
  moneytracker export --from 2024-01-01 --to 2024-03-31 --out q1.csv

  # Full backup to stdout
  moneytracker export --format json > backup.json

  # Replace the Transactions sheet
  moneytracker export --format sheets`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			format = strings.ToLower(format)
			switch format {
			case "csv", "json", "sheets":
			default:
				return fmt.Errorf("unknown format %q: must be csv, json or sheets", format)
			}

			app, err := cli.Bootstrap(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeApp(app)

			start, end, err := exportRange(app.Stats, from, to)
			if err != nil {
				return err
			}
			loc := app.Stats.Location()

			if format == "sheets" {
				w, err := app.SheetsWriter(ctx)
				if err != nil {
					return err
				}
				n, err := sheets.ExportTransactions(ctx, w, app.Store, start, end, loc)
				if err != nil {
					return fmt.Errorf("sheets export: %w", err)
				}
				logger.InfoContext(ctx, "Exported transactions to Google Sheets",
					log.FieldOperation, log.OpExport, "rows", n)
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transaction(s) to sheet %q\n", n, cfg.GoogleSheetName)
				return nil
			}

			var dst io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				dst = f
			}

			if format == "json" {
				return transfer.WriteBackup(dst, app.Store.Snapshot(), time.Now())
			}
			return transfer.WriteTransactionsCSV(dst, app.Store, start, end, loc)
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv, json or sheets")
	cmd.Flags().StringVar(&from, "from", "", "first day to include, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day to include, YYYY-MM-DD")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

// exportRange resolves the inclusive date range, defaulting to the current
// month.
func exportRange(stats *ledger.Stats, from, to string) (start, end time.Time, err error) {
	start, end, err = stats.PeriodRange(ledger.PeriodMonthly, time.Now())
	if err != nil {
		return start, end, err
	}
	loc := stats.Location()
	if from != "" {
		if start, err = time.ParseInLocation(time.DateOnly, from, loc); err != nil {
			return start, end, fmt.Errorf("invalid --from %q: use YYYY-MM-DD", from)
		}
	}
	if to != "" {
		last, err := time.ParseInLocation(time.DateOnly, to, loc)
		if err != nil {
			return start, end, fmt.Errorf("invalid --to %q: use YYYY-MM-DD", to)
		}
		end = last.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("--to is before --from")
	}
	return start, end, nil
}
