package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"moneytracker/internal/cli"
	"moneytracker/internal/core"
	"moneytracker/internal/transfer"
)

func importCmd() *cobra.Command {
	var (
		format  string
		file    string
		dedup   string
		account string
		strict  bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a JSON backup or a transactions CSV",
		Long: `Add the entities of a JSON backup, or the rows of a transactions CSV, to the
ledger. Entities whose id already exists are skipped. With --dedup natural,
entities matching an existing one by name (or by date, amount and notes for
transactions) are skipped too. A batch that fails validation adds nothing.`,
		Example: `  # Restore a backup on top of the current ledger
  moneytracker import --file backup.json

  # Import a bank CSV into the M-Pesa account
  moneytracker import --format csv --file statement.csv --account mpesa --dedup natural`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			policy, err := transfer.ParseDedupPolicy(dedup)
			if err != nil {
				return err
			}
			format = strings.ToLower(format)
			if format != "json" && format != "csv" {
				return fmt.Errorf("unknown format %q: must be json or csv", format)
			}

			var src io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				src = f
			}

			app, err := cli.Bootstrap(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeApp(app)
			loc := app.Stats.Location()

			var batch core.Snapshot
			if format == "json" {
				b, err := transfer.ReadBackup(src)
				if err != nil {
					return err
				}
				batch = b.Snapshot
			} else {
				txs, err := transfer.ReadTransactionsCSV(src, transfer.CSVOptions{
					Categories: app.Store.Categories(),
					AccountID:  account,
					Location:   loc,
					NewID:      uuid.NewString,
					Now:        time.Now(),
				})
				if err != nil {
					return err
				}
				batch.Transactions = txs
			}

			opts := []transfer.ImporterOption{transfer.WithLocation(loc), transfer.WithImportLogger(logger)}
			if strict {
				opts = append(opts, transfer.WithStrictValidation())
			}
			report, err := transfer.NewImporter(app.Store, policy, opts...).Import(ctx, batch)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d entities\n", report.Added())
			for _, k := range []struct {
				name string
				r    transfer.KindReport
			}{
				{"accounts", report.Accounts},
				{"categories", report.Categories},
				{"transactions", report.Transactions},
				{"projects", report.Projects},
				{"recurring", report.RecurringTransactions},
			} {
				if k.r.Added > 0 || k.r.Skipped > 0 {
					fmt.Fprintf(out, "  %-13s added %d, skipped %d\n", k.name, k.r.Added, k.r.Skipped)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "json or csv")
	cmd.Flags().StringVarP(&file, "file", "f", "", "input file (default: stdin)")
	cmd.Flags().StringVar(&dedup, "dedup", string(transfer.DedupNone), "none or natural")
	cmd.Flags().StringVar(&account, "account", "", "account id for CSV rows")
	cmd.Flags().BoolVar(&strict, "strict", false, "require every entity to pass full validation")
	return cmd
}
