package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"moneytracker/internal/cli"
	"moneytracker/internal/core"
	"moneytracker/internal/ledger"
)

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show account balances and net worth",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := cli.Bootstrap(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeApp(app)

			return writeBalances(cmd.OutOrStdout(), app.Store.Balances())
		},
	}
}

// currencyTotal is the part of the net worth held in one currency.
type currencyTotal struct {
	Currency core.Currency
	Amount   decimal.Decimal
}

// netWorthByCurrency sums balances per currency, in the order the currencies
// first appear. Amounts in different currencies are never added together.
func netWorthByCurrency(balances []core.AccountBalance) []currencyTotal {
	var out []currencyTotal
	index := map[core.Currency]int{}
	for _, b := range balances {
		i, ok := index[b.Account.Currency]
		if !ok {
			i = len(out)
			index[b.Account.Currency] = i
			out = append(out, currencyTotal{Currency: b.Account.Currency, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(b.Current)
	}
	return out
}

func writeBalances(out io.Writer, balances []core.AccountBalance) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tTYPE\tBALANCE")
	for _, b := range balances {
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Account.Name, b.Account.Type, core.FormatAmount(b.Current, b.Account.Currency))
	}
	for _, t := range netWorthByCurrency(balances) {
		fmt.Fprintf(w, "\tNet worth %s\t%s\n", t.Currency, core.FormatAmount(t.Amount, t.Currency))
	}
	return w.Flush()
}

func statsCmd() *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show income, expenses and savings for a month",
		Example: `  # Current month
  moneytracker stats

  # March 2024
  moneytracker stats --year 2024 --month 3`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if month < 0 || month > 12 {
				return fmt.Errorf("invalid month %d: must be 1-12", month)
			}
			app, err := cli.Bootstrap(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeApp(app)

			now := time.Now().In(app.Stats.Location())
			if year == 0 {
				year = now.Year()
			}
			if month == 0 {
				month = int(now.Month())
			}

			start, end, err := app.Stats.PeriodRange(ledger.PeriodMonthly, time.Date(year, time.Month(month), 1, 0, 0, 0, 0, app.Stats.Location()))
			if err != nil {
				return err
			}
			return writeMonthlyStats(cmd.OutOrStdout(), app.Stats.MonthlyStats(year, month), app.Stats.ExpensesByCategory(start, end))
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year (default: current)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default: current)")
	return cmd
}

// writeMonthlyStats prints totals as plain decimals: they may mix currencies,
// so no currency rounding applies.
func writeMonthlyStats(out io.Writer, ms core.MonthlyStats, byCategory []core.CategoryAmount) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Month\t%04d-%02d\n", ms.Year, ms.Month)
	fmt.Fprintf(w, "Income\t%s\n", ms.Income)
	fmt.Fprintf(w, "Expenses\t%s\n", ms.Expenses)
	fmt.Fprintf(w, "Savings\t%s\n", ms.Savings)
	fmt.Fprintf(w, "Savings rate\t%s%%\n", ms.SavingsRate.Mul(decimal.NewFromInt(100)).StringFixed(1))
	for _, c := range byCategory {
		fmt.Fprintf(w, "  %s\t%s\n", c.Name, c.Amount)
	}
	return w.Flush()
}
