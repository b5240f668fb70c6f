package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"moneytracker/internal/core"
)

// Period names a reporting window anchored on a date.
type Period string

const (
	PeriodDaily     Period = "daily"
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
)

func (p Period) IsValid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodQuarterly:
		return true
	}
	return false
}

// Stats aggregates the store's transactions. Calendar boundaries are evaluated
// in Location; a nil Location means time.Local.
type Stats struct {
	store    *Store
	location *time.Location
}

func NewStats(store *Store, loc *time.Location) *Stats {
	if loc == nil {
		loc = time.Local
	}
	return &Stats{store: store, location: loc}
}

// Location returns the time zone calendar boundaries are computed in.
func (s *Stats) Location() *time.Location { return s.location }

// MonthlyStats sums the transactions dated in the given calendar month. Savings
// counts transactions whose category resolves to a savings category, whatever
// their own type. SavingsRate is 0 when there is no income.
func (s *Stats) MonthlyStats(year, month int) core.MonthlyStats {
	out := core.MonthlyStats{
		Year:        year,
		Month:       month,
		Income:      decimal.Zero,
		Expenses:    decimal.Zero,
		Savings:     decimal.Zero,
		SavingsRate: decimal.Zero,
	}
	s.store.View(func(tx *Tx) {
		tx.EachTransaction(func(t *core.Transaction) {
			d := t.Date.In(s.location)
			if d.Year() != year || int(d.Month()) != month {
				return
			}
			switch t.Type {
			case core.Income:
				out.Income = out.Income.Add(t.Amount)
			case core.Expense:
				out.Expenses = out.Expenses.Add(t.Amount)
			}
			if c, ok := tx.Category(t.CategoryID); ok && c.Type == core.CategorySavings {
				out.Savings = out.Savings.Add(t.Amount)
			}
		})
	})
	if out.Income.IsPositive() {
		out.SavingsRate = out.Savings.Div(out.Income)
	}
	return out
}

// PeriodRange returns the inclusive bounds of the period containing at.
// Weeks start on Sunday.
func (s *Stats) PeriodRange(p Period, at time.Time) (start, end time.Time, err error) {
	at = at.In(s.location)
	y, m, d := at.Date()
	switch p {
	case PeriodDaily:
		start = time.Date(y, m, d, 0, 0, 0, 0, s.location)
		end = start.AddDate(0, 0, 1)
	case PeriodWeekly:
		start = time.Date(y, m, d-int(at.Weekday()), 0, 0, 0, 0, s.location)
		end = start.AddDate(0, 0, 7)
	case PeriodMonthly:
		start = time.Date(y, m, 1, 0, 0, 0, 0, s.location)
		end = start.AddDate(0, 1, 0)
	case PeriodQuarterly:
		qm := time.Month((int(m)-1)/3*3 + 1)
		start = time.Date(y, qm, 1, 0, 0, 0, 0, s.location)
		end = start.AddDate(0, 3, 0)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q", p)
	}
	return start, end.Add(-time.Nanosecond), nil
}

// PeriodStats sums income and expenses dated within [start, end].
func (s *Stats) PeriodStats(start, end time.Time) core.PeriodStats {
	out := core.PeriodStats{Start: start, End: end, Income: decimal.Zero, Expenses: decimal.Zero}
	s.store.View(func(tx *Tx) {
		tx.EachTransaction(func(t *core.Transaction) {
			if !within(t.Date, start, end) {
				return
			}
			switch t.Type {
			case core.Income:
				out.Income = out.Income.Add(t.Amount)
			case core.Expense:
				out.Expenses = out.Expenses.Add(t.Amount)
			}
		})
	})
	out.Net = out.Income.Sub(out.Expenses)
	return out
}

// ExpensesByCategory groups expenses dated within [start, end] by category,
// largest first. Ids that no longer resolve are grouped under "Unknown".
func (s *Stats) ExpensesByCategory(start, end time.Time) []core.CategoryAmount {
	byID := map[string]*core.CategoryAmount{}
	s.store.View(func(tx *Tx) {
		tx.EachTransaction(func(t *core.Transaction) {
			if t.Type != core.Expense || !within(t.Date, start, end) {
				return
			}
			key := t.CategoryID
			c, ok := tx.Category(t.CategoryID)
			if !ok {
				key = ""
				c = core.Category{Name: core.UnknownCategory}
			}
			agg, seen := byID[key]
			if !seen {
				agg = &core.CategoryAmount{CategoryID: key, Name: c.Name, Color: c.Color, Amount: decimal.Zero}
				byID[key] = agg
			}
			agg.Amount = agg.Amount.Add(t.Amount)
		})
	})

	out := make([]core.CategoryAmount, 0, len(byID))
	for _, agg := range byID {
		if agg.Amount.IsZero() {
			continue
		}
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Trend returns the last months calendar months up to and including the
// month of now, oldest first.
func (s *Stats) Trend(now time.Time, months int) []core.TrendPoint {
	if months <= 0 {
		return nil
	}
	now = now.In(s.location)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.location)
	out := make([]core.TrendPoint, 0, months)
	for i := months - 1; i >= 0; i-- {
		m := first.AddDate(0, -i, 0)
		ms := s.MonthlyStats(m.Year(), int(m.Month()))
		out = append(out, core.TrendPoint{
			Year:     ms.Year,
			Month:    ms.Month,
			Income:   ms.Income,
			Expenses: ms.Expenses,
			Net:      ms.Income.Sub(ms.Expenses),
		})
	}
	return out
}

// Dashboard combines net worth with the statistics of the month of now.
func (s *Stats) Dashboard(now time.Time) core.DashboardStats {
	now = now.In(s.location)
	ms := s.MonthlyStats(now.Year(), int(now.Month()))
	return core.DashboardStats{
		NetWorth:        s.store.NetWorth(),
		MonthlyIncome:   ms.Income,
		MonthlyExpenses: ms.Expenses,
		MonthlySavings:  ms.Savings,
		SavingsRate:     ms.SavingsRate,
	}
}

// CategoryName resolves a category id for display.
func (s *Stats) CategoryName(id string) string {
	return CategoryName(s.store, id)
}

// CategoryName resolves a category id for display, "Unknown" when it does not
// resolve.
func CategoryName(store *Store, id string) (name string) {
	store.View(func(tx *Tx) { name = tx.CategoryName(id) })
	return name
}

// CategoryName resolves a category id inside a transaction.
func (tx *Tx) CategoryName(id string) string {
	if c, ok := tx.Category(id); ok {
		return c.Name
	}
	return core.UnknownCategory
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
