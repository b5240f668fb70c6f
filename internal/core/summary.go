package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyStats summarizes one calendar month of transactions.
type MonthlyStats struct {
	Year        int             `json:"year"`
	Month       int             `json:"month"` // 1-12
	Income      decimal.Decimal `json:"income"`
	Expenses    decimal.Decimal `json:"expenses"`
	Savings     decimal.Decimal `json:"savings"`
	SavingsRate decimal.Decimal `json:"savingsRate"`
}

// PeriodStats summarizes an arbitrary inclusive date range.
type PeriodStats struct {
	Start    time.Time       `json:"start"`
	End      time.Time       `json:"end"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID string          `json:"categoryId"`
	Name       string          `json:"name"`
	Color      string          `json:"color,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
}

// TrendPoint is one month of a multi-month trend.
type TrendPoint struct {
	Year     int             `json:"year"`
	Month    int             `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

// AccountBalance pairs an account with its derived current balance.
type AccountBalance struct {
	Account Account         `json:"account"`
	Current decimal.Decimal `json:"current"`
}

// DashboardStats is the overview shown on the landing page.
type DashboardStats struct {
	NetWorth        decimal.Decimal `json:"netWorth"`
	MonthlyIncome   decimal.Decimal `json:"monthlyIncome"`
	MonthlyExpenses decimal.Decimal `json:"monthlyExpenses"`
	MonthlySavings  decimal.Decimal `json:"monthlySavings"`
	SavingsRate     decimal.Decimal `json:"savingsRate"`
}
