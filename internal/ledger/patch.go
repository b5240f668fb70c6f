package ledger

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"moneytracker/internal/core"
)

// Patches carry the fields of a partial update. Nil fields are left alone.

type AccountPatch struct {
	Name     *string           `json:"name,omitempty"`
	Type     *core.AccountType `json:"type,omitempty"`
	Balance  *decimal.Decimal  `json:"balance,omitempty"`
	Currency *core.Currency    `json:"currency,omitempty"`
	IsActive *bool             `json:"isActive,omitempty"`
}

func (p AccountPatch) apply(a *core.Account) {
	setIf(&a.Name, p.Name)
	setIf(&a.Type, p.Type)
	setIf(&a.Balance, p.Balance)
	setIf(&a.Currency, p.Currency)
	setIf(&a.IsActive, p.IsActive)
}

type CategoryPatch struct {
	Name  *string             `json:"name,omitempty"`
	Type  *core.CategoryType  `json:"type,omitempty"`
	Group *core.CategoryGroup `json:"group,omitempty"`
	Color *string             `json:"color,omitempty"`
}

func (p CategoryPatch) apply(c *core.Category) {
	setIf(&c.Name, p.Name)
	setIf(&c.Type, p.Type)
	setIf(&c.Group, p.Group)
	setIf(&c.Color, p.Color)
}

type TransactionPatch struct {
	Date          *time.Time            `json:"date,omitempty"`
	Amount        *decimal.Decimal      `json:"amount,omitempty"`
	Type          *core.TransactionType `json:"type,omitempty"`
	CategoryID    *string               `json:"categoryId,omitempty"`
	FromAccountID *string               `json:"fromAccountId,omitempty"`
	ToAccountID   *string               `json:"toAccountId,omitempty"`
	Notes         *string               `json:"notes,omitempty"`
	Tags          []string              `json:"tags,omitempty"`
}

func (p TransactionPatch) apply(t *core.Transaction) {
	setIf(&t.Date, p.Date)
	setIf(&t.Amount, p.Amount)
	setIf(&t.Type, p.Type)
	setIf(&t.CategoryID, p.CategoryID)
	setIf(&t.FromAccountID, p.FromAccountID)
	setIf(&t.ToAccountID, p.ToAccountID)
	setIf(&t.Notes, p.Notes)
	if p.Tags != nil {
		t.Tags = slices.Clone(p.Tags)
	}
}

type ProjectPatch struct {
	Name            *string           `json:"name,omitempty"`
	Type            *core.ProjectType `json:"type,omitempty"`
	TargetAmount    *decimal.Decimal  `json:"targetAmount,omitempty"`
	CurrentAmount   *decimal.Decimal  `json:"currentAmount,omitempty"`
	TargetDate      *time.Time        `json:"targetDate,omitempty"`
	ClearTargetDate bool              `json:"clearTargetDate,omitempty"`
	Priority        *core.Priority    `json:"priority,omitempty"`
	LinkedAccountID *string           `json:"linkedAccountId,omitempty"`
}

func (p ProjectPatch) apply(pr *core.Project) {
	setIf(&pr.Name, p.Name)
	setIf(&pr.Type, p.Type)
	setIf(&pr.TargetAmount, p.TargetAmount)
	setIf(&pr.CurrentAmount, p.CurrentAmount)
	setOptional(&pr.TargetDate, p.TargetDate, p.ClearTargetDate)
	setIf(&pr.Priority, p.Priority)
	setIf(&pr.LinkedAccountID, p.LinkedAccountID)
}

type RecurringPatch struct {
	Name          *string               `json:"name,omitempty"`
	Amount        *decimal.Decimal      `json:"amount,omitempty"`
	Type          *core.TransactionType `json:"type,omitempty"`
	CategoryID    *string               `json:"categoryId,omitempty"`
	FromAccountID *string               `json:"fromAccountId,omitempty"`
	ToAccountID   *string               `json:"toAccountId,omitempty"`
	Frequency     *core.Frequency       `json:"frequency,omitempty"`
	StartDate     *time.Time            `json:"startDate,omitempty"`
	EndDate       *time.Time            `json:"endDate,omitempty"`
	ClearEndDate  bool                  `json:"clearEndDate,omitempty"`
	IsActive      *bool                 `json:"isActive,omitempty"`
	LastProcessed *time.Time            `json:"lastProcessed,omitempty"`
}

func (p RecurringPatch) apply(r *core.RecurringTransaction) {
	setIf(&r.Name, p.Name)
	setIf(&r.Amount, p.Amount)
	setIf(&r.Type, p.Type)
	setIf(&r.CategoryID, p.CategoryID)
	setIf(&r.FromAccountID, p.FromAccountID)
	setIf(&r.ToAccountID, p.ToAccountID)
	setIf(&r.Frequency, p.Frequency)
	setIf(&r.StartDate, p.StartDate)
	setOptional(&r.EndDate, p.EndDate, p.ClearEndDate)
	setIf(&r.IsActive, p.IsActive)
	setOptional(&r.LastProcessed, p.LastProcessed, false)
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T { return &v }

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setOptional(dst **time.Time, v *time.Time, clear bool) {
	switch {
	case clear:
		*dst = nil
	case v != nil:
		t := *v
		*dst = &t
	}
}

// Apply returns a with the patch applied. The store is not touched; callers
// use it to validate the outcome of an update before making it.
func (p AccountPatch) Apply(a core.Account) core.Account {
	p.apply(&a)
	return a
}

func (p CategoryPatch) Apply(c core.Category) core.Category {
	p.apply(&c)
	return c
}

func (p TransactionPatch) Apply(t core.Transaction) core.Transaction {
	t = cloneTransaction(t)
	p.apply(&t)
	return t
}

func (p ProjectPatch) Apply(pr core.Project) core.Project {
	pr = cloneProject(pr)
	p.apply(&pr)
	return pr
}

func (p RecurringPatch) Apply(r core.RecurringTransaction) core.RecurringTransaction {
	r = cloneRecurring(r)
	p.apply(&r)
	return r
}
