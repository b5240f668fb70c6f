package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

const (
	CategoryIncome   CategoryType = "income"
	CategoryExpense  CategoryType = "expense"
	CategoryTransfer CategoryType = "transfer"
	CategorySavings  CategoryType = "savings"
)

const (
	GroupNeed       CategoryGroup = "need"
	GroupWant       CategoryGroup = "want"
	GroupWealth     CategoryGroup = "wealth"
	GroupObligation CategoryGroup = "obligation"
)

const (
	AccountKCBBank     AccountType = "kcb_bank"
	AccountABSABank    AccountType = "absa_bank"
	AccountMpesa       AccountType = "mpesa"
	AccountZiidi       AccountType = "ziidi"
	AccountCrypto      AccountType = "crypto"
	AccountMoneyMarket AccountType = "money_market"
	AccountCash        AccountType = "cash"
	AccountSacco       AccountType = "sacco"
)

const (
	KES Currency = "KES"
	USD Currency = "USD"
	BTC Currency = "BTC"
	ETH Currency = "ETH"
)

const (
	ProjectCarPurchase ProjectType = "car_purchase"
	ProjectLandBuy     ProjectType = "land_buy"
	ProjectFarming     ProjectType = "farming"
	ProjectCustom      ProjectType = "custom"
)

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// UnknownCategory is the display name for a category id that no longer resolves.
const UnknownCategory = "Unknown"

// RecurringTag marks transactions materialized from a recurring template.
const RecurringTag = "recurring"

type (
	Frequency       string
	TransactionType string
	CategoryType    string
	CategoryGroup   string
	AccountType     string
	Currency        string
	ProjectType     string
	Priority        string

	// Account stores the opening balance only; the current balance is derived
	// from the transactions that reference it.
	Account struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Type      AccountType     `json:"type"`
		Balance   decimal.Decimal `json:"balance"`
		Currency  Currency        `json:"currency"`
		IsActive  bool            `json:"isActive"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	Category struct {
		ID    string        `json:"id"`
		Name  string        `json:"name"`
		Type  CategoryType  `json:"type"`
		Group CategoryGroup `json:"group"`
		Color string        `json:"color"`
	}

	// Transaction amounts are never negative; the direction comes from Type.
	Transaction struct {
		ID            string          `json:"id"`
		Date          time.Time       `json:"date"`
		Amount        decimal.Decimal `json:"amount"`
		Type          TransactionType `json:"type"`
		CategoryID    string          `json:"categoryId"`
		FromAccountID string          `json:"fromAccountId,omitempty"`
		ToAccountID   string          `json:"toAccountId,omitempty"`
		Notes         string          `json:"notes,omitempty"`
		Tags          []string        `json:"tags,omitempty"`
		CreatedAt     time.Time       `json:"createdAt"`
	}

	Project struct {
		ID              string          `json:"id"`
		Name            string          `json:"name"`
		Type            ProjectType     `json:"type"`
		TargetAmount    decimal.Decimal `json:"targetAmount"`
		CurrentAmount   decimal.Decimal `json:"currentAmount"`
		TargetDate      *time.Time      `json:"targetDate,omitempty"`
		Priority        Priority        `json:"priority"`
		LinkedAccountID string          `json:"linkedAccountId,omitempty"`
		CreatedAt       time.Time       `json:"createdAt"`
	}

	// RecurringTransaction is a template the scheduler materializes into
	// transactions. Only income and expense templates are supported.
	RecurringTransaction struct {
		ID            string          `json:"id"`
		Name          string          `json:"name"`
		Amount        decimal.Decimal `json:"amount"`
		Type          TransactionType `json:"type"`
		CategoryID    string          `json:"categoryId"`
		FromAccountID string          `json:"fromAccountId,omitempty"`
		ToAccountID   string          `json:"toAccountId,omitempty"`
		Frequency     Frequency       `json:"frequency"`
		StartDate     time.Time       `json:"startDate"`
		EndDate       *time.Time      `json:"endDate,omitempty"`
		IsActive      bool            `json:"isActive"`
		LastProcessed *time.Time      `json:"lastProcessed,omitempty"`
		CreatedAt     time.Time       `json:"createdAt"`
	}
)

var (
	ErrEmptyID            = errors.New("empty id")
	ErrEmptyName          = errors.New("empty name")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNegativeAmount     = errors.New("amount must not be negative")
	ErrInvalidType        = errors.New("invalid type")
	ErrInvalidCurrency    = errors.New("invalid currency")
	ErrInvalidGroup       = errors.New("invalid category group")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrInvalidFrequency   = errors.New("invalid frequency")
	ErrMissingCategory    = errors.New("missing category")
	ErrMissingFromAccount = errors.New("missing source account")
	ErrMissingToAccount   = errors.New("missing destination account")
	ErrZeroDate           = errors.New("date cannot be zero")
	ErrEndBeforeStart     = errors.New("end date must not be before start date")
)

func (f Frequency) IsValid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	}
	return false
}

func (t CategoryType) IsValid() bool {
	switch t {
	case CategoryIncome, CategoryExpense, CategoryTransfer, CategorySavings:
		return true
	}
	return false
}

func (g CategoryGroup) IsValid() bool {
	switch g {
	case GroupNeed, GroupWant, GroupWealth, GroupObligation:
		return true
	}
	return false
}

func (t AccountType) IsValid() bool {
	switch t {
	case AccountKCBBank, AccountABSABank, AccountMpesa, AccountZiidi,
		AccountCrypto, AccountMoneyMarket, AccountCash, AccountSacco:
		return true
	}
	return false
}

func (c Currency) IsValid() bool {
	switch c {
	case KES, USD, BTC, ETH:
		return true
	}
	return false
}

func (t ProjectType) IsValid() bool {
	switch t {
	case ProjectCarPurchase, ProjectLandBuy, ProjectFarming, ProjectCustom:
		return true
	}
	return false
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Type.IsValid() {
		return fmt.Errorf("%w: account type %q", ErrInvalidType, a.Type)
	}
	if !a.Currency.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, a.Currency)
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("%w: category type %q", ErrInvalidType, c.Type)
	}
	if !c.Group.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidGroup, c.Group)
	}
	return nil
}

// Validate checks the fields and the account references required by the
// transaction type. It does not check that the references resolve.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrMissingCategory
	}
	switch t.Type {
	case Income:
		if t.ToAccountID == "" {
			return ErrMissingToAccount
		}
	case Expense:
		if t.FromAccountID == "" {
			return ErrMissingFromAccount
		}
	case Transfer:
		if t.FromAccountID == "" {
			return ErrMissingFromAccount
		}
		if t.ToAccountID == "" {
			return ErrMissingToAccount
		}
	default:
		return fmt.Errorf("%w: transaction type %q", ErrInvalidType, t.Type)
	}
	return nil
}

// HasTag reports whether the transaction carries tag.
func (t Transaction) HasTag(tag string) bool {
	for _, v := range t.Tags {
		if v == tag {
			return true
		}
	}
	return false
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if !p.Type.IsValid() {
		return fmt.Errorf("%w: project type %q", ErrInvalidType, p.Type)
	}
	if !p.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, p.Priority)
	}
	if p.TargetAmount.IsNegative() || p.CurrentAmount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Progress returns CurrentAmount / TargetAmount. It may exceed 1 and is 0
// when the target is 0.
func (p Project) Progress() decimal.Decimal {
	if p.TargetAmount.IsZero() {
		return decimal.Zero
	}
	return p.CurrentAmount.Div(p.TargetAmount)
}

// Validate checks the template fields. Missing account references are allowed:
// the scheduler still materializes such templates.
func (r RecurringTransaction) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if r.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if r.Type != Income && r.Type != Expense {
		return fmt.Errorf("%w: recurring type %q", ErrInvalidType, r.Type)
	}
	if strings.TrimSpace(r.CategoryID) == "" {
		return ErrMissingCategory
	}
	if !r.Frequency.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, r.Frequency)
	}
	if r.StartDate.IsZero() {
		return ErrZeroDate
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return ErrEndBeforeStart
	}
	return nil
}

// Snapshot is the full ledger state: the unit of persistence and backup.
type Snapshot struct {
	Accounts              []Account              `json:"accounts"`
	Categories            []Category             `json:"categories"`
	Transactions          []Transaction          `json:"transactions"`
	Projects              []Project              `json:"projects"`
	RecurringTransactions []RecurringTransaction `json:"recurringTransactions"`
}

// IsEmpty reports whether the snapshot holds no entities at all.
func (s Snapshot) IsEmpty() bool {
	return len(s.Accounts) == 0 && len(s.Categories) == 0 && len(s.Transactions) == 0 &&
		len(s.Projects) == 0 && len(s.RecurringTransactions) == 0
}

// DefaultCategories is the category set a new ledger starts with.
func DefaultCategories() []Category {
	return []Category{
		{ID: "1", Name: "Salary", Type: CategoryIncome, Group: GroupNeed, Color: "#10b981"},
		{ID: "2", Name: "Business", Type: CategoryIncome, Group: GroupNeed, Color: "#3b82f6"},
		{ID: "3", Name: "Rent", Type: CategoryExpense, Group: GroupNeed, Color: "#ef4444"},
		{ID: "4", Name: "Food", Type: CategoryExpense, Group: GroupNeed, Color: "#f59e0b"},
		{ID: "5", Name: "Transport", Type: CategoryExpense, Group: GroupNeed, Color: "#8b5cf6"},
		{ID: "6", Name: "Entertainment", Type: CategoryExpense, Group: GroupWant, Color: "#06b6d4"},
		{ID: "7", Name: "Dining Out", Type: CategoryExpense, Group: GroupWant, Color: "#ec4899"},
		{ID: "8", Name: "Shopping", Type: CategoryExpense, Group: GroupWant, Color: "#84cc16"},
		{ID: "9", Name: "Savings", Type: CategorySavings, Group: GroupWealth, Color: "#10b981"},
		{ID: "10", Name: "Family Support", Type: CategoryExpense, Group: GroupObligation, Color: "#6b7280"},
		{ID: "11", Name: "OPEX - Petty Cash", Type: CategoryExpense, Group: GroupNeed, Color: "#f97316"},
		{ID: "12", Name: "OPEX - Daily Operations", Type: CategoryExpense, Group: GroupNeed, Color: "#eab308"},
		{ID: "13", Name: "Internet", Type: CategoryExpense, Group: GroupNeed, Color: "#06b6d4"},
		{ID: "14", Name: "Bundles", Type: CategoryExpense, Group: GroupNeed, Color: "#8b5cf6"},
	}
}
