package transfer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"moneytracker/internal/core"
	"moneytracker/internal/ledger"
	"moneytracker/internal/log"
)

// DedupPolicy decides which incoming entities count as already present.
type DedupPolicy string

const (
	// DedupNone imports everything whose id is not already taken.
	DedupNone DedupPolicy = "none"
	// DedupNaturalKey also skips entities matching an existing one by name,
	// or by date, amount and notes for transactions.
	DedupNaturalKey DedupPolicy = "natural"
)

func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch p := DedupPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case DedupNone, DedupNaturalKey:
		return p, nil
	case "":
		return DedupNone, nil
	default:
		return "", fmt.Errorf("unknown dedup policy %q", s)
	}
}

// KindReport counts the outcome for one entity kind.
type KindReport struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// ImportReport summarizes an import.
type ImportReport struct {
	Accounts              KindReport `json:"accounts"`
	Categories            KindReport `json:"categories"`
	Transactions          KindReport `json:"transactions"`
	Projects              KindReport `json:"projects"`
	RecurringTransactions KindReport `json:"recurringTransactions"`
}

// Added is the total number of entities imported.
func (r ImportReport) Added() int {
	return r.Accounts.Added + r.Categories.Added + r.Transactions.Added +
		r.Projects.Added + r.RecurringTransactions.Added
}

// Importer adds batches of entities to a store.
type Importer struct {
	store    *ledger.Store
	policy   DedupPolicy
	strict   bool
	location *time.Location
	logger   *log.Logger
}

type ImporterOption func(*Importer)

// WithStrictValidation makes every entity pass its Validate method. By default
// only structural problems (missing id, bad type, negative amount, zero date)
// reject a batch, so exports with dangling references import back unchanged.
func WithStrictValidation() ImporterOption {
	return func(im *Importer) { im.strict = true }
}

// WithLocation sets the zone transaction dates are compared in for natural
// key dedup.
func WithLocation(loc *time.Location) ImporterOption {
	return func(im *Importer) { im.location = loc }
}

func WithImportLogger(l *log.Logger) ImporterOption {
	return func(im *Importer) { im.logger = l }
}

func NewImporter(store *ledger.Store, policy DedupPolicy, opts ...ImporterOption) *Importer {
	im := &Importer{
		store:    store,
		policy:   policy,
		location: time.Local,
		logger:   log.New(log.DefaultConfig()),
	}
	for _, opt := range opts {
		opt(im)
	}
	im.logger = im.logger.WithComponent(log.ComponentTransfer)
	return im
}

// Import checks the whole batch first and adds nothing if any entity is
// malformed. Entities whose id is already in the store are skipped, as are
// natural-key duplicates under DedupNaturalKey. The batch is applied in one
// store update.
func (im *Importer) Import(ctx context.Context, batch core.Snapshot) (ImportReport, error) {
	if err := ctx.Err(); err != nil {
		return ImportReport{}, err
	}
	if err := im.check(batch); err != nil {
		return ImportReport{}, err
	}

	var rep ImportReport
	err := im.store.Update(func(tx *ledger.Tx) error {
		seen := im.existingKeys(tx)

		for _, a := range batch.Accounts {
			if _, dup := tx.Account(a.ID); dup || seen.skip("account", a.Name) {
				rep.Accounts.Skipped++
				continue
			}
			if err := tx.AddAccount(a); err != nil {
				return err
			}
			rep.Accounts.Added++
		}
		for _, c := range batch.Categories {
			if _, dup := tx.Category(c.ID); dup || seen.skip("category", c.Name) {
				rep.Categories.Skipped++
				continue
			}
			if err := tx.AddCategory(c); err != nil {
				return err
			}
			rep.Categories.Added++
		}
		for _, t := range batch.Transactions {
			if _, dup := tx.Transaction(t.ID); dup || seen.skip("transaction", im.transactionKey(t)) {
				rep.Transactions.Skipped++
				continue
			}
			if err := tx.AddTransaction(t); err != nil {
				return err
			}
			rep.Transactions.Added++
		}
		for _, p := range batch.Projects {
			if _, dup := tx.Project(p.ID); dup || seen.skip("project", p.Name) {
				rep.Projects.Skipped++
				continue
			}
			if err := tx.AddProject(p); err != nil {
				return err
			}
			rep.Projects.Added++
		}
		for _, r := range batch.RecurringTransactions {
			if _, dup := tx.RecurringTransaction(r.ID); dup || seen.skip("recurring", r.Name) {
				rep.RecurringTransactions.Skipped++
				continue
			}
			if err := tx.AddRecurringTransaction(r); err != nil {
				return err
			}
			rep.RecurringTransactions.Added++
		}
		return nil
	})
	if err != nil {
		return rep, fmt.Errorf("import: %w", err)
	}

	im.logger.InfoContext(ctx, "Import complete",
		log.FieldOperation, log.OpImport,
		"policy", string(im.policy),
		"added", rep.Added(),
		"transactions_added", rep.Transactions.Added,
		"transactions_skipped", rep.Transactions.Skipped)
	return rep, nil
}

func (im *Importer) check(b core.Snapshot) error {
	for i, a := range b.Accounts {
		if err := im.validate(a.Validate, a.ID); err != nil {
			return fmt.Errorf("%w: account %d: %v", ErrMalformed, i, err)
		}
	}
	for i, c := range b.Categories {
		if err := im.validate(c.Validate, c.ID); err != nil {
			return fmt.Errorf("%w: category %d: %v", ErrMalformed, i, err)
		}
	}
	for i, t := range b.Transactions {
		err := im.validate(t.Validate, t.ID)
		if err == nil && !im.strict {
			err = checkTransaction(t)
		}
		if err != nil {
			return fmt.Errorf("%w: transaction %d: %v", ErrMalformed, i, err)
		}
	}
	for i, p := range b.Projects {
		if err := im.validate(p.Validate, p.ID); err != nil {
			return fmt.Errorf("%w: project %d: %v", ErrMalformed, i, err)
		}
	}
	for i, r := range b.RecurringTransactions {
		if err := im.validate(r.Validate, r.ID); err != nil {
			return fmt.Errorf("%w: recurring transaction %d: %v", ErrMalformed, i, err)
		}
	}
	return nil
}

// validate runs the entity's own Validate in strict mode and only the id
// check otherwise.
func (im *Importer) validate(fn func() error, id string) error {
	if im.strict {
		return fn()
	}
	if strings.TrimSpace(id) == "" {
		return core.ErrEmptyID
	}
	return nil
}

func checkTransaction(t core.Transaction) error {
	switch {
	case t.Date.IsZero():
		return core.ErrZeroDate
	case t.Amount.IsNegative():
		return core.ErrNegativeAmount
	case !t.Type.IsValid():
		return fmt.Errorf("%w: transaction type %q", core.ErrInvalidType, t.Type)
	}
	return nil
}

func (im *Importer) transactionKey(t core.Transaction) string {
	return t.Date.In(im.location).Format(time.DateOnly) + "|" + t.Amount.String() + "|" + strings.TrimSpace(t.Notes)
}

// naturalKeys tracks natural keys already present, including those added
// earlier in the same batch. A nil set never reports duplicates.
type naturalKeys map[string]struct{}

func (im *Importer) existingKeys(tx *ledger.Tx) naturalKeys {
	if im.policy != DedupNaturalKey {
		return nil
	}
	keys := naturalKeys{}
	for _, a := range tx.Accounts() {
		keys.add("account", a.Name)
	}
	for _, c := range tx.Categories() {
		keys.add("category", c.Name)
	}
	tx.EachTransaction(func(t *core.Transaction) {
		keys.add("transaction", im.transactionKey(*t))
	})
	for _, p := range tx.Projects() {
		keys.add("project", p.Name)
	}
	for _, r := range tx.RecurringTransactions() {
		keys.add("recurring", r.Name)
	}
	return keys
}

func (k naturalKeys) add(kind, key string) {
	k[kind+":"+strings.ToLower(strings.TrimSpace(key))] = struct{}{}
}

// skip reports whether key is a duplicate and records it otherwise.
func (k naturalKeys) skip(kind, key string) bool {
	if k == nil {
		return false
	}
	full := kind + ":" + strings.ToLower(strings.TrimSpace(key))
	if _, ok := k[full]; ok {
		return true
	}
	k[full] = struct{}{}
	return false
}
