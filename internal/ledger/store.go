// Package ledger holds the in-memory entity store and the computations derived
// from it: account balances, net worth and periodic statistics.
//
// The store is the single mutable copy of the ledger. It does not enforce
// referential integrity: transactions may reference deleted accounts or
// categories, and every consumer resolves references with a lookup that can
// fail.
package ledger

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"moneytracker/internal/core"
)

// ErrDuplicateID is returned by the Add operations when an entity with the
// same id already exists. Existing entities are never overwritten.
var ErrDuplicateID = errors.New("duplicate id")

// Store is the entity store. All access goes through View and Update, which
// serialize writers so a recurring pass never interleaves with manual edits.
type Store struct {
	mu       sync.RWMutex
	state    state
	revision uint64
}

type state struct {
	accounts   []core.Account
	categories []core.Category
	txs        []core.Transaction
	projects   []core.Project
	recurring  []core.RecurringTransaction
}

// NewStore creates a store seeded with a copy of snap.
func NewStore(snap core.Snapshot) *Store {
	s := &Store{}
	s.state = fromSnapshot(snap)
	return s
}

// View runs fn with read access to the store.
func (s *Store) View(fn func(tx *Tx)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&Tx{st: &s.state})
}

// Update runs fn with exclusive write access. The revision advances when fn
// changed anything, even if it then returned an error: there is no rollback.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &Tx{st: &s.state, writable: true}
	err := fn(tx)
	if tx.dirty {
		s.revision++
	}
	return err
}

// Revision increases on every mutation. Callers use it to detect changes
// without comparing state.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Snapshot returns a deep copy of the full state.
func (s *Store) Snapshot() core.Snapshot {
	var snap core.Snapshot
	s.View(func(tx *Tx) { snap = tx.Snapshot() })
	return snap
}

// RevisionSnapshot returns a deep copy of the state together with the
// revision it corresponds to.
func (s *Store) RevisionSnapshot() (core.Snapshot, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx := &Tx{st: &s.state}
	return tx.Snapshot(), s.revision
}

// Restore replaces the full state with a copy of snap.
func (s *Store) Restore(snap core.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fromSnapshot(snap)
	s.revision++
}

func fromSnapshot(snap core.Snapshot) state {
	st := state{
		accounts:   slices.Clone(snap.Accounts),
		categories: slices.Clone(snap.Categories),
		projects:   make([]core.Project, 0, len(snap.Projects)),
		txs:        make([]core.Transaction, 0, len(snap.Transactions)),
		recurring:  make([]core.RecurringTransaction, 0, len(snap.RecurringTransactions)),
	}
	for _, p := range snap.Projects {
		st.projects = append(st.projects, cloneProject(p))
	}
	for _, t := range snap.Transactions {
		st.txs = append(st.txs, cloneTransaction(t))
	}
	for _, r := range snap.RecurringTransactions {
		st.recurring = append(st.recurring, cloneRecurring(r))
	}
	return st
}

// Tx is a view of the store inside View or Update. It must not be retained
// after the callback returns.
type Tx struct {
	st       *state
	writable bool
	dirty    bool
}

func (tx *Tx) mustWrite() {
	if !tx.writable {
		panic("ledger: mutation inside View")
	}
	tx.dirty = true
}

// Snapshot returns a deep copy of the state visible to tx.
func (tx *Tx) Snapshot() core.Snapshot {
	return core.Snapshot{
		Accounts:              tx.Accounts(),
		Categories:            tx.Categories(),
		Transactions:          tx.Transactions(),
		Projects:              tx.Projects(),
		RecurringTransactions: tx.RecurringTransactions(),
	}
}

// Accounts

func (tx *Tx) Accounts() []core.Account { return slices.Clone(tx.st.accounts) }

func (tx *Tx) Account(id string) (core.Account, bool) {
	i := slices.IndexFunc(tx.st.accounts, func(a core.Account) bool { return a.ID == id })
	if i < 0 {
		return core.Account{}, false
	}
	return tx.st.accounts[i], true
}

func (tx *Tx) AddAccount(a core.Account) error {
	if _, ok := tx.Account(a.ID); ok {
		return fmt.Errorf("add account %q: %w", a.ID, ErrDuplicateID)
	}
	tx.mustWrite()
	tx.st.accounts = append(tx.st.accounts, a)
	return nil
}

func (tx *Tx) UpdateAccount(id string, p AccountPatch) bool {
	i := slices.IndexFunc(tx.st.accounts, func(a core.Account) bool { return a.ID == id })
	if i < 0 {
		return false
	}
	tx.mustWrite()
	p.apply(&tx.st.accounts[i])
	return true
}

func (tx *Tx) DeleteAccount(id string) bool {
	n := len(tx.st.accounts)
	tx.st.accounts = slices.DeleteFunc(tx.st.accounts, func(a core.Account) bool { return a.ID == id })
	return tx.removed(n, len(tx.st.accounts))
}

// Categories

func (tx *Tx) Categories() []core.Category { return slices.Clone(tx.st.categories) }

func (tx *Tx) Category(id string) (core.Category, bool) {
	i := slices.IndexFunc(tx.st.categories, func(c core.Category) bool { return c.ID == id })
	if i < 0 {
		return core.Category{}, false
	}
	return tx.st.categories[i], true
}

func (tx *Tx) AddCategory(c core.Category) error {
	if _, ok := tx.Category(c.ID); ok {
		return fmt.Errorf("add category %q: %w", c.ID, ErrDuplicateID)
	}
	tx.mustWrite()
	tx.st.categories = append(tx.st.categories, c)
	return nil
}

func (tx *Tx) UpdateCategory(id string, p CategoryPatch) bool {
	i := slices.IndexFunc(tx.st.categories, func(c core.Category) bool { return c.ID == id })
	if i < 0 {
		return false
	}
	tx.mustWrite()
	p.apply(&tx.st.categories[i])
	return true
}

func (tx *Tx) DeleteCategory(id string) bool {
	n := len(tx.st.categories)
	tx.st.categories = slices.DeleteFunc(tx.st.categories, func(c core.Category) bool { return c.ID == id })
	return tx.removed(n, len(tx.st.categories))
}

// Transactions

func (tx *Tx) Transactions() []core.Transaction {
	out := make([]core.Transaction, len(tx.st.txs))
	for i, t := range tx.st.txs {
		out[i] = cloneTransaction(t)
	}
	return out
}

// EachTransaction calls fn for every transaction without copying them. fn
// must not modify the transaction or retain its Tags slice.
func (tx *Tx) EachTransaction(fn func(t *core.Transaction)) {
	for i := range tx.st.txs {
		fn(&tx.st.txs[i])
	}
}

func (tx *Tx) Transaction(id string) (core.Transaction, bool) {
	i := slices.IndexFunc(tx.st.txs, func(t core.Transaction) bool { return t.ID == id })
	if i < 0 {
		return core.Transaction{}, false
	}
	return cloneTransaction(tx.st.txs[i]), true
}

func (tx *Tx) AddTransaction(t core.Transaction) error {
	if _, ok := tx.Transaction(t.ID); ok {
		return fmt.Errorf("add transaction %q: %w", t.ID, ErrDuplicateID)
	}
	tx.mustWrite()
	tx.st.txs = append(tx.st.txs, cloneTransaction(t))
	return nil
}

func (tx *Tx) UpdateTransaction(id string, p TransactionPatch) bool {
	i := slices.IndexFunc(tx.st.txs, func(t core.Transaction) bool { return t.ID == id })
	if i < 0 {
		return false
	}
	tx.mustWrite()
	p.apply(&tx.st.txs[i])
	return true
}

func (tx *Tx) DeleteTransaction(id string) bool {
	n := len(tx.st.txs)
	tx.st.txs = slices.DeleteFunc(tx.st.txs, func(t core.Transaction) bool { return t.ID == id })
	return tx.removed(n, len(tx.st.txs))
}

// Projects

func (tx *Tx) Projects() []core.Project {
	out := make([]core.Project, len(tx.st.projects))
	for i, p := range tx.st.projects {
		out[i] = cloneProject(p)
	}
	return out
}

func (tx *Tx) Project(id string) (core.Project, bool) {
	i := slices.IndexFunc(tx.st.projects, func(p core.Project) bool { return p.ID == id })
	if i < 0 {
		return core.Project{}, false
	}
	return cloneProject(tx.st.projects[i]), true
}

func (tx *Tx) AddProject(p core.Project) error {
	if _, ok := tx.Project(p.ID); ok {
		return fmt.Errorf("add project %q: %w", p.ID, ErrDuplicateID)
	}
	tx.mustWrite()
	tx.st.projects = append(tx.st.projects, cloneProject(p))
	return nil
}

func (tx *Tx) UpdateProject(id string, p ProjectPatch) bool {
	i := slices.IndexFunc(tx.st.projects, func(pr core.Project) bool { return pr.ID == id })
	if i < 0 {
		return false
	}
	tx.mustWrite()
	p.apply(&tx.st.projects[i])
	return true
}

func (tx *Tx) DeleteProject(id string) bool {
	n := len(tx.st.projects)
	tx.st.projects = slices.DeleteFunc(tx.st.projects, func(p core.Project) bool { return p.ID == id })
	return tx.removed(n, len(tx.st.projects))
}

// Recurring transaction templates

func (tx *Tx) RecurringTransactions() []core.RecurringTransaction {
	out := make([]core.RecurringTransaction, len(tx.st.recurring))
	for i, r := range tx.st.recurring {
		out[i] = cloneRecurring(r)
	}
	return out
}

func (tx *Tx) RecurringTransaction(id string) (core.RecurringTransaction, bool) {
	i := slices.IndexFunc(tx.st.recurring, func(r core.RecurringTransaction) bool { return r.ID == id })
	if i < 0 {
		return core.RecurringTransaction{}, false
	}
	return cloneRecurring(tx.st.recurring[i]), true
}

func (tx *Tx) AddRecurringTransaction(r core.RecurringTransaction) error {
	if _, ok := tx.RecurringTransaction(r.ID); ok {
		return fmt.Errorf("add recurring transaction %q: %w", r.ID, ErrDuplicateID)
	}
	tx.mustWrite()
	tx.st.recurring = append(tx.st.recurring, cloneRecurring(r))
	return nil
}

func (tx *Tx) UpdateRecurringTransaction(id string, p RecurringPatch) bool {
	i := slices.IndexFunc(tx.st.recurring, func(r core.RecurringTransaction) bool { return r.ID == id })
	if i < 0 {
		return false
	}
	tx.mustWrite()
	p.apply(&tx.st.recurring[i])
	return true
}

func (tx *Tx) DeleteRecurringTransaction(id string) bool {
	n := len(tx.st.recurring)
	tx.st.recurring = slices.DeleteFunc(tx.st.recurring, func(r core.RecurringTransaction) bool { return r.ID == id })
	return tx.removed(n, len(tx.st.recurring))
}

func (tx *Tx) removed(before, after int) bool {
	if before == after {
		return false
	}
	tx.mustWrite()
	return true
}

// Store-level shorthands. Each runs in its own View or Update.

func (s *Store) AddAccount(a core.Account) error {
	return s.Update(func(tx *Tx) error { return tx.AddAccount(a) })
}

func (s *Store) UpdateAccount(id string, p AccountPatch) (ok bool) {
	_ = s.Update(func(tx *Tx) error { ok = tx.UpdateAccount(id, p); return nil })
	return ok
}

func (s *Store) DeleteAccount(id string) (ok bool) {
	_ = s.Update(func(tx *Tx) error { ok = tx.DeleteAccount(id); return nil })
	return ok
}

func (s *Store) Accounts() (out []core.Account) {
	s.View(func(tx *Tx) { out = tx.Accounts() })
	return out
}

func (s *Store) Account(id string) (a core.Account, ok bool) {
	s.View(func(tx *Tx) { a, ok = tx.Account(id) })
	return a, ok
}

func (s *Store) AddCategory(c core.Category) error {
	return s.Update(func(tx *Tx) error { return tx.AddCategory(c) })
}

func (s *Store) UpdateCategory(id string, p CategoryPatch) (ok bool) {
	_ = s.Update(func(tx *Tx) error { ok = tx.UpdateCategory(id, p); return nil })
	return ok
}

func (s *Store) DeleteCategory(id string) (ok bool) {
	_ = s.Update(func(tx *Tx) error { ok = tx.DeleteCategory(id); return nil })
	return ok
}

func (s *Store) Categories() (out []core.Category) {
	s.View(func(tx *Tx) { out = tx.Categories() })
	return out
}

func (s *Store) Category(id string) (c core.Category, ok bool) {
	s.View(func(tx *Tx) { c, ok = tx.Category(id) })
	return c, ok
}

func (s *Store) AddTransaction(t core.Transaction) error {
	return s.Update(func(tx *Tx) error { return tx.AddTransaction(t) })
}

func (s *Store) UpdateTransaction(id string, p TransactionPatch) (ok bool) {
	_ = s.Update(func(tx *Tx) error { ok = tx.UpdateTransaction(id, p); return nil })
	return ok
}

func (s *Store) DeleteTransaction(id string) (ok bool) {
	_ = s.Update(func(tx *Tx) error { ok = tx.DeleteTransaction(id); return nil })
	return ok
}

func (s *Store) Transactions() (out []core.Transaction) {
	s.View(func(tx *Tx) { out = tx.Transactions() })
	return out
}

func (s *Store) Transaction(id string) (t core.Transaction, ok bool) {
	s.View(func(tx *Tx) { t, ok = tx.Transaction(id) })
	return t, ok
}

func (s *Store) AddProject(p core.Project) error {
	return s.Update(func(tx *Tx) error { return tx.AddProject(p) })
}

func (s *Store) UpdateProject(id string, p ProjectPatch) (ok bool) {
	_ = s.Update(func(tx *Tx) error { ok = tx.UpdateProject(id, p); return nil })
	return ok
}

func (s *Store) DeleteProject(id string) (ok bool) {
	_ = s.Update(func(tx *Tx) error { ok = tx.DeleteProject(id); return nil })
	return ok
}

func (s *Store) Projects() (out []core.Project) {
	s.View(func(tx *Tx) { out = tx.Projects() })
	return out
}

func (s *Store) Project(id string) (p core.Project, ok bool) {
	s.View(func(tx *Tx) { p, ok = tx.Project(id) })
	return p, ok
}

func (s *Store) AddRecurringTransaction(r core.RecurringTransaction) error {
	return s.Update(func(tx *Tx) error { return tx.AddRecurringTransaction(r) })
}

func (s *Store) UpdateRecurringTransaction(id string, p RecurringPatch) (ok bool) {
	_ = s.Update(func(tx *Tx) error { ok = tx.UpdateRecurringTransaction(id, p); return nil })
	return ok
}

func (s *Store) DeleteRecurringTransaction(id string) (ok bool) {
	_ = s.Update(func(tx *Tx) error { ok = tx.DeleteRecurringTransaction(id); return nil })
	return ok
}

func (s *Store) RecurringTransactions() (out []core.RecurringTransaction) {
	s.View(func(tx *Tx) { out = tx.RecurringTransactions() })
	return out
}

func (s *Store) RecurringTransaction(id string) (r core.RecurringTransaction, ok bool) {
	s.View(func(tx *Tx) { r, ok = tx.RecurringTransaction(id) })
	return r, ok
}

func cloneTransaction(t core.Transaction) core.Transaction {
	t.Tags = slices.Clone(t.Tags)
	return t
}

func cloneProject(p core.Project) core.Project {
	p.TargetDate = cloneTime(p.TargetDate)
	return p
}

func cloneRecurring(r core.RecurringTransaction) core.RecurringTransaction {
	r.EndDate = cloneTime(r.EndDate)
	r.LastProcessed = cloneTime(r.LastProcessed)
	return r
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
