package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"moneytracker/internal/core"
	"moneytracker/internal/ledger"
	"moneytracker/internal/log"
)

var (
	errEntityNotFound = errors.New("not found")
	errEntityInvalid  = errors.New("invalid")
)

// resource binds one entity kind to the store operations the generic CRUD
// handlers need. T is the entity, P its patch.
type resource[T, P any] struct {
	kind     string
	get      func(tx *ledger.Tx, id string) (T, bool)
	add      func(tx *ledger.Tx, v T) error
	update   func(tx *ledger.Tx, id string, p P) bool
	remove   func(tx *ledger.Tx, id string) bool
	apply    func(p P, v T) T
	validate func(v T) error

	// defaults returns the value a create request body is decoded over.
	defaults func() T
	// prepare fills the id and creation time and cleans free text.
	prepare  func(v *T, now time.Time, newID func() string)
	// view shapes a stored entity for responses. Nil returns it as is.
	view     func(v T) any
}

func (res resource[T, P]) render(v T) any {
	if res.view == nil {
		return v
	}
	return res.view(v)
}

func getEntity[T, P any](s *Server, res resource[T, P]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var (
			v  T
			ok bool
		)
		s.store.View(func(tx *ledger.Tx) { v, ok = res.get(tx, id) })
		if !ok {
			notFound(w, res.kind+" not found")
			return
		}
		writeJSON(w, http.StatusOK, res.render(v))
	}
}

func createEntity[T, P any](s *Server, res resource[T, P]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := res.defaults()
		if err := decodeJSON(w, r, &v); err != nil {
			badRequest(w, err.Error())
			return
		}
		res.prepare(&v, s.clock.Now(), s.newID)
		if err := res.validate(v); err != nil {
			unprocessable(w, err.Error())
			return
		}

		err := s.store.Update(func(tx *ledger.Tx) error { return res.add(tx, v) })
		if err != nil {
			if errors.Is(err, ledger.ErrDuplicateID) {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "could not store "+res.kind)
			return
		}

		s.logger.InfoContext(r.Context(), "Entity created",
			log.FieldOperation, log.OpCreate, log.FieldEntity, res.kind)
		s.checkpoint(r.Context())
		writeJSON(w, http.StatusCreated, res.render(v))
	}
}

// patchEntity applies a partial update. The patched entity must still
// validate; otherwise nothing changes.
func patchEntity[T, P any](s *Server, res resource[T, P]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p P
		if err := decodeJSON(w, r, &p); err != nil {
			badRequest(w, err.Error())
			return
		}

		id := chi.URLParam(r, "id")
		var next T
		err := s.store.Update(func(tx *ledger.Tx) error {
			cur, ok := res.get(tx, id)
			if !ok {
				return errEntityNotFound
			}
			next = res.apply(p, cur)
			if err := res.validate(next); err != nil {
				return fmt.Errorf("%w: %w", errEntityInvalid, err)
			}
			res.update(tx, id, p)
			return nil
		})
		switch {
		case errors.Is(err, errEntityNotFound):
			notFound(w, res.kind+" not found")
			return
		case err != nil:
			unprocessable(w, err.Error())
			return
		}

		s.logger.InfoContext(r.Context(), "Entity updated",
			log.FieldOperation, log.OpUpdate, log.FieldEntity, res.kind, log.FieldEntityID, id)
		s.checkpoint(r.Context())
		writeJSON(w, http.StatusOK, res.render(next))
	}
}

// deleteEntity is idempotent: an unknown id also yields 204. Nothing that
// references the entity is removed.
func deleteEntity[T, P any](s *Server, res resource[T, P]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var removed bool
		_ = s.store.Update(func(tx *ledger.Tx) error {
			removed = res.remove(tx, id)
			return nil
		})
		if removed {
			s.logger.InfoContext(r.Context(), "Entity deleted",
				log.FieldOperation, log.OpDelete, log.FieldEntity, res.kind, log.FieldEntityID, id)
			s.checkpoint(r.Context())
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func assignID(id *string, newID func() string) {
	if *id = sanitizeInput(*id); *id == "" {
		*id = newID()
	}
}

func stampCreated(at *time.Time, now time.Time) {
	if at.IsZero() {
		*at = now
	}
}

var accounts = resource[core.Account, ledger.AccountPatch]{
	kind:     "account",
	get:      (*ledger.Tx).Account,
	add:      (*ledger.Tx).AddAccount,
	update:   (*ledger.Tx).UpdateAccount,
	remove:   (*ledger.Tx).DeleteAccount,
	apply:    ledger.AccountPatch.Apply,
	validate: core.Account.Validate,
	defaults: func() core.Account {
		return core.Account{Currency: core.KES, IsActive: true, Balance: decimal.Zero}
	},
	prepare: func(a *core.Account, now time.Time, newID func() string) {
		assignID(&a.ID, newID)
		a.Name = sanitizeInput(a.Name)
		stampCreated(&a.CreatedAt, now)
	},
}

var categories = resource[core.Category, ledger.CategoryPatch]{
	kind:     "category",
	get:      (*ledger.Tx).Category,
	add:      (*ledger.Tx).AddCategory,
	update:   (*ledger.Tx).UpdateCategory,
	remove:   (*ledger.Tx).DeleteCategory,
	apply:    ledger.CategoryPatch.Apply,
	validate: core.Category.Validate,
	defaults: func() core.Category { return core.Category{} },
	prepare: func(c *core.Category, _ time.Time, newID func() string) {
		assignID(&c.ID, newID)
		c.Name = sanitizeInput(c.Name)
	},
}

// projectView adds the savings progress to a project.
type projectView struct {
	core.Project
	Progress decimal.Decimal `json:"progress"`
}

func viewProject(p core.Project) any {
	return projectView{Project: p, Progress: p.Progress()}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Categories())
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	list := s.store.Projects()
	out := make([]any, 0, len(list))
	for _, p := range list {
		out = append(out, viewProject(p))
	}
	writeJSON(w, http.StatusOK, out)
}

var projects = resource[core.Project, ledger.ProjectPatch]{
	kind:     "project",
	get:      (*ledger.Tx).Project,
	add:      (*ledger.Tx).AddProject,
	update:   (*ledger.Tx).UpdateProject,
	remove:   (*ledger.Tx).DeleteProject,
	apply:    ledger.ProjectPatch.Apply,
	validate: core.Project.Validate,
	defaults: func() core.Project {
		return core.Project{Type: core.ProjectCustom, Priority: core.PriorityMedium}
	},
	prepare: func(p *core.Project, now time.Time, newID func() string) {
		assignID(&p.ID, newID)
		p.Name = sanitizeInput(p.Name)
		stampCreated(&p.CreatedAt, now)
	},
	view: viewProject,
}

var recurringTemplates = resource[core.RecurringTransaction, ledger.RecurringPatch]{
	kind:     "recurring transaction",
	get:      (*ledger.Tx).RecurringTransaction,
	add:      (*ledger.Tx).AddRecurringTransaction,
	update:   (*ledger.Tx).UpdateRecurringTransaction,
	remove:   (*ledger.Tx).DeleteRecurringTransaction,
	apply:    ledger.RecurringPatch.Apply,
	validate: core.RecurringTransaction.Validate,
	defaults: func() core.RecurringTransaction { return core.RecurringTransaction{IsActive: true} },
	prepare: func(rt *core.RecurringTransaction, now time.Time, newID func() string) {
		assignID(&rt.ID, newID)
		rt.Name = sanitizeInput(rt.Name)
		if rt.StartDate.IsZero() {
			rt.StartDate = now
		}
		stampCreated(&rt.CreatedAt, now)
	},
	view: viewRecurring,
}

var transactions = resource[core.Transaction, ledger.TransactionPatch]{
	kind:     "transaction",
	get:      (*ledger.Tx).Transaction,
	add:      (*ledger.Tx).AddTransaction,
	update:   (*ledger.Tx).UpdateTransaction,
	remove:   (*ledger.Tx).DeleteTransaction,
	apply:    ledger.TransactionPatch.Apply,
	validate: core.Transaction.Validate,
}
