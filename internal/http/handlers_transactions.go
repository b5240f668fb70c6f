package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"moneytracker/internal/core"
	"moneytracker/internal/ledger"
	"moneytracker/internal/log"
)

type createTransactionRequest struct {
	Date          string               `json:"date"`
	Amount        *decimal.Decimal     `json:"amount"`
	Type          core.TransactionType `json:"type"`
	CategoryID    string               `json:"categoryId"`
	FromAccountID string               `json:"fromAccountId"`
	ToAccountID   string               `json:"toAccountId"`
	Notes         string               `json:"notes"`
	Tags          []string             `json:"tags"`
}

// transaction builds the transaction to store. References are not resolved;
// the ledger tolerates dangling ids.
func (s *Server) transaction(req createTransactionRequest) (core.Transaction, error) {
	now := s.clock.Now()
	t := core.Transaction{
		ID:            s.newID(),
		Date:          now,
		Type:          core.TransactionType(strings.ToLower(string(req.Type))),
		CategoryID:    strings.TrimSpace(req.CategoryID),
		FromAccountID: strings.TrimSpace(req.FromAccountID),
		ToAccountID:   strings.TrimSpace(req.ToAccountID),
		Notes:         sanitizeInput(req.Notes),
		Tags:          req.Tags,
		CreatedAt:     now,
	}
	if req.Amount == nil {
		return t, errors.New("amount is required")
	}
	t.Amount = *req.Amount
	if req.Date != "" {
		d, err := parseDate(req.Date, s.stats.Location())
		if err != nil {
			return t, err
		}
		t.Date = d
	}
	return t, t.Validate()
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	t, err := s.transaction(req)
	if err != nil {
		unprocessable(w, err.Error())
		return
	}
	if err := s.store.AddTransaction(t); err != nil {
		if errors.Is(err, ledger.ErrDuplicateID) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "could not store transaction")
		return
	}

	s.logger.InfoContext(r.Context(), "Transaction created",
		log.FieldOperation, log.OpCreate,
		log.FieldTransaction, t.ID,
		log.FieldAmount, t.Amount.String())
	s.checkpoint(r.Context())
	writeJSON(w, http.StatusCreated, t)
}

// handleDeleteTransaction is idempotent: an unknown id also yields 204.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.store.DeleteTransaction(id) {
		s.logger.InfoContext(r.Context(), "Transaction deleted",
			log.FieldOperation, log.OpDelete,
			log.FieldTransaction, id)
		s.checkpoint(r.Context())
	}
	w.WriteHeader(http.StatusNoContent)
}
