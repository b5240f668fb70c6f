package http

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"moneytracker/internal/core"
)

type balanceResponse struct {
	AccountID string          `json:"accountId"`
	Currency  core.Currency   `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Balances())
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	acc, ok := s.store.Account(id)
	if !ok {
		notFound(w, "account not found")
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{
		AccountID: acc.ID,
		Currency:  acc.Currency,
		Balance:   s.store.AccountBalance(id),
	})
}

func (s *Server) handleNetWorth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"netWorth": s.store.NetWorth()})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Dashboard(s.clock.Now()))
}

// handleListTransactions lists transactions dated within ?from=&to=, newest
// first.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r.URL.Query(), s.stats, s.clock.Now())
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var out []core.Transaction
	for _, t := range s.store.Transactions() {
		if !t.Date.Before(start) && !t.Date.After(end) {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b core.Transaction) int { return b.Date.Compare(a.Date) })
	if out == nil {
		out = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, out)
}
