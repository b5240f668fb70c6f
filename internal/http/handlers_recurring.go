package http

import (
	"net/http"
	"time"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
	"moneytracker/internal/services"
)

// recurringView adds the next due date to a template. NextDue is omitted for
// frequencies the processor does not support.
type recurringView struct {
	core.RecurringTransaction
	NextDue *time.Time `json:"nextDue,omitempty"`
}

func viewRecurring(rt core.RecurringTransaction) any {
	v := recurringView{RecurringTransaction: rt}
	if next, err := services.NextDue(rt); err == nil {
		v.NextDue = &next
	}
	return v
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	templates := s.store.RecurringTransactions()
	out := make([]any, 0, len(templates))
	for _, rt := range templates {
		out = append(out, viewRecurring(rt))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleProcessRecurring runs one recurring pass on demand.
func (s *Server) handleProcessRecurring(w http.ResponseWriter, r *http.Request) {
	if s.processor == nil {
		writeError(w, http.StatusServiceUnavailable, "recurring processing is not configured")
		return
	}
	res, err := s.processor.Process(r.Context())
	if err != nil {
		if res.Changed() {
			s.checkpoint(r.Context())
		}
		s.logger.ErrorContext(r.Context(), "Recurring pass failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "recurring processing failed")
		return
	}
	if res.Changed() {
		s.checkpoint(r.Context())
	}
	writeJSON(w, http.StatusOK, res)
}
