package http

import (
	"fmt"
	"net/http"
	"time"

	"moneytracker/internal/log"
	"moneytracker/internal/transfer"
)

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r.URL.Query(), s.stats, s.clock.Now())
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	loc := s.stats.Location()
	name := fmt.Sprintf("transactions-%s-%s.csv",
		start.In(loc).Format(time.DateOnly), end.In(loc).Format(time.DateOnly))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	if err := transfer.WriteTransactionsCSV(w, s.store, start, end, loc); err != nil {
		s.logger.ErrorContext(r.Context(), "CSV export failed", log.FieldOperation, log.OpExport, log.FieldError, err)
	}
}

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	now := s.clock.Now()
	name := fmt.Sprintf("moneytracker-backup-%s.json", now.In(s.stats.Location()).Format(time.DateOnly))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	if err := transfer.WriteBackup(w, s.store.Snapshot(), now); err != nil {
		s.logger.ErrorContext(r.Context(), "Backup export failed", log.FieldOperation, log.OpExport, log.FieldError, err)
	}
}
