package http

import (
	"fmt"
	"net/http"
	"strconv"

	"moneytracker/internal/core"
)

const maxTrendMonths = 120

// handleMonthlyStats serves MonthlyStats, memoized per store revision. The
// X-Cache header reports HIT or MISS.
func (s *Server) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseMonthParams(r.URL.Query(), s.clock.Now().In(s.stats.Location()))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	compute := func() core.MonthlyStats { return s.stats.MonthlyStats(year, month) }
	if s.statsCache == nil {
		writeJSON(w, http.StatusOK, compute())
		return
	}

	key := fmt.Sprintf("monthly:%04d-%02d", year, month)
	ms, hit := s.statsCache.GetOrCompute(s.store.Revision(), key, compute)
	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, http.StatusOK, ms)
}

func (s *Server) handlePeriodStats(w http.ResponseWriter, r *http.Request) {
	start, end, err := parsePeriodParams(r.URL.Query(), s.stats, s.clock.Now())
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.stats.PeriodStats(start, end))
}

func (s *Server) handleExpensesByCategory(w http.ResponseWriter, r *http.Request) {
	start, end, err := parsePeriodParams(r.URL.Query(), s.stats, s.clock.Now())
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	out := s.stats.ExpensesByCategory(start, end)
	if out == nil {
		out = []core.CategoryAmount{}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleTrend serves the last ?months= calendar months, six by default.
func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	months := 6
	if v := r.URL.Query().Get("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxTrendMonths {
			badRequest(w, fmt.Sprintf("invalid months %q: must be 1-%d", v, maxTrendMonths))
			return
		}
		months = n
	}
	writeJSON(w, http.StatusOK, s.stats.Trend(s.clock.Now(), months))
}
